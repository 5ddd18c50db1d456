package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/errors"
	"go.uber.org/zap"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

const serverErrorMessage = "Server Error"

// ErrorResponse is the error payload returned by every endpoint.
type ErrorResponse struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// MessageResponse is a bare confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

func userIDFromContext(ctx context.Context) (uuid.UUID, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok {
		return uuid.Nil, stderrors.New("missing subject")
	}
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, stderrors.New("invalid subject")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Validation("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps domain errors to their status. Anything else is
// logged and reported as a generic server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", r.URL.Path),
				zap.String("code", string(domainErr.Code)),
				zap.Error(err),
			)
		}
		if domainErr.Code == errors.CodeInternal {
			writeError(w, status, serverErrorMessage)
			return
		}
		writeJSON(w, status, ErrorResponse{Message: domainErr.Message, Details: domainErr.Details})
		return
	}

	logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, serverErrorMessage)
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
