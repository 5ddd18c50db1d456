package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/errors"
	"github.com/quillpost/apiserver/internal/ratelimit"
	"github.com/quillpost/apiserver/internal/services"
	"github.com/quillpost/apiserver/internal/validation"
	"go.uber.org/zap"
)

// ContentHandler provides HTTP handlers for generated content.
type ContentHandler struct {
	contentService *services.ContentService
	limiter        *ratelimit.KeyedRateLimiter
	validate       *validation.Validator
	logger         *zap.Logger
}

// NewContentHandler constructs a handler. A nil limiter disables rate limiting.
func NewContentHandler(contentService *services.ContentService, limiter *ratelimit.KeyedRateLimiter, logger *zap.Logger) *ContentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentHandler{
		contentService: contentService,
		limiter:        limiter,
		validate:       validation.New(),
		logger:         logger,
	}
}

// ContentRouter registers content routes. Callers mount it behind auth.
func ContentRouter(r chi.Router, handler *ContentHandler) {
	r.Post("/generate", handler.Generate)
	r.Get("/history", handler.History)
	r.Delete("/delete/all", handler.DeleteAll)
	r.Delete("/delete/{contentID}", handler.Delete)
}

func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	// Only well-formed requests spend quota.
	if h.limiter != nil && !h.limiter.Allow(userID.String()) {
		writeServiceError(w, r, h.logger, errors.RateLimited("Too many generation requests, please slow down."))
		return
	}

	content, err := h.contentService.Generate(r.Context(), userID, services.GenerateRequest{
		Type:   req.Type,
		Topic:  req.Topic,
		Tone:   req.Tone,
		Length: req.Length,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, content)
}

func (h *ContentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	items, err := h.contentService.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	contentID, err := uuid.Parse(chi.URLParam(r, "contentID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Content not found or unauthorized.")
		return
	}

	if err := h.contentService.Delete(r.Context(), userID, contentID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Content deleted successfully."})
}

func (h *ContentHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	deleted, err := h.contentService.DeleteAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteAllResponse{
		Message:      "All content deleted successfully.",
		DeletedCount: deleted,
	})
}

type GenerateRequest struct {
	Type   string `json:"type" validate:"required"`
	Topic  string `json:"topic" validate:"required,max=500"`
	Tone   string `json:"tone" validate:"omitempty,max=50"`
	Length string `json:"length" validate:"omitempty,max=20"`
}

type DeleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}
