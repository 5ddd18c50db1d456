package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/quillpost/apiserver/internal/errors"
	"github.com/quillpost/apiserver/internal/services"
	"github.com/quillpost/apiserver/internal/storage"
	"github.com/quillpost/apiserver/internal/validation"
	"github.com/quillpost/apiserver/types"
	"go.uber.org/zap"
)

const (
	formFieldImage     = "image"
	maxMultipartMemory = services.MaxAvatarSize + 1<<20
)

// UserHandler provides profile endpoints and the media proxy.
type UserHandler struct {
	userService   *services.UserService
	avatarService *services.AvatarService
	validate      *validation.Validator
	logger        *zap.Logger
}

// NewUserHandler constructs a handler. A nil avatarService disables image
// uploads and media serving.
func NewUserHandler(userService *services.UserService, avatarService *services.AvatarService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		userService:   userService,
		avatarService: avatarService,
		validate:      validation.New(),
		logger:        logger,
	}
}

// UserRouter registers profile routes. Callers mount it behind auth.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Get("/profile", handler.GetProfile)
	r.Put("/profile", handler.UpdateProfile)
	r.Post("/profile/image", handler.UploadProfileImage)
}

// MediaRouter registers the public media proxy.
func MediaRouter(r chi.Router, handler *UserHandler) {
	r.Get("/*", handler.ServeMedia)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	user, err := h.userService.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		Name:            req.Name,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Message: "Profile updated", User: user})
}

func (h *UserHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, unauthorizedMessage)
		return
	}
	if h.avatarService == nil {
		writeError(w, http.StatusNotFound, "Profile image uploads are not enabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeServiceError(w, r, h.logger, errors.Validation("image must be at most 5 MiB"))
		return
	}
	file, _, err := r.FormFile(formFieldImage)
	if err != nil {
		writeServiceError(w, r, h.logger, errors.Validation("image is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxAvatarSize+1))
	if err != nil {
		writeServiceError(w, r, h.logger, errors.Validation("failed to read image"))
		return
	}

	user, err := h.avatarService.Upload(r.Context(), userID, data)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Message: "Profile image updated", User: user})
}

func (h *UserHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	if h.avatarService == nil {
		writeError(w, http.StatusNotFound, "Media not found")
		return
	}

	obj, err := h.avatarService.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", storage.MediaCacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("failed to stream media", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

type UpdateProfileRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Bio             *string `json:"bio" validate:"omitempty,max=500"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,max=2048"`
}

type ProfileResponse struct {
	Message string     `json:"message"`
	User    types.User `json:"user"`
}
