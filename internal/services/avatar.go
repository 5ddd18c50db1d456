package services

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/errors"
	"github.com/quillpost/apiserver/internal/id"
	"github.com/quillpost/apiserver/internal/storage"
	"github.com/quillpost/apiserver/internal/store"
	"github.com/quillpost/apiserver/types"
	"go.uber.org/zap"
)

// MaxAvatarSize is the largest accepted profile image in bytes.
const MaxAvatarSize = 5 << 20

const avatarPrefix = "avatars/"

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStore is the subset of object storage used for avatars.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// AvatarService stores profile images and points the user's profile at them.
type AvatarService struct {
	users     UserRepository
	objects   ObjectStore
	publicURL string
	logger    *zap.Logger
}

// NewAvatarService returns nil when objects is nil so callers can treat uploads
// as disabled.
func NewAvatarService(users UserRepository, objects ObjectStore, publicURL string, logger *zap.Logger) *AvatarService {
	if objects == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvatarService{
		users:     users,
		objects:   objects,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Upload stores data as the user's new profile image. The previous image is
// removed when it was stored by this service.
func (s *AvatarService) Upload(ctx context.Context, userID uuid.UUID, data []byte) (types.User, error) {
	if len(data) == 0 {
		return types.User{}, errors.Validation("image is required")
	}
	if len(data) > MaxAvatarSize {
		return types.User{}, errors.Validation("image must be at most 5 MiB")
	}
	contentType := http.DetectContentType(data)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return types.User{}, errors.Validation("image must be png, jpeg, gif or webp")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return types.User{}, errors.NotFound("User not found")
		}
		return types.User{}, err
	}

	name, err := id.Generate("avatar")
	if err != nil {
		return types.User{}, err
	}
	key := avatarPrefix + userID.String() + "/" + name + ext

	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.User{}, err
	}

	previous := user.ProfileImageURL
	user.ProfileImageURL = s.publicURL + "/" + key

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		s.remove(ctx, key)
		if stderrors.Is(err, store.ErrNotFound) {
			return types.User{}, errors.NotFound("User not found")
		}
		return types.User{}, err
	}

	if oldKey, ok := s.keyFromURL(previous); ok && oldKey != key {
		s.remove(ctx, oldKey)
	}
	return updated, nil
}

// Open returns a stored avatar object. Callers must close the body.
func (s *AvatarService) Open(ctx context.Context, key string) (*storage.Object, error) {
	if !strings.HasPrefix(key, avatarPrefix) || strings.Contains(key, "..") {
		return nil, errors.NotFound("Media not found")
	}
	obj, err := s.objects.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotFound) {
			return nil, errors.NotFound("Media not found")
		}
		return nil, err
	}
	return obj, nil
}

func (s *AvatarService) keyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || !strings.HasPrefix(key, avatarPrefix) {
		return "", false
	}
	return key, true
}

func (s *AvatarService) remove(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete avatar object", zap.String("key", key), zap.Error(err))
	}
}
