package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/errors"
	"github.com/quillpost/apiserver/internal/store"
	"github.com/quillpost/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const passwordHashCost = 10

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
}

// ProfileUpdate carries a partial profile update. A nil field leaves the stored
// value unchanged. Bio and ProfileImageURL are cleared by an empty string; an
// empty Name is ignored.
type ProfileUpdate struct {
	Name            *string
	Bio             *string
	ProfileImageURL *string
}

// UserService encapsulates account and profile use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates an account with zero content statistics.
func (s *UserService) Register(ctx context.Context, name, email, password string) (types.User, error) {
	email = normalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, errors.Validation("Email already registered")
	} else if !stderrors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if stderrors.Is(err, store.ErrDuplicate) {
			return types.User{}, errors.Validation("Email already registered")
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate verifies an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return types.User{}, errors.InvalidCredentials("Invalid email or password")
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, errors.InvalidCredentials("Invalid email or password")
	}
	return user, nil
}

// Profile returns the user with statistics.
func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return types.User{}, errors.NotFound("User not found")
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfile applies a partial update and returns the stored user.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (types.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Name != nil {
		if name := strings.TrimSpace(*update.Name); name != "" {
			user.Name = name
		}
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.ProfileImageURL != nil {
		user.ProfileImageURL = strings.TrimSpace(*update.ProfileImageURL)
	}

	updated, err := s.repo.UpdateProfile(ctx, user)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return types.User{}, errors.NotFound("User not found")
		}
		return types.User{}, err
	}
	return updated, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
