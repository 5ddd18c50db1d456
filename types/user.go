package types

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account in the system.
// It contains identity, profile fields, and rolling content statistics.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique across users
	// and used as the login identifier.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Bio is a free-form profile description. Empty when unset.
	Bio string `json:"bio" db:"bio"`

	// ProfileImageURL points at the user's avatar. Empty when unset.
	ProfileImageURL string `json:"profileImageUrl" db:"profile_image_url"`

	// ContentStats aggregates the user's generation history.
	ContentStats ContentStats `json:"contentStats" db:"content_stats"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the reduced view of a user returned by the auth endpoints.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Summary returns the identity fields of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
