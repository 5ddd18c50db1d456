package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType enumerates the kinds of content that can be persisted.
type ContentType string

// Supported content types.
const (
	ContentTypeBlog     ContentType = "blog"
	ContentTypeTweet    ContentType = "tweet"
	ContentTypeLinkedIn ContentType = "linkedin"
)

// ParseContentType maps a request value onto a ContentType.
// "x" is accepted as an alias for tweet. The second result is false
// when the value is not a supported type.
func ParseContentType(value string) (ContentType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "blog":
		return ContentTypeBlog, true
	case "tweet", "x":
		return ContentTypeTweet, true
	case "linkedin":
		return ContentTypeLinkedIn, true
	default:
		return "", false
	}
}

// Length enumerates the requested output size.
type Length string

// Supported lengths.
const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Defaults applied to generation requests that omit tone or length.
const (
	DefaultTone   = "professional"
	DefaultLength = LengthMedium
)

// Content is an immutable record of one generation result.
type Content struct {
	// ID is the unique identifier of the content record.
	ID uuid.UUID `json:"id" db:"id"`

	// UserID identifies the user who owns this record.
	UserID uuid.UUID `json:"userId" db:"user_id"`

	// Type is the kind of content that was generated.
	Type ContentType `json:"type" db:"type"`

	// Topic is the free-text subject supplied by the user.
	Topic string `json:"topic" db:"topic"`

	// Tone is the requested writing tone, e.g. "professional" or "casual".
	Tone string `json:"tone" db:"tone"`

	// Length is the requested output size.
	Length Length `json:"length" db:"length"`

	// Content is the generated text body, stored verbatim.
	Content string `json:"content" db:"content"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
