package mq

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Channels content events are published on.
const (
	ChannelContentGenerated = "content.generated"
	ChannelContentDeleted   = "content.deleted"
)

// AttrEventType is the message attribute carrying the event channel name.
const AttrEventType = "event_type"

// ContentGenerated is published after a generation has been persisted.
type ContentGenerated struct {
	ContentID uuid.UUID `json:"contentId"`
	UserID    uuid.UUID `json:"userId"`
	Type      string    `json:"type"`
	Tone      string    `json:"tone"`
	Length    string    `json:"length"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContentDeleted is published after one or more records were deleted.
type ContentDeleted struct {
	UserID     uuid.UUID   `json:"userId"`
	ContentIDs []uuid.UUID `json:"contentIds"`
}

// Encode marshals an event and the attributes that accompany it on channel.
func Encode(channel string, event any) ([]byte, map[string]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	return data, map[string]string{AttrEventType: channel}, nil
}
