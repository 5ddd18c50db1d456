package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/errors"
	"github.com/quillpost/apiserver/internal/llm"
	"github.com/quillpost/apiserver/internal/mq"
	"github.com/quillpost/apiserver/internal/prompt"
	"github.com/quillpost/apiserver/internal/store"
	"github.com/quillpost/apiserver/types"
	"go.uber.org/zap"
)

// ErrGenerationFailed matches every failed upstream generation.
var ErrGenerationFailed = errors.ErrUpstream

// ContentRepository defines read and delete operations for generated content.
type ContentRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Content, error)
	DeleteByIDAndUser(ctx context.Context, id, userID uuid.UUID) error
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// GenerationRepository persists a generation result together with the owner's
// statistics update.
type GenerationRepository interface {
	SaveGeneration(ctx context.Context, content types.Content, record func(stats *types.ContentStats)) (types.Content, error)
}

// EventPublisher is the subset of the message queue used for content events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// GenerateRequest holds the user-supplied generation parameters.
type GenerateRequest struct {
	Type   string
	Topic  string
	Tone   string
	Length string
}

// ContentService encapsulates the generation pipeline and content history.
type ContentService struct {
	contents    ContentRepository
	generations GenerationRepository
	llm         llm.Client
	events      EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewContentService wires the pipeline. events may be nil to disable publishing.
func NewContentService(
	contents ContentRepository,
	generations GenerationRepository,
	client llm.Client,
	events EventPublisher,
	logger *zap.Logger,
) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{
		contents:    contents,
		generations: generations,
		llm:         client,
		events:      events,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Generate builds a prompt, calls the upstream model once and persists the
// result with the owner's updated statistics. Upstream failures persist nothing.
func (s *ContentService) Generate(ctx context.Context, userID uuid.UUID, req GenerateRequest) (types.Content, error) {
	contentType, ok := types.ParseContentType(req.Type)
	if !ok {
		return types.Content{}, errors.Validation("type must be one of: blog tweet linkedin")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return types.Content{}, errors.Validation("topic is required")
	}
	tone := strings.TrimSpace(req.Tone)
	if tone == "" {
		tone = types.DefaultTone
	}
	length := types.Length(strings.ToLower(strings.TrimSpace(req.Length)))
	switch length {
	case "":
		length = types.DefaultLength
	case types.LengthShort, types.LengthMedium, types.LengthLong:
	default:
		return types.Content{}, errors.Validation("length must be one of: short medium long")
	}

	instruction := prompt.Build(prompt.Request{
		Type:   string(contentType),
		Topic:  topic,
		Tone:   tone,
		Length: string(length),
	})

	text, err := s.llm.Complete(ctx, instruction)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyCompletion
	}
	if err != nil {
		s.logger.Error("content generation failed",
			zap.String("user_id", userID.String()),
			zap.String("type", string(contentType)),
			zap.Error(err),
		)
		return types.Content{}, errors.Upstream(err, "Failed to generate content.")
	}

	content, err := s.generations.SaveGeneration(ctx, types.Content{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      contentType,
		Topic:     topic,
		Tone:      tone,
		Length:    length,
		Content:   text,
		CreatedAt: s.now(),
	}, func(stats *types.ContentStats) {
		stats.Record(contentType, tone)
	})
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return types.Content{}, errors.NotFound("User not found")
		}
		return types.Content{}, err
	}

	s.publish(ctx, mq.ChannelContentGenerated, mq.ContentGenerated{
		ContentID: content.ID,
		UserID:    content.UserID,
		Type:      string(content.Type),
		Tone:      content.Tone,
		Length:    string(content.Length),
		CreatedAt: content.CreatedAt,
	})
	return content, nil
}

// History lists the user's content, newest first.
func (s *ContentService) History(ctx context.Context, userID uuid.UUID) ([]types.Content, error) {
	return s.contents.ListByUser(ctx, userID)
}

// Delete removes one record owned by userID.
func (s *ContentService) Delete(ctx context.Context, userID, contentID uuid.UUID) error {
	if err := s.contents.DeleteByIDAndUser(ctx, contentID, userID); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return errors.NotFound("Content not found or unauthorized.")
		}
		return err
	}

	s.publish(ctx, mq.ChannelContentDeleted, mq.ContentDeleted{
		UserID:     userID,
		ContentIDs: []uuid.UUID{contentID},
	})
	return nil
}

// DeleteAll removes every record owned by userID and returns how many were deleted.
func (s *ContentService) DeleteAll(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := s.contents.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.NotFound("No content found to delete.")
	}

	s.publish(ctx, mq.ChannelContentDeleted, mq.ContentDeleted{
		UserID:     userID,
		ContentIDs: ids,
	})
	return len(ids), nil
}

// publish sends an event best effort; the write it describes has already committed.
func (s *ContentService) publish(ctx context.Context, channel string, event any) {
	if s.events == nil {
		return
	}
	data, attrs, err := mq.Encode(channel, event)
	if err == nil {
		_, err = s.events.Publish(ctx, channel, data, attrs)
	}
	if err != nil {
		s.logger.Warn("failed to publish content event", zap.String("channel", channel), zap.Error(err))
	}
}
