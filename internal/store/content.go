package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/db"
	"github.com/quillpost/apiserver/types"
)

// ContentRepository handles persistence for generated content.
type ContentRepository struct {
	db db.DBTX
}

func NewContentRepository(conn db.DBTX) *ContentRepository {
	return &ContentRepository{db: conn}
}

// ListByUser returns the user's content, newest first.
func (r *ContentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Content, error) {
	const query = `
		SELECT id, user_id, type, topic, tone, length, content, created_at
		FROM contents
		WHERE user_id = $1
		ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contents := make([]types.Content, 0)
	for rows.Next() {
		var content types.Content
		if err := rows.Scan(
			&content.ID,
			&content.UserID,
			&content.Type,
			&content.Topic,
			&content.Tone,
			&content.Length,
			&content.Content,
			&content.CreatedAt,
		); err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contents, nil
}

func (r *ContentRepository) Create(ctx context.Context, content types.Content) (types.Content, error) {
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO contents (id, user_id, type, topic, tone, length, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		content.ID,
		content.UserID,
		content.Type,
		content.Topic,
		content.Tone,
		content.Length,
		content.Content,
		content.CreatedAt,
	); err != nil {
		return types.Content{}, err
	}
	return content, nil
}

// DeleteByIDAndUser removes one record owned by userID. Records owned by
// someone else are reported as ErrNotFound and left in place.
func (r *ContentRepository) DeleteByIDAndUser(ctx context.Context, id, userID uuid.UUID) error {
	const query = `DELETE FROM contents WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteAllByUser removes every record owned by userID and returns their ids.
func (r *ContentRepository) DeleteAllByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const query = `DELETE FROM contents WHERE user_id = $1 RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
