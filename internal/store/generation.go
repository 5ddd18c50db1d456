package store

import (
	"context"
	"database/sql"

	"github.com/quillpost/apiserver/internal/db"
	"github.com/quillpost/apiserver/types"
)

// GenerationRepository records a generation result and the owner's statistics
// in a single transaction.
type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(conn *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: conn}
}

// SaveGeneration inserts content and applies record to the owner's stats.
// The owner row is locked for the duration of the transaction so concurrent
// generations by the same user are applied one after another.
func (r *GenerationRepository) SaveGeneration(
	ctx context.Context,
	content types.Content,
	record func(stats *types.ContentStats),
) (types.Content, error) {
	var saved types.Content
	err := db.WithTx(ctx, r.db, nil, func(ctx context.Context, tx db.DBTX) error {
		users := NewUserRepository(tx)
		user, err := users.getForUpdate(ctx, content.UserID)
		if err != nil {
			return err
		}

		saved, err = NewContentRepository(tx).Create(ctx, content)
		if err != nil {
			return err
		}

		record(&user.ContentStats)
		return users.updateStats(ctx, user.ID, user.ContentStats)
	})
	if err != nil {
		return types.Content{}, err
	}
	return saved, nil
}
