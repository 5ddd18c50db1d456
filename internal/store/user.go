package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/quillpost/apiserver/internal/db"
	"github.com/quillpost/apiserver/types"
)

const userColumns = `id, name, email, password_hash, bio, profile_image_url, content_stats, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(conn db.DBTX) *UserRepository {
	return &UserRepository{db: conn}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// getForUpdate locks the user row until the surrounding transaction ends.
func (r *UserRepository) getForUpdate(ctx context.Context, id uuid.UUID) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, name, email, password_hash, bio, profile_image_url, content_stats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Bio,
		user.ProfileImageURL,
		user.ContentStats,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfile writes the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET name = $1,
			bio = $2,
			profile_image_url = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Name,
		user.Bio,
		user.ProfileImageURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) updateStats(ctx context.Context, id uuid.UUID, stats types.ContentStats) error {
	const query = `UPDATE users SET content_stats = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, stats, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Bio,
		&user.ProfileImageURL,
		&user.ContentStats,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
