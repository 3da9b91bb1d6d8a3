// Package tokens provides a PostgreSQL-backed repository for single-use
// tokens used by e-mail verification and password reset.
package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.AuthToken) (*models.AuthToken, error) {
	query := `
		INSERT INTO auth_tokens (user_id, purpose, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, token.UserID, string(token.Purpose), token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, hash []byte, purpose models.TokenPurpose) (*models.AuthToken, error) {
	query := `
		SELECT id, user_id, purpose, token_hash, created_at, expires_at, consumed_at
		FROM auth_tokens
		WHERE token_hash = $1 AND purpose = $2
	`
	t := &models.AuthToken{}
	var p string
	var consumedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, hash, string(purpose)).
		Scan(&t.ID, &t.UserID, &p, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &consumedAt)
	if err != nil {
		if dbx.NoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	t.Purpose = models.TokenPurpose(p)
	if consumedAt.Valid {
		t.ConsumedAt = &consumedAt.Time
	}
	return t, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, id string) error {
	query := `
		UPDATE auth_tokens SET consumed_at = now()
		WHERE id = $1 AND consumed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrTokenConsumed
	}
	return nil
}

func (r *PostgresRepository) ConsumeAllForUser(ctx context.Context, userID string, purpose models.TokenPurpose) (int64, error) {
	query := `
		UPDATE auth_tokens SET consumed_at = now()
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, userID, string(purpose))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM auth_tokens
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
