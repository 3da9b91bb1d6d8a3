// Package users implements the credential store on PostgreSQL.
package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

const (
	emailConstraint    = "users_email_key"
	usernameConstraint = "users_username_key"
)

const userColumns = `id, email, username, password_hash, is_active, is_admin, email_verified, failed_attempts, locked_until, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, username, password_hash, is_active, is_admin, email_verified)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.IsActive, user.IsAdmin, user.EmailVerified).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			switch constraint {
			case emailConstraint:
				return nil, common.ErrDuplicateEmail
			case usernameConstraint:
				return nil, common.ErrDuplicateUsername
			}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $1`, login)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var lockedUntil sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.IsActive, &user.IsAdmin, &user.EmailVerified,
		&user.FailedAttempts, &lockedUntil, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.NoRows(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}

	return user, nil
}

func (r *PostgresRepository) RegisterFailedLogin(ctx context.Context, id string, maxAttempts int, lockout time.Duration) (int, *time.Time, error) {
	// SET expressions see the pre-update row, so both CASEs agree.
	query :=
		`UPDATE users SET
		   failed_attempts = CASE WHEN failed_attempts + 1 >= $2 THEN 0 ELSE failed_attempts + 1 END,
		   locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN now() + make_interval(secs => $3) ELSE locked_until END,
		   updated_at = now()
		 WHERE id = $1
		 RETURNING failed_attempts, locked_until
		 `

	var attempts int
	var lockedUntil sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts, lockout.Seconds()).Scan(&attempts, &lockedUntil)

	if err != nil {
		if dbx.NoRows(err) {
			return 0, nil, common.ErrorNotFound
		}
		return 0, nil, fmt.Errorf("db error: %w", err)
	}

	if lockedUntil.Valid {
		return attempts, &lockedUntil.Time, nil
	}
	return attempts, nil, nil
}

func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = now()
		 WHERE id = $1 AND (failed_attempts <> 0 OR locked_until IS NOT NULL)
		 `
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.execOne(ctx,
		`UPDATE users SET password_hash = $2, failed_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1`,
		id, passwordHash)
}

func (r *PostgresRepository) Unlock(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1`, id)
}

// execOne runs an update that must touch exactly one user.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.NoRows(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
