package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// Repository is the credential store.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByLogin looks a user up by email or username.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	// RegisterFailedLogin atomically bumps the failure counter. When the
	// counter reaches maxAttempts the account is locked for lockout and the
	// counter starts over. It returns the counter and lock after the update.
	RegisterFailedLogin(ctx context.Context, id string, maxAttempts int, lockout time.Duration) (int, *time.Time, error)
	ResetFailedLogins(ctx context.Context, id string) error
	SetEmailVerified(ctx context.Context, id string) error
	// UpdatePassword stores a new hash and clears any lockout.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	Unlock(ctx context.Context, id string) error
}
