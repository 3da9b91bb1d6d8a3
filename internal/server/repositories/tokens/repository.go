// Package tokens declares the repository contract for single-use
// verification and password-reset tokens.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// Repository persists hashed single-use tokens.
type Repository interface {
	// Create stores token and fills in its ID and CreatedAt.
	Create(ctx context.Context, token *models.AuthToken) (*models.AuthToken, error)

	// FindByHash returns the token with the given digest and purpose, or
	// common.ErrorNotFound.
	FindByHash(ctx context.Context, hash []byte, purpose models.TokenPurpose) (*models.AuthToken, error)

	// Consume marks the token used. It returns common.ErrTokenConsumed when
	// the token was already consumed, so concurrent redemptions cannot both win.
	Consume(ctx context.Context, id string) error

	// ConsumeAllForUser consumes every outstanding token of purpose for userID.
	ConsumeAllForUser(ctx context.Context, userID string, purpose models.TokenPurpose) (int64, error)

	// DeleteExpired removes tokens that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
