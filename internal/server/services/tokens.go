package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/server/config"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
)

// tokenBytes is the entropy of an issued token before hex encoding.
const tokenBytes = 32

// TokenService issues, validates and consumes single-use tokens.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         map[models.TokenPurpose]time.Duration
	now         func() time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		ttl: map[models.TokenPurpose]time.Duration{
			models.PurposeVerifyEmail:   cfg.VerificationTokenTTL,
			models.PurposeResetPassword: cfg.ResetTokenTTL,
		},
		now: time.Now,
	}
}

// HashToken is the digest under which a token is stored.
func HashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// Issue creates a token for userID on tx and returns the opaque value to
// hand out. Older outstanding tokens of the same purpose stop working.
func (s *TokenService) Issue(ctx context.Context, tx dbx.DBTX, userID string, purpose models.TokenPurpose) (string, error) {
	ttl, ok := s.ttl[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}

	raw, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Tokens(tx)
	if _, err := repo.ConsumeAllForUser(ctx, userID, purpose); err != nil {
		return "", err
	}

	_, err = repo.Create(ctx, &models.AuthToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: HashToken(raw),
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Validate looks token up without consuming it. A consumed token reports
// common.ErrTokenConsumed even when it has also expired.
func (s *TokenService) Validate(ctx context.Context, token string, purpose models.TokenPurpose) (*models.AuthToken, error) {
	if token == "" {
		return nil, common.ErrTokenNotFound
	}

	t, err := s.repomanager.Tokens(s.db).FindByHash(ctx, HashToken(token), purpose)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		return nil, err
	}

	if t.ConsumedAt != nil {
		return nil, common.ErrTokenConsumed
	}
	if !s.now().Before(t.ExpiresAt) {
		return nil, common.ErrTokenExpired
	}
	return t, nil
}

// Consume marks t used on tx. It must run in the transaction that applies
// the token's effect.
func (s *TokenService) Consume(ctx context.Context, tx dbx.DBTX, t *models.AuthToken) error {
	return s.repomanager.Tokens(tx).Consume(ctx, t.ID)
}

// PurgeExpired deletes tokens that expired more than grace ago.
func (s *TokenService) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	return s.repomanager.Tokens(s.db).DeleteExpired(ctx, s.now().Add(-grace))
}
