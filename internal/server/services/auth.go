package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/cryptox"
	"github.com/dmitrijs2005/mediavault/internal/dbx"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/config"
	"github.com/dmitrijs2005/mediavault/internal/server/models"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
)

// Notifier delivers account e-mails. Delivery problems are the notifier's
// to log; they never fail the calling operation.
type Notifier interface {
	SendVerification(ctx context.Context, to, username, token string)
	SendPasswordReset(ctx context.Context, to, username, token string)
}

// LoginResult is a successful login. EmailUnverified tells the caller to
// remind the user to confirm their address.
type LoginResult struct {
	User            *models.User
	EmailUnverified bool
}

type AuthService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	tokens          *TokenService
	hasher          cryptox.PasswordHasher
	notifier        Notifier
	log             logging.Logger
	maxFailedLogins int
	lockoutDuration time.Duration
	now             func() time.Time

	// dummyHash is compared against when the login names no account, so
	// unknown and known users cost the same.
	dummyHash string
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, tokens *TokenService,
	hasher cryptox.PasswordHasher, notifier Notifier, log logging.Logger) *AuthService {

	dummy, err := hasher.Hash("mediavault-dummy-password")
	if err != nil {
		dummy = ""
	}

	return &AuthService{
		db:              db,
		repomanager:     m,
		tokens:          tokens,
		hasher:          hasher,
		notifier:        notifier,
		log:             log,
		maxFailedLogins: cfg.MaxFailedLogins,
		lockoutDuration: cfg.LockoutDuration,
		now:             time.Now,
		dummyHash:       dummy,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password string) error {
	if len(password) < common.MinPasswordLength {
		return common.ErrWeakPassword
	}
	return nil
}

// Register creates an unverified account and its verification token in one
// transaction, then mails the token.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	if email == "" || username == "" {
		return nil, "", common.ErrorValidation
	}
	if err := checkPassword(password); err != nil {
		return nil, "", err
	}

	users := s.repomanager.Users(s.db)
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, "", common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, "", err
	}
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil, "", common.ErrDuplicateUsername
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("error hashing password: %w", err)
	}

	var (
		user  *models.User
		token string
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		token, err = s.tokens.Issue(ctx, tx, user.ID, models.PurposeVerifyEmail)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	s.notifier.SendVerification(ctx, user.Email, user.Username, token)
	return user, token, nil
}

// Login authenticates by e-mail or username.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = normalizeEmail(login)
	}

	users := s.repomanager.Users(s.db)
	user, err := users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		s.hasher.Verify(password, s.dummyHash)
		return nil, common.ErrInvalidCredentials
	}

	if user.Locked(s.now()) {
		return nil, common.ErrAccountLocked
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		attempts, lockedUntil, err := users.RegisterFailedLogin(ctx, user.ID, s.maxFailedLogins, s.lockoutDuration)
		if err != nil {
			return nil, err
		}
		if lockedUntil != nil && lockedUntil.After(s.now()) {
			s.log.Warn(ctx, "account locked", "user_id", user.ID, "until", *lockedUntil)
		} else {
			s.log.Info(ctx, "failed login", "user_id", user.ID, "attempts", attempts)
		}
		return nil, common.ErrInvalidCredentials
	}

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		if err := users.ResetFailedLogins(ctx, user.ID); err != nil {
			return nil, err
		}
		user.FailedAttempts = 0
		user.LockedUntil = nil
	}

	return &LoginResult{User: user, EmailUnverified: !user.EmailVerified}, nil
}

// RequestPasswordReset issues and mails a reset token when email belongs to
// an active account. It reports success either way; the returned token is
// empty when nothing was sent.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.IsActive {
		return "", nil
	}

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		token, err = s.tokens.Issue(ctx, tx, user.ID, models.PurposeResetPassword)
		return err
	})
	if err != nil {
		return "", err
	}

	s.notifier.SendPasswordReset(ctx, user.Email, user.Username, token)
	return token, nil
}

// CheckResetToken reports whether a reset token can still be redeemed.
func (s *AuthService) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.tokens.Validate(ctx, token, models.PurposeResetPassword)
	return err
}

// ResetPassword redeems a reset token. The token is consumed and the new
// password stored atomically; any lockout is lifted.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	t, err := s.tokens.Validate(ctx, token, models.PurposeResetPassword)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.tokens.Consume(ctx, tx, t); err != nil {
			return err
		}
		return s.repomanager.Users(tx).UpdatePassword(ctx, t.UserID, hash)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password reset", "user_id", t.UserID)
	return nil
}

// VerifyEmail redeems a verification token and returns the verified user's ID.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (string, error) {
	t, err := s.tokens.Validate(ctx, token, models.PurposeVerifyEmail)
	if err != nil {
		return "", err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.tokens.Consume(ctx, tx, t); err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetEmailVerified(ctx, t.UserID)
	})
	if err != nil {
		return "", err
	}

	s.log.Info(ctx, "email verified", "user_id", t.UserID)
	return t.UserID, nil
}

// ResendVerification replaces any outstanding verification token with a new one.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.EmailVerified {
		return "", common.ErrAlreadyVerified
	}

	var token string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		token, err = s.tokens.Issue(ctx, tx, user.ID, models.PurposeVerifyEmail)
		return err
	})
	if err != nil {
		return "", err
	}

	s.notifier.SendVerification(ctx, user.Email, user.Username, token)
	return token, nil
}

// ChangePassword replaces the password of a signed-in user after checking
// the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	users := s.repomanager.Users(s.db)

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.ErrInvalidCredentials
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	return users.UpdatePassword(ctx, userID, hash)
}

// UnlockAccount clears a lockout and the failure counter.
func (s *AuthService) UnlockAccount(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).Unlock(ctx, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "account unlocked", "user_id", userID)
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// CreateVerifiedUser provisions an account that can sign in right away.
// It is meant for operators; no e-mail is sent.
func (s *AuthService) CreateVerifiedUser(ctx context.Context, email, username, password string, admin bool) (*models.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)

	if email == "" || username == "" {
		return nil, common.ErrorValidation
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	return s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:         email,
		Username:      username,
		PasswordHash:  hash,
		IsActive:      true,
		IsAdmin:       admin,
		EmailVerified: true,
	})
}
