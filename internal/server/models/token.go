package models

import "time"

// TokenPurpose tells single-use tokens of different flows apart.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// AuthToken is a stored single-use token. Only the SHA-256 digest of the
// opaque value handed to the user is persisted.
type AuthToken struct {
	ID         string
	UserID     string
	Purpose    TokenPurpose
	TokenHash  []byte
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}
