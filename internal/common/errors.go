// Package common defines shared constants and sentinel errors used across
// the server layers of MediaVault. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrWeakPassword       = errors.New("password too weak")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidToken       = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenConsumed = errors.New("token already used")

	// Folder and sharing errors.
	ErrNotOwner          = errors.New("not the folder owner")
	ErrSelfShare         = errors.New("cannot share a folder with yourself")
	ErrDuplicateShare    = errors.New("folder already shared with this user")
	ErrInvalidPermission = errors.New("invalid permission level")
	ErrAccessDenied      = errors.New("access denied")
	ErrCorruptHierarchy  = errors.New("corrupt folder hierarchy")

	// Upload errors.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrFileTooLarge     = errors.New("file too large")
)
