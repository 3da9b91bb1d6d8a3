// Package common contains shared constants and sentinel errors used across
// MediaVault components.
package common

import "time"

const (
	// BearerScheme prefixes API access tokens in the Authorization header.
	BearerScheme = "Bearer"

	// MinPasswordLength is the shortest password accepted at registration and reset.
	MinPasswordLength = 8

	// MaxFolderDepth caps every parent-link walk over the folder forest.
	MaxFolderDepth = 64

	// MaxUploadSize is the largest media or document payload accepted, in bytes.
	MaxUploadSize = 10 << 20

	// DefaultVerificationTokenTTL and DefaultResetTokenTTL are the lifetimes of
	// e-mail verification and password reset tokens.
	DefaultVerificationTokenTTL = 24 * time.Hour
	DefaultResetTokenTTL        = 1 * time.Hour
)
