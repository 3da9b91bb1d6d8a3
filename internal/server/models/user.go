// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a row of the credential store.
type User struct {
	ID             string
	Email          string
	Username       string
	PasswordHash   string
	IsActive       bool
	IsAdmin        bool
	EmailVerified  bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the account is locked out at instant now.
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Roles returns the role names carried in the session.
func (u *User) Roles() []string {
	if u.IsAdmin {
		return []string{RoleUser, RoleAdmin}
	}
	return []string{RoleUser}
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
