package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetID implements rbac.Principal.
func (u *User) GetID() int64 { return u.ID }

// IsSuperUser implements rbac.Principal.
func (u *User) IsSuperUser() bool { return u.IsAdmin }
