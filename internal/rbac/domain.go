package rbac

import (
	"errors"
	"time"
)

// GuardAPI is the only guard whose permissions are evaluated by this package.
const GuardAPI = "api"

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrInvalidArgument signals a programming error in the caller, such as an empty resource or action.
	ErrInvalidArgument = errors.New("rbac: invalid argument")
)

// Role represents a named bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	GuardName   string    `json:"guard_name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	GuardName   string `json:"guard_name"`
	Description string `json:"description,omitempty"`
}

// UserRole links a user to a role, either inside one company or globally when CompanyID is nil.
type UserRole struct {
	UserID    int64     `json:"user_id"`
	RoleID    int64     `json:"role_id"`
	RoleName  string    `json:"role_name"`
	CompanyID *int64    `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal describes the authenticated actor.
type Principal interface {
	GetID() int64
	IsSuperUser() bool
}

// User is the minimal Principal implementation used by callers that
// already loaded the acting user.
type User struct {
	ID      int64
	IsAdmin bool
}

// GetID implements Principal.
func (u User) GetID() int64 { return u.ID }

// IsSuperUser implements Principal.
func (u User) IsSuperUser() bool { return u.IsAdmin }

// Company returns a company scope pointer for the given id.
func Company(id int64) *int64 {
	return &id
}

func isNilPrincipal(p Principal) bool {
	if p == nil {
		return true
	}
	if u, ok := p.(*User); ok && u == nil {
		return true
	}
	return false
}
