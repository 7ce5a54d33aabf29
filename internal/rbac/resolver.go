package rbac

import (
	"context"
	"fmt"
)

// Store reads role and permission assignments. Implementations may block on I/O.
type Store interface {
	// EffectivePermissionNames returns the permission names attached to the
	// roles userID holds in companyID, or globally when companyID is nil.
	EffectivePermissionNames(ctx context.Context, userID int64, companyID *int64, guard string) ([]string, error)
	// PermissionNames returns every permission that exists for guard.
	PermissionNames(ctx context.Context, guard string) ([]string, error)
}

// Resolver computes effective permission sets.
type Resolver struct {
	store Store
	guard string
}

// NewResolver constructs a Resolver for guard, defaulting to GuardAPI.
func NewResolver(store Store, guard string) *Resolver {
	if guard == "" {
		guard = GuardAPI
	}
	return &Resolver{store: store, guard: guard}
}

// EffectivePermissions resolves the permission set of user within companyID.
// Admins receive every permission of the guard regardless of company.
func (r *Resolver) EffectivePermissions(ctx context.Context, user Principal, companyID *int64) (PermissionSet, error) {
	if isNilPrincipal(user) {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.IsSuperUser() {
		names, err := r.store.PermissionNames(ctx, r.guard)
		if err != nil {
			return nil, fmt.Errorf("rbac: list permissions: %w", err)
		}
		return NewPermissionSet(names...), nil
	}
	names, err := r.store.EffectivePermissionNames(ctx, user.GetID(), companyID, r.guard)
	if err != nil {
		return nil, fmt.Errorf("rbac: effective permissions for user %d: %w", user.GetID(), err)
	}
	return NewPermissionSet(names...), nil
}
