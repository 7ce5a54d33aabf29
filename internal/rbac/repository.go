package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tenantdesk/tenantdesk/internal/platform/db"
	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// constraintError translates constraint violations into domain errors and
// leaves every other error untouched.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: referenced record missing (%s)", ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

// Repository provides PostgreSQL backed persistence for roles and permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const (
	effectiveCompanyPermissionsSQL = `
SELECT DISTINCT p.name
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
JOIN role_has_permissions rp ON rp.role_id = ur.role_id
JOIN permissions p ON p.id = rp.permission_id
WHERE ur.user_id = $1 AND ur.company_id = $2 AND r.guard_name = $3 AND p.guard_name = $3`

	effectiveGlobalPermissionsSQL = `
SELECT DISTINCT p.name
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
JOIN role_has_permissions rp ON rp.role_id = ur.role_id
JOIN permissions p ON p.id = rp.permission_id
WHERE ur.user_id = $1 AND ur.company_id IS NULL AND r.guard_name = $2 AND p.guard_name = $2`
)

// EffectivePermissionNames implements Store.
func (r *Repository) EffectivePermissionNames(ctx context.Context, userID int64, companyID *int64, guard string) ([]string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if companyID != nil {
		rows, err = r.pool.Query(ctx, effectiveCompanyPermissionsSQL, userID, *companyID, guard)
	} else {
		rows, err = r.pool.Query(ctx, effectiveGlobalPermissionsSQL, userID, guard)
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// PermissionNames implements Store.
func (r *Repository) PermissionNames(ctx context.Context, guard string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM permissions WHERE guard_name = $1 ORDER BY name`, guard)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListRoles returns all roles of guard ordered by name.
func (r *Repository) ListRoles(ctx context.Context, guard string) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, guard_name, description, created_at, updated_at FROM roles WHERE guard_name = $1 ORDER BY name`, guard)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.GuardName, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, guard_name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.GuardName, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, guard, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
INSERT INTO roles (name, guard_name, description, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, name, guard_name, description, created_at, updated_at`, name, guard, description).
		Scan(&role.ID, &role.Name, &role.GuardName, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, constraintError(err)
	}
	return role, nil
}

// ListPermissions returns all permissions of guard ordered by name.
func (r *Repository) ListPermissions(ctx context.Context, guard string) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, guard_name, description FROM permissions WHERE guard_name = $1 ORDER BY name`, guard)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.GuardName, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// UpsertPermissions ensures every name exists for guard inside one transaction
// and returns how many rows were inserted.
func (r *Repository) UpsertPermissions(ctx context.Context, guard string, names []string) (int, error) {
	inserted := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, name := range names {
			tag, err := tx.Exec(ctx, `
INSERT INTO permissions (name, guard_name, description)
VALUES ($1, $2, '')
ON CONFLICT (name, guard_name) DO NOTHING`, name, guard)
			if err != nil {
				return fmt.Errorf("upsert permission %s: %w", name, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// SetRolePermissions replaces the permissions attached to a role.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return constraintError(db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT permission_id FROM role_has_permissions WHERE role_id = $1`, roleID)
		if err != nil {
			return err
		}
		current, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return err
		}
		existing := make(map[int64]struct{}, len(current))
		for _, id := range current {
			existing[id] = struct{}{}
		}
		keep := make(map[int64]struct{}, len(permissionIDs))
		for _, id := range permissionIDs {
			keep[id] = struct{}{}
			if _, ok := existing[id]; ok {
				continue
			}
			if _, err := tx.Exec(ctx, `INSERT INTO role_has_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, id); err != nil {
				return err
			}
		}
		for id := range existing {
			if _, ok := keep[id]; ok {
				continue
			}
			if _, err := tx.Exec(ctx, `DELETE FROM role_has_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, id); err != nil {
				return err
			}
		}
		return nil
	}))
}

// AssignRole grants a role to a user within companyID, or globally when nil.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64, companyID *int64) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO user_roles (user_id, role_id, company_id, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT DO NOTHING`, userID, roleID, companyID)
	return constraintError(err)
}

// RemoveRole revokes a role from a user within companyID, or globally when nil.
func (r *Repository) RemoveRole(ctx context.Context, userID, roleID int64, companyID *int64) error {
	var err error
	if companyID != nil {
		_, err = r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2 AND company_id = $3`, userID, roleID, *companyID)
	} else {
		_, err = r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2 AND company_id IS NULL`, userID, roleID)
	}
	return err
}

// ListUserRoles returns every role assignment of userID, global ones first.
func (r *Repository) ListUserRoles(ctx context.Context, userID int64) ([]UserRole, error) {
	rows, err := r.pool.Query(ctx, `
SELECT ur.user_id, ur.role_id, r.name, ur.company_id, ur.created_at
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1
ORDER BY ur.company_id NULLS FIRST, r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserRole
	for rows.Next() {
		var ur UserRole
		if err := rows.Scan(&ur.UserID, &ur.RoleID, &ur.RoleName, &ur.CompanyID, &ur.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ur)
	}
	return out, rows.Err()
}

var _ Store = (*Repository)(nil)
