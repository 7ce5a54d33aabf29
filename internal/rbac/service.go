package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tenantdesk/tenantdesk/internal/shared"
)

// RepositoryPort defines the role administration persistence used by Service.
type RepositoryPort interface {
	ListRoles(ctx context.Context, guard string) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, guard, description string) (Role, error)
	ListPermissions(ctx context.Context, guard string) ([]Permission, error)
	UpsertPermissions(ctx context.Context, guard string, names []string) (int, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AssignRole(ctx context.Context, userID, roleID int64, companyID *int64) error
	RemoveRole(ctx context.Context, userID, roleID int64, companyID *int64) error
	ListUserRoles(ctx context.Context, userID int64) ([]UserRole, error)
}

// Invalidator drops cached permission sets after assignment changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
	InvalidateUser(ctx context.Context, userID int64) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) error             { return nil }
func (noopInvalidator) InvalidateUser(context.Context, int64) error { return nil }

// AuditRecorder persists administrative changes.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const auditActionPrefix = "rbac."

// Audit actions written by Service.
const (
	AuditRoleCreated         = "rbac.role_created"
	AuditRolePermissionsSet  = "rbac.role_permissions_set"
	AuditRoleAssigned        = "rbac.role_assigned"
	AuditRoleRemoved         = "rbac.role_removed"
	AuditCatalogSynchronized = "rbac.catalog_synced"
)

// Service orchestrates RBAC administration.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	guard       string
	auditor     AuditRecorder
	logger      *slog.Logger
}

// NewService constructs a Service. invalidator may be nil when permission
// sets are never cached.
func NewService(repo RepositoryPort, invalidator Invalidator, guard string) *Service {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if guard == "" {
		guard = GuardAPI
	}
	return &Service{repo: repo, invalidator: invalidator, guard: guard}
}

// WithAudit makes s record every successful change through auditor. Audit
// failures are logged and never undo the change.
func (s *Service) WithAudit(auditor AuditRecorder, logger *slog.Logger) *Service {
	s.auditor = auditor
	s.logger = logger
	return s
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx, s.guard)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrInvalidArgument)
	}
	role, err := s.repo.CreateRole(ctx, name, s.guard, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.audit(ctx, AuditRoleCreated, "role", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx, s.guard)
}

// SyncCatalog makes sure every permission declared by catalog exists and
// reports how many were created.
func (s *Service) SyncCatalog(ctx context.Context, catalog *Catalog) (int, error) {
	names := catalog.PermissionNames()
	if len(names) == 0 {
		return 0, nil
	}
	inserted, err := s.repo.UpsertPermissions(ctx, s.guard, names)
	if err != nil {
		return 0, fmt.Errorf("rbac: sync catalog: %w", err)
	}
	if inserted > 0 {
		s.audit(ctx, AuditCatalogSynchronized, "permission", 0, map[string]any{"inserted": inserted, "guard": s.guard})
		// Admin sets enumerate every permission, so they go stale too.
		if err := s.invalidator.Invalidate(ctx); err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

// SetRolePermissions replaces permissions for a role.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.audit(ctx, AuditRolePermissionsSet, "role", roleID, map[string]any{"permission_ids": permissionIDs})
	return s.invalidator.Invalidate(ctx)
}

// AssignRole assigns a role to the given user inside companyID, or globally when nil.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64, companyID *int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, userID, roleID, companyID); err != nil {
		return err
	}
	s.audit(ctx, AuditRoleAssigned, "user", userID, map[string]any{"role_id": roleID, "company_id": companyID})
	return s.invalidator.InvalidateUser(ctx, userID)
}

// RemoveRole removes a role from a user inside companyID, or globally when nil.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64, companyID *int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID, companyID); err != nil {
		return err
	}
	s.audit(ctx, AuditRoleRemoved, "user", userID, map[string]any{"role_id": roleID, "company_id": companyID})
	return s.invalidator.InvalidateUser(ctx, userID)
}

// ListUserRoles returns the role assignments of userID across companies.
func (s *Service) ListUserRoles(ctx context.Context, userID int64) ([]UserRole, error) {
	return s.repo.ListUserRoles(ctx, userID)
}

func (s *Service) audit(ctx context.Context, action, entity string, entityID int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	entry := shared.AuditLog{Action: action, Entity: entity, EntityID: strconv.FormatInt(entityID, 10), Meta: meta}
	if actor := shared.ActorFromContext(ctx); actor != nil {
		entry.ActorID = actor.GetID()
	}
	if err := s.auditor.Record(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("rbac audit", slog.String("action", action), slog.Any("error", err))
	}
}

var _ RepositoryPort = (*Repository)(nil)
