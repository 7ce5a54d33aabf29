package rbac

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tenantdesk/tenantdesk/internal/shared"
)

type fakeRepo struct {
	roles       map[int64]Role
	perms       map[string]Permission
	rolePerms   map[int64][]int64
	assignments []UserRole
	failWrites  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		roles:     map[int64]Role{1: {ID: 1, Name: "manager", GuardName: GuardAPI}},
		perms:     map[string]Permission{},
		rolePerms: map[int64][]int64{},
	}
}

func (f *fakeRepo) ListRoles(context.Context, string) ([]Role, error) {
	out := make([]Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) GetRole(_ context.Context, id int64) (Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) CreateRole(_ context.Context, name, guard, description string) (Role, error) {
	if f.failWrites != nil {
		return Role{}, f.failWrites
	}
	r := Role{ID: int64(len(f.roles) + 1), Name: name, GuardName: guard, Description: description, CreatedAt: time.Now()}
	f.roles[r.ID] = r
	return r, nil
}

func (f *fakeRepo) ListPermissions(context.Context, string) ([]Permission, error) {
	out := make([]Permission, 0, len(f.perms))
	for _, p := range f.perms {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) UpsertPermissions(_ context.Context, guard string, names []string) (int, error) {
	if f.failWrites != nil {
		return 0, f.failWrites
	}
	inserted := 0
	for _, name := range names {
		if _, ok := f.perms[name]; ok {
			continue
		}
		f.perms[name] = Permission{ID: int64(len(f.perms) + 1), Name: name, GuardName: guard}
		inserted++
	}
	return inserted, nil
}

func (f *fakeRepo) SetRolePermissions(_ context.Context, roleID int64, ids []int64) error {
	if f.failWrites != nil {
		return f.failWrites
	}
	f.rolePerms[roleID] = ids
	return nil
}

func (f *fakeRepo) AssignRole(_ context.Context, userID, roleID int64, companyID *int64) error {
	if f.failWrites != nil {
		return f.failWrites
	}
	f.assignments = append(f.assignments, UserRole{UserID: userID, RoleID: roleID, CompanyID: companyID})
	return nil
}

func (f *fakeRepo) RemoveRole(_ context.Context, userID, roleID int64, companyID *int64) error {
	if f.failWrites != nil {
		return f.failWrites
	}
	kept := f.assignments[:0]
	for _, a := range f.assignments {
		sameCompany := (a.CompanyID == nil) == (companyID == nil) && (companyID == nil || *a.CompanyID == *companyID)
		if a.UserID == userID && a.RoleID == roleID && sameCompany {
			continue
		}
		kept = append(kept, a)
	}
	f.assignments = kept
	return nil
}

func (f *fakeRepo) ListUserRoles(_ context.Context, userID int64) ([]UserRole, error) {
	var out []UserRole
	for _, a := range f.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeInvalidator struct {
	all   int
	users []int64
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.all++
	return nil
}

func (f *fakeInvalidator) InvalidateUser(_ context.Context, userID int64) error {
	f.users = append(f.users, userID)
	return nil
}

func TestServiceSyncCatalog(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, inv, "")
	c, err := DefaultCatalog()
	require.NoError(t, err)

	inserted, err := svc.SyncCatalog(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, len(c.PermissionNames()), inserted)
	require.Equal(t, 1, inv.all)

	inserted, err = svc.SyncCatalog(context.Background(), c)
	require.NoError(t, err)
	require.Zero(t, inserted)
	require.Equal(t, 1, inv.all, "no-op sync keeps the cache")

	for _, p := range repo.perms {
		require.Equal(t, GuardAPI, p.GuardName)
	}
}

func TestServiceSyncCatalogError(t *testing.T) {
	repo := newFakeRepo()
	repo.failWrites = errors.New("read only")
	c, err := DefaultCatalog()
	require.NoError(t, err)

	_, err = NewService(repo, nil, GuardAPI).SyncCatalog(context.Background(), c)
	require.ErrorIs(t, err, repo.failWrites)
}

func TestServiceCreateRole(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, GuardAPI)

	role, err := svc.CreateRole(context.Background(), "  cashier ", " counts money ")
	require.NoError(t, err)
	require.Equal(t, "cashier", role.Name)
	require.Equal(t, "counts money", role.Description)
	require.Equal(t, GuardAPI, role.GuardName)

	_, err = svc.CreateRole(context.Background(), "   ", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestServiceSetRolePermissions(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, inv, GuardAPI)

	require.NoError(t, svc.SetRolePermissions(context.Background(), 1, []int64{3, 4}))
	require.Equal(t, []int64{3, 4}, repo.rolePerms[1])
	require.Equal(t, 1, inv.all)

	err := svc.SetRolePermissions(context.Background(), 99, []int64{1})
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, inv.all)
}

func TestServiceAssignAndRemoveRole(t *testing.T) {
	repo := newFakeRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, inv, GuardAPI)
	ctx := context.Background()

	require.NoError(t, svc.AssignRole(ctx, 7, 1, Company(10)))
	require.NoError(t, svc.AssignRole(ctx, 7, 1, nil))
	roles, err := svc.ListUserRoles(ctx, 7)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	require.NoError(t, svc.RemoveRole(ctx, 7, 1, Company(10)))
	roles, err = svc.ListUserRoles(ctx, 7)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Nil(t, roles[0].CompanyID)

	require.Equal(t, []int64{7, 7, 7}, inv.users)
	require.ErrorIs(t, svc.AssignRole(ctx, 7, 42, nil), ErrNotFound)
}

type fakeAuditor struct {
	logs []shared.AuditLog
	err  error
}

func (f *fakeAuditor) Record(_ context.Context, log shared.AuditLog) error {
	f.logs = append(f.logs, log)
	return f.err
}

func (f *fakeAuditor) List(_ context.Context, prefix string, page, perPage int) ([]shared.AuditLog, shared.Pagination, error) {
	var matched []shared.AuditLog
	for i := len(f.logs) - 1; i >= 0; i-- {
		if strings.HasPrefix(f.logs[i].Action, prefix) {
			matched = append(matched, f.logs[i])
		}
	}
	pg := shared.NewPagination(page, perPage, len(matched))
	start := pg.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pg.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], pg, nil
}

func TestServiceAuditsChanges(t *testing.T) {
	repo := newFakeRepo()
	auditor := &fakeAuditor{}
	svc := NewService(repo, nil, GuardAPI).WithAudit(auditor, nil)
	ctx := shared.ContextWithActor(context.Background(), User{ID: 42})
	company := int64(3)

	_, err := svc.CreateRole(ctx, "seller", "")
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 9, 1, &company))
	require.NoError(t, svc.RemoveRole(ctx, 9, 1, &company))

	require.Len(t, auditor.logs, 3)
	require.Equal(t, AuditRoleCreated, auditor.logs[0].Action)
	require.Equal(t, AuditRoleAssigned, auditor.logs[1].Action)
	require.Equal(t, "9", auditor.logs[1].EntityID)
	require.Equal(t, AuditRoleRemoved, auditor.logs[2].Action)
	for _, log := range auditor.logs {
		require.Equal(t, int64(42), log.ActorID)
	}
}

func TestServiceAuditFailureKeepsChange(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, GuardAPI).WithAudit(&fakeAuditor{err: errors.New("audit down")}, nil)

	require.NoError(t, svc.AssignRole(context.Background(), 9, 1, nil))
	require.Len(t, repo.assignments, 1)
}
