package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tenantdesk/tenantdesk/internal/auth"
	"github.com/tenantdesk/tenantdesk/internal/observability"
	"github.com/tenantdesk/tenantdesk/internal/rbac"
	"github.com/tenantdesk/tenantdesk/internal/shared"
	"github.com/tenantdesk/tenantdesk/jobs"
)

type usersStub map[int64]*auth.User

func (u usersStub) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, shared.ErrNotFound
}

func (u usersStub) FindByID(_ context.Context, id int64) (*auth.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, shared.ErrNotFound
}

// companyStore grants permissions per company; key 0 is the global scope.
type companyStore map[int64][]string

func (s companyStore) EffectivePermissionNames(_ context.Context, _ int64, companyID *int64, _ string) ([]string, error) {
	if companyID == nil {
		return s[0], nil
	}
	return s[*companyID], nil
}

func (s companyStore) PermissionNames(context.Context, string) ([]string, error) {
	return []string{"clients_view_all", "roles_manage"}, nil
}

type testServer struct {
	handler http.Handler
	issuer  *auth.TokenIssuer
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, store companyStore) testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "test", CompanyHeader: "X-Company-ID", AppRateLimit: 1000}
	metrics := observability.NewMetrics()

	issuer := auth.NewTokenIssuer("router-test-secret", time.Hour)
	authSvc := auth.NewService(usersStub{
		1: {ID: 1, Email: "member@test.local", IsActive: true},
		2: {ID: 2, Email: "admin@test.local", IsActive: true, IsAdmin: true},
	}, issuer)

	catalog, err := rbac.DefaultCatalog()
	require.NoError(t, err)
	gate := rbac.NewGate(rbac.NewResolver(store, cfg.RBACGuard), rbac.NewAuthorizer(catalog), metrics, logger)
	rbacMW := rbac.Middleware{Gate: gate, Logger: logger}

	handler := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    auth.NewHandler(logger, authSvc),
		AuthMiddleware: auth.Middleware{Service: authSvc, Logger: logger},
		RBACHandler:    rbac.NewHandler(logger, rbac.NewService(nil, nil, ""), catalog, rbacMW),
		RBACMiddleware: rbacMW,
		JobHandler:     jobs.NewHandler(nil, nil, logger),
		Metrics:        metrics,
	})
	return testServer{handler: handler, issuer: issuer, metrics: metrics}
}

func (s testServer) do(t *testing.T, method, path string, userID int64, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	if userID > 0 {
		token, _, err := s.issuer.Issue(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	s.handler.ServeHTTP(res, req)
	return res
}

func permissionsOf(t *testing.T, res *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var body struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body.Permissions
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, companyStore{})
	res := s.do(t, http.MethodGet, "/healthz", 0, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t, companyStore{})
	res := s.do(t, http.MethodGet, "/api/authz/permissions", 0, nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestCompanyHeaderSelectsScope(t *testing.T) {
	s := newTestServer(t, companyStore{
		0:  {"products_view"},
		10: {"clients_view_own"},
	})

	global := permissionsOf(t, s.do(t, http.MethodGet, "/api/authz/permissions", 1, nil))
	require.Equal(t, []string{"products_view"}, global)

	scoped := permissionsOf(t, s.do(t, http.MethodGet, "/api/authz/permissions", 1, map[string]string{"X-Company-ID": "10"}))
	require.Equal(t, []string{"clients_view_own"}, scoped)
}

func TestBadCompanyHeaderIsRejected(t *testing.T) {
	s := newTestServer(t, companyStore{})
	for _, raw := range []string{"abc", "-3", "0"} {
		res := s.do(t, http.MethodGet, "/api/authz/permissions", 1, map[string]string{"X-Company-ID": raw})
		require.Equal(t, http.StatusBadRequest, res.Code, raw)
	}
}

func TestJobsRequireRolesManage(t *testing.T) {
	s := newTestServer(t, companyStore{0: {"clients_view_all"}})

	res := s.do(t, http.MethodGet, "/api/jobs/health", 1, nil)
	require.Equal(t, http.StatusForbidden, res.Code)

	res = s.do(t, http.MethodGet, "/api/jobs/health", 2, nil)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestForbiddenIsLocalized(t *testing.T) {
	s := newTestServer(t, companyStore{})

	en := s.do(t, http.MethodGet, "/api/jobs/health", 1, nil)
	ru := s.do(t, http.MethodGet, "/api/jobs/health", 1, map[string]string{"Accept-Language": "ru"})
	require.Equal(t, http.StatusForbidden, en.Code)
	require.Equal(t, http.StatusForbidden, ru.Code)
	require.NotEqual(t, en.Body.String(), ru.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, companyStore{})
	s.metrics.RecordAuthzDecision("clients", "all", true)

	res := s.do(t, http.MethodGet, "/metrics", 0, nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "tenantdesk_authz_decisions_total")
}
