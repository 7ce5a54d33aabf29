package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
	"github.com/tenantdesk/tenantdesk/internal/shared"
)

type checkerContextKey struct{}

// ContextWithChecker stores a resolved Checker for reuse within one request.
func ContextWithChecker(ctx context.Context, c *Checker) context.Context {
	return context.WithValue(ctx, checkerContextKey{}, c)
}

// CheckerFromContext returns the Checker resolved earlier in the request, if any.
func CheckerFromContext(ctx context.Context) *Checker {
	c, _ := ctx.Value(checkerContextKey{}).(*Checker)
	return c
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// Resolve attaches the caller's Checker to the request context so later
// middleware and handlers share one permission set.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checker, status := m.checker(r)
		if status != http.StatusOK {
			m.reject(w, r, status)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithChecker(r.Context(), checker)))
	})
}

// RequireAny ensures the current user satisfies at least one of the
// required permissions. Each argument may itself be a comma-separated list.
// Matching follows RouteLevelPermissionCheck.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	requested := strings.Join(normalizePermissions(perms), ",")
	return m.require(requested == "", func(c *Checker) bool {
		return c.User().IsSuperUser() || RouteLevelPermissionCheck(requested, c.Permissions())
	})
}

// RequireAll ensures the current user satisfies every argument. An argument
// holding a comma-separated list is satisfied by any of its alternatives.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	groups := make([]string, 0, len(perms))
	for _, raw := range perms {
		if group := strings.Join(normalizePermissions([]string{raw}), ","); group != "" {
			groups = append(groups, group)
		}
	}
	return m.require(len(groups) == 0, func(c *Checker) bool {
		if c.User().IsSuperUser() {
			return true
		}
		for _, group := range groups {
			if !RouteLevelPermissionCheck(group, c.Permissions()) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(skip bool, allowed func(*Checker) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip {
				next.ServeHTTP(w, r)
				return
			}
			checker, status := m.checker(r)
			if status != http.StatusOK {
				m.reject(w, r, status)
				return
			}
			if !allowed(checker) {
				m.reject(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithChecker(r.Context(), checker)))
		})
	}
}

func (m Middleware) checker(r *http.Request) (*Checker, int) {
	if c := CheckerFromContext(r.Context()); c != nil {
		return c, http.StatusOK
	}
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		return nil, http.StatusUnauthorized
	}
	c, err := m.Gate.For(r.Context(), actor, shared.CompanyFromContext(r.Context()))
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac resolve permissions", slog.Int64("user_id", actor.GetID()), slog.Any("error", err))
		}
		return nil, http.StatusInternalServerError
	}
	return c, http.StatusOK
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, status int) {
	switch status {
	case http.StatusUnauthorized:
		httpx.Unauthorized(w, r)
	case http.StatusForbidden:
		httpx.Forbidden(w, r)
	default:
		httpx.Problem(w, status, http.StatusText(status), "")
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, raw := range perms {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(strings.ToLower(p))
			if p == "" {
				continue
			}
			if _, ok := unique[p]; ok {
				continue
			}
			unique[p] = struct{}{}
			normalized = append(normalized, p)
		}
	}
	return normalized
}
