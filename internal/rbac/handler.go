package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
	"github.com/tenantdesk/tenantdesk/internal/shared"
)

// Handler exposes authorization queries and role administration over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   *Catalog
	rbac      Middleware
	validator *validator.Validate
	audit     AuditReader
}

// AuditReader pages through recorded administrative changes.
type AuditReader interface {
	List(ctx context.Context, actionPrefix string, page, perPage int) ([]shared.AuditLog, shared.Pagination, error)
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, catalog *Catalog, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, catalog: catalog, rbac: rbac, validator: validator.New()}
}

// WithAuditLog exposes the RBAC audit trail under /audit.
func (h *Handler) WithAuditLog(reader AuditReader) *Handler {
	h.audit = reader
	return h
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/authz", func(r chi.Router) {
		r.Use(h.rbac.Resolve)
		r.Get("/permissions", h.effectivePermissions)
		r.Post("/check", h.check)
		r.Get("/mutual-settlements/client-types", h.mutualSettlementClientTypes)
		r.With(h.rbac.RequireAny(shared.PermPermissionsView)).Get("/catalog", h.listPermissions)
	})
	r.Route("/roles", func(r chi.Router) {
		r.With(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesManage)).Get("/", h.listRoles)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermRolesManage))
			r.Post("/", h.createRole)
			r.Put("/{roleID}/permissions", h.setRolePermissions)
		})
	})
	r.Route("/users/{userID}/roles", func(r chi.Router) {
		r.With(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesManage)).Get("/", h.listUserRoles)
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.PermRolesManage))
			r.Post("/", h.assignRole)
			r.Delete("/{roleID}", h.removeRole)
		})
	})
	if h.audit != nil {
		r.With(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesManage)).Get("/audit", h.listAudit)
	}
}

type checkRequest struct {
	Resource string         `json:"resource" validate:"required,max=64"`
	Action   string         `json:"action" validate:"required,max=64"`
	Record   map[string]any `json:"record"`
}

type checkResponse struct {
	DecisionID string `json:"decision_id"`
	Allowed    bool   `json:"allowed"`
	Rule       string `json:"rule"`
	Permission string `json:"permission,omitempty"`
	Ownership  string `json:"ownership"`
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
}

type setRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

type assignRoleRequest struct {
	RoleID    int64  `json:"role_id" validate:"required,gt=0"`
	CompanyID *int64 `json:"company_id" validate:"omitempty,gt=0"`
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	c := CheckerFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     c.User().GetID(),
		"company_id":  c.CompanyID(),
		"permissions": c.Permissions().Names(),
	})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.decode(w, r, &req) {
		return
	}
	var record Record
	if req.Record != nil {
		record = Fields(req.Record)
	}
	d, err := CheckerFromContext(r.Context()).Decide(req.Resource, req.Action, record)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("rbac check", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{
		DecisionID: uuid.NewString(),
		Allowed:    d.Allowed,
		Rule:       string(d.Rule),
		Permission: d.Permission,
		Ownership:  d.Ownership.String(),
	})
}

func (h *Handler) mutualSettlementClientTypes(w http.ResponseWriter, r *http.Request) {
	c := CheckerFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"client_types": c.AllowedMutualSettlementsClientTypes(),
	})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("rbac list permissions", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": perms,
		"resources":   h.catalog.Resources(),
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("rbac list roles", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondServiceError(w, r, "rbac create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req setRolePermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), roleID, req.PermissionIDs); err != nil {
		h.respondServiceError(w, r, "rbac set role permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	roles, err := h.service.ListUserRoles(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, "rbac list user roles", err)
		return
	}
	if roles == nil {
		roles = []UserRole{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req assignRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, req.RoleID, req.CompanyID); err != nil {
		h.respondServiceError(w, r, "rbac assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	var companyID *int64
	if raw := r.URL.Query().Get("company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company_id must be a positive integer")
			return
		}
		companyID = &id
	}
	if err := h.service.RemoveRole(r.Context(), userID, roleID, companyID); err != nil {
		h.respondServiceError(w, r, "rbac remove role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "page must be an integer")
		return
	}
	perPage, err := queryInt(q.Get("per_page"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "per_page must be an integer")
		return
	}
	logs, pg, err := h.audit.List(r.Context(), auditActionPrefix, page, perPage)
	if err != nil {
		h.logger.Error("rbac list audit", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	if logs == nil {
		logs = []shared.AuditLog{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": logs, "pagination": pg})
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	case errors.Is(err, ErrInvalidArgument):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	case errors.Is(err, httpx.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, r, err)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
