package rbac

import (
	"context"
	"log/slog"
)

// UnknownResourceLabel replaces resource names the catalog does not declare
// when decisions are recorded.
const UnknownResourceLabel = "unknown"

// DecisionRecorder observes authorization outcomes.
type DecisionRecorder interface {
	RecordAuthzDecision(resource, rule string, allowed bool)
}

// Gate binds a Resolver and an Authorizer for request-scoped checks.
type Gate struct {
	resolver   *Resolver
	authorizer *Authorizer
	recorder   DecisionRecorder
	logger     *slog.Logger
}

// NewGate constructs a Gate. recorder and logger may be nil.
func NewGate(resolver *Resolver, authorizer *Authorizer, recorder DecisionRecorder, logger *slog.Logger) *Gate {
	return &Gate{resolver: resolver, authorizer: authorizer, recorder: recorder, logger: logger}
}

// Authorizer returns the underlying decision component.
func (g *Gate) Authorizer() *Authorizer { return g.authorizer }

// For resolves the permission set of user in companyID once and returns a
// Checker for the rest of the request. The Checker must not outlive it.
func (g *Gate) For(ctx context.Context, user Principal, companyID *int64) (*Checker, error) {
	perms, err := g.resolver.EffectivePermissions(ctx, user, companyID)
	if err != nil {
		return nil, err
	}
	return &Checker{gate: g, user: user, companyID: companyID, perms: perms}, nil
}

// Checker answers authorization questions for one user in one company scope.
type Checker struct {
	gate      *Gate
	user      Principal
	companyID *int64
	perms     PermissionSet
}

// NewChecker builds a Checker around an already resolved permission set.
func NewChecker(authorizer *Authorizer, user Principal, companyID *int64, perms PermissionSet) *Checker {
	return &Checker{gate: &Gate{authorizer: authorizer}, user: user, companyID: companyID, perms: perms}
}

// User returns the acting principal.
func (c *Checker) User() Principal { return c.user }

// CompanyID returns the company scope, nil for global checks.
func (c *Checker) CompanyID() *int64 { return c.companyID }

// Permissions returns the resolved permission set.
func (c *Checker) Permissions() PermissionSet { return c.perms }

// Can reports whether the user may perform action on record of resource.
func (c *Checker) Can(resource, action string, record Record) (bool, error) {
	d, err := c.Decide(resource, action, record)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Decide is Can with the matched rule exposed.
func (c *Checker) Decide(resource, action string, record Record) (Decision, error) {
	d, err := c.gate.authorizer.Decide(c.user, resource, action, record, c.perms)
	if err != nil {
		return Decision{}, err
	}
	c.record(resource, d)
	return d, nil
}

// HasAnyPermission reports whether the user is an admin or holds any of names.
func (c *Checker) HasAnyPermission(names ...string) bool {
	return c.gate.authorizer.HasAnyPermission(c.user, c.perms, names...)
}

// CheckPermission reports whether the user holds name exactly, admins always do.
func (c *Checker) CheckPermission(name string) bool {
	return c.HasAnyPermission(name)
}

// Allows evaluates a known Operation as a collection-level check. Unknown
// operations are denied.
func (c *Checker) Allows(op Operation) bool {
	resource, action, ok := OperationTarget(op)
	if !ok {
		if c.gate.logger != nil {
			c.gate.logger.Warn("rbac unknown operation", slog.String("operation", string(op)))
		}
		return false
	}
	allowed, err := c.Can(resource, action, nil)
	return err == nil && allowed
}

// CanViewMutualSettlementsByClientType reports whether the user may view
// mutual settlements of clientType.
func (c *Checker) CanViewMutualSettlementsByClientType(clientType string) bool {
	allowed := c.gate.authorizer.CanViewMutualSettlementsByClientType(c.user, c.perms, clientType)
	rule := RuleNoMatch
	switch {
	case allowed && c.user.IsSuperUser():
		rule = RuleAdmin
	case allowed:
		rule = RuleCustom
	}
	c.record(ResourceMutualSettlements, Decision{Allowed: allowed, Rule: rule})
	return allowed
}

// AllowedMutualSettlementsClientTypes lists the client types the user may view.
func (c *Checker) AllowedMutualSettlementsClientTypes() []string {
	return c.gate.authorizer.AllowedMutualSettlementsClientTypes(c.user, c.perms)
}

func (c *Checker) record(resource string, d Decision) {
	if c.gate.recorder != nil {
		label := resource
		if _, ok := c.gate.authorizer.Catalog().ResourceConfig(resource); !ok {
			label = UnknownResourceLabel
		}
		c.gate.recorder.RecordAuthzDecision(label, string(d.Rule), d.Allowed)
	}
	if c.gate.logger != nil && !d.Allowed {
		c.gate.logger.Debug("rbac denied",
			slog.Int64("user_id", principalID(c.user)),
			slog.String("resource", resource),
			slog.String("rule", string(d.Rule)),
			slog.String("ownership", d.Ownership.String()),
		)
	}
}

func principalID(p Principal) int64 {
	if isNilPrincipal(p) {
		return 0
	}
	return p.GetID()
}
