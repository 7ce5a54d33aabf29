package rbac

import (
	"fmt"
	"strings"
)

// Rule names the step of the decision algorithm that produced an outcome.
type Rule string

const (
	RuleUnauthenticated Rule = "unauthenticated"
	RuleAdmin           Rule = "admin"
	RuleAll             Rule = "all"
	RuleOwn             Rule = "own"
	RuleLegacy          Rule = "legacy"
	RuleCustom          Rule = "custom"
	RuleNoMatch         Rule = "no_match"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed    bool
	Rule       Rule
	Permission string
	Ownership  Ownership
}

// Authorizer evaluates resource/action permissions against an effective set.
// It holds no mutable state and is safe for concurrent use.
type Authorizer struct {
	catalog *Catalog
}

// NewAuthorizer builds an Authorizer bound to catalog. A nil catalog behaves
// as an empty one.
func NewAuthorizer(catalog *Catalog) *Authorizer {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	return &Authorizer{catalog: catalog}
}

// Catalog exposes the resource configuration used by the authorizer.
func (a *Authorizer) Catalog() *Catalog { return a.catalog }

// CanPerformAction reports whether user may perform action on record of resource.
func (a *Authorizer) CanPerformAction(user Principal, resource, action string, record Record, perms PermissionSet) (bool, error) {
	d, err := a.Decide(user, resource, action, record, perms)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Decide runs the decision algorithm and reports which rule matched.
//
// Precedence: admin, then {base}_all, then {base}_own when the record is
// owned or absent, then the bare legacy {base} name. Mutual settlements
// view_{clientType} actions only match their catalog custom permission.
func (a *Authorizer) Decide(user Principal, resource, action string, record Record, perms PermissionSet) (Decision, error) {
	if isNilPrincipal(user) {
		return Decision{Rule: RuleUnauthenticated}, nil
	}
	if user.IsSuperUser() {
		return Decision{Allowed: true, Rule: RuleAdmin}, nil
	}
	if err := validateResourceAction(resource, action); err != nil {
		return Decision{}, err
	}
	if clientType, ok := mutualSettlementsClientType(resource, action); ok {
		name := a.MutualSettlementsPermission(clientType)
		if perms.Has(name) {
			return Decision{Allowed: true, Rule: RuleCustom, Permission: name}, nil
		}
		return Decision{Rule: RuleNoMatch}, nil
	}

	base := BasePermission(resource, action)
	ownership := EvaluateOwnership(record, a.catalog.OwnerField(resource), user)

	if all := ScopeAll.Apply(base); perms.Has(all) {
		return Decision{Allowed: true, Rule: RuleAll, Permission: all, Ownership: ownership}, nil
	}
	if own := ScopeOwn.Apply(base); perms.Has(own) && ownership != OwnershipNotOwned {
		return Decision{Allowed: true, Rule: RuleOwn, Permission: own, Ownership: ownership}, nil
	}
	if perms.Has(base) {
		return Decision{Allowed: true, Rule: RuleLegacy, Permission: base, Ownership: ownership}, nil
	}
	return Decision{Rule: RuleNoMatch, Ownership: ownership}, nil
}

// HasAnyPermission reports whether user is an admin or holds any of names.
// No scope or ownership logic is applied.
func (a *Authorizer) HasAnyPermission(user Principal, perms PermissionSet, names ...string) bool {
	if isNilPrincipal(user) {
		return false
	}
	if user.IsSuperUser() {
		return true
	}
	return perms.HasAny(names...)
}

// MutualSettlementsPermission resolves the custom permission guarding
// mutual settlements of clientType.
func (a *Authorizer) MutualSettlementsPermission(clientType string) string {
	return a.catalog.CustomPermissionName(ResourceMutualSettlements, viewClientTypeKey(clientType))
}

// CanViewMutualSettlementsByClientType reports whether user may view mutual
// settlements for clientType.
func (a *Authorizer) CanViewMutualSettlementsByClientType(user Principal, perms PermissionSet, clientType string) bool {
	if isNilPrincipal(user) {
		return false
	}
	if user.IsSuperUser() {
		return true
	}
	clientType = strings.TrimSpace(clientType)
	if clientType == "" {
		return false
	}
	return perms.Has(a.MutualSettlementsPermission(clientType))
}

// AllowedMutualSettlementsClientTypes lists the configured client types
// user may view, in catalog order.
func (a *Authorizer) AllowedMutualSettlementsClientTypes(user Principal, perms PermissionSet) []string {
	types := a.catalog.MutualSettlementClientTypes()
	allowed := make([]string, 0, len(types))
	for _, clientType := range types {
		if a.CanViewMutualSettlementsByClientType(user, perms, clientType) {
			allowed = append(allowed, clientType)
		}
	}
	return allowed
}

func mutualSettlementsClientType(resource, action string) (string, bool) {
	if resource != ResourceMutualSettlements {
		return "", false
	}
	clientType, ok := strings.CutPrefix(action, viewClientTypeKey(""))
	if !ok || clientType == "" {
		return "", false
	}
	return clientType, true
}

func validateResourceAction(resource, action string) error {
	if strings.TrimSpace(resource) == "" {
		return fmt.Errorf("%w: resource is empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(action) == "" {
		return fmt.Errorf("%w: action is empty", ErrInvalidArgument)
	}
	return nil
}
