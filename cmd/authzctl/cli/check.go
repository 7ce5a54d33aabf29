package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

// CheckInput describes an offline authorization question.
type CheckInput struct {
	UserID      int64
	Admin       bool
	Resource    string
	Action      string
	Permissions []string
	// Record is a JSON object; empty means no record.
	Record string
}

// CheckResult is the printed outcome of Check.
type CheckResult struct {
	Allowed    bool   `json:"allowed"`
	Rule       string `json:"rule"`
	Permission string `json:"permission,omitempty"`
	Ownership  string `json:"ownership"`
}

// Check evaluates in against catalog without touching storage and writes the
// decision as JSON.
func Check(w io.Writer, catalog *rbac.Catalog, in CheckInput) (CheckResult, error) {
	var record rbac.Record
	if raw := strings.TrimSpace(in.Record); raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			return CheckResult{}, fmt.Errorf("decode record: %w", err)
		}
		record = rbac.Fields(fields)
	}

	perms := make([]string, 0, len(in.Permissions))
	for _, p := range in.Permissions {
		for _, name := range strings.Split(p, ",") {
			if name = strings.TrimSpace(name); name != "" {
				perms = append(perms, name)
			}
		}
	}

	user := rbac.User{ID: in.UserID, IsAdmin: in.Admin}
	d, err := rbac.NewAuthorizer(catalog).Decide(user, in.Resource, in.Action, record, rbac.NewPermissionSet(perms...))
	if err != nil {
		return CheckResult{}, err
	}
	res := CheckResult{Allowed: d.Allowed, Rule: string(d.Rule), Permission: d.Permission, Ownership: d.Ownership.String()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return res, enc.Encode(res)
}
