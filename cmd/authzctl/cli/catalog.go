package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tenantdesk/tenantdesk/internal/rbac"
)

type catalogEntry struct {
	Resource    string   `json:"resource" yaml:"resource"`
	Scoped      bool     `json:"scoped" yaml:"scoped"`
	OwnerField  string   `json:"owner_field,omitempty" yaml:"owner_field,omitempty"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// WriteCatalog prints every resource with the permission names it expands
// to. format is one of text, json or yaml.
func WriteCatalog(w io.Writer, catalog *rbac.Catalog, format string) error {
	entries := make([]catalogEntry, 0, len(catalog.Resources()))
	for _, key := range catalog.Resources() {
		cfg, _ := catalog.ResourceConfig(key)
		entry := catalogEntry{Resource: key, Scoped: cfg.Scoped, Permissions: catalog.ResourcePermissionNames(key)}
		if cfg.Scoped {
			entry.OwnerField = catalog.OwnerField(key)
		}
		entries = append(entries, entry)
	}

	switch strings.ToLower(format) {
	case "", "text":
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", e.Resource, strings.Join(e.Permissions, ",")); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
