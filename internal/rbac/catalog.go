package rbac

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultOwnerField is the record attribute used to test ownership when a
// resource does not configure its own.
const DefaultOwnerField = "user_id"

// ResourceMutualSettlements is the resource whose view rights are granted per client type.
const ResourceMutualSettlements = "mutual_settlements"

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ResourceConfig describes how a resource is authorized.
type ResourceConfig struct {
	Key               string            `yaml:"-"`
	Model             string            `yaml:"model"`
	OwnerField        string            `yaml:"owner_field"`
	Actions           []string          `yaml:"actions"`
	Scoped            bool              `yaml:"scoped"`
	ClientTypes       []string          `yaml:"client_types"`
	CustomPermissions map[string]string `yaml:"custom_permissions"`
}

type catalogDocument struct {
	DefaultOwnerField string                    `yaml:"default_owner_field"`
	Resources         map[string]ResourceConfig `yaml:"resources"`
}

// Catalog is the read-only resource configuration consulted by the Authorizer.
type Catalog struct {
	defaultOwnerField string
	resources         map[string]ResourceConfig
}

// NewCatalog builds a catalog from resource entries keyed by resource name.
func NewCatalog(resources map[string]ResourceConfig) *Catalog {
	c := &Catalog{defaultOwnerField: DefaultOwnerField, resources: make(map[string]ResourceConfig, len(resources))}
	for key, cfg := range resources {
		cfg.Key = key
		c.resources[key] = cfg
	}
	return c
}

// LoadCatalog decodes a YAML catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc catalogDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("rbac: decode catalog: %w", err)
	}
	for key := range doc.Resources {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("rbac: catalog resource key must not be empty")
		}
	}
	c := NewCatalog(doc.Resources)
	if field := strings.TrimSpace(doc.DefaultOwnerField); field != "" {
		c.defaultOwnerField = field
	}
	return c, nil
}

// LoadCatalogFile reads a catalog from disk, falling back to the embedded
// default when path is empty.
func LoadCatalogFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rbac: open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalogYAML))
}

// ResourceConfig looks up a resource entry.
func (c *Catalog) ResourceConfig(resource string) (ResourceConfig, bool) {
	if c == nil {
		return ResourceConfig{}, false
	}
	cfg, ok := c.resources[resource]
	return cfg, ok
}

// OwnerField returns the ownership attribute for resource, degrading to the
// default when the resource is unknown or leaves it unset.
func (c *Catalog) OwnerField(resource string) string {
	fallback := DefaultOwnerField
	if c != nil && c.defaultOwnerField != "" {
		fallback = c.defaultOwnerField
	}
	cfg, ok := c.ResourceConfig(resource)
	if !ok || strings.TrimSpace(cfg.OwnerField) == "" {
		return fallback
	}
	return cfg.OwnerField
}

// CustomPermissionName returns the configured name for a custom permission
// key or {resource}_{key} when none is configured.
func (c *Catalog) CustomPermissionName(resource, key string) string {
	if cfg, ok := c.ResourceConfig(resource); ok {
		if name, ok := cfg.CustomPermissions[key]; ok && name != "" {
			return name
		}
	}
	return BasePermission(resource, key)
}

// Resources returns the configured resource keys sorted alphabetically.
func (c *Catalog) Resources() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.resources))
	for key := range c.resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MutualSettlementClientTypes lists the client types whose mutual
// settlements can be granted individually.
func (c *Catalog) MutualSettlementClientTypes() []string {
	cfg, ok := c.ResourceConfig(ResourceMutualSettlements)
	if !ok {
		return nil
	}
	types := make([]string, len(cfg.ClientTypes))
	copy(types, cfg.ClientTypes)
	return types
}

// PermissionNames enumerates every permission name the catalog declares.
func (c *Catalog) PermissionNames() []string {
	set := make(PermissionSet)
	for _, key := range c.Resources() {
		set = set.Union(c.resourcePermissions(key))
	}
	return set.Names()
}

// ResourcePermissionNames lists the permission names resource expands to:
// the legacy base name per action, its _all and _own variants when scoped,
// and any custom permissions.
func (c *Catalog) ResourcePermissionNames(resource string) []string {
	return c.resourcePermissions(resource).Names()
}

func (c *Catalog) resourcePermissions(key string) PermissionSet {
	set := make(PermissionSet)
	cfg, ok := c.ResourceConfig(key)
	if !ok {
		return set
	}
	for _, action := range cfg.Actions {
		base := BasePermission(key, action)
		set[base] = struct{}{}
		if cfg.Scoped {
			set[ScopeAll.Apply(base)] = struct{}{}
			set[ScopeOwn.Apply(base)] = struct{}{}
		}
	}
	for _, name := range cfg.CustomPermissions {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	if key == ResourceMutualSettlements {
		for _, clientType := range cfg.ClientTypes {
			set[c.CustomPermissionName(key, viewClientTypeKey(clientType))] = struct{}{}
		}
	}
	return set
}

func viewClientTypeKey(clientType string) string {
	return "view_" + clientType
}
