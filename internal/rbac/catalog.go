package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	keySeparator = "::"
	nullResource = "null"
)

var (
	// ErrDuplicateEntry is returned when two catalog entries share a permission/resource pair.
	ErrDuplicateEntry = errors.New("rbac: duplicate catalog entry")
	// ErrInvalidKey is returned for a permission or resource that cannot be
	// encoded into a key and parsed back unchanged.
	ErrInvalidKey = errors.New("rbac: invalid permission key")
)

// Action is a column of the permission matrix.
type Action string

const (
	ActionFull    Action = "full"
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionOthers  Action = "others"
)

// Actions lists matrix columns in display order.
func Actions() []Action {
	return []Action{ActionFull, ActionView, ActionCreate, ActionEdit, ActionDelete, ActionApprove, ActionOthers}
}

// Entry describes one assignable capability.
type Entry struct {
	Permission    string  `json:"permission"`
	Resource      *string `json:"resource"`
	Label         string  `json:"label"`
	Description   string  `json:"description"`
	IncludeInFull bool    `json:"include_in_full"`
}

// Key returns the composite key of the entry.
func (e Entry) Key() string {
	return KeyOf(e.Permission, e.Resource)
}

func (e Entry) clone() Entry {
	if e.Resource != nil {
		e.Resource = Resource(*e.Resource)
	}
	return e
}

// Row groups the entries of one feature across the action columns.
type Row struct {
	Label   string             `json:"label"`
	Columns map[Action][]Entry `json:"columns"`
}

// Module is a top level section of the catalog.
type Module struct {
	Name string `json:"name"`
	Rows []Row  `json:"rows"`
}

// Catalog is the immutable registry of every assignable permission.
type Catalog struct {
	modules []Module
	byKey   map[string]Entry
	grants  map[Role][]string
}

// ValidateKey reports whether KeyOf(permission, resource) parses back to the
// same pair: neither part may be empty or contain the separator, and a
// resource tag may not spell the null sentinel.
func ValidateKey(permission string, resource *string) error {
	if permission == "" || strings.Contains(permission, keySeparator) {
		return fmt.Errorf("%w: permission %q", ErrInvalidKey, permission)
	}
	if resource == nil {
		return nil
	}
	if r := *resource; r == "" || r == nullResource || strings.Contains(r, keySeparator) {
		return fmt.Errorf("%w: resource %q of %s", ErrInvalidKey, r, permission)
	}
	return nil
}

// KeyOf produces the canonical "<permission>::<resource-or-null>" key. The
// result is only meaningful for pairs accepted by ValidateKey.
func KeyOf(permission string, resource *string) string {
	res := nullResource
	if resource != nil {
		res = *resource
	}
	return permission + keySeparator + res
}

// ParseKey is the inverse of KeyOf.
func ParseKey(key string) (string, *string, error) {
	parts := strings.Split(key, keySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	permission, res := parts[0], parts[1]
	if res == nullResource {
		return permission, nil, nil
	}
	return permission, &res, nil
}

// Resource is a helper for building optional resource tags.
func Resource(tag string) *string {
	return &tag
}

// NewCatalog validates the modules and role grants. Every (permission, resource)
// pair must be unique and every grant must reference a known key.
func NewCatalog(modules []Module, grants map[Role][]string) (*Catalog, error) {
	c := &Catalog{
		modules: cloneModules(modules),
		byKey:   make(map[string]Entry),
		grants:  make(map[Role][]string, len(grants)),
	}
	for _, m := range c.modules {
		for _, row := range m.Rows {
			for _, action := range Actions() {
				for _, e := range row.Columns[action] {
					if err := ValidateKey(e.Permission, e.Resource); err != nil {
						return nil, fmt.Errorf("%w (module %s, row %s)", err, m.Name, row.Label)
					}
					key := e.Key()
					if _, dup := c.byKey[key]; dup {
						return nil, fmt.Errorf("%w: %s (module %s, row %s)", ErrDuplicateEntry, key, m.Name, row.Label)
					}
					c.byKey[key] = e
				}
			}
			for action := range row.Columns {
				if !validAction(action) {
					return nil, fmt.Errorf("rbac: unknown action column %q in %s/%s", action, m.Name, row.Label)
				}
			}
		}
	}
	for role, keys := range grants {
		seen := make(map[string]struct{}, len(keys))
		for _, key := range keys {
			if _, ok := c.byKey[key]; !ok {
				return nil, fmt.Errorf("rbac: grant for %s references unknown key %s", role, key)
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			c.grants[role] = append(c.grants[role], key)
		}
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid input.
func MustCatalog(modules []Module, grants map[Role][]string) *Catalog {
	c, err := NewCatalog(modules, grants)
	if err != nil {
		panic(err)
	}
	return c
}

// Modules returns a copy of the grouped catalog for rendering.
func (c *Catalog) Modules() []Module {
	return cloneModules(c.modules)
}

// Lookup returns the entry for a permission/resource pair.
func (c *Catalog) Lookup(permission string, resource *string) (Entry, bool) {
	e, ok := c.byKey[KeyOf(permission, resource)]
	return e.clone(), ok
}

// Keys returns every derived key in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	return len(c.byKey)
}

// ListEntries returns the entries granted to a role, in grant order.
func (c *Catalog) ListEntries(role Role) []Entry {
	keys := c.grants[role]
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.byKey[k].clone())
	}
	return out
}

// Grants reports whether the role is granted the key.
func (c *Catalog) Grants(role Role, key string) bool {
	for _, k := range c.grants[role] {
		if k == key {
			return true
		}
	}
	return false
}

// FullEntries lists the entries toggled by a module's "full" column.
func (c *Catalog) FullEntries(module string) []Entry {
	var out []Entry
	for _, m := range c.modules {
		if m.Name != module {
			continue
		}
		for _, row := range m.Rows {
			for _, action := range Actions() {
				for _, e := range row.Columns[action] {
					if e.IncludeInFull {
						out = append(out, e.clone())
					}
				}
			}
		}
	}
	return out
}

func cloneModules(modules []Module) []Module {
	out := make([]Module, len(modules))
	for i, m := range modules {
		rows := make([]Row, len(m.Rows))
		for j, row := range m.Rows {
			cols := make(map[Action][]Entry, len(row.Columns))
			for action, entries := range row.Columns {
				copied := make([]Entry, len(entries))
				for k, e := range entries {
					copied[k] = e.clone()
				}
				cols[action] = copied
			}
			rows[j] = Row{Label: row.Label, Columns: cols}
		}
		out[i] = Module{Name: m.Name, Rows: rows}
	}
	return out
}

func validAction(a Action) bool {
	for _, known := range Actions() {
		if known == a {
			return true
		}
	}
	return false
}
