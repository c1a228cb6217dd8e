package dispatch

import (
	"fmt"
	"sort"
)

// MethodDefinition declaratively describes one remote endpoint. Definitions
// are immutable once handed to a registry.
type MethodDefinition struct {
	Name         string   `json:"name"               yaml:"name"`
	Aliases      []string `json:"aliases,omitempty"  yaml:"aliases,omitempty"`
	Verb         string   `json:"verb"               yaml:"verb"`
	PathTemplate string   `json:"path"               yaml:"path"`
	Required     []string `json:"required,omitempty" yaml:"required,omitempty"`
	Optional     []string `json:"optional,omitempty" yaml:"optional,omitempty"`

	// IDGroup declares an identity-parameter group: one logical required
	// slot satisfied by any single member (for example id, user_id or
	// screen_name).
	IDGroup []string `json:"id_group,omitempty" yaml:"id_group,omitempty"`

	Deprecated  bool   `json:"deprecated,omitempty"  yaml:"deprecated,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Pagination hints. When both protocols are legal the cursor protocol
	// takes precedence by caller contract; the engine keeps both usable.
	AcceptsPage   bool `json:"accepts_page,omitempty"   yaml:"accepts_page,omitempty"`
	AcceptsCursor bool `json:"accepts_cursor,omitempty" yaml:"accepts_cursor,omitempty"`

	// ItemsKey names the item sequence inside a structured page payload.
	// Empty means the payload is a bare sequence.
	ItemsKey string `json:"items_key,omitempty" yaml:"items_key,omitempty"`
}

// totalParams counts the logical parameter slots the definition declares.
// The identity group counts as one slot.
func (d *MethodDefinition) totalParams() int {
	n := len(d.Required) + len(d.Optional)
	if len(d.IDGroup) > 0 {
		n++
	}

	return n
}

// accepts reports whether name is a declared parameter of the definition.
func (d *MethodDefinition) accepts(name string) bool {
	for _, p := range d.Required {
		if p == name {
			return true
		}
	}

	for _, p := range d.Optional {
		if p == name {
			return true
		}
	}

	for _, p := range d.IDGroup {
		if p == name {
			return true
		}
	}

	return false
}

// Registry is an immutable catalog of method definitions, shared read-only
// across all concurrent calls.
type Registry struct {
	byName    map[string]*MethodDefinition
	canonical []*MethodDefinition
}

// NewRegistry builds a registry from a set of definitions, validating the
// catalog invariants: names and aliases are globally unique, and no
// parameter is declared both required and optional.
func NewRegistry(definitions []MethodDefinition) (*Registry, error) {
	registry := &Registry{
		byName:    make(map[string]*MethodDefinition, len(definitions)),
		canonical: make([]*MethodDefinition, 0, len(definitions)),
	}

	for i := range definitions {
		def := definitions[i]

		if def.Name == "" {
			return nil, ErrEmptyMethodName
		}

		if err := validateParams(&def); err != nil {
			return nil, fmt.Errorf("method %q: %w", def.Name, err)
		}

		if _, exists := registry.byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMethodName, def.Name)
		}

		registry.byName[def.Name] = &def
		registry.canonical = append(registry.canonical, &def)

		for _, alias := range def.Aliases {
			if _, exists := registry.byName[alias]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateAlias, alias)
			}

			registry.byName[alias] = &def
		}
	}

	return registry, nil
}

// validateParams checks the required/optional disjointness invariant.
func validateParams(def *MethodDefinition) error {
	required := make(map[string]struct{}, len(def.Required))
	for _, p := range def.Required {
		required[p] = struct{}{}
	}

	for _, p := range def.Optional {
		if _, ok := required[p]; ok {
			return fmt.Errorf("%w: %s", ErrParamBothKinds, p)
		}
	}

	return nil
}

// Lookup resolves a name or alias to its canonical definition.
func (r *Registry) Lookup(nameOrAlias string) (*MethodDefinition, bool) {
	def, ok := r.byName[nameOrAlias]

	return def, ok
}

// Methods returns the canonical definitions sorted by name.
func (r *Registry) Methods() []MethodDefinition {
	out := make([]MethodDefinition, 0, len(r.canonical))
	for _, def := range r.canonical {
		out = append(out, *def)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Len returns the number of canonical definitions.
func (r *Registry) Len() int {
	return len(r.canonical)
}
