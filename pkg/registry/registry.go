// Package registry maps check type names to constructors and builds check
// trees from nested configuration mappings.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/geomancy/geo/pkg/check"
)

// GroupType is the name of the plain grouping check.
const GroupType = "Check"

// Factory constructs a check. value is the raw value given under the type
// key and args holds every other key of the mapping.
type Factory func(name string, value any, args map[string]any) (check.Checker, error)

// Type describes one check type that configuration can select.
type Type struct {
	Name    string
	Aliases []string
	New     Factory
}

// Registry stores check types by name and alias.
type Registry struct {
	mu          sync.RWMutex
	byKey       map[string]*Type
	types       []*Type
	unavailable map[string]string // key -> reason
}

// New creates a registry holding only the grouping type.
func New() *Registry {
	r := &Registry{byKey: map[string]*Type{}, unavailable: map[string]string{}}
	r.MustRegister(Type{Name: GroupType, New: newGroup})
	return r
}

// Register adds t. A name or alias that is already taken is a
// *check.ConfigError and leaves the registry unchanged.
func (r *Registry) Register(t Type) error {
	if t.Name == "" || t.New == nil {
		return &check.ConfigError{Op: "register", Msg: "type needs a name and a factory"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{t.Name}, t.Aliases...)
	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k] {
			return &check.ConfigError{Op: "register " + t.Name, Msg: fmt.Sprintf("%q", k), Err: check.ErrDuplicateAlias}
		}
		seen[k] = true
		if reason, excluded := r.unavailable[k]; excluded {
			return &check.ConfigError{
				Op:  "register " + t.Name,
				Msg: fmt.Sprintf("%q is marked unavailable (%s)", k, reason),
				Err: check.ErrDuplicateAlias,
			}
		}
		if prev, exists := r.byKey[k]; exists {
			return &check.ConfigError{
				Op:  "register " + t.Name,
				Msg: fmt.Sprintf("%q already used by %s", k, prev.Name),
				Err: check.ErrDuplicateAlias,
			}
		}
	}

	stored := t
	stored.Aliases = append([]string(nil), t.Aliases...)
	for _, k := range keys {
		r.byKey[k] = &stored
	}
	r.types = append(r.types, &stored)
	return nil
}

// Unavailable records names and aliases of a check type that is not compiled
// in. Load rejects a mapping that uses one instead of treating it as a plain
// key. A key that is already registered is a *check.ConfigError.
func (r *Registry) Unavailable(reason string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if t, exists := r.byKey[k]; exists {
			return &check.ConfigError{
				Op:  "mark unavailable",
				Msg: fmt.Sprintf("%q already used by %s", k, t.Name),
				Err: check.ErrDuplicateAlias,
			}
		}
	}
	for _, k := range keys {
		r.unavailable[k] = reason
	}
	return nil
}

// LookupUnavailable reports whether key names a type that is not compiled
// in, and why.
func (r *Registry) LookupUnavailable(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reason, ok := r.unavailable[key]
	return reason, ok
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t Type) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the type selected by a name or alias.
func (r *Registry) Lookup(key string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byKey[key]
	if !ok {
		return Type{}, false
	}
	return *t, true
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, len(r.types))
	for i, t := range r.types {
		out[i] = *t
	}
	return out
}

// Names returns every accepted name and alias, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newGroup(name string, value any, args map[string]any) (check.Checker, error) {
	var opts check.Options
	if err := check.DecodeOptions(name, args, &opts); err != nil {
		return nil, err
	}
	n, err := check.New(name, value, nil, opts)
	if err != nil {
		return nil, err
	}
	return n, nil
}
