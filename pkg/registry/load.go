package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geomancy/geo/pkg/check"
)

// DefaultMaxDepth bounds how deeply check mappings may nest.
const DefaultMaxDepth = 10

// Load builds a check tree named name from m. It returns nil without an
// error when m holds neither a check type nor a nested mapping.
func (r *Registry) Load(m *Mapping, name string) (check.Checker, error) {
	return r.LoadDepth(m, name, 1, DefaultMaxDepth)
}

// LoadDepth is Load starting at depth and failing once depth reaches
// maxDepth.
//
// A mapping with exactly one key naming a check type builds that type: the
// key's value is the check's raw value and the other keys are its options.
// A mapping without a type key becomes a group whose children are built
// from the keys holding mappings; the remaining keys are group options.
func (r *Registry) LoadDepth(m *Mapping, name string, depth, maxDepth int) (check.Checker, error) {
	if depth >= maxDepth {
		return nil, &check.ConfigError{
			Op:  "load " + name,
			Msg: fmt.Sprintf("depth %d", depth),
			Err: check.ErrMaxDepth,
		}
	}

	var typeKeys []string
	for _, k := range m.Keys() {
		if reason, ok := r.LookupUnavailable(k); ok {
			return nil, &check.ConfigError{
				Op:  "load " + name,
				Msg: fmt.Sprintf("%s: %s", k, reason),
				Err: check.ErrUnavailableType,
			}
		}
		if _, ok := r.Lookup(k); ok {
			typeKeys = append(typeKeys, k)
		}
	}

	switch len(typeKeys) {
	case 0:
		return r.loadGroup(m, name, depth, maxDepth)
	case 1:
		return r.loadType(m, name, typeKeys[0])
	default:
		return nil, &check.ConfigError{
			Op:  "load " + name,
			Msg: strings.Join(typeKeys, ", "),
			Err: check.ErrAmbiguousType,
		}
	}
}

func (r *Registry) loadType(m *Mapping, name, key string) (check.Checker, error) {
	t, _ := r.Lookup(key)
	raw, _ := m.Get(key)

	args := make(map[string]any, m.Len()-1)
	for _, k := range m.Keys() {
		if k == key {
			continue
		}
		v, _ := m.Get(k)
		args[k] = plain(v)
	}

	c, err := t.New(name, plain(raw), args)
	if err != nil {
		var ce *check.ConfigError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &check.ConfigError{Op: fmt.Sprintf("load %s (%s)", name, t.Name), Err: err}
	}
	slog.Debug("loaded check", "name", name, "type", t.Name)
	return c, nil
}

func (r *Registry) loadGroup(m *Mapping, name string, depth, maxDepth int) (check.Checker, error) {
	var children []check.Checker
	args := map[string]any{}

	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		sub, ok := v.(*Mapping)
		if !ok {
			args[k] = plain(v)
			continue
		}
		child, err := r.LoadDepth(sub, k, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		if child == nil {
			slog.Debug("no checks found in section", "name", k)
			continue
		}
		children = append(children, child)
	}

	if len(children) == 0 {
		return nil, nil
	}

	var opts check.Options
	if err := check.DecodeOptions(name, args, &opts); err != nil {
		return nil, err
	}
	n, err := check.New(name, nil, children, opts)
	if err != nil {
		return nil, err
	}
	return n, nil
}
