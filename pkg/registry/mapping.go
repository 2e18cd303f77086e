package registry

import "sort"

// Mapping is a string-keyed map that remembers insertion order. Check files
// decode into Mappings so that checks run and render in the order they were
// written.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: map[string]any{}}
}

// Ordered builds a mapping from alternating keys and values:
// Ordered("a", 1, "b", 2). It panics on an odd count or a non-string key.
func Ordered(kv ...any) *Mapping {
	if len(kv)%2 != 0 {
		panic("registry.Ordered: odd number of arguments")
	}
	m := NewMapping()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

// FromMap converts a plain map, ordering keys alphabetically. Nested maps
// are converted too.
func FromMap(src map[string]any) *Mapping {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := NewMapping()
	for _, k := range keys {
		v := src[k]
		if nested, ok := v.(map[string]any); ok {
			v = FromMap(nested)
		}
		m.Set(k, v)
	}
	return m
}

// Set stores v under key. A new key goes to the end; an existing key keeps
// its position.
func (m *Mapping) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key.
func (m *Mapping) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// ToMap converts the mapping, and any nested mappings, to plain maps.
func (m *Mapping) ToMap() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plain(m.values[k])
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case *Mapping:
		return t.ToMap()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}
