package checkfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"gopkg.in/yaml.v3"

	"github.com/geomancy/geo/pkg/registry"
)

// DecodeTOML decodes a TOML document into a mapping that keeps the order
// keys were written in. When section is given only that table is returned;
// a missing table yields an empty mapping.
func DecodeTOML(data []byte, section ...string) (*registry.Mapping, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	order, err := tomlKeyOrder(data)
	if err != nil {
		return nil, err
	}

	for _, key := range section {
		next, ok := doc[key].(map[string]any)
		if !ok {
			return registry.NewMapping(), nil
		}
		doc = next
	}
	return orderedMapping(doc, section, order), nil
}

// keyOrder records, per table path, the order its keys first appeared.
type keyOrder map[string][]string

func pathKey(path []string) string {
	return strings.Join(path, "\x00")
}

func (o keyOrder) add(path []string, key string) {
	k := pathKey(path)
	for _, existing := range o[k] {
		if existing == key {
			return
		}
	}
	o[k] = append(o[k], key)
}

// addDotted records every level of a dotted key below base.
func (o keyOrder) addDotted(base, parts []string) {
	for i, part := range parts {
		o.add(append(append([]string(nil), base...), parts[:i]...), part)
	}
}

func tomlKeyOrder(data []byte) (keyOrder, error) {
	order := keyOrder{}
	var table []string

	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(e.Key())
			order.addDotted(nil, table)
		case unstable.KeyValue:
			recordKeyValue(order, table, e)
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return order, nil
}

func recordKeyValue(order keyOrder, base []string, kv *unstable.Node) {
	parts := keyParts(kv.Key())
	order.addDotted(base, parts)
	recordValue(order, append(append([]string(nil), base...), parts...), kv.Value())
}

func recordValue(order keyOrder, path []string, v *unstable.Node) {
	switch v.Kind {
	case unstable.InlineTable:
		it := v.Children()
		for it.Next() {
			if n := it.Node(); n.Kind == unstable.KeyValue {
				recordKeyValue(order, path, n)
			}
		}
	case unstable.Array:
		// Tables inside an array share the order of their path.
		it := v.Children()
		for it.Next() {
			recordValue(order, path, it.Node())
		}
	}
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func orderedMapping(src map[string]any, path []string, order keyOrder) *registry.Mapping {
	keys := order[pathKey(path)]
	var rest []string
	known := map[string]bool{}
	for _, k := range keys {
		known[k] = true
	}
	for k := range src {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	m := registry.NewMapping()
	for _, k := range append(append([]string(nil), keys...), rest...) {
		v, ok := src[k]
		if !ok {
			continue
		}
		m.Set(k, orderedValue(v, append(append([]string(nil), path...), k), order))
	}
	return m
}

func orderedValue(v any, path []string, order keyOrder) any {
	switch t := v.(type) {
	case map[string]any:
		return orderedMapping(t, path, order)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = orderedValue(e, path, order)
		}
		return out
	default:
		return v
	}
}

// DecodeYAML decodes a YAML document into a mapping that keeps the order
// keys were written in. An empty document yields an empty mapping.
func DecodeYAML(data []byte) (*registry.Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return registry.NewMapping(), nil
	}

	v, err := yamlValue(&root)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return registry.NewMapping(), nil
	case *registry.Mapping:
		return t, nil
	default:
		return nil, fmt.Errorf("top level must be a mapping, got %T", v)
	}
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.MappingNode:
		m := registry.NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := yamlValue(v)
			if err != nil {
				return nil, err
			}
			m.Set(k.Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}
