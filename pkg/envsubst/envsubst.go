// Package envsubst expands environment variable references in configuration
// values.
//
// The syntax follows docker compose env files:
//
//	$NAME ${NAME}          value of NAME, or "" when unset
//	${NAME:-alt} ${NAME-alt}  alt when NAME is unset (":" also treats empty as unset)
//	${NAME:+alt} ${NAME+alt}  alt when NAME is set, otherwise ""
//	${NAME:?msg} ${NAME?msg}  error when NAME is unset (strict mode only)
//	$$                     a literal "$"
//
// A value wrapped in single quotes is returned literally without the quotes.
// A value wrapped in double quotes is unwrapped and then expanded. In an
// unquoted value, a '#' at the start or after whitespace begins a comment
// that runs to the end; quote the value to keep such text.
package envsubst

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// LookupFunc resolves a variable name. os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// ErrMissing is returned by ExpandStrict for an unset ${NAME:?msg} reference.
var ErrMissing = errors.New("required variable is not set")

// Expand returns s with every variable reference replaced. Unset variables
// expand to the empty string. A nil lookup reads the process environment.
func Expand(s string, lookup LookupFunc) string {
	out, _ := expand(s, lookup, false)
	return out
}

// ExpandStrict is like Expand but fails on ${NAME:?msg} references to unset
// variables.
func ExpandStrict(s string, lookup LookupFunc) (string, error) {
	return expand(s, lookup, true)
}

// Value expands strings, and the strings inside slices, leaving any other
// value untouched.
func Value(v any, lookup LookupFunc) any {
	switch t := v.(type) {
	case string:
		return Expand(t, lookup)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = Expand(s, lookup)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e, lookup)
		}
		return out
	default:
		return v
	}
}

// Reference returns the variable name when s consists of exactly one plain
// $NAME or ${NAME} reference.
func Reference(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "$") {
		return "", false
	}
	name := s[1:]
	if strings.HasPrefix(name, "{") && strings.HasSuffix(name, "}") {
		name = name[1 : len(name)-1]
	}
	if !IsName(name) {
		return "", false
	}
	return name, true
}

// IsName reports whether s is a valid variable name.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i], i == 0) {
			return false
		}
	}
	return true
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// stripComment drops an inline comment from an unquoted value: a '#' at the
// start or after whitespace, followed by at least one character.
func stripComment(s string) string {
	for i := 0; i < len(s)-1; i++ {
		if s[i] != '#' {
			continue
		}
		if i == 0 {
			return ""
		}
		if s[i-1] == ' ' || s[i-1] == '\t' {
			return strings.TrimRight(s[:i], " \t")
		}
	}
	return s
}

func expand(s string, lookup LookupFunc, strict bool) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	trimmed := strings.TrimSpace(s)
	s = stripComment(trimmed)
	if n := len(trimmed); n >= 2 && trimmed[0] == trimmed[n-1] {
		switch trimmed[0] {
		case '\'':
			return trimmed[1 : n-1], nil
		case '"':
			s = trimmed[1 : n-1]
		}
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '$' || i+1 == len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}

		switch next := s[i+1]; {
		case next == '$':
			b.WriteByte('$')
			i += 2
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				return b.String(), nil
			}
			expr := s[i+2 : i+2+end]
			val, ok, err := resolve(expr, lookup, strict)
			if err != nil {
				return "", err
			}
			if ok {
				b.WriteString(val)
			} else {
				b.WriteString(s[i : i+3+end])
			}
			i += end + 3
		case isNameByte(next, true):
			j := i + 1
			for j < len(s) && isNameByte(s[j], false) {
				j++
			}
			val, _ := lookup(s[i+1 : j])
			b.WriteString(val)
			i = j
		default:
			b.WriteByte('$')
			i++
		}
	}
	return b.String(), nil
}

// resolve evaluates the inside of a ${...} reference. ok is false when expr
// is not a valid reference, in which case it is left as written.
func resolve(expr string, lookup LookupFunc, strict bool) (val string, ok bool, err error) {
	n := 0
	for n < len(expr) && isNameByte(expr[n], n == 0) {
		n++
	}
	if n == 0 {
		return "", false, nil
	}
	name, rest := expr[:n], expr[n:]
	value, set := lookup(name)

	if rest == "" {
		return value, true, nil
	}

	colon := strings.HasPrefix(rest, ":")
	if colon {
		rest = rest[1:]
		set = set && value != ""
	}
	if rest == "" {
		return "", false, nil
	}

	op, alt := rest[0], rest[1:]
	switch op {
	case '-':
		if set {
			return value, true, nil
		}
		return alt, true, nil
	case '+':
		if set {
			return alt, true, nil
		}
		return "", true, nil
	case '?':
		if set {
			return value, true, nil
		}
		if strict {
			if alt == "" {
				return "", true, fmt.Errorf("%w: %s", ErrMissing, name)
			}
			return "", true, fmt.Errorf("%w: %s: %s", ErrMissing, name, alt)
		}
		return "", true, nil
	}
	return "", false, nil
}
