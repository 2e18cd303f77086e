package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const operatorChars = "<>=!~"

// Requirement is a name with an optional version constraint, written like
// "python>=3.9", "macOS >= 13" or "requests>=2.0,<3".
type Requirement struct {
	Name       string
	Constraint string // as written, e.g. ">=2.0,<3"

	constraints *semver.Constraints
}

// ParseRequirement splits s into a name and a constraint. Operators are
// ==, !=, >=, <=, >, < and ~= (compatible release).
func ParseRequirement(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, operatorChars)
	if i < 0 {
		if s == "" {
			return Requirement{}, fmt.Errorf("empty requirement")
		}
		return Requirement{Name: s}, nil
	}

	r := Requirement{
		Name:       strings.TrimSpace(s[:i]),
		Constraint: strings.TrimSpace(s[i:]),
	}
	if r.Name == "" {
		return Requirement{}, fmt.Errorf("requirement %q has no name", s)
	}

	var parts []string
	for _, clause := range strings.Split(r.Constraint, ",") {
		translated, err := translate(strings.TrimSpace(clause))
		if err != nil {
			return Requirement{}, fmt.Errorf("requirement %q: %w", s, err)
		}
		parts = append(parts, translated)
	}

	c, err := semver.NewConstraint(strings.Join(parts, ", "))
	if err != nil {
		return Requirement{}, fmt.Errorf("requirement %q: %w", s, err)
	}
	r.constraints = c
	return r, nil
}

// translate converts one clause to Masterminds constraint syntax.
func translate(clause string) (string, error) {
	n := 0
	for n < len(clause) && strings.IndexByte(operatorChars, clause[n]) >= 0 {
		n++
	}
	op, ver := clause[:n], strings.TrimSpace(clause[n:])
	if ver == "" {
		return "", fmt.Errorf("clause %q has no version", clause)
	}

	switch op {
	case "==", "===", "=":
		return "=" + ver, nil
	case "!=", ">=", "<=", ">", "<":
		return op + ver, nil
	case "~=":
		return compatible(ver)
	}
	return "", fmt.Errorf("unknown operator %q", op)
}

// compatible expands "~=X.Y" to ">=X.Y, <X+1" and "~=X.Y.Z" to
// ">=X.Y.Z, <X.Y+1".
func compatible(ver string) (string, error) {
	v, err := semver.NewVersion(ver)
	if err != nil {
		return "", err
	}
	switch strings.Count(strings.TrimPrefix(ver, "v"), ".") {
	case 0:
		return "", fmt.Errorf("~=%s needs at least two version components", ver)
	case 1:
		return fmt.Sprintf(">=%s, <%d", ver, v.Major()+1), nil
	default:
		return fmt.Sprintf(">=%s, <%d.%d", ver, v.Major(), v.Minor()+1), nil
	}
}

// HasConstraint reports whether the requirement restricts the version.
func (r Requirement) HasConstraint() bool {
	return r.constraints != nil
}

// Check reports whether current satisfies the requirement. When it does
// not, reason says why: "present but current version unknown" when current
// is nil, otherwise "incorrect version=X.Y.Z".
func (r Requirement) Check(current *semver.Version) (ok bool, reason string) {
	if r.constraints == nil {
		return true, ""
	}
	if current == nil {
		return false, "present but current version unknown"
	}
	if !r.constraints.Check(current) {
		return false, "incorrect version=" + Format(current)
	}
	return true, ""
}

func (r Requirement) String() string {
	if r.Constraint == "" {
		return r.Name
	}
	return r.Name + r.Constraint
}
