package check

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/geomancy/geo/pkg/envsubst"
	"github.com/geomancy/geo/pkg/pool"
)

// Checker is implemented by all check types. Leaf checks embed Node and
// implement Evaluate with their probe; Node on its own is the grouping check.
//
// Implementations:
//   - envcheck.Check: validates environment variables
//   - pathcheck.Check: checks file/directory properties
//   - execcheck.Check: verifies executable presence and version
//   - platformcheck.Check: verifies the operating system and its release
//   - pkgcheck.Check: verifies installed Python package versions
//   - awscheck: S3 bucket, IAM and SSM parameter checks
type Checker interface {
	// Base returns the node holding the check's identity and children.
	Base() *Node
	// Evaluate runs the check. Children are submitted to r and are not
	// waited for, so the returned outcome may still be pending.
	Evaluate(r pool.Runner, depth int) *Outcome
}

// Node is a check tree node: a name, an optional raw value and children.
type Node struct {
	Name       string
	RawValue   any
	Desc       string
	Condition  Condition
	Substitute bool                // expand environment variables in Value
	Lookup     envsubst.LookupFunc // nil reads the process environment

	children []Checker
}

// New returns a node. Every child must be non-nil.
func New(name string, value any, children []Checker, opts Options) (*Node, error) {
	cond, err := ParseCondition(opts.Condition)
	if err != nil {
		return nil, err
	}
	for i, c := range children {
		if c == nil {
			return nil, &ConfigError{
				Op:  name,
				Msg: fmt.Sprintf("child %d is not a check", i),
				Err: ErrInvalidChild,
			}
		}
	}

	n := &Node{
		Name:       name,
		RawValue:   value,
		Desc:       opts.Desc,
		Condition:  cond,
		Substitute: true,
		children:   append([]Checker(nil), children...),
	}
	if opts.Substitute != nil {
		n.Substitute = *opts.Substitute
	}
	return n, nil
}

// Base returns n.
func (n *Node) Base() *Node {
	return n
}

// Value returns the raw value with environment variables expanded, or the
// raw value itself when substitution is disabled.
func (n *Node) Value() any {
	if n.RawValue == nil || !n.Substitute {
		return n.RawValue
	}
	return envsubst.Value(n.RawValue, n.Lookup)
}

// ValueString returns Value formatted as text.
func (n *Node) ValueString() string {
	switch v := n.Value().(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// Message returns the description, falling back to the name.
func (n *Node) Message() string {
	if n.Desc != "" {
		return n.Desc
	}
	return n.Name
}

// Describe returns the description, falling back to def.
func (n *Node) Describe(def string) string {
	if n.Desc != "" {
		return n.Desc
	}
	return def
}

// Children returns a copy of the node's children.
func (n *Node) Children() []Checker {
	return append([]Checker(nil), n.children...)
}

// IsGroup reports whether the node aggregates children.
func (n *Node) IsGroup() bool {
	return len(n.children) > 0
}

// Evaluate submits every child to r and returns a pending group outcome.
func (n *Node) Evaluate(r pool.Runner, depth int) *Outcome {
	futures := make([]*pool.Future[*Outcome], len(n.children))
	for i, c := range n.children {
		futures[i] = Submit(r, c, depth+1)
	}
	return NewGroupOutcome(n.Name, n.Message(), n.Condition, futures)
}

// EvaluateSequential runs the children one after another on the calling
// goroutine and stops once a result decides the condition: the first
// failure for All, the first pass for Any. Children that were not run are
// left out of the outcome.
func (n *Node) EvaluateSequential(r pool.Runner, depth int) *Outcome {
	futures := make([]*pool.Future[*Outcome], 0, len(n.children))
	for _, c := range n.children {
		out := Run(r, c, depth+1)
		for !out.Done() {
			time.Sleep(10 * time.Millisecond)
		}
		futures = append(futures, pool.Resolved(out))
		if out.Passed() == (n.Condition == Any) {
			break
		}
	}
	return NewGroupOutcome(n.Name, n.Message(), n.Condition, futures)
}

// Submit evaluates c as a unit of work on r.
func Submit(r pool.Runner, c Checker, depth int) *pool.Future[*Outcome] {
	return pool.Submit(r, func() *Outcome { return Run(r, c, depth) })
}

// Run evaluates c on the calling goroutine. A panic or a missing result is
// reported as a failed outcome.
func Run(r pool.Runner, c Checker, depth int) (out *Outcome) {
	b := c.Base()
	defer func() {
		if p := recover(); p != nil {
			slog.Error("check panicked", "check", b.Name, "panic", p)
			out = NewOutcome(b.Name, b.Message()).Failf("error: %v", p)
		}
	}()

	out = c.Evaluate(r, depth)
	switch {
	case out == nil:
		out = NewOutcome(b.Name, b.Message()).Fail("no result")
	case !out.IsGroup() && out.Status() == StatusPending:
		out.Fail("no result")
	}
	return out
}

// Flatten returns c and all of its descendants in pre-order.
func Flatten(c Checker) []Checker {
	out := []Checker{c}
	for _, child := range c.Base().children {
		out = append(out, Flatten(child)...)
	}
	return out
}

// Count returns the number of checks in the tree rooted at c.
func Count(c Checker) int {
	return len(Flatten(c))
}

// CompileRegex compiles a regex pattern if non-empty, returning nil if pattern is empty.
func CompileRegex(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}
