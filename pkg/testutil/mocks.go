package testutil

import (
	"strings"
	"sync/atomic"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/pool"
)

// StaticCheck is a leaf that passes or fails without probing anything.
type StaticCheck struct {
	check.Node
	Pass   bool
	Reason string

	calls atomic.Int32
}

// NewStatic returns a StaticCheck named name.
func NewStatic(name string, pass bool) *StaticCheck {
	return &StaticCheck{Node: check.Node{Name: name, Substitute: true}, Pass: pass, Reason: "static"}
}

func (c *StaticCheck) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	c.calls.Add(1)
	out := check.NewOutcome(c.Name, c.Message())
	if c.Pass {
		return out.Pass()
	}
	return out.Fail(c.Reason)
}

// Calls returns how many times Evaluate ran.
func (c *StaticCheck) Calls() int {
	return int(c.calls.Load())
}

// BlockingCheck is a leaf whose evaluation waits until Release is closed.
type BlockingCheck struct {
	check.Node
	Pass    bool
	Release chan struct{}
	Started chan struct{}
}

// NewBlocking returns a BlockingCheck named name.
func NewBlocking(name string, pass bool) *BlockingCheck {
	return &BlockingCheck{
		Node:    check.Node{Name: name, Substitute: true},
		Pass:    pass,
		Release: make(chan struct{}),
		Started: make(chan struct{}, 1),
	}
}

func (c *BlockingCheck) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	select {
	case c.Started <- struct{}{}:
	default:
	}
	<-c.Release
	out := check.NewOutcome(c.Name, c.Message())
	if c.Pass {
		return out.Pass()
	}
	return out.Fail("released")
}

// PanicCheck is a leaf whose evaluation panics.
type PanicCheck struct {
	check.Node
}

func (c *PanicCheck) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	panic("check exploded")
}

// Ptr returns a pointer to the value (useful for optional fields in tests).
func Ptr[T any](v T) *T {
	return &v
}

// ContainsDetail checks if any detail string contains the given substring.
func ContainsDetail(details []string, substr string) bool {
	for _, d := range details {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}

// MapLookup returns an environment lookup function backed by vars.
func MapLookup(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}
