package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geomancy/geo/pkg/pool"
)

// Status represents the state of an outcome.
type Status string

const (
	StatusPending Status = "pending"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// Outcome holds the result of evaluating a check. A leaf outcome is settled
// by its check before it is returned. A group outcome stays pending until
// Resolve finds every child done, then settles from the children using its
// condition. Once settled the status never changes.
type Outcome struct {
	Name    string   // check name
	Message string   // display text, e.g. "Check environment variable 'HOME'"
	Details []string // extra lines; only appended before the outcome is returned

	condition Condition
	group     bool
	children  []*pool.Future[*Outcome]

	mu     sync.Mutex
	status Status
	reason string
}

// NewOutcome returns a pending leaf outcome.
func NewOutcome(name, message string) *Outcome {
	return &Outcome{Name: name, Message: message, status: StatusPending}
}

// NewGroupOutcome returns a pending outcome aggregating children with cond.
// The children may still be running.
func NewGroupOutcome(name, message string, cond Condition, children []*pool.Future[*Outcome]) *Outcome {
	return &Outcome{
		Name:      name,
		Message:   message,
		condition: cond,
		group:     true,
		children:  children,
		status:    StatusPending,
	}
}

// Pass settles the outcome as passed. It has no effect once settled.
func (o *Outcome) Pass() *Outcome {
	o.settle(StatusPassed, "")
	return o
}

// Fail settles the outcome as failed with a short reason such as
// "not found". It has no effect once settled.
func (o *Outcome) Fail(reason string) *Outcome {
	o.settle(StatusFailed, reason)
	return o
}

// Failf settles the outcome as failed with a formatted reason.
func (o *Outcome) Failf(format string, args ...any) *Outcome {
	return o.Fail(fmt.Sprintf(format, args...))
}

// AddDetail appends a detail line to the outcome.
func (o *Outcome) AddDetail(detail string) *Outcome {
	o.Details = append(o.Details, detail)
	return o
}

// AddDetailf appends a formatted detail line to the outcome.
func (o *Outcome) AddDetailf(format string, args ...any) *Outcome {
	return o.AddDetail(fmt.Sprintf(format, args...))
}

func (o *Outcome) settle(s Status, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != StatusPending {
		return
	}
	o.status = s
	o.reason = reason
}

// Status returns the current status without resolving.
func (o *Outcome) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Reason returns the failure reason, if any.
func (o *Outcome) Reason() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reason
}

// StatusText formats the status for display, e.g. "failed (not found)".
func (o *Outcome) StatusText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reason == "" {
		return string(o.status)
	}
	return fmt.Sprintf("%s (%s)", o.status, o.reason)
}

// Condition returns the aggregation rule of a group outcome.
func (o *Outcome) Condition() Condition {
	return o.condition
}

// IsGroup reports whether the outcome aggregates children.
func (o *Outcome) IsGroup() bool {
	return o.group
}

// Resolve settles a pending group outcome when all of its descendants are
// done and reports whether the outcome is done. It never blocks on running
// children.
func (o *Outcome) Resolve() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != StatusPending {
		return true
	}
	if !o.group {
		return false
	}

	results := make([]bool, 0, len(o.children))
	for _, f := range o.children {
		child, ok := f.Result()
		if !ok {
			return false
		}
		if child == nil {
			results = append(results, false)
			continue
		}
		if !child.Resolve() {
			return false
		}
		results = append(results, child.Passed())
	}

	if o.condition.Aggregate(results) {
		o.status = StatusPassed
	} else {
		o.status = StatusFailed
	}
	return true
}

// Done reports whether this outcome and all of its descendants are settled.
// It settles the outcome as a side effect when possible.
func (o *Outcome) Done() bool {
	return o.Resolve()
}

// Passed reports whether the outcome passed. Before Done returns true the
// answer is provisional: running children count as failed and nothing is
// settled.
func (o *Outcome) Passed() bool {
	switch o.Status() {
	case StatusPassed:
		return true
	case StatusFailed:
		return false
	}
	if !o.group {
		return false
	}

	results := make([]bool, len(o.children))
	for i, f := range o.children {
		if child, ok := f.Result(); ok && child != nil {
			results[i] = child.Passed()
		}
	}
	return o.condition.Aggregate(results)
}

// Children returns the child outcomes in declaration order. Entries for
// children that are still running are nil.
func (o *Outcome) Children() []*Outcome {
	out := make([]*Outcome, len(o.children))
	for i, f := range o.children {
		out[i], _ = f.Result()
	}
	return out
}

// Wait polls Done every interval until it returns true or ctx is cancelled,
// then returns Passed.
func (o *Outcome) Wait(ctx context.Context, interval time.Duration) bool {
	if o.Done() {
		return o.Passed()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return o.Passed()
		case <-ticker.C:
			if o.Done() {
				return o.Passed()
			}
		}
	}
}
