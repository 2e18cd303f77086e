package check

import (
	"fmt"
	"strings"
)

// Condition is the rule that derives a group's result from its children.
type Condition int

const (
	// All passes when every child passed. A group without children passes.
	All Condition = iota
	// Any passes when at least one child passed. A group without children fails.
	Any
)

// ParseCondition parses "all" or "any", ignoring case. An empty string
// yields All.
func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "any":
		return Any, nil
	}
	return All, &ConfigError{
		Op:  "parse condition",
		Msg: fmt.Sprintf("%q must be 'all' or 'any'", s),
		Err: ErrInvalidCondition,
	}
}

func (c Condition) String() string {
	if c == Any {
		return "any"
	}
	return "all"
}

// Aggregate applies the condition to the children's results.
func (c Condition) Aggregate(results []bool) bool {
	if c == Any {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}
