package check

import (
	"errors"
	"strings"
)

var (
	ErrMaxDepth         = errors.New("maximum recursion depth reached")
	ErrAmbiguousType    = errors.New("only one check type may be specified")
	ErrDuplicateAlias   = errors.New("duplicate check type name or alias")
	ErrUnknownOption    = errors.New("unknown option")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrInvalidChild     = errors.New("invalid child check")
	ErrInvalidValue     = errors.New("invalid value")
	ErrUnavailableType  = errors.New("check type is not available in this build")
)

// ConfigError reports a problem building a check tree. It is only returned
// while constructing checks, never while evaluating them.
type ConfigError struct {
	Op  string // what was being built, e.g. "load root.env"
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Op, e.Msg} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
