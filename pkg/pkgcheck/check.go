// Package pkgcheck checks that a Python package is installed, optionally at
// a given version.
package pkgcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/execcheck"
	"github.com/geomancy/geo/pkg/pool"
	"github.com/geomancy/geo/pkg/registry"
	"github.com/geomancy/geo/pkg/version"
)

// Options are the keys accepted next to a checkPythonPackage value.
type Options struct {
	check.Options `mapstructure:",squash"`
	Python        string        `mapstructure:"python"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Check verifies an installed package, written like "requests" or
// "requests>=2.28,<3".
type Check struct {
	check.Node
	Python  string        // interpreter used to list packages
	Timeout time.Duration // timeout for the listing
	Cache   *Cache
}

// Register adds the package check type to r. Checks built from r share one
// listing cache.
func Register(r *registry.Registry, s config.Settings) error {
	cache := NewCache(&PipLister{Runner: &execcheck.RealRunner{}})
	return r.Register(registry.Type{
		Name:    "CheckPythonPackage",
		Aliases: []string{"checkPythonPackage", "checkPythonPkg", "CheckPythonPkg"},
		New: func(name string, value any, args map[string]any) (check.Checker, error) {
			opts := Options{Python: s.Python, Timeout: s.Timeout}
			if err := check.DecodeOptions(name, args, &opts); err != nil {
				return nil, err
			}
			return New(name, value, opts, cache)
		},
	})
}

// New returns a package check.
func New(name string, value any, opts Options, cache *Cache) (*Check, error) {
	raw, ok := value.(string)
	if !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkPythonPackage value must be a string, got %T", value),
			Err: check.ErrInvalidValue,
		}
	}
	if !strings.Contains(raw, "$") {
		if _, err := version.ParseRequirement(raw); err != nil {
			return nil, &check.ConfigError{Op: name, Err: err}
		}
	}

	n, err := check.New(name, value, nil, opts.Options)
	if err != nil {
		return nil, err
	}
	c := &Check{Node: *n, Python: opts.Python, Timeout: opts.Timeout, Cache: cache}
	if c.Python == "" {
		c.Python = config.Default().Python
	}
	return c, nil
}

// Evaluate executes the package check.
func (c *Check) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	value := c.ValueString()
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check python package '%s'", value)))

	req, err := version.ParseRequirement(value)
	if err != nil {
		return out.Failf("invalid requirement: %v", err)
	}

	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	pkgs, err := c.Cache.Packages(ctx, c.Python)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out.Failf("package listing timed out after %s", c.Timeout)
		}
		return out.Failf("package listing failed: %v", err)
	}

	installed, ok := pkgs[Normalize(req.Name)]
	if !ok {
		return out.Fail("missing")
	}
	out.AddDetailf("version: %s", installed)

	if !req.HasConstraint() {
		return out.Pass()
	}

	current, err := version.Extract(installed)
	if err != nil {
		current = nil
	}
	if ok, why := req.Check(current); !ok {
		return out.Fail(why)
	}
	return out.Pass()
}
