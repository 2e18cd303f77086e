// Package execcheck checks that executables are installed, optionally at a
// given version.
package execcheck

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/pool"
	"github.com/geomancy/geo/pkg/registry"
	"github.com/geomancy/geo/pkg/version"
)

// DefaultVersionArgs are passed to the executable to print its version.
var DefaultVersionArgs = []string{"--version"}

// Options are the keys accepted next to a checkExec value.
type Options struct {
	check.Options `mapstructure:",squash"`
	VersionArgs   []string      `mapstructure:"version_args"`
	Match         string        `mapstructure:"match"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Check verifies that a command exists and, when the value carries a
// constraint such as "git>=2.30", that its version satisfies it.
type Check struct {
	check.Node
	VersionArgs []string      // args to get version (default: --version)
	Match       string        // regex pattern to match against version output
	Timeout     time.Duration // timeout for the version command
	Runner      CmdRunner     // injected for testing

	re *regexp.Regexp
}

// Register adds the executable check type to r.
func Register(r *registry.Registry, s config.Settings) error {
	return r.Register(registry.Type{
		Name:    "CheckExec",
		Aliases: []string{"checkExec"},
		New: func(name string, value any, args map[string]any) (check.Checker, error) {
			opts := Options{Timeout: s.Timeout}
			if err := check.DecodeOptions(name, args, &opts); err != nil {
				return nil, err
			}
			return New(name, value, opts, &RealRunner{})
		},
	})
}

// New returns an executable check.
func New(name string, value any, opts Options, runner CmdRunner) (*Check, error) {
	raw, ok := value.(string)
	if !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkExec value must be a string, got %T", value),
			Err: check.ErrInvalidValue,
		}
	}
	if err := validateRequirement(raw); err != nil {
		return nil, &check.ConfigError{Op: name, Err: err}
	}

	n, err := check.New(name, value, nil, opts.Options)
	if err != nil {
		return nil, err
	}
	c := &Check{
		Node:        *n,
		VersionArgs: opts.VersionArgs,
		Match:       opts.Match,
		Timeout:     opts.Timeout,
		Runner:      runner,
	}
	if len(c.VersionArgs) == 0 {
		c.VersionArgs = DefaultVersionArgs
	}
	if c.re, err = check.CompileRegex(opts.Match); err != nil {
		return nil, &check.ConfigError{Op: name, Msg: "invalid regex", Err: err}
	}
	return c, nil
}

// validateRequirement parses raw unless it holds variables that can only
// be resolved when the check runs.
func validateRequirement(raw string) error {
	if strings.Contains(raw, "$") {
		return nil
	}
	_, err := version.ParseRequirement(raw)
	return err
}

// Evaluate executes the command check.
func (c *Check) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	value := c.ValueString()
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check executable '%s'", value)))

	req, err := version.ParseRequirement(value)
	if err != nil {
		return out.Failf("invalid requirement: %v", err)
	}

	path, err := c.Runner.LookPath(req.Name)
	if err != nil {
		return out.Fail("missing")
	}
	out.AddDetailf("path: %s", path)

	if !req.HasConstraint() && c.re == nil {
		return out.Pass()
	}

	output, reason := c.versionOutput(req.Name)
	if reason != "" {
		return out.Fail(reason)
	}

	if c.re != nil && !c.re.MatchString(output) {
		return out.Failf("version output does not match pattern %q", c.Match)
	}

	current, err := version.Extract(output)
	if err == nil {
		out.AddDetailf("version: %s", version.Format(current))
	} else {
		current = nil
	}
	if ok, why := req.Check(current); !ok {
		return out.Fail(why)
	}
	return out.Pass()
}

func (c *Check) versionOutput(name string) (output, reason string) {
	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	stdout, stderr, err := c.Runner.RunCommandContext(ctx, name, c.VersionArgs...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Sprintf("version command timed out after %s", c.Timeout)
		}
		return "", fmt.Sprintf("version command failed: %v", err)
	}

	if strings.TrimSpace(stdout) == "" {
		return stderr, ""
	}
	return stdout, ""
}
