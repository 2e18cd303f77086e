// Package platformcheck checks the operating system and its version.
package platformcheck

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/pool"
	"github.com/geomancy/geo/pkg/registry"
	"github.com/geomancy/geo/pkg/version"
)

// Options are the keys accepted next to a checkPlatform value.
type Options struct {
	check.Options `mapstructure:",squash"`
	Arch          string `mapstructure:"arch"`
}

// Check verifies the platform, written like "Linux", "macOS>=13" or
// "Windows>=10".
type Check struct {
	check.Node
	Arch string  // required architecture (amd64, arm64, 386)
	Info SysInfo // injected for testing
}

// Register adds the platform check type to r.
func Register(r *registry.Registry, _ config.Settings) error {
	return r.Register(registry.Type{
		Name:    "CheckPlatform",
		Aliases: []string{"checkOS", "checkPlatform"},
		New: func(name string, value any, args map[string]any) (check.Checker, error) {
			var opts Options
			if err := check.DecodeOptions(name, args, &opts); err != nil {
				return nil, err
			}
			return New(name, value, opts, &RealSysInfo{})
		},
	})
}

// New returns a platform check.
func New(name string, value any, opts Options, info SysInfo) (*Check, error) {
	raw, ok := value.(string)
	if !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkPlatform value must be a string, got %T", value),
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
	return &Check{Node: *n, Arch: opts.Arch, Info: info}, nil
}

// Evaluate executes the platform check.
func (c *Check) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check platform '%s'", c.ValueString())))

	req, err := version.ParseRequirement(c.ValueString())
	if err != nil {
		return out.Failf("invalid requirement: %v", err)
	}

	goos := c.Info.OS()
	platform := PlatformName(goos)
	if !strings.EqualFold(req.Name, platform) && !strings.EqualFold(req.Name, goos) {
		return out.Fail("wrong platform")
	}
	out.AddDetailf("os: %s", platform)

	arch := c.Info.Arch()
	if c.Arch != "" && arch != c.Arch {
		return out.Failf("arch mismatch: expected %s, got %s", c.Arch, arch)
	}
	out.AddDetailf("arch: %s", arch)

	if !req.HasConstraint() {
		return out.Pass()
	}

	rel, err := c.Info.Release()
	if err != nil {
		slog.Debug("platform release lookup failed", "error", err)
	}
	current, err := version.Extract(rel)
	if err != nil {
		current = nil
	} else {
		out.AddDetailf("release: %s", rel)
	}

	if ok, why := req.Check(current); !ok {
		return out.Fail(why)
	}
	return out.Pass()
}
