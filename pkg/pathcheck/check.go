// Package pathcheck checks files and directories.
package pathcheck

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/pool"
	"github.com/geomancy/geo/pkg/registry"
)

// Path types accepted by the type option.
const (
	TypeAny  = ""
	TypeDir  = "dir"
	TypeFile = "file"
)

// Options are the keys accepted next to a checkPath value.
type Options struct {
	check.Options `mapstructure:",squash"`
	Type          string `mapstructure:"type"`
	Writable      bool   `mapstructure:"writable"`
	Executable    bool   `mapstructure:"executable"`
	NotEmpty      bool   `mapstructure:"not_empty"`
	MinSize       int64  `mapstructure:"min_size"`
	MaxSize       int64  `mapstructure:"max_size"`
	Contains      string `mapstructure:"contains"`
	Match         string `mapstructure:"match"`
	Head          int64  `mapstructure:"head"`
	Mode          string `mapstructure:"mode"`
}

// Check verifies that a file or directory meets requirements.
type Check struct {
	check.Node
	Type       string      // "", "dir" or "file"
	Writable   bool        // check write permission
	Executable bool        // check execute permission
	NotEmpty   bool        // file must have size > 0
	MinSize    int64       // minimum file size in bytes
	MaxSize    int64       // maximum file size in bytes (0 = no limit)
	Contains   string      // literal string to search
	Match      string      // regex pattern for content
	Head       int64       // limit content read to first N bytes
	Mode       fs.FileMode // minimum permissions (0 = no check)
	FS         FileSystem  // injected for testing

	re *regexp.Regexp
}

// Register adds the path check type to r.
func Register(r *registry.Registry, _ config.Settings) error {
	return r.Register(registry.Type{
		Name:    "CheckPath",
		Aliases: []string{"checkPath"},
		New: func(name string, value any, args map[string]any) (check.Checker, error) {
			var opts Options
			if err := check.DecodeOptions(name, args, &opts); err != nil {
				return nil, err
			}
			return New(name, value, opts, &RealFileSystem{})
		},
	})
}

// New returns a path check.
func New(name string, value any, opts Options, fsys FileSystem) (*Check, error) {
	if _, ok := value.(string); !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkPath value must be a string, got %T", value),
			Err: check.ErrInvalidValue,
		}
	}
	switch opts.Type {
	case TypeAny, TypeDir, TypeFile:
	default:
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("path type %q must be one of: 'dir', 'file'", opts.Type),
			Err: check.ErrInvalidValue,
		}
	}

	n, err := check.New(name, value, nil, opts.Options)
	if err != nil {
		return nil, err
	}
	c := &Check{
		Node:       *n,
		Type:       opts.Type,
		Writable:   opts.Writable,
		Executable: opts.Executable,
		NotEmpty:   opts.NotEmpty,
		MinSize:    opts.MinSize,
		MaxSize:    opts.MaxSize,
		Contains:   opts.Contains,
		Match:      opts.Match,
		Head:       opts.Head,
		FS:         fsys,
	}

	if opts.Mode != "" {
		if c.Mode, err = parseOctalMode(opts.Mode); err != nil {
			return nil, &check.ConfigError{Op: name, Err: err}
		}
	}
	if c.re, err = check.CompileRegex(opts.Match); err != nil {
		return nil, &check.ConfigError{Op: name, Msg: "invalid regex", Err: err}
	}
	return c, nil
}

// Evaluate executes the path check.
func (c *Check) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	path := c.ValueString()
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check path '%s'", path)))

	info, err := c.FS.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return out.Fail("missing")
		case os.IsPermission(err):
			return out.Fail("permission denied")
		default:
			return out.Failf("stat failed: %v", err)
		}
	}

	switch {
	case c.Type == TypeDir && !info.IsDir():
		return out.Fail("not dir")
	case c.Type == TypeFile && !info.Mode().IsRegular():
		return out.Fail("not file")
	}
	out.AddDetailf("type: %s", describeType(info))

	if !info.IsDir() {
		if reason := c.checkSize(info, out); reason != "" {
			return out.Fail(reason)
		}
	}

	mode := info.Mode().Perm()
	out.AddDetailf("permissions: %s", mode)

	if c.Mode != 0 && mode&c.Mode != c.Mode {
		return out.Failf("permissions %s do not include minimum %s", mode, c.Mode)
	}

	if c.Writable && !isWritable(mode) {
		return out.Fail("not writable")
	}

	if c.Executable && !isExecutable(mode) {
		return out.Fail("not executable")
	}

	if !info.IsDir() && (c.Contains != "" || c.re != nil) {
		if reason := c.checkContent(path); reason != "" {
			return out.Fail(reason)
		}
	}

	return out.Pass()
}

func (c *Check) checkSize(info fs.FileInfo, out *check.Outcome) string {
	out.AddDetailf("size: %d", info.Size())

	switch {
	case c.NotEmpty && info.Size() == 0:
		return "file is empty"
	case c.MinSize > 0 && info.Size() < c.MinSize:
		return fmt.Sprintf("size %d < minimum %d", info.Size(), c.MinSize)
	case c.MaxSize > 0 && info.Size() > c.MaxSize:
		return fmt.Sprintf("size %d > maximum %d", info.Size(), c.MaxSize)
	}
	return ""
}

func (c *Check) checkContent(path string) string {
	content, err := c.FS.ReadFile(path, c.Head)
	if err != nil {
		return fmt.Sprintf("failed to read file: %v", err)
	}

	if c.Contains != "" && !strings.Contains(string(content), c.Contains) {
		return fmt.Sprintf("content does not contain %q", c.Contains)
	}

	if c.re != nil && !c.re.Match(content) {
		return fmt.Sprintf("content does not match pattern %q", c.Match)
	}
	return ""
}

func describeType(info fs.FileInfo) string {
	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return "symlink"
	case mode&fs.ModeSocket != 0:
		return "socket"
	case info.IsDir():
		return "directory"
	default:
		return "file"
	}
}

// parseOctalMode parses an octal permission string like "0644" or "644"
func parseOctalMode(s string) (fs.FileMode, error) {
	var mode uint32
	_, err := fmt.Sscanf(s, "%o", &mode)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q: %w", s, err)
	}
	return fs.FileMode(mode), nil
}

// isWritable checks if the mode has any write bit set (owner, group, or other)
func isWritable(mode fs.FileMode) bool {
	return mode&0o222 != 0
}

// isExecutable checks if the mode has any execute bit set (owner, group, or other)
func isExecutable(mode fs.FileMode) bool {
	return mode&0o111 != 0
}
