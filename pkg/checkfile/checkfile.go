// Package checkfile finds and decodes check files.
package checkfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/registry"
)

// DefaultPaths are tried, in order, when no check file is named.
var DefaultPaths = []string{
	"pyproject.toml",
	".geomancy.toml",
	"geomancy.toml",
	".geomancy.yaml",
	"geomancy.yaml",
	".geomancy.yml",
	"geomancy.yml",
}

// ErrNotFound is returned when no check file could be located.
var ErrNotFound = errors.New("no check file found")

// File is a decoded check file.
type File struct {
	Path   string
	Checks *registry.Mapping // check definitions, without the config section
	Config map[string]any    // the config section, if any
}

// Resolve expands each pattern as a glob. A pattern without glob characters
// must name an existing file. The result keeps pattern order and drops
// duplicates.
func Resolve(patterns []string) ([]string, error) {
	var paths []string
	seen := map[string]bool{}
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("check file not found: %w", err)
			}
			matches = []string{p}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

// Discover looks for one of DefaultPaths in startDir and its parents,
// stopping at the home directory or a repository root. A pyproject.toml only
// counts when it has a [tool.geomancy] table.
func Discover(startDir string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		for _, name := range DefaultPaths {
			path := filepath.Join(currentDir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if name == "pyproject.toml" && !hasSection(path) {
				slog.Debug("pyproject.toml has no [tool.geomancy] table", "path", path)
				continue
			}
			slog.Debug("found check file", "path", path)
			return path, nil
		}

		if currentDir == homeDir {
			break
		}

		if _, err := os.Stat(filepath.Join(currentDir, ".git")); err == nil {
			break
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", ErrNotFound
}

func hasSection(path string) bool {
	f, err := Load(path)
	return err == nil && f.Checks.Len()+len(f.Config) > 0
}

// Load reads and decodes a check file. The format follows the extension:
// .toml or .yaml/.yml. For pyproject.toml only the [tool.geomancy] table is
// used.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // reading a user-named check file
	if err != nil {
		return nil, fmt.Errorf("failed to read check file: %w", err)
	}

	var m *registry.Mapping
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var section []string
		if filepath.Base(path) == "pyproject.toml" {
			section = []string{"tool", "geomancy"}
		}
		m, err = DecodeTOML(data, section...)
	case ".yaml", ".yml":
		m, err = DecodeYAML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported check file format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	section, err := SplitConfig(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{Path: path, Checks: m, Config: section}, nil
}

// SplitConfig removes the config section from m and returns it.
func SplitConfig(m *registry.Mapping) (map[string]any, error) {
	var section map[string]any
	for _, name := range config.SectionNames {
		v, ok := m.Get(name)
		if !ok {
			continue
		}
		if section != nil {
			return nil, fmt.Errorf("more than one config section")
		}
		sub, ok := v.(*registry.Mapping)
		if !ok {
			return nil, fmt.Errorf("%s section must be a table, got %T", name, v)
		}
		section = sub.ToMap()
		m.Delete(name)
	}
	return section, nil
}
