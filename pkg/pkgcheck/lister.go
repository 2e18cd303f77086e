package pkgcheck

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/geomancy/geo/pkg/execcheck"
)

// Lister returns the installed packages of an interpreter as a map of
// normalised name to version.
type Lister interface {
	List(ctx context.Context, python string) (map[string]string, error)
}

// PipLister lists packages with "python -m pip list --format=json".
type PipLister struct {
	Runner execcheck.CmdRunner
}

// List runs pip for the given interpreter and parses its JSON listing.
func (l *PipLister) List(ctx context.Context, python string) (map[string]string, error) {
	stdout, stderr, err := l.Runner.RunCommandContext(ctx, python, "-m", "pip", "list", "--format=json", "--disable-pip-version-check")
	if err != nil {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, firstLine(msg))
		}
		return nil, err
	}
	return parseListing(stdout)
}

func parseListing(out string) (map[string]string, error) {
	out = strings.TrimSpace(out)
	if !gjson.Valid(out) {
		return nil, fmt.Errorf("pip returned invalid JSON")
	}
	listing := gjson.Parse(out)
	if !listing.IsArray() {
		return nil, fmt.Errorf("pip returned %s, expected a list", listing.Type)
	}

	pkgs := make(map[string]string)
	listing.ForEach(func(_, entry gjson.Result) bool {
		name := entry.Get("name").String()
		if name != "" {
			pkgs[Normalize(name)] = entry.Get("version").String()
		}
		return true
	})
	return pkgs, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var separators = regexp.MustCompile(`[-_.]+`)

// Normalize folds a package name the way package indexes compare them:
// lower case, with runs of "-", "_" and "." collapsed to "-".
func Normalize(name string) string {
	return separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Cache memoises listings per interpreter. Concurrent misses for the same
// interpreter share one pip invocation.
type Cache struct {
	lister Lister

	mu       sync.Mutex
	listings map[string]map[string]string
	group    singleflight.Group
}

// NewCache returns an empty cache backed by l.
func NewCache(l Lister) *Cache {
	return &Cache{lister: l, listings: make(map[string]map[string]string)}
}

// Packages returns the listing for python, running the lister on a miss.
// Failed listings are not cached.
func (c *Cache) Packages(ctx context.Context, python string) (map[string]string, error) {
	c.mu.Lock()
	pkgs, ok := c.listings[python]
	c.mu.Unlock()
	if ok {
		slog.Debug("package listing cache hit", "python", python)
		return pkgs, nil
	}

	v, err, _ := c.group.Do(python, func() (any, error) {
		c.mu.Lock()
		pkgs, ok := c.listings[python]
		c.mu.Unlock()
		if ok {
			return pkgs, nil
		}

		pkgs, err := c.lister.List(ctx, python)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.listings[python] = pkgs
		c.mu.Unlock()
		slog.Debug("listed packages", "python", python, "count", len(pkgs))
		return pkgs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// Reset drops every cached listing.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = make(map[string]map[string]string)
}
