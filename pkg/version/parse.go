// Package version parses version numbers out of tool output and evaluates
// requirements such as "python>=3.9".
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionRegex matches version patterns like 1.2.3, v1.2, 18, etc.
var versionRegex = regexp.MustCompile(`v?(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// Parse parses a version string into a Version. The whole string must be a
// version.
func Parse(s string) (*semver.Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}

	match := versionRegex.FindString(s)
	if match == "" || match != s {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}
	return semver.NewVersion(match)
}

// Extract finds and parses the first version number in a string.
func Extract(s string) (*semver.Version, error) {
	match := versionRegex.FindString(s)
	if match == "" {
		return nil, fmt.Errorf("no version found in: %q", s)
	}
	return semver.NewVersion(match)
}

// Format renders v as major.minor.patch.
func Format(v *semver.Version) string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}
