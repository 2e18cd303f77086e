// Package envcheck checks environment variables.
package envcheck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/envsubst"
	"github.com/geomancy/geo/pkg/pool"
	"github.com/geomancy/geo/pkg/registry"
)

// Options are the keys accepted next to a checkEnv value.
type Options struct {
	check.Options `mapstructure:",squash"`
	Regex         string   `mapstructure:"regex"`
	Exact         string   `mapstructure:"exact"`
	OneOf         []string `mapstructure:"one_of"`
	StartsWith    string   `mapstructure:"starts_with"`
	EndsWith      string   `mapstructure:"ends_with"`
	Contains      string   `mapstructure:"contains"`
	IsNumeric     bool     `mapstructure:"is_numeric"`
	MinLen        int      `mapstructure:"min_len"`
	MaxLen        int      `mapstructure:"max_len"`
	AllowEmpty    bool     `mapstructure:"allow_empty"`
	HideValue     bool     `mapstructure:"hide_value"`
	MaskValue     bool     `mapstructure:"mask_value"`
}

// Check verifies that an environment variable meets requirements. The value
// is either a variable name, or an expression such as "${HOST}:${PORT}"
// that is judged after substitution.
type Check struct {
	check.Node
	Regex      string    // must match at the start of the value
	Exact      string    // exact value
	OneOf      []string  // value must be one of these
	StartsWith string    // value must start with this
	EndsWith   string    // value must end with this
	Contains   string    // value must contain this
	IsNumeric  bool      // value must be a valid number
	MinLen     int       // minimum string length (0 = no check)
	MaxLen     int       // maximum string length (0 = no check)
	AllowEmpty bool      // an empty value passes
	HideValue  bool      // don't show value in output
	MaskValue  bool      // show first/last 3 chars
	Getter     EnvGetter // injected for testing

	re *regexp.Regexp
}

// Register adds the environment check type to r.
func Register(r *registry.Registry, _ config.Settings) error {
	return r.Register(registry.Type{
		Name:    "CheckEnv",
		Aliases: []string{"checkEnv"},
		New: func(name string, value any, args map[string]any) (check.Checker, error) {
			var opts Options
			if err := check.DecodeOptions(name, args, &opts); err != nil {
				return nil, err
			}
			return New(name, value, opts, &RealEnvGetter{})
		},
	})
}

// New returns an environment check. The value must be a string.
func New(name string, value any, opts Options, getter EnvGetter) (*Check, error) {
	if _, ok := value.(string); !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkEnv value must be a string, got %T", value),
			Err: check.ErrInvalidValue,
		}
	}
	n, err := check.New(name, value, nil, opts.Options)
	if err != nil {
		return nil, err
	}

	c := &Check{
		Node:       *n,
		Regex:      opts.Regex,
		Exact:      opts.Exact,
		OneOf:      opts.OneOf,
		StartsWith: opts.StartsWith,
		EndsWith:   opts.EndsWith,
		Contains:   opts.Contains,
		IsNumeric:  opts.IsNumeric,
		MinLen:     opts.MinLen,
		MaxLen:     opts.MaxLen,
		AllowEmpty: opts.AllowEmpty,
		HideValue:  opts.HideValue,
		MaskValue:  opts.MaskValue,
		Getter:     getter,
	}
	if opts.Regex != "" {
		c.re, err = check.CompileRegex("^(?:" + opts.Regex + ")")
		if err != nil {
			return nil, &check.ConfigError{Op: name, Msg: "invalid regex", Err: err}
		}
	}
	c.Lookup = getter.LookupEnv
	return c, nil
}

// Evaluate executes the environment variable check.
func (c *Check) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	raw, _ := c.RawValue.(string)
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check environment variable '%s'", raw)))

	value, exists, reason := c.lookup(raw)
	if reason != "" {
		return out.Fail(reason)
	}
	if !exists {
		return out.Fail("missing")
	}

	if value == "" && !c.AllowEmpty {
		return out.Fail("empty string")
	}

	if reason := c.validate(value); reason != "" {
		return out.Fail(reason)
	}

	out.AddDetailf("value: %s", c.formatValue(value))
	return out.Pass()
}

// lookup reads a bare name or single $NAME reference from the environment;
// anything else is substituted as a whole. Without substitution the value
// must be a bare name.
func (c *Check) lookup(raw string) (value string, exists bool, reason string) {
	name := strings.TrimSpace(raw)
	if ref, ok := envsubst.Reference(name); ok && c.Substitute {
		name = ref
	}
	if envsubst.IsName(name) {
		value, exists = c.Getter.LookupEnv(name)
		return value, exists, ""
	}
	if !c.Substitute {
		return "", false, "invalid variable name"
	}
	return c.ValueString(), true, ""
}

func (c *Check) validate(value string) string {
	if c.re != nil && !c.re.MatchString(value) {
		return fmt.Sprintf("does not match regex '%s'", c.Regex)
	}

	if c.Exact != "" && value != c.Exact {
		return fmt.Sprintf("value does not equal %q", c.Exact)
	}

	if len(c.OneOf) > 0 {
		found := false
		for _, allowed := range c.OneOf {
			if value == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("value %q not in allowed list %v", c.formatValue(value), c.OneOf)
		}
	}

	if c.StartsWith != "" && !strings.HasPrefix(value, c.StartsWith) {
		return fmt.Sprintf("value does not start with %q", c.StartsWith)
	}

	if c.EndsWith != "" && !strings.HasSuffix(value, c.EndsWith) {
		return fmt.Sprintf("value does not end with %q", c.EndsWith)
	}

	if c.Contains != "" && !strings.Contains(value, c.Contains) {
		return fmt.Sprintf("value does not contain %q", c.Contains)
	}

	if c.IsNumeric {
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "value is not numeric"
		}
	}

	if c.MinLen > 0 && len(value) < c.MinLen {
		return fmt.Sprintf("value length %d < minimum %d", len(value), c.MinLen)
	}

	if c.MaxLen > 0 && len(value) > c.MaxLen {
		return fmt.Sprintf("value length %d > maximum %d", len(value), c.MaxLen)
	}
	return ""
}

func (c *Check) formatValue(value string) string {
	if c.HideValue {
		return "[hidden]"
	}
	if c.MaskValue {
		return maskValue(value)
	}
	return value
}

func maskValue(value string) string {
	if len(value) <= 6 {
		return "•••"
	}
	return value[:3] + "•••" + value[len(value)-3:]
}
