package envcheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/pool"
	"github.com/geomancy/geo/pkg/registry"
	"github.com/geomancy/geo/pkg/testutil"
)

func TestEnvCheck_Evaluate(t *testing.T) {
	env := MapEnv{
		"HOME":         "/home/user",
		"EMPTY_VAR":    "",
		"DATABASE_URL": "postgres://localhost/db",
		"PORT":         "8080",
		"HOST":         "localhost",
		"SECRET":       "supersecretvalue",
		"SHORT":        "abc",
		"LEVEL":        "debug",
	}

	tests := []struct {
		name       string
		value      string
		opts       Options
		wantStatus check.Status
		wantReason string
		wantDetail string
	}{
		{
			name:       "set variable passes",
			value:      "HOME",
			wantStatus: check.StatusPassed,
			wantDetail: "value: /home/user",
		},
		{
			name:       "missing variable fails",
			value:      "MISSING_VAR",
			wantStatus: check.StatusFailed,
			wantReason: "missing",
		},
		{
			name:       "braced reference is looked up",
			value:      "${HOME}",
			wantStatus: check.StatusPassed,
		},
		{
			name:       "missing reference fails",
			value:      "$MISSING_VAR",
			wantStatus: check.StatusFailed,
			wantReason: "missing",
		},
		{
			name:       "empty variable fails",
			value:      "EMPTY_VAR",
			wantStatus: check.StatusFailed,
			wantReason: "empty string",
		},
		{
			name:       "allow-empty allows empty value",
			value:      "EMPTY_VAR",
			opts:       Options{AllowEmpty: true},
			wantStatus: check.StatusPassed,
		},
		{
			name:       "expression is substituted",
			value:      "${HOST}:${PORT}",
			wantStatus: check.StatusPassed,
			wantDetail: "value: localhost:8080",
		},
		{
			name:       "expression of missing variables is empty",
			value:      "${NOPE}${NADA}",
			wantStatus: check.StatusFailed,
			wantReason: "empty string",
		},
		{
			name:       "regex matches from the start",
			value:      "DATABASE_URL",
			opts:       Options{Regex: `postgres://`},
			wantStatus: check.StatusPassed,
		},
		{
			name:       "regex must match at the start",
			value:      "DATABASE_URL",
			opts:       Options{Regex: `localhost`},
			wantStatus: check.StatusFailed,
			wantReason: "does not match regex 'localhost'",
		},
		{
			name:       "exact value passes",
			value:      "LEVEL",
			opts:       Options{Exact: "debug"},
			wantStatus: check.StatusPassed,
		},
		{
			name:       "exact value fails",
			value:      "LEVEL",
			opts:       Options{Exact: "info"},
			wantStatus: check.StatusFailed,
			wantReason: `value does not equal "info"`,
		},
		{
			name:       "one-of passes",
			value:      "LEVEL",
			opts:       Options{OneOf: []string{"info", "debug"}},
			wantStatus: check.StatusPassed,
		},
		{
			name:       "one-of with hide-value hides value in error",
			value:      "LEVEL",
			opts:       Options{OneOf: []string{"info"}, HideValue: true},
			wantStatus: check.StatusFailed,
			wantReason: `value "[hidden]" not in allowed list [info]`,
		},
		{
			name:       "hide-value hides value in output",
			value:      "SECRET",
			opts:       Options{HideValue: true},
			wantStatus: check.StatusPassed,
			wantDetail: "value: [hidden]",
		},
		{
			name:       "mask-value masks long value",
			value:      "SECRET",
			opts:       Options{MaskValue: true},
			wantStatus: check.StatusPassed,
			wantDetail: "value: sup•••lue",
		},
		{
			name:       "mask-value fully masks short value",
			value:      "SHORT",
			opts:       Options{MaskValue: true},
			wantStatus: check.StatusPassed,
			wantDetail: "value: •••",
		},
		{
			name:       "starts-with fails",
			value:      "DATABASE_URL",
			opts:       Options{StartsWith: "mysql://"},
			wantStatus: check.StatusFailed,
			wantReason: `value does not start with "mysql://"`,
		},
		{
			name:       "ends-with passes",
			value:      "DATABASE_URL",
			opts:       Options{EndsWith: "/db"},
			wantStatus: check.StatusPassed,
		},
		{
			name:       "contains fails",
			value:      "DATABASE_URL",
			opts:       Options{Contains: "prod"},
			wantStatus: check.StatusFailed,
			wantReason: `value does not contain "prod"`,
		},
		{
			name:       "is-numeric passes",
			value:      "PORT",
			opts:       Options{IsNumeric: true},
			wantStatus: check.StatusPassed,
		},
		{
			name:       "is-numeric fails",
			value:      "HOST",
			opts:       Options{IsNumeric: true},
			wantStatus: check.StatusFailed,
			wantReason: "value is not numeric",
		},
		{
			name:       "min-len fails",
			value:      "SHORT",
			opts:       Options{MinLen: 5},
			wantStatus: check.StatusFailed,
			wantReason: "value length 3 < minimum 5",
		},
		{
			name:       "max-len fails",
			value:      "SECRET",
			opts:       Options{MaxLen: 5},
			wantStatus: check.StatusFailed,
			wantReason: "value length 16 > maximum 5",
		},
		{
			name:       "substitution disabled still looks up a bare name",
			value:      "HOME",
			opts:       Options{Options: check.Options{Substitute: testutil.Ptr(false)}},
			wantStatus: check.StatusPassed,
			wantDetail: "value: /home/user",
		},
		{
			name:       "substitution disabled rejects a reference",
			value:      "$HOME",
			opts:       Options{Options: check.Options{Substitute: testutil.Ptr(false)}},
			wantStatus: check.StatusFailed,
			wantReason: "invalid variable name",
		},
		{
			name:       "substitution disabled does not pass an unset reference",
			value:      "$NOPE_NOT_SET",
			opts:       Options{Options: check.Options{Substitute: testutil.Ptr(false)}},
			wantStatus: check.StatusFailed,
			wantReason: "invalid variable name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("env", tt.value, tt.opts, env)
			require.NoError(t, err)

			out := c.Evaluate(pool.New(1), 0)
			assert.Equal(t, tt.wantStatus, out.Status())
			assert.Equal(t, tt.wantReason, out.Reason())
			if tt.wantDetail != "" {
				assert.True(t, testutil.ContainsDetail(out.Details, tt.wantDetail), "details %v", out.Details)
			}
		})
	}
}

func TestEnvCheck_Message(t *testing.T) {
	c, err := New("home", "HOME", Options{}, MapEnv{"HOME": "/root"})
	require.NoError(t, err)
	assert.Equal(t, "Check environment variable 'HOME'", c.Evaluate(nil, 0).Message)

	c, err = New("home", "HOME", Options{Options: check.Options{Desc: "home dir"}}, MapEnv{})
	require.NoError(t, err)
	assert.Equal(t, "home dir", c.Evaluate(nil, 0).Message)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("env", 42, Options{}, MapEnv{})
	assert.True(t, errors.Is(err, check.ErrInvalidValue))

	_, err = New("env", "HOME", Options{Regex: "("}, MapEnv{})
	assert.True(t, check.IsConfigError(err))
}

func TestRegister(t *testing.T) {
	t.Setenv("GEO_ENVCHECK_TEST", "value")

	r := registry.New()
	require.NoError(t, Register(r, config.Default()))

	c, err := r.Load(registry.Ordered("checkEnv", "GEO_ENVCHECK_TEST", "regex", "val", "desc", "test var"), "root")
	require.NoError(t, err)

	env, ok := c.(*Check)
	require.True(t, ok)
	assert.Equal(t, "val", env.Regex)
	assert.Equal(t, "test var", env.Desc)
	assert.True(t, env.Evaluate(nil, 0).Passed())

	_, err = r.Load(registry.Ordered("checkEnv", "HOME", "bogus", 1), "root")
	assert.True(t, errors.Is(err, check.ErrUnknownOption))
}
