package config

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, 0, s.Workers)
	assert.Equal(t, 500*time.Millisecond, s.PollInterval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.True(t, s.Color)
	assert.Equal(t, "python3", s.Python)
	assert.Equal(t, 90, s.AWS.KeyAge)
	assert.Equal(t, "String", s.AWS.SSMType)
	assert.NoError(t, s.Validate())
}

func TestMerge(t *testing.T) {
	s := Default()
	err := s.Merge(map[string]any{
		"workers":       "4",
		"poll_interval": "1s",
		"color":         false,
		"aws": map[string]any{
			"profile": "dev",
			"key_age": 30,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, time.Second, s.PollInterval)
	assert.False(t, s.Color)
	assert.Equal(t, "dev", s.AWS.Profile)
	assert.Equal(t, 30, s.AWS.KeyAge)
	assert.Equal(t, "String", s.AWS.SSMType, "unset keys keep their defaults")
	assert.Equal(t, 30*time.Second, s.Timeout)
}

func TestMerge_Errors(t *testing.T) {
	tests := []struct {
		name    string
		section map[string]any
		wantErr string
	}{
		{"unknown key", map[string]any{"colour": true}, "unknown keys colour"},
		{"unknown nested key", map[string]any{"aws": map[string]any{"region": "x"}}, "aws.region"},
		{"bad duration", map[string]any{"timeout": "soon"}, "config section"},
		{"negative workers", map[string]any{"workers": -1}, "workers"},
		{"zero poll interval", map[string]any{"poll_interval": "0s"}, "poll_interval"},
		{"poll interval below minimum", map[string]any{"poll_interval": "1ms"}, "poll_interval must be at least 10ms"},
		{"timeout below minimum", map[string]any{"timeout": "50ms"}, "timeout must be 0 or at least 100ms"},
		{"negative numeric timeout", map[string]any{"timeout": int64(-3)}, "config section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			err := s.Merge(tt.section)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMerge_NumericDurationsAreSeconds(t *testing.T) {
	s := Default()
	require.NoError(t, s.Merge(map[string]any{"timeout": int64(30), "poll_interval": 1}))
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, time.Second, s.PollInterval)

	require.NoError(t, s.Merge(map[string]any{"timeout": 0.5, "poll_interval": "0.25"}))
	assert.Equal(t, 500*time.Millisecond, s.Timeout)
	assert.Equal(t, 250*time.Millisecond, s.PollInterval)

	require.NoError(t, s.Merge(map[string]any{"timeout": 0}))
	assert.Equal(t, time.Duration(0), s.Timeout, "zero disables the timeout")
}

func TestMerge_Empty(t *testing.T) {
	s := Default()
	require.NoError(t, s.Merge(nil))
	assert.Equal(t, Default(), s)
}

func TestTOML(t *testing.T) {
	out, err := Default().TOML()
	require.NoError(t, err)
	assert.Contains(t, out, "[config]")

	var doc map[string]map[string]any
	require.NoError(t, toml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "500ms", doc["config"]["poll_interval"])
	assert.Equal(t, "python3", doc["config"]["python"])
}

func TestYAML(t *testing.T) {
	out, err := Default().YAML()
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "30s", doc["config"]["timeout"])
	assert.Equal(t, true, doc["config"]["color"])
}

func TestRoundTripThroughMerge(t *testing.T) {
	want := Default()
	want.Workers = 3
	want.AWS.Profile = "ops"

	out, err := want.YAML()
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))

	got := Default()
	require.NoError(t, got.Merge(doc["config"]))
	assert.Equal(t, want, got)
}
