// Package config holds the run settings read from the "config" section of
// check files.
package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/geomancy/geo/pkg/check"
)

// SectionNames are the reserved top-level keys holding settings.
var SectionNames = []string{"config", "Config"}

// Settings controls how checks are built and run.
type Settings struct {
	Workers      int           `mapstructure:"workers" toml:"workers" yaml:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval" toml:"poll_interval" yaml:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout" toml:"timeout" yaml:"timeout"`
	Color        bool          `mapstructure:"color" toml:"color" yaml:"color"`
	Python       string        `mapstructure:"python" toml:"python" yaml:"python"`
	AWS          AWSSettings   `mapstructure:"aws" toml:"aws" yaml:"aws"`
}

// AWSSettings are defaults for the AWS checks.
type AWSSettings struct {
	Profile string `mapstructure:"profile" toml:"profile" yaml:"profile"`
	KeyAge  int    `mapstructure:"key_age" toml:"key_age" yaml:"key_age"`
	SSMType string `mapstructure:"ssm_type" toml:"ssm_type" yaml:"ssm_type"`
}

// Default returns the built-in settings. Workers of zero means one per CPU.
func Default() Settings {
	return Settings{
		PollInterval: 500 * time.Millisecond,
		Timeout:      30 * time.Second,
		Color:        true,
		Python:       "python3",
		AWS: AWSSettings{
			KeyAge:  90,
			SSMType: "String",
		},
	}
}

// Merge overlays a config section onto s. Unknown keys are an error.
func (s *Settings) Merge(section map[string]any) error {
	if len(section) == 0 {
		return nil
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		Metadata:         &md,
		WeaklyTypedInput: true,
		DecodeHook:       check.DurationHook(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(section); err != nil {
		return fmt.Errorf("config section: %w", err)
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return fmt.Errorf("config section: unknown keys %s", strings.Join(md.Unused, ", "))
	}
	return s.Validate()
}

// Lower bounds for the duration settings. A zero timeout disables it.
const (
	MinPollInterval = 10 * time.Millisecond
	MinTimeout      = 100 * time.Millisecond
)

// Validate checks value ranges.
func (s Settings) Validate() error {
	switch {
	case s.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", s.Workers)
	case s.PollInterval < MinPollInterval:
		return fmt.Errorf("poll_interval must be at least %s, got %s", MinPollInterval, s.PollInterval)
	case s.Timeout < 0:
		return fmt.Errorf("timeout must not be negative, got %s", s.Timeout)
	case s.Timeout > 0 && s.Timeout < MinTimeout:
		return fmt.Errorf("timeout must be 0 or at least %s, got %s", MinTimeout, s.Timeout)
	case s.AWS.KeyAge < 0:
		return fmt.Errorf("aws.key_age must not be negative, got %d", s.AWS.KeyAge)
	}
	return nil
}

// exported is the printable form: durations as strings.
type exported struct {
	Workers      int         `toml:"workers" yaml:"workers"`
	PollInterval string      `toml:"poll_interval" yaml:"poll_interval"`
	Timeout      string      `toml:"timeout" yaml:"timeout"`
	Color        bool        `toml:"color" yaml:"color"`
	Python       string      `toml:"python" yaml:"python"`
	AWS          AWSSettings `toml:"aws" yaml:"aws"`
}

type document struct {
	Config exported `toml:"config" yaml:"config"`
}

func (s Settings) document() document {
	return document{Config: exported{
		Workers:      s.Workers,
		PollInterval: s.PollInterval.String(),
		Timeout:      s.Timeout.String(),
		Color:        s.Color,
		Python:       s.Python,
		AWS:          s.AWS,
	}}
}

// TOML renders s as a [config] table.
func (s Settings) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.document()); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// YAML renders s under a config key.
func (s Settings) YAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.document()); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
