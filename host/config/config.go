// host/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a host profile for one pulse generator.
type Config struct {
	Device DeviceConfig `yaml:"device"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Port           string `yaml:"port"`
	Backend        string `yaml:"backend"` // "tarm" (default) or "bugst"
	Baud           int    `yaml:"baud"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	ReplyTimeoutMs int    `yaml:"reply_timeout_ms"`

	// ClockPeriodNs enables nanosecond units. There is no default: the
	// engine clock depends on the board build.
	ClockPeriodNs float64 `yaml:"clock_period_ns"`
}

// Load reads and parses a YAML profile. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &cfg, nil
}
