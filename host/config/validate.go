// host/config/validate.go
package config

import (
	"fmt"
	"math"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	d := cfg.Device

	switch d.Backend {
	case "", "tarm", "bugst":
	default:
		return fmt.Errorf("device: unknown backend %q (use tarm or bugst)", d.Backend)
	}

	if d.Baud < 0 {
		return fmt.Errorf("device: baud must not be negative, got %d", d.Baud)
	}
	if d.ReadTimeoutMs < 0 {
		return fmt.Errorf("device: read_timeout_ms must not be negative, got %d", d.ReadTimeoutMs)
	}
	if d.ReplyTimeoutMs < 0 {
		return fmt.Errorf("device: reply_timeout_ms must not be negative, got %d", d.ReplyTimeoutMs)
	}

	// clock period is opt-in
	if d.ClockPeriodNs != 0 {
		if d.ClockPeriodNs < 0 || math.IsNaN(d.ClockPeriodNs) || math.IsInf(d.ClockPeriodNs, 0) {
			return fmt.Errorf("device: clock_period_ns must be a positive number, got %v", d.ClockPeriodNs)
		}
	}

	return nil
}
