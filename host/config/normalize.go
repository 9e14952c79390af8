// host/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultBackend        = "tarm"
	DefaultBaud           = 115200
	DefaultReadTimeoutMs  = 100
	DefaultReplyTimeoutMs = 2000
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	d := &cfg.Device

	if d.Backend == "" {
		d.Backend = DefaultBackend
	}
	if d.Baud == 0 {
		d.Baud = DefaultBaud
	}
	if d.ReadTimeoutMs == 0 {
		d.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	// A SET value may wait up to 900 ms per digit on the device, so replies
	// can legitimately take more than a second.
	if d.ReplyTimeoutMs == 0 {
		d.ReplyTimeoutMs = DefaultReplyTimeoutMs
	}

	// clock_period_ns stays zero when unset: no unit conversion.
}
