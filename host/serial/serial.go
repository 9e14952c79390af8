package serial

import (
	"io"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (github.com/tarm/serial or go.bug.st/serial)
// - In-memory pipes (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Backend names a serial implementation.
type Backend string

const (
	BackendTarm  Backend = "tarm"  // github.com/tarm/serial
	BackendBugst Backend = "bugst" // go.bug.st/serial
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	// Backend selects the implementation; empty means BackendTarm.
	Backend Backend
}

// DefaultConfig returns the configuration used for the pulse generator
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
		Backend:     BackendTarm,
	}
}

// Open opens a serial port with the configured backend
func Open(cfg *Config) (Port, error) {
	if cfg != nil && cfg.Backend == BackendBugst {
		return openBugst(cfg)
	}
	return openTarm(cfg)
}
