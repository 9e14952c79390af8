package client

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrOutOfRange is returned before anything is sent when a value is
	// outside the parameter's bounds.
	ErrOutOfRange = errors.New("value out of range")
	// ErrUnknownParam is returned for a parameter name the device lacks.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrNoClockPeriod is returned by unit conversions when no clock period
	// is configured.
	ErrNoClockPeriod = errors.New("clock period not configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client closed")
	// ErrReplyTimeout is returned when the device does not answer in time.
	ErrReplyTimeout = errors.New("no reply from device")
)

// DeviceError is a command rejected by the device. Reply is the device's
// answer without its line ending.
type DeviceError struct {
	Command string
	Reply   string

	// Set when the device reported a minimum violation.
	Param string
	Min   uint32
}

func (e *DeviceError) Error() string {
	if e.Param != "" {
		return "device rejected " + strconv.Quote(e.Command) + ": " + e.Param + " below minimum " + strconv.FormatUint(uint64(e.Min), 10)
	}
	return "device rejected " + strconv.Quote(e.Command) + ": " + strings.TrimSpace(e.Reply)
}

// IsMinimum reports whether the device rejected a value below its minimum.
func (e *DeviceError) IsMinimum() bool { return e.Param != "" }

// parseDeviceError interprets a failure reply ("   NOK" or "min_<name>=<n>").
func parseDeviceError(command, reply string) *DeviceError {
	e := &DeviceError{Command: command, Reply: reply}
	if rest, ok := strings.CutPrefix(reply, "min_"); ok {
		if name, num, ok := strings.Cut(rest, "="); ok {
			if n, err := strconv.ParseUint(num, 10, 32); err == nil {
				e.Param = name
				e.Min = uint32(n)
			}
		}
	}
	return e
}
