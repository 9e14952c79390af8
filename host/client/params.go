package client

import (
	"fmt"
	"math"

	"pulsegen/core"
)

// Lookup resolves a parameter by name ("offset") or wire key ("o").
func Lookup(name string) (core.ParamSpec, error) {
	for _, p := range core.Params() {
		spec := p.Spec()
		if name == spec.Name || (len(name) == 1 && name[0] == spec.Key) {
			return spec, nil
		}
	}
	return core.ParamSpec{}, fmt.Errorf("%w: %q", ErrUnknownParam, name)
}

// Names lists the parameter names in device order.
func Names() []string {
	names := make([]string, 0, len(core.Params()))
	for _, p := range core.Params() {
		names = append(names, p.String())
	}
	return names
}

// checkRange rejects values the device would refuse or silently saturate.
func checkRange(spec core.ParamSpec, v uint32) error {
	if v < spec.Min || v > spec.Max {
		return fmt.Errorf("%w: %s=%d (allowed %d..%d)", ErrOutOfRange, spec.Name, v, spec.Min, spec.Max)
	}
	return nil
}

// Units converts between nanoseconds and engine clock cycles.
type Units struct {
	// ClockPeriodNs is the engine clock period. Zero disables conversion.
	ClockPeriodNs float64
}

// Cycles converts ns to the nearest whole number of cycles.
func (u Units) Cycles(ns float64) (uint32, error) {
	if u.ClockPeriodNs <= 0 {
		return 0, ErrNoClockPeriod
	}
	if ns < 0 {
		return 0, fmt.Errorf("%w: negative duration %vns", ErrOutOfRange, ns)
	}
	c := math.Round(ns / u.ClockPeriodNs)
	if c > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %vns exceeds 32-bit cycle count", ErrOutOfRange, ns)
	}
	return uint32(c), nil
}

// Nanoseconds converts cycles to ns.
func (u Units) Nanoseconds(cycles uint32) (float64, error) {
	if u.ClockPeriodNs <= 0 {
		return 0, ErrNoClockPeriod
	}
	return float64(cycles) * u.ClockPeriodNs, nil
}
