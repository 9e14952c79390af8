//go:build rp2040

package main

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ws2812"
)

// Status colours. Kept dim so the pixel does not light up the bench.
var (
	colorIdle  = color.RGBA{R: 0, G: 0, B: 8}
	colorOK    = color.RGBA{R: 0, G: 24, B: 0}
	colorError = color.RGBA{R: 24, G: 0, B: 0}
)

const statusFlash = 150 * time.Millisecond

// StatusLED flashes a WS2812 pixel after each command.
type StatusLED struct {
	dev     ws2812.Device
	enabled bool
	lit     bool
	until   time.Time
}

// NewStatusLED configures the pixel on pin. NoPin disables it.
func NewStatusLED(pin machine.Pin) *StatusLED {
	s := &StatusLED{}
	if pin == machine.NoPin {
		return s
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.dev = ws2812.New(pin)
	s.enabled = true
	s.set(colorIdle)
	return s
}

// Show flashes green on success and red on err. It matches the controller's
// OnResult hook.
func (s *StatusLED) Show(err error) {
	if !s.enabled {
		return
	}
	if err != nil {
		s.set(colorError)
	} else {
		s.set(colorOK)
	}
	s.lit = true
	s.until = time.Now().Add(statusFlash)
}

// Update returns the pixel to idle once a flash has run its course.
func (s *StatusLED) Update() {
	if s.lit && time.Now().After(s.until) {
		s.lit = false
		s.set(colorIdle)
	}
}

func (s *StatusLED) set(c color.RGBA) {
	s.dev.WriteColors([]color.RGBA{c})
}
