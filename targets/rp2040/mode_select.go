//go:build rp2040

package main

import "machine"

// ConsoleKind selects the link carrying the command line.
type ConsoleKind uint8

const (
	ConsoleUSB  ConsoleKind = iota // USB CDC (machine.Serial)
	ConsoleUART                    // UART0 on GPIO0/GPIO1
)

// ModeConfig is the board wiring and console choice
type ModeConfig struct {
	Console  ConsoleKind
	BaudRate uint32 // UART console only

	TriggerPin machine.Pin // trigger input, rising edge
	OutputPin  machine.Pin // pulse output, driven by side-set
	StatusPin  machine.Pin // WS2812 status pixel, NoPin to disable

	// Debug enables "[CMD]" style logging on UART1 (GPIO4 TX, GPIO5 RX).
	Debug bool
}

// GetMode returns the current mode configuration
// This can be modified at compile time
func GetMode() ModeConfig {
	return ModeConfig{
		Console:    ConsoleUSB,
		BaudRate:   115200,
		TriggerPin: machine.GPIO14,
		OutputPin:  machine.GPIO15,
		StatusPin:  machine.GPIO16,
		Debug:      false,
	}
}
