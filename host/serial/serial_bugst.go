//go:build !wasm

package serial

import (
	"fmt"
	"time"

	bugst "go.bug.st/serial"
)

// BugstPort wraps the go.bug.st/serial implementation
type BugstPort struct {
	port bugst.Port
}

func openBugst(cfg *Config) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}

	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(time.Duration(cfg.ReadTimeout) * time.Millisecond); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Device, err)
		}
	}

	return &BugstPort{port: port}, nil
}

func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *BugstPort) Close() error {
	return p.port.Close()
}

// Flush discards unread input
func (p *BugstPort) Flush() error {
	return p.port.ResetInputBuffer()
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
