//go:build rp2040

package main

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

var debugUART *uartx.UART

// InitDebugUART initializes UART1 on GPIO4 (TX) and GPIO5 (RX) for debugging
// Baud rate: 115200
func InitDebugUART() bool {
	err := uartx.UART1.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO4,
		RX:       machine.GPIO5,
	})
	if err != nil {
		return false
	}
	debugUART = uartx.UART1
	debugLine("=== pulsegen debug UART ===")
	return true
}

// debugLine writes s and a line ending to the debug UART.
func debugLine(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
