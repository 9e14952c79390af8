// Package protocol implements the byte-level framing of the pulse generator's
// serial command line.
//
// Commands are ASCII and have no length prefix. A read is classified into one of
// three outcomes (a byte, a timeout, or an explicit end of line) and the
// command handler decides what each outcome means at its position in the
// command.
package protocol

import "time"

// Version represents the pulsegen firmware version
const Version = "0.3.0"

// Framing constants
const (
	// MaxValueDigits is the longest decimal value accepted in a SET command.
	MaxValueDigits = 12

	Separator      = ' '
	LineFeed       = '\n'
	CarriageReturn = '\r'

	// RxBufferSize is the size of the receive FIFO fed by the console reader.
	RxBufferSize = 256
	// ReplyMax bounds a single reply line.
	ReplyMax = 32
)

// Timeouts holds the bounded waits used while a command is being received.
type Timeouts struct {
	// Soon bounds the wait for a byte that must follow promptly: the separator
	// after the command letter, a parameter key, the separator after a key.
	Soon time.Duration
	// Digit bounds the wait for each digit of a SET value. Silence here ends
	// the value.
	Digit time.Duration
}

// DefaultTimeouts are the waits used by the firmware.
var DefaultTimeouts = Timeouts{
	Soon:  100 * time.Millisecond,
	Digit: 900 * time.Millisecond,
}
