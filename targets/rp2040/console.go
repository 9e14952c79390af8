//go:build rp2040

package main

import (
	"errors"
	"time"

	"pulsegen/protocol"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

var errConsoleStalled = errors.New("console: write stalled")

// Console carries the command line over USB CDC or UART0.
type Console struct {
	src   protocol.ByteSource
	write func([]byte) (int, error)

	// USB only: filled by usbReaderLoop.
	fifo *protocol.FifoSource

	consecutiveWriteFailures uint32
	readErrors               uint32
}

// OpenConsole brings up the link selected by mode.
func OpenConsole(mode ModeConfig) *Console {
	if mode.Console == ConsoleUART {
		uartx.UART0.Configure(uartx.UARTConfig{BaudRate: mode.BaudRate})
		// uartx has its own interrupt-fed ring and blocking receive, so it is
		// the byte source directly.
		return &Console{src: uartx.UART0, write: uartx.UART0.Write}
	}

	InitUSB()
	c := &Console{write: USBWriteBytes}
	c.fifo = protocol.NewFifoSource(protocol.RxBufferSize)
	c.src = c.fifo
	go c.usbReaderLoop()
	return c
}

// Dropped returns how many received bytes did not fit the USB input
// buffer. The UART console counts none.
func (c *Console) Dropped() uint32 {
	if c.fifo == nil {
		return 0
	}
	return c.fifo.Dropped()
}

// Source returns the console's byte source.
func (c *Console) Source() protocol.ByteSource { return c.src }

// Write sends a reply, retrying partial writes.
func (c *Console) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := c.write(p[written:])
		if err == nil && n == 0 {
			err = errConsoleStalled
		}
		if err != nil {
			c.consecutiveWriteFailures++
			if c.consecutiveWriteFailures > 10 {
				// Host likely gone: drop whatever it left half-sent.
				c.consecutiveWriteFailures = 0
				c.Reset()
			}
			return written, err
		}
		written += n
	}
	c.consecutiveWriteFailures = 0
	return written, nil
}

// Reset discards buffered input.
func (c *Console) Reset() {
	if c.fifo != nil {
		c.fifo.Reset()
		return
	}
	for c.src.Buffered() > 0 {
		if _, err := c.src.ReadByte(); err != nil {
			return
		}
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func (c *Console) usbReaderLoop() {
	// Recover from panics to prevent a firmware crash
	defer func() {
		if r := recover(); r != nil {
			c.readErrors++
			time.Sleep(100 * time.Millisecond)
			go c.usbReaderLoop()
		}
	}()

	var chunk [64]byte
	for {
		n := 0
		for n < len(chunk) && USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				c.readErrors++
				break
			}
			chunk[n] = b
			n++
		}
		if n > 0 {
			c.fifo.Feed(chunk[:n])
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}
