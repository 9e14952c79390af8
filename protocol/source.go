package protocol

import (
	"context"
	"errors"
	"sync"
)

// ErrBufferEmpty is returned by ReadByte when no byte is buffered.
var ErrBufferEmpty = errors.New("protocol: rx buffer empty")

// ByteSource is the serial input the command handler reads from.
//
// It matches the receive side of uartx.UART so a hardware UART can be used
// directly; FifoSource adapts any other byte producer.
type ByteSource interface {
	// ReadByte returns the next buffered byte without waiting.
	ReadByte() (byte, error)
	// Buffered returns the number of bytes readable without waiting.
	Buffered() int
	// RecvByteContext waits for one byte or until ctx is done.
	RecvByteContext(ctx context.Context) (byte, error)
}

// FifoSource is a ByteSource backed by a FifoBuffer. A producer goroutine
// (the USB reader on the firmware, a pipe reader in tests) calls Feed.
type FifoSource struct {
	mu     sync.Mutex
	fifo   *FifoBuffer
	notify chan struct{}

	dropped uint32
}

// NewFifoSource creates a FifoSource with the given buffer capacity.
func NewFifoSource(capacity int) *FifoSource {
	return &FifoSource{
		fifo:   NewFifoBuffer(capacity),
		notify: make(chan struct{}, 1),
	}
}

// Feed appends received bytes. Bytes that do not fit are dropped and counted.
func (s *FifoSource) Feed(data []byte) int {
	s.mu.Lock()
	n := s.fifo.Write(data)
	s.dropped += uint32(len(data) - n)
	s.mu.Unlock()
	if n > 0 {
		// Coalesced wake-up; readers re-check the buffer.
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
	return n
}

// ReadByte implements ByteSource.
func (s *FifoSource) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b [1]byte
	if s.fifo.Read(b[:]) == 0 {
		return 0, ErrBufferEmpty
	}
	return b[0], nil
}

// Buffered implements ByteSource.
func (s *FifoSource) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fifo.Available()
}

// RecvByteContext implements ByteSource.
func (s *FifoSource) RecvByteContext(ctx context.Context) (byte, error) {
	for {
		if b, err := s.ReadByte(); err == nil {
			return b, nil
		}
		select {
		case <-s.notify:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Dropped returns the number of bytes lost to a full buffer.
func (s *FifoSource) Dropped() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Reset discards all buffered bytes.
func (s *FifoSource) Reset() {
	s.mu.Lock()
	s.fifo.Reset()
	s.mu.Unlock()
}
