package protocol

import (
	"context"
	"errors"
	"time"
)

// Wait selects how long a read may block.
type Wait uint8

const (
	// WaitNone polls: an absent byte means no command has started.
	WaitNone Wait = iota
	// WaitSoon bounds the wait by Timeouts.Soon.
	WaitSoon
	// WaitDigit bounds the wait by Timeouts.Digit.
	WaitDigit
)

// OutcomeKind tags the result of a single read.
type OutcomeKind uint8

const (
	// OutcomeByte carries a received byte.
	OutcomeByte OutcomeKind = iota
	// OutcomeTimeout means no byte arrived within the wait.
	OutcomeTimeout
	// OutcomeEndOfLine means the host terminated the line explicitly.
	OutcomeEndOfLine
)

// Outcome is the tagged result of Reader.Next.
type Outcome struct {
	Kind OutcomeKind
	Byte byte
}

// Is reports whether the outcome is the byte b.
func (o Outcome) Is(b byte) bool {
	return o.Kind == OutcomeByte && o.Byte == b
}

// Reader classifies reads from a ByteSource into Outcomes.
type Reader struct {
	src      ByteSource
	timeouts Timeouts
}

// NewReader creates a Reader. Zero timeouts fall back to DefaultTimeouts.
func NewReader(src ByteSource, timeouts Timeouts) *Reader {
	if timeouts.Soon <= 0 {
		timeouts.Soon = DefaultTimeouts.Soon
	}
	if timeouts.Digit <= 0 {
		timeouts.Digit = DefaultTimeouts.Digit
	}
	return &Reader{src: src, timeouts: timeouts}
}

// Next reads one byte with the given wait. The returned error is non-nil only
// when ctx itself is done or the source failed; running out of time on a
// bounded wait is an OutcomeTimeout, not an error.
func (r *Reader) Next(ctx context.Context, w Wait) (Outcome, error) {
	var (
		b   byte
		err error
	)
	switch w {
	case WaitNone:
		b, err = r.src.ReadByte()
		if err != nil {
			return Outcome{Kind: OutcomeTimeout}, nil
		}
	default:
		b, err = r.recv(ctx, r.wait(w))
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return Outcome{Kind: OutcomeTimeout}, nil
			}
			return Outcome{}, err
		}
	}
	if b == LineFeed || b == CarriageReturn {
		return Outcome{Kind: OutcomeEndOfLine}, nil
	}
	return Outcome{Kind: OutcomeByte, Byte: b}, nil
}

func (r *Reader) recv(ctx context.Context, d time.Duration) (byte, error) {
	// Fast path: nothing to wait for.
	if b, err := r.src.ReadByte(); err == nil {
		return b, nil
	}
	wctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return r.src.RecvByteContext(wctx)
}

func (r *Reader) wait(w Wait) time.Duration {
	if w == WaitDigit {
		return r.timeouts.Digit
	}
	return r.timeouts.Soon
}

// Drain discards every byte that is already buffered and returns how many were
// dropped. It never waits.
func (r *Reader) Drain() int {
	n := 0
	for r.src.Buffered() > 0 {
		if _, err := r.src.ReadByte(); err != nil {
			break
		}
		n++
	}
	return n
}

// Settle drains like Drain and then keeps discarding whatever arrives within
// one Soon wait, for the tail of a line the host is still sending. It returns
// how many bytes were dropped and stops early if ctx ends.
func (r *Reader) Settle(ctx context.Context) int {
	wctx, cancel := context.WithTimeout(ctx, r.timeouts.Soon)
	defer cancel()

	n := r.Drain()
	for {
		if _, err := r.src.RecvByteContext(wctx); err != nil {
			return n
		}
		n++
		n += r.Drain()
	}
}
