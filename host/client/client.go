// Package client talks to a pulse generator over its serial command line.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"pulsegen/core"
	"pulsegen/host/config"
	"pulsegen/host/serial"
)

// Assignment is one parameter of a SET command.
type Assignment struct {
	Name  string
	Value uint32
}

// Options configures a Client.
type Options struct {
	// ReplyTimeout bounds the wait for each reply. Zero means two seconds.
	ReplyTimeout time.Duration
	Units        Units
}

type lineResult struct {
	line string
	err  error
}

// Client is a connection to one device. Its methods may be called from
// multiple goroutines; commands are serialized.
type Client struct {
	port    io.ReadWriteCloser
	timeout time.Duration
	units   Units

	mu     sync.Mutex // serializes commands
	lines  chan lineResult
	done   chan struct{}
	closed sync.Once
}

// New wraps an open port and starts reading replies from it.
func New(port io.ReadWriteCloser, opts Options) *Client {
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = time.Duration(config.DefaultReplyTimeoutMs) * time.Millisecond
	}
	c := &Client{
		port:    port,
		timeout: opts.ReplyTimeout,
		units:   opts.Units,
		lines:   make(chan lineResult, 8),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Open connects using a validated, normalized profile.
func Open(cfg *config.Config) (*Client, error) {
	d := cfg.Device
	sc := serial.DefaultConfig(d.Port)
	if d.Baud != 0 {
		sc.Baud = d.Baud
	}
	if d.ReadTimeoutMs != 0 {
		sc.ReadTimeout = d.ReadTimeoutMs
	}
	if d.Backend != "" {
		sc.Backend = serial.Backend(d.Backend)
	}
	port, err := serial.Open(sc)
	if err != nil {
		return nil, err
	}
	port.Flush()
	return New(port, Options{
		ReplyTimeout: time.Duration(d.ReplyTimeoutMs) * time.Millisecond,
		Units:        Units{ClockPeriodNs: d.ClockPeriodNs},
	}), nil
}

// Close releases the port. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closed.Do(func() {
		close(c.done)
		err = c.port.Close()
	})
	return err
}

// Units returns the client's unit converter.
func (c *Client) Units() Units { return c.units }

// Get reads one parameter.
func (c *Client) Get(ctx context.Context, name string) (uint32, error) {
	spec, err := Lookup(name)
	if err != nil {
		return 0, err
	}
	cmd := "G " + string(spec.Key)
	reply, err := c.roundTrip(ctx, cmd)
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseUint(reply, 10, 32)
	if perr != nil {
		return 0, parseDeviceError(cmd, reply)
	}
	return uint32(v), nil
}

// GetAll reads every parameter.
func (c *Client) GetAll(ctx context.Context) (map[string]uint32, error) {
	out := make(map[string]uint32, len(core.Params()))
	for _, name := range Names() {
		v, err := c.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Set writes the given parameters in one command; the device applies all of
// them or none.
func (c *Client) Set(ctx context.Context, values ...Assignment) error {
	if len(values) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("S")
	for _, a := range values {
		spec, err := Lookup(a.Name)
		if err != nil {
			return err
		}
		if err := checkRange(spec, a.Value); err != nil {
			return err
		}
		b.WriteByte(' ')
		b.WriteByte(spec.Key)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(a.Value), 10))
	}
	cmd := b.String()

	reply, err := c.roundTrip(ctx, cmd)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return parseDeviceError(cmd, reply)
	}
	return nil
}

// SetNs writes parameters given in nanoseconds, keyed by name or wire key.
// Repeats is a count and cannot be given in nanoseconds.
func (c *Client) SetNs(ctx context.Context, durations map[string]float64) error {
	byName := make(map[string]float64, len(durations))
	for name, ns := range durations {
		spec, err := Lookup(name)
		if err != nil {
			return err
		}
		if spec.Name == core.ParamRepeats.String() {
			return fmt.Errorf("%w: repeats is a count, not a duration", ErrOutOfRange)
		}
		byName[spec.Name] = ns
	}

	values := make([]Assignment, 0, len(byName))
	for _, name := range Names() {
		ns, ok := byName[name]
		if !ok {
			continue
		}
		cycles, err := c.units.Cycles(ns)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		values = append(values, Assignment{Name: name, Value: cycles})
	}
	return c.Set(ctx, values...)
}

// Raw sends line unchanged and returns the device's reply line. Failure
// replies are returned as text, not as errors.
func (c *Client) Raw(ctx context.Context, line string) (string, error) {
	return c.roundTrip(ctx, strings.TrimRight(line, "\r\n"))
}

// roundTrip sends one command line and returns the reply without its line
// ending.
func (c *Client) roundTrip(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return "", ErrClosed
	default:
	}

	// Drop anything left over from an earlier timed-out command.
	for drained := false; !drained; {
		select {
		case r := <-c.lines:
			if r.err != nil {
				return "", r.err
			}
		default:
			drained = true
		}
	}

	if _, err := c.port.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("write %q: %w", cmd, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case r := <-c.lines:
		if r.err != nil {
			return "", r.err
		}
		return r.line, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: %q", ErrReplyTimeout, cmd)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", ErrClosed
	}
}

// readLoop splits the port's output into lines.
func (c *Client) readLoop() {
	var (
		buf  [64]byte
		line []byte
	)
	for {
		n, err := c.port.Read(buf[:])
		for _, b := range buf[:n] {
			if b == '\n' {
				if !c.deliver(lineResult{line: strings.TrimRight(string(line), "\r")}) {
					return
				}
				line = line[:0]
				continue
			}
			line = append(line, b)
		}
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			// Read timeouts surface as EOF on the native backends; Close
			// ends the loop through done.
			if errors.Is(err, io.EOF) {
				continue
			}
			c.deliver(lineResult{err: fmt.Errorf("read: %w", err)})
			return
		}
	}
}

func (c *Client) deliver(r lineResult) bool {
	select {
	case c.lines <- r:
		return true
	case <-c.done:
		return false
	}
}
