package core

import (
	"context"
	"errors"
	"io"
	"time"

	"pulsegen/protocol"
)

// nokReply answers every protocol error other than a minimum violation.
const nokReply = "   NOK\n"

// Stats counts controller activity since boot.
type Stats struct {
	Commands    uint32 // commands started (valid or not)
	Errors      uint32 // commands answered with NOK or a minimum reply
	Applies     uint32 // times the engine was reprogrammed
	Skipped     uint32 // successful SETs that left the encoding unchanged
	Drained     uint32 // bytes discarded after errors
	WriteErrors uint32
}

// String formats the counters for a debug line.
func (s Stats) String() string {
	return "cmds=" + utoa(s.Commands) +
		" errs=" + utoa(s.Errors) +
		" applies=" + utoa(s.Applies) +
		" skipped=" + utoa(s.Skipped) +
		" drained=" + utoa(s.Drained) +
		" write_errs=" + utoa(s.WriteErrors)
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Timeouts protocol.Timeouts
	// Initial replaces DefaultValues when non-nil. It must pass validation.
	Initial *Values
	// OnResult is called after every command with its outcome (nil on
	// success). The firmware drives its status indicator from it.
	OnResult func(err error)
}

// Controller owns the parameter store and the serial command line. All of its
// methods must be called from a single goroutine.
type Controller struct {
	store    *Store
	engine   Engine
	reader   *protocol.Reader
	out      io.Writer
	reply    *protocol.ScratchOutput
	commands *CommandRegistry
	onResult func(err error)

	applied EngineConfig
	started bool
	stats   Stats
}

// NewController wires the command line to src and out and the store to engine.
// Nothing is applied until Init is called.
func NewController(src protocol.ByteSource, out io.Writer, engine Engine, opts Options) *Controller {
	initial := DefaultValues
	if opts.Initial != nil {
		initial = *opts.Initial
	}
	c := &Controller{
		store:    NewStore(initial),
		engine:   engine,
		reader:   protocol.NewReader(src, opts.Timeouts),
		out:      out,
		reply:    protocol.NewScratchOutput(),
		commands: NewCommandRegistry(),
		onResult: opts.OnResult,
	}
	c.commands.Register('G', "get", handleGet)
	c.commands.Register('S', "set", handleSet)
	return c
}

// Init programs the engine with the initial values and then starts refill.
// It must run before the first Poll; later calls do nothing.
func (c *Controller) Init(refill BackgroundTask) error {
	if c.started {
		return nil
	}
	vals := c.store.Snapshot()
	if err := vals.Validate(); err != nil {
		return err
	}
	c.applied = EncodeValues(vals)
	c.engine.Apply(c.applied)
	c.stats.Applies++
	c.started = true
	if refill != nil {
		refill.Start()
	}
	DebugAsync("[CMD] engine initialized")
	return nil
}

// Values returns a snapshot of the current parameter values.
func (c *Controller) Values() Values { return c.store.Snapshot() }

// Applied returns the configuration most recently handed to the engine.
func (c *Controller) Applied() EngineConfig { return c.applied }

// Stats returns the activity counters.
func (c *Controller) Stats() Stats { return c.stats }

// Commands returns the command registry.
func (c *Controller) Commands() *CommandRegistry { return c.commands }

// Poll checks once for a command without blocking. If a leading byte is
// available the whole command is received, executed and answered before Poll
// returns. It reports whether a command was handled. The error is non-nil
// only if ctx ended.
func (c *Controller) Poll(ctx context.Context) (bool, error) {
	out, err := c.reader.Next(ctx, protocol.WaitNone)
	if err != nil {
		return false, err
	}
	if out.Kind != protocol.OutcomeByte {
		// Nothing pending, or a stray line ending between commands.
		return false, nil
	}

	c.stats.Commands++
	cmd, ok := c.commands.Lookup(out.Byte)
	if !ok {
		c.fail(ctx, ErrInvalidLeadingByte)
		return true, nil
	}
	err = c.expectSeparator(ctx)
	if err == nil {
		err = cmd.Handler(ctx, c)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return true, ctxErr
		}
		c.fail(ctx, err)
		return true, nil
	}
	if c.onResult != nil {
		c.onResult(nil)
	}
	return true, nil
}

// Run polls until ctx ends, sleeping for idle whenever no command is pending.
func (c *Controller) Run(ctx context.Context, idle time.Duration) error {
	for {
		handled, err := c.Poll(ctx)
		if err != nil {
			return err
		}
		if handled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(idle)
	}
}

// expectSeparator reads the space that must follow a letter or key.
func (c *Controller) expectSeparator(ctx context.Context) error {
	out, err := c.reader.Next(ctx, protocol.WaitSoon)
	if err != nil {
		return err
	}
	switch out.Kind {
	case protocol.OutcomeTimeout:
		return ErrFramingTimeout
	case protocol.OutcomeEndOfLine:
		return ErrUnexpectedEnd
	}
	if out.Byte != protocol.Separator {
		return ErrMissingSeparator
	}
	return nil
}

// readKey reads a parameter key that must arrive promptly.
func (c *Controller) readKey(ctx context.Context) (Param, error) {
	out, err := c.reader.Next(ctx, protocol.WaitSoon)
	if err != nil {
		return 0, err
	}
	switch out.Kind {
	case protocol.OutcomeTimeout:
		return 0, ErrFramingTimeout
	case protocol.OutcomeEndOfLine:
		return 0, ErrUnexpectedEnd
	}
	p, ok := ParamForKey(out.Byte)
	if !ok {
		return 0, ErrInvalidKey
	}
	return p, nil
}

// readValue reads one decimal SET value. A space or a digit timeout ends the
// value; an end of line ends it and the command. Values too large for 32 bits
// saturate.
func (c *Controller) readValue(ctx context.Context) (v uint32, endOfLine bool, err error) {
	digits := 0
	for {
		out, err := c.reader.Next(ctx, protocol.WaitDigit)
		if err != nil {
			return 0, false, err
		}
		if out.Kind == protocol.OutcomeTimeout || out.Is(protocol.Separator) {
			break
		}
		if out.Kind == protocol.OutcomeEndOfLine {
			endOfLine = true
			break
		}
		if out.Byte < '0' || out.Byte > '9' || digits == protocol.MaxValueDigits {
			return 0, false, ErrInvalidDigit
		}
		v = accumulateDigit(v, out.Byte)
		digits++
	}
	if digits == 0 {
		return 0, false, ErrEmptyValue
	}
	return v, endOfLine, nil
}

// handleGet answers "G <key>" with the parameter's value.
func handleGet(ctx context.Context, c *Controller) error {
	p, err := c.readKey(ctx)
	if err != nil {
		return err
	}
	c.reply.Reset()
	c.reply.Output(appendUint(nil, c.store.Get(p)))
	c.reply.OutputByte('\n')
	c.send()
	return nil
}

// handleSet parses "S <key> <value> ..." into a pending update and commits
// it when the keys stop coming.
func handleSet(ctx context.Context, c *Controller) error {
	pending := c.store.Begin()
	for {
		out, err := c.reader.Next(ctx, protocol.WaitSoon)
		if err != nil {
			return err
		}
		if out.Kind != protocol.OutcomeByte {
			return c.commit(pending)
		}
		p, ok := ParamForKey(out.Byte)
		if !ok {
			return ErrInvalidKey
		}
		if err := c.expectSeparator(ctx); err != nil {
			return err
		}
		v, endOfLine, err := c.readValue(ctx)
		if err != nil {
			return err
		}
		pending.Set(p, v)
		if endOfLine {
			return c.commit(pending)
		}
	}
}

// commit validates and stores pending, reprograms the engine if the encoded
// configuration changed, and acknowledges.
func (c *Controller) commit(pending Pending) error {
	vals, err := c.store.Commit(pending)
	if err != nil {
		return err
	}
	cfg := EncodeValues(vals)
	if cfg != c.applied {
		c.engine.Apply(cfg)
		c.applied = cfg
		c.stats.Applies++
		if IsDebugEnabled() {
			DebugAsync("[CMD] apply " + vals.String())
		}
	} else {
		c.stats.Skipped++
	}
	c.reply.Reset()
	c.reply.OutputString("OK\n")
	c.send()
	return nil
}

// fail answers err after discarding the rest of the failed line, including
// bytes still in transit from the host.
func (c *Controller) fail(ctx context.Context, err error) {
	c.stats.Errors++
	c.stats.Drained += uint32(c.reader.Settle(ctx))

	c.reply.Reset()
	var minErr *MinimumError
	if errors.As(err, &minErr) {
		c.reply.OutputString(minErr.Error())
		c.reply.OutputByte('\n')
	} else {
		c.reply.OutputString(nokReply)
	}
	c.send()

	DebugAsync("[CMD] " + err.Error())
	if c.onResult != nil {
		c.onResult(err)
	}
}

func (c *Controller) send() {
	if _, err := c.out.Write(c.reply.Result()); err != nil {
		c.stats.WriteErrors++
	}
}
