package core

import "sync/atomic"

// StateMachine is the part of a PIO state machine the programmer drives.
// rp2pio.StateMachine satisfies it on the target.
type StateMachine interface {
	SetEnabled(enabled bool)
	ClearFIFOs()
	Restart()
	Exec(instr uint16)
	TxPut(data uint32)
}

const (
	// TxQueueDepth is the depth of the engine's joined TX FIFO.
	TxQueueDepth = 8
	// OffsetPrefill is how many offset words follow the configuration word
	// when the queue is reloaded.
	OffsetPrefill = TxQueueDepth - 1
)

// Instructions executed directly on the halted state machine.
const (
	pioInstrPullNoBlock = 0x8080 // pull noblock
	pioInstrOutNull32   = 0x6060 // out null, 32
	pioInstrJmp         = 0x0000 // jmp <addr>
)

// Feed is a producer that writes into the state machine's TX FIFO on its
// own, such as the offset refill DMA. Apply holds it paused while the queue
// is reloaded. Both methods must do nothing before the feed is started.
type Feed interface {
	Pause()
	Resume()
}

// PIOProgrammer implements Engine on a PIO state machine running the pulse
// program.
type PIOProgrammer struct {
	sm    StateMachine
	entry uint8
	feed  Feed

	// refillWord is the source the refill DMA copies into the TX FIFO.
	// Its address must stay fixed once the refill has started.
	refillWord uint32
}

// NewPIOProgrammer creates a programmer for sm whose program starts at entry.
func NewPIOProgrammer(sm StateMachine, entry uint8) *PIOProgrammer {
	return &PIOProgrammer{sm: sm, entry: entry}
}

// RefillWord returns the address the offset refill reads from.
func (p *PIOProgrammer) RefillWord() *uint32 {
	return &p.refillWord
}

// SetFeed attaches the producer Apply pauses. It must be called before the
// feed is started.
func (p *PIOProgrammer) SetFeed(f Feed) {
	p.feed = f
}

// Apply implements Engine. The order of the steps below matters: the state
// machine is halted before anything is cleared and only restarted once the
// queue holds the new configuration followed by its offset. The feed stays
// paused from the halt until the restart so nothing lands ahead of the
// configuration word.
func (p *PIOProgrammer) Apply(cfg EngineConfig) {
	sm := p.sm

	sm.SetEnabled(false)
	if p.feed != nil {
		p.feed.Pause()
	}
	sm.ClearFIFOs()
	sm.Restart()

	// Empty the OSR so no bits of the old configuration are shifted out.
	sm.Exec(pioInstrPullNoBlock)
	sm.Exec(pioInstrOutNull32)

	atomic.StoreUint32(&p.refillWord, cfg.Offset)
	sm.TxPut(uint32(cfg.Config))
	for i := 0; i < OffsetPrefill; i++ {
		sm.TxPut(cfg.Offset)
	}

	sm.Exec(pioInstrJmp | uint16(p.entry))
	sm.SetEnabled(true)
	if p.feed != nil {
		p.feed.Resume()
	}
}
