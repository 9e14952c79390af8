//go:build rp2040

package pio

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// Single DMA channel. See rp.DMA_Type.
type dmaChannelHW struct {
	READ_ADDR   volatile.Register32
	WRITE_ADDR  volatile.Register32
	TRANS_COUNT volatile.Register32
	CTRL_TRIG   volatile.Register32
	AL1_CTRL    volatile.Register32     // CTRL without trigger
	_           [11]volatile.Register32 // remaining aliases
}

// DMA channels usable on the RP2040.
var dmaChannels = (*[12]dmaChannelHW)(unsafe.Pointer(rp.DMA))

const (
	// refillDMAChannel is reserved for the offset refill.
	refillDMAChannel = 11

	// refillTransfers is the length of one refill run. Each transfer is
	// paced by the TX FIFO, so a run lasts refillTransfers triggers.
	refillTransfers = 1 << 16

	dmaTxSize32 = 2
)

// activeRefill is the refill serviced by the DMA interrupt.
var activeRefill *OffsetRefill

// OffsetRefill keeps the pulse engine's TX FIFO topped up with the current
// offset word. A DMA channel copies the word, paced by the FIFO's DREQ, and
// the DMA interrupt restarts the channel whenever a run completes.
//
// It is also the programmer's core.Feed: the engine pauses it while the
// queue is reloaded.
type OffsetRefill struct {
	hw      *dmaChannelHW
	channel uint8
	src     *uint32
	dst     *volatile.Register32
	dreq    uint32
	ctrl    uint32

	started bool
	paused  volatile.Register32
}

// NewOffsetRefill creates a refill copying *src into the engine's TX FIFO.
func NewOffsetRefill(engine *PulseEngine, src *uint32) *OffsetRefill {
	return &OffsetRefill{
		hw:      &dmaChannels[refillDMAChannel],
		channel: refillDMAChannel,
		src:     src,
		dst:     engine.TxReg(),
		dreq:    engine.TxDREQ(),
	}
}

// Start implements core.BackgroundTask. It must be called once.
func (r *OffsetRefill) Start() {
	activeRefill = r

	hw := r.hw
	hw.READ_ADDR.Set(uint32(uintptr(unsafe.Pointer(r.src))))
	hw.WRITE_ADDR.Set(uint32(uintptr(unsafe.Pointer(r.dst))))
	hw.TRANS_COUNT.Set(refillTransfers)

	rp.DMA.INTE0.SetBits(1 << r.channel)
	irq := interrupt.New(rp.IRQ_DMA_IRQ_0, handleRefillIRQ)
	irq.Enable()

	// Neither address increments: the same word goes to the same register.
	r.ctrl = r.dreq<<rp.DMA_CH0_CTRL_TRIG_TREQ_SEL_Pos |
		uint32(dmaTxSize32)<<rp.DMA_CH0_CTRL_TRIG_DATA_SIZE_Pos |
		uint32(r.channel)<<rp.DMA_CH0_CTRL_TRIG_CHAIN_TO_Pos |
		1<<rp.DMA_CH0_CTRL_TRIG_EN_Pos
	r.started = true
	hw.CTRL_TRIG.Set(r.ctrl)
}

// Pause implements core.Feed. It stops the channel and waits until no
// transfer is in flight, so the FIFO receives nothing until Resume.
func (r *OffsetRefill) Pause() {
	if !r.started {
		return
	}
	r.paused.Set(1)
	r.hw.AL1_CTRL.ClearBits(1 << rp.DMA_CH0_CTRL_TRIG_EN_Pos)

	mask := uint32(1) << r.channel
	rp.DMA.CHAN_ABORT.Set(mask)
	for rp.DMA.CHAN_ABORT.Get()&mask != 0 {
	}
}

// Resume implements core.Feed. It starts a fresh run from the current
// refill word.
func (r *OffsetRefill) Resume() {
	if !r.started {
		return
	}
	r.hw.TRANS_COUNT.Set(refillTransfers)
	r.hw.CTRL_TRIG.Set(r.ctrl)
	r.paused.Set(0)
}

// handleRefillIRQ re-arms the refill channel. It touches nothing but the
// channel's own registers. An abort can raise a completion while paused;
// that one is acknowledged and left for Resume.
func handleRefillIRQ(interrupt.Interrupt) {
	r := activeRefill
	if r == nil {
		return
	}
	mask := uint32(1) << r.channel
	if rp.DMA.INTS0.Get()&mask == 0 {
		return
	}
	rp.DMA.INTS0.Set(mask)
	if r.paused.Get() != 0 {
		return
	}

	r.hw.TRANS_COUNT.Set(refillTransfers)
	r.hw.CTRL_TRIG.Set(r.ctrl)
}
