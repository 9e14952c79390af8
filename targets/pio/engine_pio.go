//go:build rp2040

package pio

// PIO pulse engine using tinygo-org/pio package.
// The state machine generates the pulse train in hardware; the CPU only
// reprograms it through core.PIOProgrammer.

import (
	"machine"
	"runtime/volatile"

	"pulsegen/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Pulse program. Input queue format:
//
//	word 0:    configuration word (repeats 0-4, length 5-11, spacing 12-31)
//	word 1...: offset word, one per trigger, kept topped up by the refill DMA
//
// Program flow:
//  1. Pull the configuration word and park it in ISR
//  2. Pull the next offset and wait for a rising edge on the trigger pin
//  3. Count down the offset
//  4. Emit repeats+1 pulses of length high cycles, spacing low cycles
//  5. Sit out the cooldown, then wrap back to 2
const (
	pulseProgramEntry = 0  // configuration pull
	pulseWrapTarget   = 2  // offset pull
	pulseWrapTop      = 17 // last cooldown instruction
	pulseCooldown     = 31 // cooldown loop count
)

// buildPulseProgram assembles the pulse program for origin 0 using
// AssemblerV0. Side-set drives the output pin on every instruction.
func buildPulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 1}
	return []uint16{
		asm.Pull(false, true).Side(0).Encode(),                        // 0: pull block
		asm.Mov(rp2pio.MovDestISR, rp2pio.MovSrcOSR).Side(0).Encode(), // 1: mov isr, osr
		// .wrap_target
		asm.Pull(false, true).Side(0).Encode(),                        // 2: pull block (offset)
		asm.WaitPin(false, 0).Side(0).Encode(),                        // 3: wait 0 pin 0
		asm.WaitPin(true, 0).Side(0).Encode(),                         // 4: wait 1 pin 0
		asm.Mov(rp2pio.MovDestX, rp2pio.MovSrcOSR).Side(0).Encode(),   // 5: mov x, osr
		asm.Jmp(6, rp2pio.JmpXNZeroDec).Side(0).Encode(),              // 6: jmp x--, 6
		asm.Mov(rp2pio.MovDestOSR, rp2pio.MovSrcISR).Side(0).Encode(), // 7: mov osr, isr
		asm.Out(rp2pio.OutDestY, 5).Side(0).Encode(),                  // 8: out y, 5 (repeats)
		// pulse:
		asm.Out(rp2pio.OutDestX, 7).Side(1).Encode(),                  // 9: out x, 7 (length)
		asm.Jmp(10, rp2pio.JmpXNZeroDec).Side(1).Encode(),             // 10: jmp x--, 10
		asm.Out(rp2pio.OutDestX, 20).Side(0).Encode(),                 // 11: out x, 20 (spacing)
		asm.Jmp(12, rp2pio.JmpXNZeroDec).Side(0).Encode(),             // 12: jmp x--, 12
		asm.Mov(rp2pio.MovDestOSR, rp2pio.MovSrcISR).Side(0).Encode(), // 13: mov osr, isr
		asm.Out(rp2pio.OutDestNull, 5).Side(0).Encode(),               // 14: out null, 5
		asm.Jmp(9, rp2pio.JmpYNZeroDec).Side(0).Encode(),              // 15: jmp y--, 9
		asm.Set(rp2pio.SetDestX, pulseCooldown).Side(0).Encode(),      // 16: set x, 31
		asm.Jmp(17, rp2pio.JmpXNZeroDec).Side(0).Encode(),             // 17: jmp x--, 17
		// .wrap
	}
}

// pulseWrap returns the wrap target and wrap top for the program loaded at
// offset, in the order SetWrap takes them.
func pulseWrap(offset uint8) (wrapTarget, wrap uint8) {
	return offset + pulseWrapTarget, offset + pulseWrapTop
}

const pulsePIOOrigin = 0 // Load at offset 0 for correct jump addresses

// PulseEngine owns the state machine running the pulse program.
type PulseEngine struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	trigger machine.Pin
	output  machine.Pin
	offset  uint8
	pioNum  uint8
	smNum   uint8
}

// NewPulseEngine creates a pulse engine on the given state machine
// pioNum: 0 for PIO0, 1 for PIO1
// smNum: 0-3 for state machine number
func NewPulseEngine(pioNum, smNum uint8) *PulseEngine {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PulseEngine{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

// Init loads the program and configures the state machine. It leaves the
// state machine disabled; the returned programmer starts it on its first
// Apply.
func (e *PulseEngine) Init(trigger, output machine.Pin) (*core.PIOProgrammer, error) {
	e.trigger = trigger
	e.output = output

	// CRITICAL: Claim the state machine first!
	e.sm.TryClaim()

	program := buildPulseProgram()
	offset, err := e.pio.AddProgram(program, pulsePIOOrigin)
	if err != nil {
		return nil, err
	}
	e.offset = offset

	e.trigger.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	e.output.Configure(machine.PinConfig{Mode: e.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSidesetParams(1, false, false)
	cfg.SetSidesetPins(e.output)
	cfg.SetInPins(e.trigger)

	// Shift right, no autopull: the program pulls explicitly.
	cfg.SetOutShift(true, false, 32)

	// 8-deep TX queue for the offset prefill.
	cfg.SetFIFOJoin(rp2pio.FifoJoinTx)

	// Wrap from the cooldown back to the offset pull; 0-1 run only after
	// a reload.
	cfg.SetWrap(pulseWrap(offset))

	// Full system clock: one engine cycle per clock.
	cfg.SetClkDivIntFrac(1, 0)

	e.sm.Init(offset, cfg)

	// Pin directions must be set after Init.
	e.sm.SetPindirsConsecutive(e.output, 1, true)
	e.sm.SetPinsConsecutive(e.output, 1, false)

	return core.NewPIOProgrammer(e.sm, offset+pulseProgramEntry), nil
}

// TxReg returns the TX FIFO register the refill DMA writes to.
func (e *PulseEngine) TxReg() *volatile.Register32 {
	return e.sm.TxReg()
}

// TxDREQ returns the DMA request line paced by this state machine's TX FIFO.
func (e *PulseEngine) TxDREQ() uint32 {
	return uint32(e.pioNum)*8 + uint32(e.smNum)
}

// Info returns a short description for diagnostics.
func (e *PulseEngine) Info() string {
	return "PIO" + string('0'+e.pioNum) + " SM" + string('0'+e.smNum)
}
