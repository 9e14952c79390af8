//go:build rp2040

package pio

import "errors"

var (
	// PIO allocation tracking
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]

	errNoStateMachine = errors.New("pio: no free state machine")
)

// ClaimEngine reserves the first free state machine for the pulse engine.
func ClaimEngine() (*PulseEngine, error) {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, errNoStateMachine
	}
	return NewPulseEngine(pioNum, smNum), nil
}

// allocatePIO allocates a PIO state machine
// Returns (pioNum, smNum, ok)
func allocatePIO() (uint8, uint8, bool) {
	for pioNum := uint8(0); pioNum < 2; pioNum++ {
		for smNum := uint8(0); smNum < 4; smNum++ {
			if !pioAllocations[pioNum][smNum] {
				pioAllocations[pioNum][smNum] = true
				return pioNum, smNum, true
			}
		}
	}

	// All PIO resources exhausted
	return 0, 0, false
}
