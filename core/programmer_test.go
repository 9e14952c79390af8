package core

import (
	"fmt"
	"reflect"
	"testing"
)

// recordingSM logs every call made on it.
type recordingSM struct {
	ops []string
}

func (r *recordingSM) SetEnabled(enabled bool) {
	r.ops = append(r.ops, fmt.Sprintf("enable(%t)", enabled))
}
func (r *recordingSM) ClearFIFOs()       { r.ops = append(r.ops, "clear") }
func (r *recordingSM) Restart()          { r.ops = append(r.ops, "restart") }
func (r *recordingSM) Exec(instr uint16) { r.ops = append(r.ops, fmt.Sprintf("exec(%#04x)", instr)) }
func (r *recordingSM) TxPut(data uint32) { r.ops = append(r.ops, fmt.Sprintf("put(%d)", data)) }

func TestPIOProgrammerSequence(t *testing.T) {
	sm := &recordingSM{}
	p := NewPIOProgrammer(sm, 4)

	p.Apply(EngineConfig{Config: 0x1234, Offset: 150})

	want := []string{
		"enable(false)",
		"clear",
		"restart",
		"exec(0x8080)",
		"exec(0x6060)",
		"put(4660)",
		"put(150)", "put(150)", "put(150)", "put(150)", "put(150)", "put(150)", "put(150)",
		"exec(0x0004)",
		"enable(true)",
	}
	if !reflect.DeepEqual(sm.ops, want) {
		t.Errorf("Sequence mismatch\n got: %v\nwant: %v", sm.ops, want)
	}
}

func TestPIOProgrammerFillsQueueMinusOne(t *testing.T) {
	sm := &recordingSM{}
	NewPIOProgrammer(sm, 0).Apply(EngineConfig{Config: 1, Offset: 2})

	puts := 0
	for _, op := range sm.ops {
		if len(op) > 3 && op[:3] == "put" {
			puts++
		}
	}
	if puts != TxQueueDepth {
		t.Errorf("Expected %d queued words, got %d", TxQueueDepth, puts)
	}
}

func TestPIOProgrammerPublishesRefillWord(t *testing.T) {
	p := NewPIOProgrammer(&recordingSM{}, 0)
	word := p.RefillWord()

	p.Apply(EngineConfig{Config: 0, Offset: 99})
	if *word != 99 {
		t.Errorf("Expected refill word 99, got %d", *word)
	}

	p.Apply(EngineConfig{Config: 0, Offset: 7})
	if *word != 7 || p.RefillWord() != word {
		t.Errorf("Refill word must update in place, got %d", *word)
	}
}

// fifoSM models the joined TX FIFO. Whenever it has room and the feed is
// running, the feed tops it up with the refill word, the way the DREQ-paced
// DMA does on the target. TxPut on a full FIFO is lost.
type fifoSM struct {
	fifo    []uint32
	dropped int
	feed    *refillFeed
}

func (f *fifoSM) topUp() {
	if f.feed == nil || !f.feed.running() {
		return
	}
	for len(f.fifo) < TxQueueDepth {
		f.fifo = append(f.fifo, *f.feed.src)
	}
}

func (f *fifoSM) SetEnabled(bool) { f.topUp() }
func (f *fifoSM) ClearFIFOs()     { f.fifo = f.fifo[:0]; f.topUp() }
func (f *fifoSM) Restart()        { f.topUp() }
func (f *fifoSM) Exec(uint16)     { f.topUp() }
func (f *fifoSM) TxPut(data uint32) {
	if len(f.fifo) == TxQueueDepth {
		f.dropped++
	} else {
		f.fifo = append(f.fifo, data)
	}
	f.topUp()
}

type refillFeed struct {
	src     *uint32
	started bool
	paused  bool
	log     *[]string
}

func (r *refillFeed) running() bool { return r.started && !r.paused }

func (r *refillFeed) Pause() {
	if r.log != nil {
		*r.log = append(*r.log, "pause")
	}
	r.paused = true
}

func (r *refillFeed) Resume() {
	if r.log != nil {
		*r.log = append(*r.log, "resume")
	}
	r.paused = false
}

func TestPIOProgrammerReloadWithRunningFeed(t *testing.T) {
	sm := &fifoSM{}
	p := NewPIOProgrammer(sm, 0)
	feed := &refillFeed{src: p.RefillWord()}
	sm.feed = feed
	p.SetFeed(feed)

	p.Apply(EngineConfig{Config: 0x0a0a0a, Offset: 10})
	feed.started = true
	sm.topUp()

	cfg := EncodeValues(Values{ParamOffset: 150, ParamLength: 49, ParamSpacing: 294, ParamRepeats: 2})
	p.Apply(cfg)

	if sm.dropped != 0 {
		t.Errorf("Lost %d queued words", sm.dropped)
	}
	if len(sm.fifo) != TxQueueDepth {
		t.Fatalf("Expected %d queued words, got %d", TxQueueDepth, len(sm.fifo))
	}
	if sm.fifo[0] != uint32(cfg.Config) {
		t.Errorf("Head of queue = %#x, want configuration word %#x", sm.fifo[0], uint32(cfg.Config))
	}
	for i, w := range sm.fifo[1:] {
		if w != cfg.Offset {
			t.Errorf("Queue word %d = %d, want offset %d", i+1, w, cfg.Offset)
		}
	}
}

func TestPIOProgrammerPausesFeedAroundReload(t *testing.T) {
	sm := &recordingSM{}
	p := NewPIOProgrammer(sm, 0)
	p.SetFeed(&refillFeed{log: &sm.ops})

	p.Apply(EngineConfig{Config: 1, Offset: 2})

	if len(sm.ops) < 4 {
		t.Fatalf("Too few operations: %v", sm.ops)
	}
	if sm.ops[0] != "enable(false)" || sm.ops[1] != "pause" {
		t.Errorf("Feed must pause right after the halt, got %v", sm.ops[:2])
	}
	n := len(sm.ops)
	if sm.ops[n-2] != "enable(true)" || sm.ops[n-1] != "resume" {
		t.Errorf("Feed must resume after the restart, got %v", sm.ops[n-2:])
	}
}
