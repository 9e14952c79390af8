package core

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"pulsegen/protocol"
)

// Script markers. A pause is silence lasting until the controller goes idle:
// every bounded wait that reaches it times out. A beat is a single wait's
// worth of silence, consumed by the first wait that reaches it. A late mark
// hides the bytes after it from non-blocking reads, but the first bounded
// wait that reaches it receives them.
const (
	pause = "\x00"
	beat  = "\x01"
	late  = "\x02"
)

type scriptItem struct {
	b    byte
	gap  bool
	once bool
	late bool
}

// scriptSource replays bytes with gaps between them. Bytes up to the next gap
// count as already buffered.
type scriptSource struct {
	items []scriptItem
}

func script(parts ...string) *scriptSource {
	s := &scriptSource{}
	for _, part := range parts {
		switch part {
		case pause:
			s.items = append(s.items, scriptItem{gap: true})
			continue
		case beat:
			s.items = append(s.items, scriptItem{gap: true, once: true})
			continue
		case late:
			s.items = append(s.items, scriptItem{gap: true, late: true})
			continue
		}
		for i := 0; i < len(part); i++ {
			s.items = append(s.items, scriptItem{b: part[i]})
		}
	}
	return s
}

func (s *scriptSource) ReadByte() (byte, error) {
	if len(s.items) == 0 || s.items[0].gap {
		return 0, protocol.ErrBufferEmpty
	}
	b := s.items[0].b
	s.items = s.items[1:]
	return b, nil
}

func (s *scriptSource) Buffered() int {
	n := 0
	for _, it := range s.items {
		if it.gap {
			break
		}
		n++
	}
	return n
}

func (s *scriptSource) RecvByteContext(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(s.items) == 0 {
		return 0, context.DeadlineExceeded
	}
	if head := s.items[0]; head.gap {
		if head.late {
			s.items = s.items[1:]
			return s.RecvByteContext(ctx)
		}
		if head.once {
			s.items = s.items[1:]
		}
		return 0, context.DeadlineExceeded
	}
	return s.ReadByte()
}

// skipGap consumes a gap at the head, as idle time would.
func (s *scriptSource) skipGap() {
	if len(s.items) > 0 && s.items[0].gap {
		s.items = s.items[1:]
	}
}

type fakeEngine struct {
	applied []EngineConfig
}

func (f *fakeEngine) Apply(cfg EngineConfig) { f.applied = append(f.applied, cfg) }

type fakeTask struct{ starts int }

func (f *fakeTask) Start() { f.starts++ }

type harness struct {
	*Controller
	src    *scriptSource
	out    *bytes.Buffer
	engine *fakeEngine
}

func newTestController(src *scriptSource) *harness {
	h := &harness{src: src, out: &bytes.Buffer{}, engine: &fakeEngine{}}
	h.Controller = NewController(src, h.out, h.engine, Options{})
	if err := h.Init(nil); err != nil {
		panic(err)
	}
	return h
}

// run polls until the script is exhausted and returns everything written.
func (h *harness) run(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	for len(h.src.items) > 0 {
		handled, err := h.Poll(ctx)
		if err != nil {
			t.Fatalf("Poll failed: %v", err)
		}
		if !handled {
			h.src.skipGap()
		}
	}
	return h.out.String()
}

func TestControllerScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"set then get offset", []string{"S o 150", pause, "G o"}, "OK\n150\n"},
		{"multi set", []string{"S o 150 l 50 r 2 s 300", pause, "G l", pause, "G s", pause, "G o", pause, "G r"}, "OK\n50\n300\n150\n2\n"},
		{"minimum violation", []string{"S l 0", pause, "G l"}, "min_length=1\n10\n"},
		{"unknown set key", []string{"S x 5", pause, "G o"}, nokReply + "10\n"},
		{"unknown get key", []string{"G z"}, nokReply},
		{"defaults", []string{"G o", pause, "G l", pause, "G s", pause, "G r"}, "10\n10\n20\n0\n"},
		{"last write wins", []string{"S o 5 o 7", pause, "G o"}, "OK\n7\n"},
		{"first violated field named", []string{"S s 1 o 1 l 0", pause, "G s"}, "min_offset=2\n20\n"},
		{"spacing minimum", []string{"S s 5"}, "min_spacing=6\n"},
		{"values at minimum", []string{"S o 2 l 1 s 6 r 0", pause, "G o"}, "OK\n2\n"},
		{"invalid leading byte", []string{"X o", pause, "G o"}, nokReply + "10\n"},
		{"missing separator", []string{"Go", pause, "G o"}, nokReply + "10\n"},
		{"separator timeout", []string{"G", pause, "G o"}, nokReply + "10\n"},
		{"get key timeout", []string{"G ", pause, "G o"}, nokReply + "10\n"},
		{"invalid digit", []string{"S o 1a", pause, "G o"}, nokReply + "10\n"},
		{"empty value", []string{"S o  l 5", pause, "G l"}, nokReply + "10\n"},
		{"value separator timeout", []string{"S o", pause, "G o"}, nokReply + "10\n"},
		{"value ends on digit timeout", []string{"S o 12", beat, "l 30", pause, "G o", pause, "G l"}, "OK\n12\n30\n"},
		{"empty set commits nothing", []string{"S ", pause, "G o"}, "OK\n10\n"},
		{"twelve digits saturate", []string{"S o 999999999999", pause, "G o"}, "OK\n4294967295\n"},
		{"thirteen digits rejected", []string{"S o 1000000000000", pause, "G o"}, nokReply + "10\n"},
		{"oversized length kept unbiased", []string{"S l 500", pause, "G l"}, "OK\n500\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestController(script(tt.in...))
			if got := h.run(t); got != tt.want {
				t.Errorf("Replies = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestControllerLineEndings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newline terminated commands", "S o 150\nG o\n", "OK\n150\n"},
		{"crlf terminated commands", "S l 40 s 80\r\nG s\r\n", "OK\n80\n"},
		{"newline after last value", "S r 3\nG r\n", "OK\n3\n"},
		{"newline at key position", "S o 9 \nG o\n", "OK\n9\n"},
		{"blank lines ignored", "\n\r\nG l\n", "10\n"},
		{"newline where key required", "G \nG o\n", nokReply},
		{"newline where separator required", "S o\nG o\n", nokReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestController(script(tt.in))
			if got := h.run(t); got != tt.want {
				t.Errorf("Replies = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestControllerDrainsAfterError(t *testing.T) {
	// Everything buffered behind the bad command is dropped; bytes arriving
	// after a gap are processed normally.
	h := newTestController(script("S q 1 G o", pause, "G o"))
	if got, want := h.run(t), nokReply+"10\n"; got != want {
		t.Errorf("Replies = %q, want %q", got, want)
	}
	if h.Stats().Drained == 0 {
		t.Error("Expected drained bytes to be counted")
	}
}

func TestControllerDrainsLateTail(t *testing.T) {
	// The rest of the bad line shows up only after the error; it must not be
	// read as a new command.
	h := newTestController(script("S q 1", late, "2 3\n", pause, "G o"))
	if got, want := h.run(t), nokReply+"10\n"; got != want {
		t.Errorf("Replies = %q, want %q", got, want)
	}
	if got := h.Stats().Errors; got != 1 {
		t.Errorf("Expected 1 error, got %d", got)
	}
}

func TestControllerLogsApply(t *testing.T) {
	lines := make(chan string, 16)
	SetDebugWriter(func(s string) { lines <- s })
	SetDebugEnabled(true)
	InitAsyncDebug()
	defer SetDebugEnabled(false)

	h := newTestController(script("S o 150"))
	h.run(t)

	want := "[CMD] apply offset=150 length=10 spacing=20 repeats=0"
	timeout := time.After(time.Second)
	for {
		select {
		case line := <-lines:
			if line == want {
				return
			}
		case <-timeout:
			t.Fatalf("No %q debug line", want)
		}
	}
}

func TestControllerMinimumViolationLeavesEngine(t *testing.T) {
	h := newTestController(script("S o 100", pause, "S o 200 l 0", pause))
	h.run(t)

	if len(h.engine.applied) != 2 {
		t.Fatalf("Expected 2 applies (init and first set), got %d", len(h.engine.applied))
	}
	if got := h.Values().Get(ParamOffset); got != 100 {
		t.Errorf("Offset changed by failed set: %d", got)
	}
	if h.Applied().Offset != 100 {
		t.Errorf("Engine offset = %d, want 100", h.Applied().Offset)
	}
}

func TestControllerIdempotentSet(t *testing.T) {
	h := newTestController(script("S o 150 l 50", pause, "S o 150 l 50", pause))
	if got, want := h.run(t), "OK\nOK\n"; got != want {
		t.Errorf("Replies = %q, want %q", got, want)
	}

	if len(h.engine.applied) != 2 {
		t.Errorf("Expected repeated set to skip the engine, got %d applies", len(h.engine.applied))
	}
	st := h.Stats()
	if st.Applies != 2 || st.Skipped != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestControllerSaturatedSetsSkipEngine(t *testing.T) {
	// 200 and 300 both saturate the length field.
	h := newTestController(script("S l 200", pause, "S l 300", pause, "G l"))
	if got, want := h.run(t), "OK\nOK\n300\n"; got != want {
		t.Errorf("Replies = %q, want %q", got, want)
	}
	if len(h.engine.applied) != 2 {
		t.Errorf("Expected one apply after init, got %d", len(h.engine.applied)-1)
	}
}

func TestControllerAppliesBiasedValues(t *testing.T) {
	h := newTestController(script("S o 150 l 50 s 300 r 2"))
	h.run(t)

	want := Encode(150, 49, 294, 2)
	got := h.engine.applied[len(h.engine.applied)-1]
	if got != want {
		t.Errorf("Applied %+v, want %+v", got, want)
	}
}

func TestControllerInit(t *testing.T) {
	src := script()
	engine := &fakeEngine{}
	task := &fakeTask{}
	c := NewController(src, &bytes.Buffer{}, engine, Options{})

	if err := c.Init(task); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := c.Init(task); err != nil {
		t.Fatalf("Second Init failed: %v", err)
	}

	if len(engine.applied) != 1 || engine.applied[0] != EncodeValues(DefaultValues) {
		t.Errorf("Init applied %+v", engine.applied)
	}
	if task.starts != 1 {
		t.Errorf("Refill started %d times, want 1", task.starts)
	}
}

func TestControllerInitRejectsInvalidInitial(t *testing.T) {
	bad := DefaultValues
	bad[ParamSpacing] = 1
	c := NewController(script(), &bytes.Buffer{}, &fakeEngine{}, Options{Initial: &bad})

	var minErr *MinimumError
	if err := c.Init(nil); !errors.As(err, &minErr) || minErr.Param != ParamSpacing {
		t.Errorf("Expected spacing minimum error, got %v", err)
	}
}

func TestControllerOnResult(t *testing.T) {
	var results []error
	src := script("G o", pause, "G q", pause, "S l 0")
	c := NewController(src, &bytes.Buffer{}, &fakeEngine{}, Options{
		OnResult: func(err error) { results = append(results, err) },
	})
	c.Init(nil)
	h := &harness{Controller: c, src: src, out: &bytes.Buffer{}}
	h.run(t)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0] != nil {
		t.Errorf("Expected success, got %v", results[0])
	}
	if !errors.Is(results[1], ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", results[1])
	}
	var minErr *MinimumError
	if !errors.As(results[2], &minErr) {
		t.Errorf("Expected MinimumError, got %v", results[2])
	}
}

func TestControllerPollIdle(t *testing.T) {
	h := newTestController(script())
	handled, err := h.Poll(context.Background())
	if handled || err != nil {
		t.Errorf("Poll on empty input = %v, %v", handled, err)
	}
	if h.Stats().Commands != 0 {
		t.Error("Idle poll must not count a command")
	}
}

func TestControllerPollCanceled(t *testing.T) {
	h := newTestController(script("S o 1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Buffered bytes are consumed without waiting; the first wait sees ctx.
	_, err := h.Poll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if h.out.Len() != 0 {
		t.Errorf("No reply expected on cancellation, got %q", h.out.String())
	}
}

func TestStatsString(t *testing.T) {
	st := Stats{Commands: 3, Errors: 1, Applies: 2, Drained: 4}
	want := "cmds=3 errs=1 applies=2 skipped=0 drained=4 write_errs=0"
	if got := st.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAccumulateDigitSaturates(t *testing.T) {
	v := uint32(0)
	for i := 0; i < 12; i++ {
		v = accumulateDigit(v, '9')
	}
	if v != math.MaxUint32 {
		t.Errorf("Expected saturation, got %d", v)
	}
	if accumulateDigit(42, '7') != 427 {
		t.Error("accumulateDigit(42, '7') != 427")
	}
}
