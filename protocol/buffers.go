package protocol

// FifoBuffer is a fixed-capacity byte ring. One slot stays empty to tell a
// full ring from an empty one, so it holds capacity-1 bytes.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifoBuffer creates a new FifoBuffer with the specified capacity
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends data and returns how many bytes fit.
func (f *FifoBuffer) Write(data []byte) int {
	written := 0
	for _, b := range data {
		nextWrite := (f.write + 1) % f.size
		if nextWrite == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = nextWrite
		written++
	}
	return written
}

// Read reads up to len(data) bytes from the FIFO buffer
func (f *FifoBuffer) Read(data []byte) int {
	read := 0
	for i := range data {
		if f.read == f.write {
			break
		}
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % f.size
		read++
	}
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Reset clears the buffer
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}

// ScratchOutput assembles one reply line in a fixed buffer so the reply is
// written to the console in a single call.
type ScratchOutput struct {
	buf [ReplyMax]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

// Output appends data, truncating at ReplyMax.
func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

// OutputString appends a string, truncating at ReplyMax.
func (s *ScratchOutput) OutputString(str string) {
	n := copy(s.buf[s.pos:], str)
	s.pos += n
}

// OutputByte appends a single byte.
func (s *ScratchOutput) OutputByte(b byte) {
	if s.pos < len(s.buf) {
		s.buf[s.pos] = b
		s.pos++
	}
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Reset empties the buffer.
func (s *ScratchOutput) Reset() {
	s.pos = 0
}
