package protocol

// OutputBuffer provides an abstraction for writing outgoing protocol data
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int

	// DataSince returns data from a specific position to current
	DataSince(pos int) []byte
}

// SliceInputBuffer is a byte source over a fixed slice.
// Once drained it reports ErrTimeout, the same as a silent serial line.
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) ReadByte() (byte, error) {
	if len(s.data) == 0 {
		return 0, ErrTimeout
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, nil
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer
// large enough for one maximal frame
type ScratchOutput struct {
	buf [MaxFrame]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns a copy of the accumulated output data
func (s *ScratchOutput) Result() []byte {
	out := make([]byte, s.pos)
	copy(out, s.buf[:s.pos])
	return out
}

// FifoBuffer is a ring of bytes read from the port but not yet decoded.
// One slot always stays unused so a full ring can be told from an empty one.
type FifoBuffer struct {
	buf  []byte
	head int
	tail int
}

// NewFifoBuffer creates a ring that holds up to capacity-1 bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write stores as much of data as fits and returns the number of bytes stored
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	for _, b := range data[:n] {
		f.buf[f.tail] = b
		f.tail = f.next(f.tail)
	}
	return n
}

// Read moves up to len(data) bytes out of the ring
func (f *FifoBuffer) Read(data []byte) int {
	n := min(len(data), f.Available())
	for i := range n {
		data[i] = f.buf[f.head]
		f.head = f.next(f.head)
	}
	return n
}

// Available returns the number of bytes waiting to be read
func (f *FifoBuffer) Available() int {
	return (f.tail - f.head + len(f.buf)) % len(f.buf)
}

// Free returns the number of bytes Write can still store
func (f *FifoBuffer) Free() int {
	return len(f.buf) - 1 - f.Available()
}

// Pop drops up to n bytes from the front and returns how many were dropped
func (f *FifoBuffer) Pop(n int) int {
	n = min(n, f.Available())
	f.head = (f.head + n) % len(f.buf)
	return n
}

func (f *FifoBuffer) IsEmpty() bool {
	return f.head == f.tail
}

func (f *FifoBuffer) next(i int) int {
	return (i + 1) % len(f.buf)
}
