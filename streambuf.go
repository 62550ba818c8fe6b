package gain

import "io"

// DefaultReadCapacity is the prefetch capacity used by NewReadStream and
// NewReadWriteStream.
const DefaultReadCapacity = 8192

// readBuf accumulates received bytes ahead of the reader.
type readBuf struct {
	data  []byte
	note  int32
	done  bool
	waker *task
}

func (b *readBuf) wake() {
	if t := b.waker; t != nil {
		b.waker = nil
		t.wake()
	}
}

// receive keeps the subscription topped up and the buffer filled until the
// peer closes the stream.
func (b *readBuf) receive(rt *Runtime, st *streamState, capacity int) {
	note, _ := rt.streamRecv(st, capacity, func(data []byte, _ int32) int {
		b.data = append(b.data, data...)
		b.wake()
		return len(data)
	})
	b.note = note
	b.done = true
	b.wake()
}

// ReadStream adapts an input stream into a byte-oriented reader. A
// background task receives ahead of the reader with the given prefetch
// capacity. A non-zero closing note is surfaced as a StreamError.
type ReadStream struct {
	rt        *Runtime
	s         *streamState
	closeMask streamFlags
	buf       *readBuf
}

// NewReadStream buffers an input stream with the default capacity. The
// adapter takes ownership of the handle.
func NewReadStream(s *InputStream) *ReadStream {
	return NewReadStreamCapacity(DefaultReadCapacity, s)
}

// NewReadStreamCapacity buffers an input stream with a custom prefetch
// capacity.
func NewReadStreamCapacity(capacity int, s *InputStream) *ReadStream {
	st := s.s
	s.s = nil
	r := &ReadStream{rt: s.rt, s: st, closeMask: s.closeMask, buf: &readBuf{}}
	r.rt.Spawn(func() { r.buf.receive(r.rt, st, capacity) })
	return r
}

// Read reads buffered bytes into dest, parking while the buffer is empty
// and the stream open.
func (s *ReadStream) Read(dest []byte) (int, error) {
	for {
		if len(s.buf.data) > 0 {
			n := copy(dest, s.buf.data)
			s.buf.data = s.buf.data[n:]
			return n, nil
		}
		if s.buf.done {
			if s.buf.note != 0 {
				return 0, StreamError(s.buf.note)
			}
			return 0, io.EOF
		}
		s.buf.waker = s.rt.currentTask()
		s.rt.park()
	}
}

// Fill parks until at least min bytes are buffered or the stream ends.
// io.EOF is returned only with an empty buffer.
func (s *ReadStream) Fill(min int) error {
	if min <= 0 {
		panic("minimum fill length out of bounds")
	}
	for {
		if s.buf.done {
			if len(s.buf.data) > 0 {
				return nil
			}
			if s.buf.note != 0 {
				return StreamError(s.buf.note)
			}
			return io.EOF
		}
		if len(s.buf.data) >= min {
			return nil
		}
		s.buf.waker = s.rt.currentTask()
		s.rt.park()
	}
}

// Buffered accesses the bytes received so far without consuming them.
func (s *ReadStream) Buffered() []byte {
	return s.buf.data
}

// Consume removes n bytes from the start of the buffer.
func (s *ReadStream) Consume(n int) {
	s.buf.data = s.buf.data[n:]
}

// Close closes the underlying receive direction. The background task keeps
// draining until the peer acknowledges.
func (s *ReadStream) Close() {
	st := s.s
	s.s = nil
	s.rt.streamClose(st, s.closeMask, s.closeMask<<2)
}

// ReadWriteStream is a bidirectional stream with input buffering.
type ReadWriteStream struct {
	r *ReadStream
	w *OutputStream
}

// NewReadWriteStream buffers the input side of a bidirectional stream with
// the default capacity.
func NewReadWriteStream(s *Stream) *ReadWriteStream {
	return NewReadWriteStreamCapacity(DefaultReadCapacity, s)
}

// NewReadWriteStreamCapacity buffers the input side with a custom prefetch
// capacity.
func NewReadWriteStreamCapacity(capacity int, s *Stream) *ReadWriteStream {
	in, out, closer := s.Split3()
	in.closeMask = closer.mask
	closer.s = nil
	return &ReadWriteStream{r: NewReadStreamCapacity(capacity, in), w: out}
}

func (s *ReadWriteStream) Read(dest []byte) (int, error) { return s.r.Read(dest) }

func (s *ReadWriteStream) Fill(min int) error { return s.r.Fill(min) }

func (s *ReadWriteStream) Buffered() []byte { return s.r.Buffered() }

func (s *ReadWriteStream) Consume(n int) { s.r.Consume(n) }

func (s *ReadWriteStream) Write(data []byte) (int, error) { return s.w.Write(data) }

func (s *ReadWriteStream) WriteNote(data []byte, note int32) (int, error) {
	return s.w.WriteNote(data, note)
}

func (s *ReadWriteStream) WriteAll(data []byte) error { return s.w.WriteAll(data) }

// Close closes both directions and parks until the peer has closed too.
func (s *ReadWriteStream) Close() { s.r.Close() }
