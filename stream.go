package gain

import "math"

// Stream half-close flags. The self flags cover what this side is still
// willing to send; the peer flags cover what the peer may still send. A
// stream entry exists exactly as long as at least one flag is set.
type streamFlags uint8

const (
	streamSelfFlow streamFlags = 1 << 0
	streamSelfData streamFlags = 1 << 1
	streamPeerData streamFlags = streamSelfFlow << 2
	streamPeerFlow streamFlags = streamSelfData << 2

	streamSelfMask = streamSelfFlow | streamSelfData
	streamPeerMask = streamPeerData | streamPeerFlow
)

type streamKey struct {
	code Code
	id   StreamID
}

// streamState is one row of the stream table. The close descriptors live
// inside the entry, not in the closing operation: the peer may close
// asynchronously while the local close operation is already gone.
type streamState struct {
	rt    *Runtime
	code  Code
	id    StreamID
	flags streamFlags

	recv     recvSlot
	recvNote int32
	writable int // outgoing credit
	writer   *task
	writeErr int32
	closers  []*task

	closeFlowDesc   sendDesc
	closeFlowPacket [headerSize + flowSize]byte
	closeDataDesc   sendDesc
	closeDataPacket [dataHeaderSize]byte
}

func (r *Runtime) initStream(code Code, id StreamID, flags streamFlags) *streamState {
	if id < 0 {
		panic("negative stream id")
	}
	key := streamKey{code, id}
	if _, exists := r.streams[key]; exists {
		panic("stream already exists")
	}
	st := &streamState{rt: r, code: code, id: id, flags: flags}
	r.streams[key] = st
	return st
}

func (st *streamState) clearFlags(how streamFlags) {
	if st.flags&how != how {
		panic("stream state does not contain closing flags")
	}
	st.flags &^= how
}

// sendClosePackets emits an empty flow packet and/or an empty data packet
// for the local halves being closed. The flags must already be clear.
func (st *streamState) sendClosePackets(how streamFlags) {
	if st.flags&how != 0 {
		panic("stream state still contains closing flags when sending packet")
	}

	if how&streamSelfFlow != 0 {
		putHeader(st.closeFlowPacket[:], len(st.closeFlowPacket), st.code, domainFlow)
		putFlow(st.closeFlowPacket[:], 0, st.id, 0)
		st.closeFlowDesc = sendDesc{reply: replyNotExpected}
		st.closeFlowDesc.spans[0] = st.closeFlowPacket[:]
		st.rt.sendList.pushBack(&st.closeFlowDesc)
	}

	if how&streamSelfData != 0 {
		putDataHeader(st.closeDataPacket[:], len(st.closeDataPacket), st.code, st.id, 0)
		st.closeDataDesc = sendDesc{reply: replyNotExpected}
		st.closeDataDesc.spans[0] = st.closeDataPacket[:]
		st.rt.sendList.pushBack(&st.closeDataDesc)
	}
}

// detachClosed removes the stream from the table once all four flags are
// clear.
func (st *streamState) detachClosed() {
	if st.flags == 0 {
		delete(st.rt.streams, streamKey{st.code, st.id})
	}
}

// peerClosed records a half-close signalled by the peer and wakes whoever
// was waiting on that half.
func (st *streamState) peerClosed(how streamFlags) {
	st.clearFlags(how)

	for _, t := range st.closers {
		t.wake()
	}
	st.closers = nil

	if how&streamPeerData != 0 {
		if t := st.recv.waker; t != nil {
			st.recv.waker = nil
			t.wake()
		}
	}
	if how&streamPeerFlow != 0 {
		if t := st.writer; t != nil {
			st.writer = nil
			t.wake()
		}
	}
}

// streamRecv subscribes up to capacity bytes and delivers arriving data
// packets to the receptor, which returns how many additional bytes it will
// accept. It returns the peer's closing note and true when the peer closes,
// or zero and false when the reception capacity drops to zero while the
// peer remains open.
func (r *Runtime) streamRecv(st *streamState, capacity int, receptor func(data []byte, note int32) int) (int32, bool) {
	if st == nil {
		return 0, true // closed; default note
	}

	var (
		unsubscribed = uint64(capacity) // requested but not advertised yet
		unreceived   int32              // advertised but not received yet
		flowDesc     sendDesc
		flowPacket   [headerSize + flowSize]byte
	)

	flowIncrement := func() int32 {
		if max := uint64(math.MaxInt32 - unreceived); unsubscribed > max {
			return int32(max)
		}
		return int32(unsubscribed)
	}

	sendFlow := func() {
		increment := flowIncrement()
		unsubscribed -= uint64(increment)
		unreceived += increment
		putHeader(flowPacket[:], len(flowPacket), st.code, domainFlow)
		putFlow(flowPacket[:], 0, st.id, increment)
		flowDesc = sendDesc{reply: replyNotExpected}
		flowDesc.spans[0] = flowPacket[:]
		r.sendList.pushBack(&flowDesc)
	}

	for {
		if flowIncrement() > 0 && flowDesc.isSent() {
			sendFlow()
		}

		if st.recv.valid {
			off := st.recv.offset
			st.recv.valid = false
			p := r.recv.consume(off)
			note := dataNote(p)
			data := p[dataHeaderSize:]

			if len(data) > int(unreceived) {
				die("received data exceeds subscription")
			}
			unreceived -= int32(len(data))
			unsubscribed += uint64(receptor(data, note))

			if flowIncrement() > 0 && flowDesc.isSent() {
				sendFlow()
			}
		}

		if st.flags&streamPeerData == 0 {
			return st.recvNote, true
		}
		if unsubscribed == 0 && unreceived == 0 {
			return 0, false
		}

		st.recv.waker = r.currentTask()
		r.park()
	}
}

// streamWrite writes at most the peer's current credit, parking until some
// credit is available. A zero count with a nil error means the peer closed
// the stream.
func (r *Runtime) streamWrite(st *streamState, data []byte, note int32) (int, error) {
	if st == nil {
		return 0, nil
	}

	for {
		if st.flags&streamPeerFlow == 0 {
			if st.writeErr != 0 {
				return 0, StreamError(st.writeErr)
			}
			return 0, nil
		}
		if st.writable > 0 {
			break
		}
		st.writer = r.currentTask()
		r.park()
	}

	n := len(data)
	if st.writable < n {
		n = st.writable
	}
	st.writable -= n

	var header [dataHeaderSize]byte
	putDataHeader(header[:], dataHeaderSize+n, st.code, st.id, note)

	d := sendDesc{reply: replyNotExpected}
	d.spans[0] = header[:]
	d.spans[1] = data[:n]
	r.sendList.pushBack(&d)

	for !d.isSent() {
		d.waker = r.currentTask()
		r.park()
	}
	return n, nil
}

// streamWriteAll loops streamWrite over the remaining bytes until all are
// sent or the stream is closed under it.
func (r *Runtime) streamWriteAll(st *streamState, data []byte) error {
	for len(data) > 0 {
		n, err := r.streamWrite(st, data, 0)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStreamClosed
		}
		data = data[n:]
	}
	return nil
}

// streamClose clears the given local flags, emits the matching close
// packets, and parks until the awaited peer flags are clear. The entry is
// detached if fully closed.
func (r *Runtime) streamClose(st *streamState, how, wait streamFlags) {
	if st == nil {
		return
	}
	if how != 0 {
		st.clearFlags(how)
		st.sendClosePackets(how)
	}
	for st.flags&wait != 0 {
		st.closers = append(st.closers, r.currentTask())
		r.park()
	}
	st.detachClosed()
}

// Stream is a bidirectional stream handle.
type Stream struct {
	rt *Runtime
	s  *streamState
}

// InputStream is a receive-only stream handle.
type InputStream struct {
	rt        *Runtime
	s         *streamState
	closeMask streamFlags
}

// OutputStream is a write-only stream handle.
type OutputStream struct {
	rt        *Runtime
	s         *streamState
	closeMask streamFlags
}

// Closer closes the directions detached by Split3.
type Closer struct {
	rt   *Runtime
	s    *streamState
	mask streamFlags
}

// Stream constructs a handle to a new bidirectional stream. The id comes
// from a service reply or info packet; the constructor must be invoked as
// soon as the id is received.
func (s *Service) Stream(id StreamID) *Stream {
	return &Stream{rt: s.rt, s: s.rt.initStream(s.code, id, streamSelfMask|streamPeerMask)}
}

// InputStream constructs a handle to a new receive-only stream.
func (s *Service) InputStream(id StreamID) *InputStream {
	return &InputStream{
		rt:        s.rt,
		s:         s.rt.initStream(s.code, id, streamSelfFlow|streamPeerData),
		closeMask: streamSelfFlow,
	}
}

// OutputStream constructs a handle to a new write-only stream.
func (s *Service) OutputStream(id StreamID) *OutputStream {
	return &OutputStream{
		rt:        s.rt,
		s:         s.rt.initStream(s.code, id, streamSelfData|streamPeerFlow),
		closeMask: streamSelfData,
	}
}

// Recv subscribes capacity bytes and delivers data to the receptor; see
// Runtime.streamRecv for the completion rules.
func (s *Stream) Recv(capacity int, receptor func(data []byte, note int32) int) (int32, bool) {
	return s.rt.streamRecv(s.s, capacity, receptor)
}

// Write writes part of data, bounded by the peer's credit.
func (s *Stream) Write(data []byte) (int, error) {
	return s.rt.streamWrite(s.s, data, 0)
}

// WriteNote writes part of data with an out-of-band note value.
func (s *Stream) WriteNote(data []byte, note int32) (int, error) {
	return s.rt.streamWrite(s.s, data, note)
}

// WriteAll writes the whole of data.
func (s *Stream) WriteAll(data []byte) error {
	return s.rt.streamWriteAll(s.s, data)
}

// Close closes both directions and parks until the peer has closed too.
func (s *Stream) Close() {
	st := s.s
	s.s = nil
	s.rt.streamClose(st, streamSelfMask, streamPeerMask)
}

// Split divides the stream into unidirectional handles, each closing its
// own direction.
func (s *Stream) Split() (*InputStream, *OutputStream) {
	st := s.s
	s.s = nil
	in := &InputStream{rt: s.rt, s: st, closeMask: streamSelfFlow}
	out := &OutputStream{rt: s.rt, s: st, closeMask: streamSelfData}
	return in, out
}

// Split3 divides the stream into unidirectional handles plus a Closer that
// closes both directions. Close on the returned input and output handles is
// a no-op.
func (s *Stream) Split3() (*InputStream, *OutputStream, *Closer) {
	st := s.s
	s.s = nil
	in := &InputStream{rt: s.rt, s: st}
	out := &OutputStream{rt: s.rt, s: st}
	closer := &Closer{rt: s.rt, s: st, mask: streamSelfMask}
	return in, out, closer
}

// Recv subscribes capacity bytes and delivers data to the receptor.
func (s *InputStream) Recv(capacity int, receptor func(data []byte, note int32) int) (int32, bool) {
	return s.rt.streamRecv(s.s, capacity, receptor)
}

// Close closes the receive direction and parks until the peer stops
// sending data.
func (s *InputStream) Close() {
	st := s.s
	s.s = nil
	s.rt.streamClose(st, s.closeMask, s.closeMask<<2)
}

// Write writes part of data, bounded by the peer's credit.
func (s *OutputStream) Write(data []byte) (int, error) {
	return s.rt.streamWrite(s.s, data, 0)
}

// WriteNote writes part of data with an out-of-band note value.
func (s *OutputStream) WriteNote(data []byte, note int32) (int, error) {
	return s.rt.streamWrite(s.s, data, note)
}

// WriteAll writes the whole of data.
func (s *OutputStream) WriteAll(data []byte) error {
	return s.rt.streamWriteAll(s.s, data)
}

// Close closes the write direction and parks until the peer stops
// granting credit.
func (s *OutputStream) Close() {
	st := s.s
	s.s = nil
	s.rt.streamClose(st, s.closeMask, s.closeMask<<2)
}

// Close closes the detached directions and parks until the corresponding
// peer halves are closed.
func (c *Closer) Close() {
	st := c.s
	c.s = nil
	c.rt.streamClose(st, c.mask, c.mask<<2)
}
