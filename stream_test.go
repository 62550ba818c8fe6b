package gain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// awaitAvail parks until the registry has acknowledged the service, so that
// stream packets are not emitted before the registration reaches the host.
func awaitAvail(r *Runtime, svc *Service) {
	for !r.services[svc.Code()].avail {
		r.YieldNow()
	}
}

// mirrorCloses makes the host answer each half-close of the guest with the
// matching close of its own.
func mirrorCloses(h *VirtualHost, name string) {
	s := h.Service(name)
	s.OnData = func(h *VirtualHost, id StreamID, note int32, payload []byte) {
		if len(payload) == 0 {
			h.PushData(name, id, 0, nil)
		}
	}
	s.OnFlow = func(h *VirtualHost, id StreamID, increment int32) {
		if increment == 0 {
			h.PushFlow(name, id, 0)
		}
	}
}

func TestFlowControlledWrite(t *testing.T) {
	h := NewVirtualHost()
	var writes []int
	h.Service("fs").OnData = func(_ *VirtualHost, id StreamID, note int32, payload []byte) {
		writes = append(writes, len(payload))
	}
	idle := 0
	h.OnIdle = func(h *VirtualHost) bool {
		idle++
		switch idle {
		case 1:
			h.PushFlow("fs", 7, 40)
		case 2:
			h.PushFlow("fs", 7, 60)
		default:
			return false
		}
		return true
	}
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("fs")
		awaitAvail(r, svc)
		s := svc.Stream(7)
		require.NoError(t, s.WriteAll(make([]byte, 100)))
	})

	assert.Equal(t, []int{40, 60}, writes)
}

func TestWriteTrimsToCredit(t *testing.T) {
	h := NewVirtualHost()
	var writes []int
	h.Service("ws").OnData = func(_ *VirtualHost, id StreamID, note int32, payload []byte) {
		writes = append(writes, len(payload))
	}
	h.OnIdle = func(h *VirtualHost) bool {
		if len(writes) > 0 {
			return false
		}
		h.PushFlow("ws", 0, 10)
		return true
	}
	r := New(h)

	var n int
	r.BlockOn(func() {
		svc := r.Register("ws")
		awaitAvail(r, svc)
		s := svc.OutputStream(0)
		var err error
		n, err = s.Write(make([]byte, 25))
		require.NoError(t, err)
	})

	assert.Equal(t, 10, n)
	assert.Equal(t, []int{10}, writes)
}

func TestWriteAfterPeerFlowClose(t *testing.T) {
	h := NewVirtualHost()
	h.OnIdle = func(h *VirtualHost) bool {
		h.PushFlow("cs", 2, 0)
		h.OnIdle = nil
		return true
	}
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("cs")
		awaitAvail(r, svc)
		s := svc.OutputStream(2)
		n, err := s.Write([]byte("data"))
		assert.Zero(t, n)
		assert.NoError(t, err)

		err = s.WriteAll([]byte("data"))
		assert.Equal(t, ErrStreamClosed, err)
	})
}

func TestNegativeIncrementDeliversWriteError(t *testing.T) {
	h := NewVirtualHost()
	h.OnIdle = func(h *VirtualHost) bool {
		h.PushFlow("es", 1, -5)
		h.PushFlow("es", 1, 0)
		h.OnIdle = nil
		return true
	}
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("es")
		awaitAvail(r, svc)
		s := svc.OutputStream(1)
		n, err := s.Write([]byte("data"))
		assert.Zero(t, n)
		assert.Equal(t, StreamError(-5), err)
	})
}

func TestRecvDeliversDataAndNote(t *testing.T) {
	h := NewVirtualHost()
	h.Service("rs").OnFlow = func(h *VirtualHost, id StreamID, increment int32) {
		if increment > 0 {
			h.PushData("rs", id, 0, []byte("hello"))
			h.PushData("rs", id, -9, nil) // peer closes with a note
		}
	}
	r := New(h)

	var got []byte
	r.BlockOn(func() {
		svc := r.Register("rs")
		awaitAvail(r, svc)
		s := svc.InputStream(4)
		note, closed := s.Recv(64, func(data []byte, note int32) int {
			got = append(got, data...)
			return 0
		})
		assert.True(t, closed)
		assert.Equal(t, int32(-9), note)
	})

	assert.Equal(t, []byte("hello"), got)
}

func TestRecvZeroCapacity(t *testing.T) {
	h := NewVirtualHost()
	var increments []int32
	zs := h.Service("zs")
	zs.OnFlow = func(h *VirtualHost, id StreamID, increment int32) {
		increments = append(increments, increment)
		if increment == 0 {
			h.PushFlow("zs", id, 0)
		}
	}
	zs.OnData = func(h *VirtualHost, id StreamID, note int32, payload []byte) {
		if len(payload) == 0 {
			h.PushData("zs", id, 0, nil)
		}
	}
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("zs")
		awaitAvail(r, svc)
		s := svc.Stream(9)
		note, closed := s.Recv(0, func([]byte, int32) int {
			t.Error("receptor invoked without capacity")
			return 0
		})
		assert.False(t, closed)
		assert.Zero(t, note)

		s.Close()
		_, alive := r.streams[streamKey{svc.Code(), 9}]
		assert.False(t, alive)
	})

	// The only flow packet on the wire is the closing one.
	assert.Equal(t, []int32{0}, increments)
}

func TestHalfClose(t *testing.T) {
	h := NewVirtualHost()
	h.Service("hs").OnData = func(h *VirtualHost, id StreamID, note int32, payload []byte) {
		if len(payload) == 0 {
			h.PushData("hs", id, 0, nil)
		}
	}
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("hs")
		awaitAvail(r, svc)
		s := svc.Stream(3)
		st := s.s

		r.streamClose(st, streamSelfData, streamPeerData)

		assert.Equal(t, streamSelfFlow|streamPeerFlow, st.flags)
		_, alive := r.streams[streamKey{svc.Code(), 3}]
		assert.True(t, alive)
	})
}

func TestConcurrentClose(t *testing.T) {
	h := NewVirtualHost()
	mirrorCloses(h, "cc")
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("cc")
		awaitAvail(r, svc)
		s := svc.Stream(6)
		s.Close()
		_, alive := r.streams[streamKey{svc.Code(), 6}]
		assert.False(t, alive)
	})
}

func TestStreamTablePresence(t *testing.T) {
	h := NewVirtualHost()
	mirrorCloses(h, "ts")
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("ts")
		awaitAvail(r, svc)
		key := streamKey{svc.Code(), 11}

		s := svc.Stream(11)
		_, alive := r.streams[key]
		assert.True(t, alive)

		s.Close()
		_, alive = r.streams[key]
		assert.False(t, alive)
	})
}
