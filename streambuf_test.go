package gain

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushOnceOnSubscribe(h *VirtualHost, name string, data []byte, note int32) {
	pushed := false
	h.Service(name).OnFlow = func(h *VirtualHost, id StreamID, increment int32) {
		if increment > 0 && !pushed {
			pushed = true
			if len(data) > 0 {
				h.PushData(name, id, 0, data)
			}
			h.PushData(name, id, note, nil)
		}
	}
}

func TestReadStream(t *testing.T) {
	h := NewVirtualHost()
	pushOnceOnSubscribe(h, "bs", []byte("hello world"), 0)
	r := New(h)

	var got []byte
	var readErr error
	r.BlockOn(func() {
		svc := r.Register("bs")
		awaitAvail(r, svc)
		rs := NewReadStream(svc.InputStream(5))

		buf := make([]byte, 4)
		for {
			n, err := rs.Read(buf)
			got = append(got, buf[:n]...)
			if err != nil {
				readErr = err
				break
			}
		}
	})

	assert.Equal(t, []byte("hello world"), got)
	assert.Equal(t, io.EOF, readErr)
}

func TestReadStreamErrorNote(t *testing.T) {
	h := NewVirtualHost()
	pushOnceOnSubscribe(h, "ns", nil, -3)
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("ns")
		awaitAvail(r, svc)
		rs := NewReadStream(svc.InputStream(1))

		_, err := rs.Read(make([]byte, 16))
		assert.Equal(t, StreamError(-3), err)
	})
}

func TestReadStreamFillAndConsume(t *testing.T) {
	h := NewVirtualHost()
	pushOnceOnSubscribe(h, "fs", []byte("abcdef"), 0)
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("fs")
		awaitAvail(r, svc)
		rs := NewReadStreamCapacity(32, svc.InputStream(2))

		require.NoError(t, rs.Fill(6))
		assert.Equal(t, []byte("abcdef"), rs.Buffered())
		rs.Consume(4)
		assert.Equal(t, []byte("ef"), rs.Buffered())

		rs.Consume(2)
		assert.Equal(t, io.EOF, rs.Fill(1))
	})
}

func TestReadWriteStream(t *testing.T) {
	h := NewVirtualHost()
	var hostGot []byte
	rw := h.Service("rw")
	rw.OnData = func(h *VirtualHost, id StreamID, note int32, payload []byte) {
		if len(payload) > 0 {
			hostGot = append(hostGot, payload...)
			h.PushData("rw", id, 0, nil) // done reading; close our data half
		} else {
			h.PushFlow("rw", id, 0)
		}
	}
	grant := false
	h.OnIdle = func(h *VirtualHost) bool {
		if grant {
			return false
		}
		grant = true
		h.PushFlow("rw", 8, 100)
		return true
	}
	r := New(h)

	r.BlockOn(func() {
		svc := r.Register("rw")
		awaitAvail(r, svc)
		s := NewReadWriteStream(svc.Stream(8))

		require.NoError(t, s.WriteAll([]byte("ping")))

		_, err := s.Read(make([]byte, 8))
		assert.Equal(t, io.EOF, err)

		s.Close()
	})

	assert.Equal(t, []byte("ping"), hostGot)
}
