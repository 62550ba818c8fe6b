package gain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallEcho(t *testing.T) {
	h := NewVirtualHost()
	r := New(h)

	var reply []byte
	r.BlockOn(func() {
		svc := r.Register("echo")
		svc.Call([]byte{0x01, 0x02, 0x03}, func(p []byte) {
			reply = append([]byte(nil), p...)
		})
	})

	assert.Equal(t, []byte{0x01, 0x02, 0x03}, reply)
}

func TestCallRepliesInOrder(t *testing.T) {
	h := NewVirtualHost()
	h.Service("seq").OnCall = func(_ *VirtualHost, payload []byte) []byte {
		return append([]byte("re:"), payload...)
	}
	r := New(h)

	var replies []string
	r.BlockOn(func() {
		svc := r.Register("seq")
		for i := 0; i < 3; i++ {
			payload := []byte{byte('a' + i)}
			r.Spawn(func() {
				svc.Call(payload, func(p []byte) {
					replies = append(replies, string(p))
				})
			})
		}
		for len(replies) < 3 {
			r.YieldNow()
		}
	})

	assert.Equal(t, []string{"re:a", "re:b", "re:c"}, replies)
}

func TestRegisterAssignsSequentialCodes(t *testing.T) {
	r := New(NewVirtualHost())

	a, err := r.TryRegister("a")
	require.NoError(t, err)
	b, err := r.TryRegister("b")
	require.NoError(t, err)

	assert.Equal(t, Code(0), a.Code())
	assert.Equal(t, Code(1), b.Code())
	assert.Equal(t, "a", r.services[0].name)
	assert.Equal(t, "b", r.services[1].name)
}

func TestRegisterDuplicateName(t *testing.T) {
	r := New(NewVirtualHost())

	_, err := r.TryRegister("twice")
	require.NoError(t, err)
	_, err = r.TryRegister("twice")
	assert.Equal(t, ErrNameAlreadyRegistered, err)
}

func TestRegisterTooManyServices(t *testing.T) {
	r := New(NewVirtualHost())

	for i := 0; i < maxServices; i++ {
		if _, err := r.TryRegister(fmt.Sprintf("svc-%d", i)); err != nil {
			t.Fatalf("registration %d failed: %v", i, err)
		}
	}
	_, err := r.TryRegister("one-too-many")
	assert.Equal(t, ErrTooManyServices, err)
}

func TestRegisterNameLengthBounds(t *testing.T) {
	r := New(NewVirtualHost())

	assert.Panics(t, func() { r.TryRegister("") })
	assert.Panics(t, func() { r.TryRegister(string(make([]byte, 128))) })
}

func TestPartialTransfers(t *testing.T) {
	h := NewVirtualHost()
	h.MaxSend = 4
	h.MaxRecv = 4
	r := New(h)

	var reply []byte
	r.BlockOn(func() {
		svc := r.Register("trickle")
		svc.Call([]byte("payload"), func(p []byte) {
			reply = append([]byte(nil), p...)
		})
	})

	assert.Equal(t, []byte("payload"), reply)
}
