package gain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func putTestPacket(b *recvBuf, off, payloadLen int) int {
	putHeader(b.buf[off:], headerSize+payloadLen, 0, domainCall)
	return align(headerSize + payloadLen)
}

func TestRecvBufConsume(t *testing.T) {
	b := newRecvBuf()
	n := putTestPacket(b, 0, 3)
	b.head = recvSpan{0, n}

	p := b.consume(0)
	assert.Len(t, p, headerSize+3)
	assert.True(t, b.head.empty())
}

func TestRecvBufConsumeAdvancesHead(t *testing.T) {
	b := newRecvBuf()
	first := putTestPacket(b, 0, 5)
	second := putTestPacket(b, first, 1)
	b.head = recvSpan{0, first + second}

	b.consumed()
	assert.Equal(t, first, b.head.off)

	p := b.consume(first)
	assert.Len(t, p, headerSize+1)
	assert.True(t, b.head.empty())
}

func TestRecvBufTailPromotion(t *testing.T) {
	b := newRecvBuf()
	off := MaxPacketSize - 16
	n := putTestPacket(b, off, 2)
	b.head = recvSpan{off, off + n}

	tail := putTestPacket(b, 0, 4)
	b.tail = recvSpan{0, tail}

	b.consumed()
	assert.Equal(t, recvSpan{0, tail}, b.head)
	assert.True(t, b.tail.empty())
}
