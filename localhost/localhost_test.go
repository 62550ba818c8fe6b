package localhost

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeRequest(t *testing.T) {
	p := encodeRequest("POST", "/submit", "text/plain", []byte("hi"))

	assert.Equal(t, byte(4), p[0])
	assert.Equal(t, "POST", string(p[1:5]))
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(p[5:7]))
	assert.Equal(t, "/submit", string(p[7:14]))
	assert.Equal(t, byte(10), p[14])
	assert.Equal(t, "text/plain", string(p[15:25]))
	assert.Equal(t, "hi", string(p[25:]))
}

func TestDecodeResponse(t *testing.T) {
	var reply []byte
	reply = binary.LittleEndian.AppendUint16(reply, 200)
	reply = append(reply, 9)
	reply = append(reply, "text/html"...)
	reply = append(reply, "<html/>"...)

	res := decodeResponse(reply)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "text/html", res.ContentType)
	assert.Equal(t, []byte("<html/>"), res.Content)
}

func TestDecodeResponseEmpty(t *testing.T) {
	res := decodeResponse(nil)
	assert.Zero(t, res.StatusCode)
	assert.Empty(t, res.ContentType)
	assert.Nil(t, res.Content)
}

func TestDecodeResponseTruncated(t *testing.T) {
	reply := []byte{200, 0, 9, 'x'}
	res := decodeResponse(reply)
	assert.Zero(t, res.StatusCode)
}
