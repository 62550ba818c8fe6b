// Package localhost accesses a local HTTP server through the
// gate.computer/localhost service.
package localhost

import (
	"encoding/binary"

	"gate.computer/gain"
)

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("gate.computer/localhost")
	}
	return service
}

// Response to an HTTP request. A zero status code means the request could
// not be made.
type Response struct {
	StatusCode  int
	ContentType string
	Content     []byte
}

// Get makes a GET request.
func Get(uri string) Response {
	return Request("GET", uri, "", nil)
}

// Post makes a POST request.
func Post(uri, contentType string, body []byte) Response {
	return Request("POST", uri, contentType, body)
}

// Put makes a PUT request.
func Put(uri, contentType string, body []byte) Response {
	return Request("PUT", uri, contentType, body)
}

// Request makes an HTTP request.
func Request(method, uri, contentType string, body []byte) Response {
	var res Response
	svc().Call(encodeRequest(method, uri, contentType, body), func(reply []byte) {
		res = decodeResponse(reply)
	})
	return res
}

// Call payload: method and content type are length-prefixed with one byte,
// the uri with two; the body is the remainder.
func encodeRequest(method, uri, contentType string, body []byte) []byte {
	if len(method) > 255 || len(contentType) > 255 || len(uri) > 65535 {
		panic("request field is too long")
	}

	buf := make([]byte, 0, 1+len(method)+2+len(uri)+1+len(contentType)+len(body))
	buf = append(buf, byte(len(method)))
	buf = append(buf, method...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(uri)))
	buf = append(buf, uri...)
	buf = append(buf, byte(len(contentType)))
	buf = append(buf, contentType...)
	buf = append(buf, body...)
	return buf
}

// Reply payload: status code, one-byte-prefixed content type, then the
// body.
func decodeResponse(reply []byte) (res Response) {
	if len(reply) < 3 {
		return
	}
	res.StatusCode = int(binary.LittleEndian.Uint16(reply))
	reply = reply[2:]

	typeLen := int(reply[0])
	reply = reply[1:]
	if len(reply) < typeLen {
		return Response{}
	}
	res.ContentType = string(reply[:typeLen])

	if body := reply[typeLen:]; len(body) > 0 {
		res.Content = append([]byte(nil), body...)
	}
	return
}
