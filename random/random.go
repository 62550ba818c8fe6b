// Package random generates random values using the host's entropy source.
package random

import "gate.computer/gain"

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("random")
	}
	return service
}

// The service hands out at most this much entropy per call.
const maxChunk = 255

// Read fills buf with random bytes, calling the service as many times as
// needed.
func Read(buf []byte) {
	offset := 0
	for offset < len(buf) {
		need := len(buf) - offset
		if need > maxChunk {
			need = maxChunk
		}
		svc().Call([]byte{byte(need)}, func(src []byte) {
			offset += copy(buf[offset:], src)
		})
	}
}
