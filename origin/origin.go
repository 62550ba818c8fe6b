// Package origin communicates with the invoker of the program instance.
// It can be thought of as standard I/O streams.
package origin

import (
	"encoding/binary"
	"fmt"

	"gate.computer/gain"
)

var service *gain.Service

// Registration happens on first use, under the cooperative scheduler.
func svc() *gain.Service {
	if service == nil {
		service = gain.Register("origin")
	}
	return service
}

const acceptReplySize = 8

// AcceptError is the reason a connection could not be accepted. No reasons
// have been defined yet.
type AcceptError int16

func (e AcceptError) Error() string {
	return fmt.Sprintf("origin accept error %d", int16(e))
}

// Accept a new incoming connection. The call parks while no connection is
// available, or the environment-dependent maximum number of simultaneous
// connections is reached.
//
// Typically there is a correspondence between a connection and a program
// invocation or resumption.
func Accept() (*gain.Stream, error) {
	var (
		stream *gain.Stream
		err    error
	)
	svc().Call(nil, func(reply []byte) {
		if len(reply) < acceptReplySize {
			err = AcceptError(0)
			return
		}
		if code := int16(binary.LittleEndian.Uint16(reply[4:6])); code != 0 {
			err = AcceptError(code)
			return
		}
		id := gain.StreamID(binary.LittleEndian.Uint32(reply))
		stream = svc().Stream(id)
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}
