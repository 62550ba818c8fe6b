// Package shell accesses the host system through the gate.computer/shell
// service.
package shell

import (
	"encoding/binary"
	"fmt"

	"gate.computer/gain"
)

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("gate.computer/shell")
	}
	return service
}

// Spawn runs a command on the host and returns a stream of its output.
func Spawn(command string) (*gain.InputStream, error) {
	var (
		stream *gain.InputStream
		err    error
	)
	svc().Call([]byte(command), func(reply []byte) {
		code := int16(binary.LittleEndian.Uint16(reply[:2]))
		id := int32(binary.LittleEndian.Uint32(reply[4:8]))

		if id >= 0 {
			stream = svc().InputStream(gain.StreamID(id))
			if code == 0 {
				return
			}
		}
		err = newError(code)
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// ErrorKind classifies spawn failures.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindQuota
	KindUser
	KindWorkDir
	KindExecutable
)

// Error is a spawn failure reported by the shell service.
type Error struct {
	code int16
}

func newError(code int16) *Error {
	return &Error{code}
}

// Kind returns the failure classification.
func (e *Error) Kind() ErrorKind {
	switch e.code {
	case 1:
		return KindQuota
	case 2:
		return KindUser
	case 3:
		return KindWorkDir
	case 4:
		return KindExecutable
	default:
		return KindOther
	}
}

// Code returns the raw error code.
func (e *Error) Code() int16 {
	return e.code
}

func (e *Error) Error() string {
	switch e.Kind() {
	case KindQuota:
		return "not enough quota"
	case KindUser:
		return "user not found"
	case KindWorkDir:
		return "work directory error"
	case KindExecutable:
		return "executable error"
	default:
		return fmt.Sprintf("shell error %d", e.code)
	}
}
