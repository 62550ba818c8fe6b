package gain

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Service registration failures.
var (
	ErrNameAlreadyRegistered = errors.New("service name already registered")
	ErrTooManyServices       = errors.New("too many services")
)

// ErrStreamClosed is returned by WriteAll when a write is cut short because
// the peer closed the stream.
var ErrStreamClosed = errors.New("stream closed")

// StreamError is a non-zero code delivered by the peer, either as a
// negative flow increment (write side) or as the note of a closing data
// packet (read side).
type StreamError int32

func (e StreamError) Error() string {
	return fmt.Sprintf("stream error %d", int32(e))
}

// die reports a host contract violation and terminates the process. Within
// the runtime only these are fatal; everything else is surfaced to the
// awaiting operation.
func die(msg string) {
	log.Fatalf("[RUNTIME] %s", msg)
}
