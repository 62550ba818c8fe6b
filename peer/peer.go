// Package peer communicates with other program instances.
package peer

import (
	"encoding/binary"
	"fmt"
	"strings"

	"gate.computer/gain"
)

var (
	service *gain.Service
	groups  = make(map[string]func(peerName string))
	conns   = make(map[string]*pendingConn)
)

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("peer")
	}
	return service
}

type pendingConn struct {
	event  *gain.Event
	stream *gain.Stream
}

// RegisterGroup registers a peer group implementation. The listener is
// invoked with a qualified name when a peer of the group initiates a
// connection.
func RegisterGroup(groupName string, listener func(peerName string)) {
	init := len(groups) == 0

	if _, exists := groups[groupName]; exists {
		panic(fmt.Sprintf("peer group %s already registered", groupName))
	}
	groups[groupName] = listener

	if init {
		gain.Spawn(handleInfoPackets)
		svc().SendInfo(nil)
	}
}

// handleInfoPackets dispatches connection notices. A negative id announces
// an incoming connection attempt from a named peer; a non-negative id
// establishes the stream of a connection in progress.
func handleInfoPackets() {
	svc().RecvInfo(func(content []byte) {
		id := int32(binary.LittleEndian.Uint32(content))
		name := string(content[4:])
		if id < 0 {
			i := strings.IndexByte(name, ':')
			groups[name[:i]](name)
			return
		}

		stream := svc().Stream(gain.StreamID(id))
		conn := conns[name]
		delete(conns, name)
		conn.stream = stream
		conn.event.Set()
	})
}

// Connect to a peer by qualified name.
func Connect(qualifiedName string) (*gain.Stream, error) {
	if _, connecting := conns[qualifiedName]; connecting {
		return nil, alreadyConnecting()
	}
	conn := &pendingConn{event: gain.NewEvent()}
	conns[qualifiedName] = conn

	var err error
	svc().Call([]byte(qualifiedName), func(reply []byte) {
		if len(reply) < 2 {
			err = newConnectError(0)
			return
		}
		if code := int16(binary.LittleEndian.Uint16(reply)); code != 0 {
			err = newConnectError(code)
		}
	})
	if err != nil {
		delete(conns, qualifiedName)
		return nil, err
	}

	conn.event.Wait()
	return conn.stream, nil
}

// ConnectGroup connects to a peer with the group name specified separately.
func ConnectGroup(groupName, shortName string) (*gain.Stream, error) {
	return Connect(groupName + ":" + shortName)
}

// ConnectErrorKind classifies connection failures.
type ConnectErrorKind int

const (
	KindOther ConnectErrorKind = iota
	KindGroupNotFound
	KindPeerNotFound
	KindSingularity
	KindAlreadyConnecting
	KindAlreadyConnected
)

// ConnectError is a connection failure reported by the peer service.
type ConnectError struct {
	code int16
}

func newConnectError(code int16) *ConnectError {
	return &ConnectError{code}
}

func alreadyConnecting() *ConnectError {
	return newConnectError(4)
}

// Kind returns the failure classification.
func (e *ConnectError) Kind() ConnectErrorKind {
	switch e.code {
	case 1:
		return KindGroupNotFound
	case 2:
		return KindPeerNotFound
	case 3:
		return KindSingularity
	case 4:
		return KindAlreadyConnecting
	case 5:
		return KindAlreadyConnected
	default:
		return KindOther
	}
}

// Code returns the raw error code.
func (e *ConnectError) Code() int16 {
	return e.code
}

func (e *ConnectError) Error() string {
	switch e.Kind() {
	case KindGroupNotFound:
		return "group not found"
	case KindPeerNotFound:
		return "peer not found"
	case KindSingularity:
		return "singularity"
	case KindAlreadyConnecting:
		return "already connecting"
	case KindAlreadyConnected:
		return "already connected"
	default:
		return fmt.Sprintf("peer connect error %d", e.code)
	}
}
