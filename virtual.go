package gain

import (
	"encoding/binary"
	"fmt"
)

// VirtualHost is an in-memory implementation of the Host interface used for
// testing and for running guest code outside a sandbox. It understands the
// registry protocol, assigns codes in registration order, and hands every
// other packet to per-service handlers. Tests script it packet by packet;
// the send vectors it consumes exercise the same cursor and padding
// arithmetic as the real host call.
type VirtualHost struct {
	services []*VirtualService
	names    map[string]*VirtualService
	pending  []byte // bytes queued for delivery to the guest
	partial  []byte // reassembly buffer for guest output

	// MaxRecv and MaxSend cap the bytes moved per call in either
	// direction. Zero means unlimited; small values exercise the
	// partial-transfer paths.
	MaxRecv int
	MaxSend int

	// OnIdle is invoked when the guest blocks with nothing queued. It
	// reports whether it produced new input; tests use it to script
	// host-initiated traffic. Without it, a blocked guest is a deadlock
	// and the virtual host panics.
	OnIdle func(h *VirtualHost) bool

	started bool
}

// VirtualService describes host-side behaviour for one service name.
type VirtualService struct {
	Name  string
	Avail bool

	// OnCall returns the reply payload for a call. Nil echoes the call
	// payload back.
	OnCall func(h *VirtualHost, payload []byte) []byte
	// Defer queues calls instead of replying; ReleaseCall replies to the
	// oldest queued call.
	Defer    bool
	deferred [][]byte

	OnInfo func(h *VirtualHost, payload []byte)
	OnData func(h *VirtualHost, id StreamID, note int32, payload []byte)
	OnFlow func(h *VirtualHost, id StreamID, increment int32)

	host       *VirtualHost
	code       Code
	registered bool
}

// NewVirtualHost creates a host with no declared services. Undeclared names
// are accepted at registration and start out available with echoing calls.
func NewVirtualHost() *VirtualHost {
	return &VirtualHost{names: make(map[string]*VirtualService)}
}

// Service declares (or retrieves) host-side behaviour for a name before the
// guest registers it.
func (h *VirtualHost) Service(name string) *VirtualService {
	if s, ok := h.names[name]; ok {
		return s
	}
	s := &VirtualService{Name: name, Avail: true, host: h}
	h.names[name] = s
	return s
}

// SetAvailable flips a service's availability and announces the change to
// the guest with a registry info packet.
func (h *VirtualHost) SetAvailable(name string, avail bool) {
	s := h.names[name]
	s.Avail = avail
	if s.registered {
		h.pushServiceStates()
	}
}

// IO implements the Host interface.
func (h *VirtualHost) IO(recv, send [][]byte, timeout int64) (int, int, uint64) {
	sent := h.consume(send)
	received := h.deliver(recv)

	if received == 0 && sent == 0 && timeout != 0 {
		// The guest would block forever unless the host produces input.
		if h.OnIdle == nil || !h.OnIdle(h) {
			panic("virtual host: guest blocked without pending input")
		}
		received = h.deliver(recv)
	}

	var flags uint64
	if !h.started {
		h.started = true
		flags |= FlagStartedOrResumed
	}
	return received, sent, flags
}

// consume drains the guest's send vectors into the reassembly buffer and
// handles every complete packet.
func (h *VirtualHost) consume(send [][]byte) int {
	budget := h.MaxSend
	taken := 0
	for _, span := range send {
		if h.MaxSend > 0 {
			if budget == 0 {
				break
			}
			if len(span) > budget {
				span = span[:budget]
			}
			budget -= len(span)
		}
		h.partial = append(h.partial, span...)
		taken += len(span)
	}

	for len(h.partial) >= headerSize {
		total := align(packetSize(h.partial))
		if len(h.partial) < total {
			break
		}
		h.handlePacket(h.partial[:packetSize(h.partial)])
		h.partial = h.partial[total:]
	}
	return taken
}

// deliver copies queued packets into the guest's receive vectors.
func (h *VirtualHost) deliver(recv [][]byte) int {
	budget := h.MaxRecv
	delivered := 0
	for _, span := range recv {
		if len(h.pending) == 0 {
			break
		}
		if h.MaxRecv > 0 {
			if budget == 0 {
				break
			}
			if len(span) > budget {
				span = span[:budget]
			}
		}
		n := copy(span, h.pending)
		h.pending = h.pending[n:]
		delivered += n
		if h.MaxRecv > 0 {
			budget -= n
		}
	}
	return delivered
}

func (h *VirtualHost) handlePacket(p []byte) {
	code := packetCode(p)
	dom := packetDomain(p)

	if code == codeServices {
		if dom == domainCall {
			h.handleRegistration(p)
		}
		return
	}

	if int(code) >= len(h.services) {
		panic(fmt.Sprintf("virtual host: packet for unregistered code %d", code))
	}
	s := h.services[code]

	switch dom {
	case domainCall:
		payload := p[headerSize:]
		if s.Defer {
			s.deferred = append(s.deferred, append([]byte(nil), payload...))
			return
		}
		h.reply(s, s.call(payload))

	case domainInfo:
		if s.OnInfo != nil {
			s.OnInfo(h, p[headerSize:])
		}

	case domainFlow:
		for i := 0; i < flowCount(p); i++ {
			id, increment := flowAt(p, i)
			if s.OnFlow != nil {
				s.OnFlow(h, id, increment)
			}
		}

	case domainData:
		if s.OnData != nil {
			s.OnData(h, dataID(p), dataNote(p), p[dataHeaderSize:])
		}
	}
}

func (h *VirtualHost) handleRegistration(p []byte) {
	count := int(binary.LittleEndian.Uint16(p[headerSize:]))
	off := servicesHeaderSize
	for i := 0; i < count; i++ {
		nameLen := int(p[off])
		name := string(p[off+1 : off+1+nameLen])
		off += 1 + nameLen

		s := h.Service(name)
		s.code = Code(len(h.services))
		s.registered = true
		h.services = append(h.services, s)
	}
	h.pushServiceStates()
}

func (s *VirtualService) call(payload []byte) []byte {
	if s.OnCall == nil {
		return payload // echo
	}
	return s.OnCall(s.host, payload)
}

// ReleaseCall replies to the oldest deferred call.
func (s *VirtualService) ReleaseCall() {
	payload := s.deferred[0]
	s.deferred = s.deferred[1:]
	s.host.reply(s, s.call(payload))
}

// push appends a padded packet to the delivery queue.
func (h *VirtualHost) push(p []byte) {
	h.pending = append(h.pending, p...)
	if n := align(len(p)) - len(p); n > 0 {
		h.pending = append(h.pending, padding[:n]...)
	}
}

func (h *VirtualHost) reply(s *VirtualService, payload []byte) {
	p := make([]byte, headerSize+len(payload))
	putHeader(p, len(p), s.code, domainCall)
	copy(p[headerSize:], payload)
	h.push(p)
}

// pushServiceStates announces the availability of every registered service.
func (h *VirtualHost) pushServiceStates() {
	p := make([]byte, servicesHeaderSize+len(h.services))
	putHeader(p, len(p), codeServices, domainInfo)
	binary.LittleEndian.PutUint16(p[headerSize:], uint16(len(h.services)))
	for i, s := range h.services {
		if s.Avail {
			p[servicesHeaderSize+i] = serviceStateAvail
		}
	}
	h.push(p)
}

// PushInfo queues an info packet for a registered service.
func (h *VirtualHost) PushInfo(name string, payload []byte) {
	s := h.names[name]
	p := make([]byte, headerSize+len(payload))
	putHeader(p, len(p), s.code, domainInfo)
	copy(p[headerSize:], payload)
	h.push(p)
}

// PushData queues a data packet for a stream of a registered service. An
// empty payload closes the peer's data half; the note rides along.
func (h *VirtualHost) PushData(name string, id StreamID, note int32, payload []byte) {
	s := h.names[name]
	p := make([]byte, dataHeaderSize+len(payload))
	putDataHeader(p, len(p), s.code, id, note)
	copy(p[dataHeaderSize:], payload)
	h.push(p)
}

// PushFlow queues a flow packet for a stream of a registered service. A
// zero increment closes the peer's flow half; a negative one delivers a
// write error.
func (h *VirtualHost) PushFlow(name string, id StreamID, increment int32) {
	s := h.names[name]
	p := make([]byte, headerSize+flowSize)
	putHeader(p, len(p), s.code, domainFlow)
	putFlow(p, 0, id, increment)
	h.push(p)
}
