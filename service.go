package gain

import (
	log "github.com/sirupsen/logrus"
)

const (
	maxServiceNameLen = 127
	maxServices       = 32766 // signed 16-bit range minus the reserved registry code
)

// recvSlot parks one received packet offset for a consumer, or the task
// waiting for it. At most one of each is retained.
type recvSlot struct {
	offset int
	valid  bool
	waker  *task
}

// deposit stores a packet offset and wakes the waiting task, if any. An
// earlier unconsumed offset is kept; the buffer's head-vs-tail protocol
// keeps the new packet parked until then.
func (s *recvSlot) deposit(off int) {
	if s.valid {
		return
	}
	s.offset = off
	s.valid = true
	if t := s.waker; t != nil {
		s.waker = nil
		t.wake()
	}
}

// serviceState is one row of the service table. Rows are created at
// registration and never destroyed; availability toggles on registry
// packets.
type serviceState struct {
	name    string
	avail   bool
	blocked sendList // descriptors awaiting availability
	replies sendList // descriptors awaiting their response, in wire order
	info    recvSlot
}

// Service is a handle to a registered service.
type Service struct {
	rt   *Runtime
	code Code
}

// Code returns the code assigned at registration.
func (s *Service) Code() Code {
	return s.code
}

// Register registers a service or panics.
func (r *Runtime) Register(name string) *Service {
	s, err := r.TryRegister(name)
	if err != nil {
		panic(name + ": " + err.Error())
	}
	return s
}

// TryRegister registers a named service. The registry packet is sent by a
// background task; the service starts out unavailable until the registry
// announces it.
func (r *Runtime) TryRegister(name string) (*Service, error) {
	if len(name) == 0 || len(name) > maxServiceNameLen {
		panic("service name length out of bounds")
	}
	if _, exists := r.names[name]; exists {
		return nil, ErrNameAlreadyRegistered
	}
	if len(r.services) >= maxServices {
		return nil, ErrTooManyServices
	}

	size := servicesHeaderSize + 1 + len(name)
	p := make([]byte, servicesHeaderSize, size)
	putServicesHeader(p, size, 1)
	p = append(p, byte(len(name)))
	p = append(p, name...)
	r.Spawn(func() { r.sendPacket(p) })

	code := Code(len(r.services))
	r.names[name] = code
	r.services = append(r.services, &serviceState{name: name})
	log.Infof("[SERVICES] registered %q with code %d", name, code)
	return &Service{rt: r, code: code}, nil
}

// sendPacket enqueues a fully built packet and parks until it is sent.
func (r *Runtime) sendPacket(p []byte) {
	var d sendDesc
	d.reply = replyNotExpected
	d.spans[0] = p
	r.sendList.pushBack(&d)
	for !d.isSent() {
		d.waker = r.currentTask()
		r.park()
	}
}

// enqueue routes a descriptor through the service's blocked queue when the
// service is unavailable, else to the global send queue.
func (r *Runtime) enqueue(d *sendDesc) {
	if code := d.code(); code >= 0 {
		if svc := r.services[code]; !svc.avail {
			svc.blocked.pushBack(d)
			return
		}
	}
	r.sendList.pushBack(d)
}

// Call sends a call packet and parks until the reply arrives. The receptor
// is invoked with the reply payload, which is valid only during the
// invocation. Exactly one reply is expected per call.
func (s *Service) Call(content []byte, receptor func(reply []byte)) {
	r := s.rt
	var header [headerSize]byte
	putHeader(header[:], headerSize+len(content), s.code, domainCall)

	d := sendDesc{reply: replyExpected}
	d.spans[0] = header[:]
	d.spans[1] = content
	r.enqueue(&d)

	for d.reply < 0 {
		d.waker = r.currentTask()
		r.park()
	}
	p := r.recv.consume(d.reply)
	receptor(p[headerSize:])
}

// SendInfo sends an info packet and parks until it has been sent.
func (s *Service) SendInfo(content []byte) {
	r := s.rt
	var header [headerSize]byte
	putHeader(header[:], headerSize+len(content), s.code, domainInfo)

	d := sendDesc{reply: replyNotExpected}
	d.spans[0] = header[:]
	d.spans[1] = content
	r.enqueue(&d)

	for !d.isSent() {
		d.waker = r.currentTask()
		r.park()
	}
}

// RecvInfo invokes the receptor for every info packet the service sends.
// It never returns; run it on its own task.
func (s *Service) RecvInfo(receptor func(content []byte)) {
	r := s.rt
	svc := r.services[s.code]
	for {
		if svc.info.valid {
			off := svc.info.offset
			svc.info = recvSlot{}
			p := r.recv.consume(off)
			receptor(p[headerSize:])
			continue
		}
		svc.info.waker = r.currentTask()
		r.park()
	}
}

// updateServiceStates diffs a registry flag array against the table.
// Services turning available have their blocked queue flushed to the global
// send queue; services turning unavailable have their pending descriptors
// swept out of the global queue, preserving relative order.
func (r *Runtime) updateServiceStates(p []byte) {
	states := serviceStates(p)
	if len(states) > len(r.services) {
		die("registry packet describes unknown services")
	}
	for i, flags := range states {
		svc := r.services[i]
		avail := flags&serviceStateAvail != 0
		if avail == svc.avail {
			continue
		}

		if avail {
			log.Infof("[SERVICES] service #%d available", i)
			svc.avail = true
			for d := svc.blocked.popFront(); d != nil; d = svc.blocked.popFront() {
				r.sendList.pushBack(d)
			}
			continue
		}

		log.Infof("[SERVICES] service #%d unavailable", i)
		svc.avail = false
		svc.blocked = sendList{}

		var prev *sendDesc
		for curr := r.sendList.front; curr != nil; {
			next := curr.next
			if curr.code() == Code(i) {
				if prev != nil {
					prev.next = next
				} else {
					r.sendList.front = next
				}
				if next == nil {
					r.sendList.back = prev
				}
				curr.next = nil
				svc.blocked.pushBack(curr)
			} else {
				prev = curr
			}
			curr = next
		}
	}
}
