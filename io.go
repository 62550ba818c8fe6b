package gain

import (
	log "github.com/sirupsen/logrus"
)

// Trailing padding is sent from this static array.
var padding [alignment]byte

// drive performs one bounded host I/O cycle and dispatches at most one
// fully received packet.
func (r *Runtime) drive() {
	flags := r.performIO()

	if flags&FlagStartedOrResumed != 0 {
		// Resumption is a host-side state transition; nothing to do here.
		log.Debug("[IO] execution started or resumed")
	}

	r.processReceived()
}

// performIO wakes yield descriptors stuck at the front of the send queue,
// then makes a single host call with up to two receive spans and up to
// three send spans. The call blocks unless something disallows waiting.
func (r *Runtime) performIO() uint64 {
	rb := r.recv

	// Don't perform I/O while an unhandled packet occupies the buffer.
	if !rb.tail.empty() {
		return 0
	}
	if head := rb.headSlice(); len(head) >= headerSize {
		if end := rb.head.off + align(packetSize(head)); end <= rb.head.end {
			return 0
		}
	}

	var recvVec [][]byte
	if rb.head.empty() {
		// First half of the buffer.
		recvVec = [][]byte{rb.buf[:MaxPacketSize]}
	} else {
		// Append to a partially received packet...
		head := rb.headSlice()
		if len(head) >= headerSize {
			packetEnd := rb.head.off + align(packetSize(head))
			if packetEnd < MaxPacketSize {
				// ...and the rest of the first half.
				recvVec = [][]byte{rb.buf[rb.head.end:MaxPacketSize]}
			} else {
				// ...then wrap around to the prefix before the head.
				recvVec = [][]byte{rb.buf[rb.head.end:packetEnd], rb.buf[:rb.head.off]}
			}
		} else {
			// ...only up to a complete header for now.
			recvVec = [][]byte{rb.buf[rb.head.end : rb.head.end+headerSize-len(head)]}
		}
	}

	wait := true

	for r.sendList.front != nil && r.sendList.front.isNop() {
		r.sendList.popFront().wake()
		wait = false
	}

	var sendVec [][]byte
	if d := r.sendList.front; d != nil {
		rem := d.sent
		for _, span := range d.spans {
			if rem < len(span) {
				sendVec = append(sendVec, span[rem:])
				rem = 0
			} else {
				rem -= len(span)
			}
		}
		// rem is now how much padding has already been sent.
		if n := align(d.unalignedLen()) - d.unalignedLen() - rem; n > 0 {
			sendVec = append(sendVec, padding[:n])
		}
	}

	timeout := ioBlock
	if !wait {
		timeout = ioPoll
	}

	received, sent, flags := r.host.IO(recvVec, sendVec, timeout)

	if sent > 0 {
		d := r.sendList.front
		d.sent += sent
		if d.isSent() {
			expectsReply := d.reply == replyExpected
			if !expectsReply {
				d.wake()
			}
			code := d.code()
			r.sendList.popFront()
			if expectsReply {
				r.services[code].replies.pushBack(d)
			}
		}
	}

	if received > 0 {
		if rb.head.empty() {
			rb.head = recvSpan{0, received}
		} else {
			head := rb.headSlice()
			if len(head) >= headerSize {
				packetEnd := rb.head.off + align(packetSize(head))
				if packetEnd < MaxPacketSize {
					rb.head.end += received
				} else if rest := packetEnd - rb.head.end; received <= rest {
					rb.head.end += received
				} else {
					rb.head.end = packetEnd
					rb.tail = recvSpan{0, received - rest}
				}
			} else {
				rb.head.end += received
			}
		}
	}

	return flags
}

// processReceived dispatches the packet at the head of the receive buffer,
// if complete, by code and domain. If no consumer took ownership of the
// offset, the packet is consumed immediately.
func (r *Runtime) processReceived() {
	rb := r.recv
	head := rb.headSlice()
	if len(head) < headerSize {
		return
	}
	size := packetSize(head)
	if rb.head.end < rb.head.off+align(size) {
		return
	}

	p := head[:size]
	code := packetCode(p)
	dom := packetDomain(p)
	consumerTook := false

	if code == codeServices {
		if dom == domainCall || dom == domainInfo {
			r.updateServiceStates(p)
		}
	} else {
		switch dom {
		case domainCall:
			d := r.services[code].replies.remove(packetIndex(p))
			d.reply = rb.head.off
			consumerTook = true
			d.wake()

		case domainInfo:
			r.services[code].info.deposit(rb.head.off)
			consumerTook = true

		case domainFlow:
			for i := 0; i < flowCount(p); i++ {
				id, increment := flowAt(p, i)
				st := r.streams[streamKey{code, id}]
				if st == nil {
					die("flow packet received for unknown service or stream")
				}
				switch {
				case increment > 0:
					st.writable += int(increment)
					if t := st.writer; t != nil {
						st.writer = nil
						t.wake()
					}
				case increment == 0:
					st.peerClosed(streamPeerFlow)
				default:
					st.writeErr = increment
				}
				st.detachClosed()
			}

		case domainData:
			st := r.streams[streamKey{code, dataID(p)}]
			if st == nil {
				die("data packet received for unknown service or stream")
			}
			if size > dataHeaderSize {
				st.recv.deposit(rb.head.off)
				consumerTook = true
			} else {
				st.recvNote = dataNote(p)
				st.peerClosed(streamPeerData)
			}
			st.detachClosed()
		}
	}

	if !consumerTook {
		rb.consumed()
	}
}
