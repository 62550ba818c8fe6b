package gain

// Reply markers stored in a descriptor's reply field. Non-negative values
// are receive buffer offsets of delivered replies.
const (
	replyNotExpected = -2
	replyExpected    = -1
)

// sendDesc is the in-memory record of one packet awaiting transmission.
// The descriptor and the storage its spans reference are owned by the
// suspended operation; queues hold plain pointers and must never outlive
// the operation. A descriptor with no payload and no reply expectation is a
// yield descriptor: the drive loop pops it without touching the host.
type sendDesc struct {
	spans [2][]byte // header, payload
	sent  int       // cursor over the aligned send length
	reply int
	waker *task
	next  *sendDesc
}

func (d *sendDesc) code() Code {
	if len(d.spans[0]) == 0 {
		// Yield descriptors carry no header and address no service.
		return codeServices
	}
	return packetCode(d.spans[0])
}

func (d *sendDesc) unalignedLen() int {
	return len(d.spans[0]) + len(d.spans[1])
}

func (d *sendDesc) isSent() bool {
	return d.sent == align(d.unalignedLen())
}

func (d *sendDesc) isNop() bool {
	return d.reply != replyExpected && d.unalignedLen() == 0
}

func (d *sendDesc) wake() {
	if t := d.waker; t != nil {
		d.waker = nil
		t.wake()
	}
}

// sendList is an intrusive FIFO of send descriptors.
type sendList struct {
	front, back *sendDesc
}

func (l *sendList) pushBack(d *sendDesc) {
	if l.back != nil {
		l.back.next = d
	} else {
		l.front = d
	}
	l.back = d
}

func (l *sendList) popFront() *sendDesc {
	d := l.front
	if d == nil {
		return nil
	}
	l.front = d.next
	if l.front == nil {
		l.back = nil
	}
	d.next = nil
	return d
}

// remove unlinks the descriptor at the given position.
func (l *sendList) remove(index int) *sendDesc {
	if index == 0 {
		return l.popFront()
	}
	prev := l.front
	for i := 1; i < index; i++ {
		prev = prev.next
	}
	d := prev.next
	prev.next = d.next
	if prev.next == nil {
		l.back = prev
	}
	d.next = nil
	return d
}
