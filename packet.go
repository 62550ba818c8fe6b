package gain

import "encoding/binary"

// Packet layout. Every packet starts with a fixed 8-byte header and is
// padded to an 8-byte boundary on the wire; the size field excludes the
// padding. All integers are little-endian.
const (
	headerSize         = 8
	flowSize           = 8
	dataHeaderSize     = headerSize + 8
	servicesHeaderSize = headerSize + 2
	alignment          = 8

	// MaxPacketSize is the largest packet the host delivers or accepts.
	MaxPacketSize = 65536
)

// Code identifies a registered service. Codes are assigned sequentially
// from zero; -1 addresses the service registry itself.
type Code int16

const codeServices Code = -1

// StreamID identifies a stream within a service. Ids are non-negative.
type StreamID int32

type domain uint8

const (
	domainCall domain = 0
	domainInfo domain = 1
	domainFlow domain = 2
	domainData domain = 3
)

const serviceStateAvail = 0x1

// align rounds a byte count up to the wire alignment.
func align(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

func putHeader(p []byte, size int, code Code, dom domain) {
	binary.LittleEndian.PutUint32(p, uint32(size))
	binary.LittleEndian.PutUint16(p[4:], uint16(code))
	p[6] = byte(dom)
	p[7] = 0
}

func packetSize(p []byte) int {
	return int(binary.LittleEndian.Uint32(p))
}

func packetCode(p []byte) Code {
	return Code(binary.LittleEndian.Uint16(p[4:]))
}

func packetDomain(p []byte) domain {
	return domain(p[6])
}

// packetIndex is the position of a call reply in the addressed service's
// reply queue. The host delivers replies in submission order.
func packetIndex(p []byte) int {
	return int(p[7])
}

func putDataHeader(p []byte, size int, code Code, id StreamID, note int32) {
	putHeader(p, size, code, domainData)
	binary.LittleEndian.PutUint32(p[headerSize:], uint32(id))
	binary.LittleEndian.PutUint32(p[headerSize+4:], uint32(note))
}

func dataID(p []byte) StreamID {
	return StreamID(binary.LittleEndian.Uint32(p[headerSize:]))
}

func dataNote(p []byte) int32 {
	return int32(binary.LittleEndian.Uint32(p[headerSize+4:]))
}

func flowCount(p []byte) int {
	return (len(p) - headerSize) / flowSize
}

func putFlow(p []byte, index int, id StreamID, increment int32) {
	entry := p[headerSize+flowSize*index:]
	binary.LittleEndian.PutUint32(entry, uint32(id))
	binary.LittleEndian.PutUint32(entry[4:], uint32(increment))
}

func flowAt(p []byte, index int) (StreamID, int32) {
	entry := p[headerSize+flowSize*index:]
	id := StreamID(binary.LittleEndian.Uint32(entry))
	increment := int32(binary.LittleEndian.Uint32(entry[4:]))
	return id, increment
}

func putServicesHeader(p []byte, size int, count int) {
	putHeader(p, size, codeServices, domainCall)
	binary.LittleEndian.PutUint16(p[headerSize:], uint16(count))
}

// serviceStates returns the availability flag bytes of a registry packet,
// one byte per service in code order.
func serviceStates(p []byte) []byte {
	count := int(binary.LittleEndian.Uint16(p[headerSize:]))
	return p[servicesHeaderSize : servicesHeaderSize+count]
}
