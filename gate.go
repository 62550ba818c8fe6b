package gain

// FlagStartedOrResumed is set in the flags word of the first I/O call after
// the program instance has been started or resumed by the host.
const FlagStartedOrResumed uint64 = 0x1

// Timeout values accepted by the host call.
const (
	ioBlock int64 = -1 // wait for traffic in either direction
	ioPoll  int64 = 0  // transfer what is possible right now
)

// A Host moves bytes between the guest and its environment. It is the one
// externally-callable primitive of the runtime: given receive buffers, send
// buffers and a nanosecond timeout it transfers bytes in both directions and
// reports how many moved. A timeout of -1 blocks, 0 polls.
//
// The production implementation is the gate wasm import (wasip1 builds
// only). Tests and embedders can substitute anything, typically a
// VirtualHost.
type Host interface {
	IO(recv, send [][]byte, timeout int64) (received, sent int, flags uint64)
}
