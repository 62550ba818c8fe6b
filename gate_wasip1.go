//go:build wasip1

package gain

import "unsafe"

// Wire-compatible with the wasi iovec layout expected by the gate ABI.
type iovec struct {
	base unsafe.Pointer
	size uintptr
}

//go:wasmimport gate io_65536
//go:noescape
func gateIO(
	recvVec unsafe.Pointer, recvVecLen uintptr, receivedBytes unsafe.Pointer,
	sendVec unsafe.Pointer, sendVecLen uintptr, sentBytes unsafe.Pointer,
	timeout int64,
) uint64

// gateHost calls the io function imported from the host.
type gateHost struct{}

func (gateHost) IO(recv, send [][]byte, timeout int64) (int, int, uint64) {
	var recvVec [2]iovec
	var sendVec [3]iovec

	recvLen := 0
	for _, b := range recv {
		if len(b) > 0 {
			recvVec[recvLen] = iovec{unsafe.Pointer(&b[0]), uintptr(len(b))}
			recvLen++
		}
	}

	sendLen := 0
	for _, b := range send {
		if len(b) > 0 {
			sendVec[sendLen] = iovec{unsafe.Pointer(&b[0]), uintptr(len(b))}
			sendLen++
		}
	}

	var received, sent uintptr
	flags := gateIO(
		unsafe.Pointer(&recvVec), uintptr(recvLen), unsafe.Pointer(&received),
		unsafe.Pointer(&sendVec), uintptr(sendLen), unsafe.Pointer(&sent),
		timeout,
	)
	return int(received), int(sent), flags
}

func defaultHost() Host {
	return gateHost{}
}
