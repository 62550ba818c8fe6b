// Package scope restricts execution privileges.
package scope

import (
	"encoding/binary"

	"gate.computer/gain"
)

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("scope")
	}
	return service
}

const callRestrict = 0

// System represents system access.
const System = "program:system"

// Restrict execution privileges to the specified set. Privileges cannot be
// added; each invocation can only remove privileges (extraneous scope is
// ignored). Actual privileges depend also on the execution environment, and
// may vary during program execution.
func Restrict(scope ...string) {
	if len(scope) > 255 {
		panic("scope is too large")
	}

	size := 1 + 1
	for _, s := range scope {
		if len(s) > 255 {
			panic("scope string is too long")
		}
		size += 1 + len(s)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, callRestrict, byte(len(scope)))
	for _, s := range scope {
		buf = append(buf, byte(len(s)))
		buf = append(buf, s...)
	}

	svc().Call(buf, func(reply []byte) {
		if len(reply) < 2 {
			panic("unknown scope service call")
		}
		if code := int16(binary.LittleEndian.Uint16(reply)); code != 0 {
			panic("unexpected scope service call error")
		}
	})
}
