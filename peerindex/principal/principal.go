// Package principal finds program instances belonging to the same
// principal.
package principal

import (
	"encoding/binary"

	"gate.computer/gain"
	"gate.computer/gain/peer"
	"gate.computer/gain/peerindex"
)

// GroupName is the peer group name of the index.
const GroupName = "index/principal"

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("peerindex/principal")
	}
	return service
}

// Register this program instance in the index. The listener is invoked when
// a peer tries to connect and there isn't an ongoing connection process
// with that peer.
func Register(listener func(peerName string)) {
	peer.RegisterGroup(GroupName, listener)
	svc().SendInfo(nil)
}

// InstanceNames lists peers without group name prefixes.
func InstanceNames() ([]string, error) {
	return getInstanceNames(false)
}

// QualifiedInstanceNames lists peers with group name prefixes.
func QualifiedInstanceNames() ([]string, error) {
	return getInstanceNames(true)
}

func getInstanceNames(qualify bool) (list []string, err error) {
	svc().Call(nil, func(reply []byte) {
		if len(reply) < 4 {
			err = peerindex.NewError(0)
			return
		}
		if code := int16(binary.LittleEndian.Uint16(reply)); code != 0 {
			err = peerindex.NewError(code)
			return
		}

		count := int(binary.LittleEndian.Uint16(reply[2:]))
		list = make([]string, 0, count)
		reply = reply[4:]

		for i := 0; i < count; i++ {
			nameLen := int(reply[0])
			reply = reply[1:]

			name := string(reply[:nameLen])
			if qualify {
				name = GroupName + ":" + name
			}
			reply = reply[nameLen:]

			list = append(list, name)
		}
	})
	return
}
