// Package identity provides identity information for this execution
// context.
package identity

import "gate.computer/gain"

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("identity")
	}
	return service
}

const (
	callPrincipalID = 1
	callInstanceID  = 2
)

// PrincipalID gets an id of this program's owner, if any.
func PrincipalID() (string, bool) {
	return getID(callPrincipalID)
}

// InstanceID gets the instance id of this program invocation, if there is
// one. It may change if the program is suspended and resumed.
func InstanceID() (string, bool) {
	return getID(callInstanceID)
}

func getID(call byte) (id string, ok bool) {
	svc().Call([]byte{call}, func(reply []byte) {
		if len(reply) > 0 {
			id = string(reply)
			ok = true
		}
	})
	return
}
