// Package catalog accesses the programmer-readable catalog of available
// services.
package catalog

import (
	jsoniter "github.com/json-iterator/go"

	"gate.computer/gain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var service *gain.Service

func svc() *gain.Service {
	if service == nil {
		service = gain.Register("catalog")
	}
	return service
}

// Service is one entry of the catalog document.
type Service struct {
	Name     string `json:"name"`
	Revision string `json:"revision,omitempty"`
}

type document struct {
	Services []Service `json:"services"`
}

// JSON gets the document describing available services.
func JSON() string {
	var doc string
	svc().Call([]byte("json"), func(reply []byte) {
		doc = string(reply)
	})
	return doc
}

// Services gets the catalog entries in decoded form.
func Services() ([]Service, error) {
	return Decode([]byte(JSON()))
}

// Decode parses a catalog document.
func Decode(doc []byte) ([]Service, error) {
	var d document
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, err
	}
	return d.Services, nil
}
