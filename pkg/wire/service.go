package wire

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownService is returned by ParseService for an unrecognised name.
var ErrUnknownService = errors.New("unknown service")

// Service identifies the service carried by a request.
//
// Confirmed services use their BACnet confirmed service choice. Unconfirmed
// services are offset by 0x80 so both fit one byte without colliding.
type Service uint8

const (
	ServiceSubscribeCOV               Service = 5
	ServiceCreateObject               Service = 10
	ServiceDeleteObject               Service = 11
	ServiceReadProperty               Service = 12
	ServiceReadPropertyMultiple       Service = 14
	ServiceWriteProperty              Service = 15
	ServiceDeviceCommunicationControl Service = 17

	ServiceWhoHas Service = 0x80 | 7
)

var serviceNames = map[Service]string{
	ServiceSubscribeCOV:               "subscribe-cov",
	ServiceCreateObject:               "create-object",
	ServiceDeleteObject:               "delete-object",
	ServiceReadProperty:               "read-property",
	ServiceReadPropertyMultiple:       "read-property-multiple",
	ServiceWriteProperty:              "write-property",
	ServiceDeviceCommunicationControl: "device-communication-control",
	ServiceWhoHas:                     "who-has",
}

// String returns the service name.
func (s Service) String() string {
	if name, ok := serviceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("service(%d)", uint8(s))
}

// ParseService resolves a service name such as "write-property"
// (case-insensitive).
func ParseService(name string) (Service, error) {
	name = strings.ToLower(name)
	for s, n := range serviceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownService, name)
}

// IsValid reports whether s is a known service.
func (s Service) IsValid() bool {
	_, ok := serviceNames[s]
	return ok
}

// Confirmed reports whether the service expects a response.
func (s Service) Confirmed() bool {
	return s&0x80 == 0
}
