package bacnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Protocol constants.
const (
	// MaxInstance is the largest 22-bit instance number. It is reserved as
	// the wildcard / not-found sentinel and is never assigned to an object.
	MaxInstance uint32 = 0x3FFFFF

	// MaxObjectType is the largest 10-bit object type.
	MaxObjectType = 0x3FF

	// MaxPriority is the number of slots in a priority array.
	MaxPriority = 16

	// MinimumOnOffPriority is reserved for minimum on/off time handling.
	MinimumOnOffPriority = 6

	// ArrayAll selects the whole array (no array index supplied).
	ArrayAll uint32 = 0xFFFFFFFF

	instanceBits = 22
)

// ObjectType identifies the kind of a BACnet object.
type ObjectType uint16

const (
	ObjectAnalogInput          ObjectType = 0
	ObjectAnalogOutput         ObjectType = 1
	ObjectAnalogValue          ObjectType = 2
	ObjectBinaryInput          ObjectType = 3
	ObjectBinaryOutput         ObjectType = 4
	ObjectBinaryValue          ObjectType = 5
	ObjectCalendar             ObjectType = 6
	ObjectDevice               ObjectType = 8
	ObjectMultiStateInput      ObjectType = 13
	ObjectMultiStateOutput     ObjectType = 14
	ObjectNotificationClass    ObjectType = 15
	ObjectSchedule             ObjectType = 17
	ObjectMultiStateValue      ObjectType = 19
	ObjectTrendLog             ObjectType = 20
	ObjectIntegerValue         ObjectType = 45
	ObjectLargeAnalogValue     ObjectType = 46
	ObjectPositiveIntegerValue ObjectType = 48
)

var objectTypeNames = map[ObjectType]string{
	ObjectAnalogInput:          "analog-input",
	ObjectAnalogOutput:         "analog-output",
	ObjectAnalogValue:          "analog-value",
	ObjectBinaryInput:          "binary-input",
	ObjectBinaryOutput:         "binary-output",
	ObjectBinaryValue:          "binary-value",
	ObjectCalendar:             "calendar",
	ObjectDevice:               "device",
	ObjectMultiStateInput:      "multi-state-input",
	ObjectMultiStateOutput:     "multi-state-output",
	ObjectNotificationClass:    "notification-class",
	ObjectSchedule:             "schedule",
	ObjectMultiStateValue:      "multi-state-value",
	ObjectTrendLog:             "trend-log",
	ObjectIntegerValue:         "integer-value",
	ObjectLargeAnalogValue:     "large-analog-value",
	ObjectPositiveIntegerValue: "positive-integer-value",
}

// String returns the kebab-case object type name, or the number for
// types without a name.
func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// ErrUnknownObjectType is returned by ParseObjectType.
var ErrUnknownObjectType = errors.New("unknown object type")

// ParseObjectType resolves a name ("analog-value") or a decimal number.
func ParseObjectType(s string) (ObjectType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range objectTypeNames {
		if name == s {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n > MaxObjectType {
		return 0, fmt.Errorf("%w: %q", ErrUnknownObjectType, s)
	}
	return ObjectType(n), nil
}

// ObjectID is a (type, instance) object identifier.
type ObjectID struct {
	Type     ObjectType `json:"type" cbor:"1,keyasint"`
	Instance uint32     `json:"instance" cbor:"2,keyasint"`
}

// ErrInvalidObjectID is returned when an identifier cannot be packed.
var ErrInvalidObjectID = errors.New("invalid object identifier")

// Valid reports whether the identifier fits the 10/22 bit layout.
func (o ObjectID) Valid() bool {
	return o.Type <= MaxObjectType && o.Instance <= MaxInstance
}

// Encode packs the identifier into its 32-bit wire form.
func (o ObjectID) Encode() (uint32, error) {
	if !o.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidObjectID, o)
	}
	return uint32(o.Type)<<instanceBits | o.Instance, nil
}

// DecodeObjectID unpacks a 32-bit wire identifier.
func DecodeObjectID(v uint32) ObjectID {
	return ObjectID{
		Type:     ObjectType(v >> instanceBits),
		Instance: v & MaxInstance,
	}
}

// String returns "type:instance".
func (o ObjectID) String() string {
	return fmt.Sprintf("%s:%d", o.Type, o.Instance)
}
