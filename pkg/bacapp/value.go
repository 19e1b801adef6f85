package bacapp

import (
	"fmt"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// MaxAPDU is the largest application payload a single unsegmented
// response can carry.
const MaxAPDU = 1476

// Tag is an application tag number.
type Tag uint8

const (
	TagNull            Tag = 0
	TagBoolean         Tag = 1
	TagUnsigned        Tag = 2
	TagSigned          Tag = 3
	TagReal            Tag = 4
	TagDouble          Tag = 5
	TagOctetString     Tag = 6
	TagCharacterString Tag = 7
	TagBitString       Tag = 8
	TagEnumerated      Tag = 9
	TagDate            Tag = 10
	TagTime            Tag = 11
	TagObjectID        Tag = 12
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBoolean:
		return "boolean"
	case TagUnsigned:
		return "unsigned"
	case TagSigned:
		return "signed"
	case TagReal:
		return "real"
	case TagDouble:
		return "double"
	case TagOctetString:
		return "octet-string"
	case TagCharacterString:
		return "character-string"
	case TagBitString:
		return "bit-string"
	case TagEnumerated:
		return "enumerated"
	case TagDate:
		return "date"
	case TagTime:
		return "time"
	case TagObjectID:
		return "object-identifier"
	default:
		return fmt.Sprintf("tag-%d", uint8(t))
	}
}

// Value is a decoded application value. Only the field matching Tag is
// meaningful.
type Value struct {
	Tag             Tag
	Boolean         bool
	Unsigned        uint32
	Signed          int32
	Real            float32
	Double          float64
	OctetString     []byte
	CharacterString string
	BitString       BitString
	Enumerated      uint32
	ObjectID        bacnet.ObjectID
}

// Null returns the null value.
func Null() Value { return Value{Tag: TagNull} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{Tag: TagBoolean, Boolean: b} }

// Unsigned returns an unsigned integer value.
func Unsigned(v uint32) Value { return Value{Tag: TagUnsigned, Unsigned: v} }

// Signed returns a signed integer value.
func Signed(v int32) Value { return Value{Tag: TagSigned, Signed: v} }

// Real returns a single precision value.
func Real(v float32) Value { return Value{Tag: TagReal, Real: v} }

// Double returns a double precision value.
func Double(v float64) Value { return Value{Tag: TagDouble, Double: v} }

// OctetString returns an octet string value.
func OctetString(b []byte) Value { return Value{Tag: TagOctetString, OctetString: b} }

// CharacterString returns a UTF-8 character string value.
func CharacterString(s string) Value { return Value{Tag: TagCharacterString, CharacterString: s} }

// Enumerated returns an enumerated value.
func Enumerated(v uint32) Value { return Value{Tag: TagEnumerated, Enumerated: v} }

// ObjectIdentifier returns an object identifier value.
func ObjectIdentifier(id bacnet.ObjectID) Value { return Value{Tag: TagObjectID, ObjectID: id} }

// Bits returns a bit string value.
func Bits(bs BitString) Value { return Value{Tag: TagBitString, BitString: bs} }

// StatusFlags returns the four-bit status-flags bit string.
func StatusFlags(sf bacnet.StatusFlags) Value {
	bs := NewBitString(4)
	bs.Set(bacnet.StatusFlagInAlarm, sf.InAlarm)
	bs.Set(bacnet.StatusFlagFault, sf.Fault)
	bs.Set(bacnet.StatusFlagOverridden, sf.Overridden)
	bs.Set(bacnet.StatusFlagOutOfService, sf.OutOfService)
	return Bits(bs)
}

// Interface returns the Go value carried by v, for JSON and display.
func (v Value) Interface() any {
	switch v.Tag {
	case TagNull:
		return nil
	case TagBoolean:
		return v.Boolean
	case TagUnsigned:
		return v.Unsigned
	case TagSigned:
		return v.Signed
	case TagReal:
		return v.Real
	case TagDouble:
		return v.Double
	case TagOctetString:
		return v.OctetString
	case TagCharacterString:
		return v.CharacterString
	case TagBitString:
		return v.BitString.String()
	case TagEnumerated:
		return v.Enumerated
	case TagObjectID:
		return v.ObjectID.String()
	default:
		return nil
	}
}

// String formats the value for display.
func (v Value) String() string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagOctetString:
		return fmt.Sprintf("%X", v.OctetString)
	case TagCharacterString:
		return fmt.Sprintf("%q", v.CharacterString)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Equal reports whether two values carry the same tag and content.
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case TagNull:
		return true
	case TagOctetString:
		return string(v.OctetString) == string(o.OctetString)
	case TagBitString:
		return v.BitString.Equal(o.BitString)
	default:
		return v.Interface() == o.Interface()
	}
}

// PropertyValue pairs a property with a value, as used in change-of-value
// notifications.
type PropertyValue struct {
	Property   bacnet.PropertyID
	ArrayIndex uint32
	Value      Value
	Priority   uint8
}
