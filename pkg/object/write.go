package object

import (
	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// WritePropertyData is a decoded WriteProperty request. ApplicationData
// holds one application-tagged value.
type WritePropertyData struct {
	ObjectType      bacnet.ObjectType
	ObjectInstance  uint32
	ObjectProperty  bacnet.PropertyID
	ArrayIndex      uint32
	Priority        uint8
	ApplicationData []byte
}

// WriteProperty applies a write request. A rejected write leaves the
// object unchanged. Errors are *bacnet.Error values.
func (c *Commandable[T]) WriteProperty(wp *WritePropertyData) error {
	value, _, err := bacapp.Decode(wp.ApplicationData)
	if err != nil {
		return bacnet.ErrValueOutOfRange
	}
	if !IsArrayProperty(wp.ObjectProperty) && wp.ArrayIndex != bacnet.ArrayAll {
		return bacnet.ErrPropertyIsNotAnArray
	}

	if wp.ObjectProperty == bacnet.PropObjectName {
		if value.Tag != bacapp.TagCharacterString {
			return bacnet.ErrInvalidDataType
		}
		return c.SetObjectName(wp.ObjectInstance, value.CharacterString)
	}

	return c.with(wp.ObjectInstance, func(p *point[T]) error {
		switch wp.ObjectProperty {
		case bacnet.PropPresentValue:
			return c.writePresentValue(p, value, wp.Priority)

		case bacnet.PropCOVIncrement:
			inc, err := c.kind.decodeIncrement(value)
			if err != nil {
				return err
			}
			p.cov.increment = inc
			p.cov.detect(p.presentValue())
			return nil

		case bacnet.PropOutOfService:
			if value.Tag != bacapp.TagBoolean {
				return bacnet.ErrInvalidDataType
			}
			setOutOfService(p, value.Boolean)
			return nil

		case bacnet.PropDescription:
			if value.Tag != bacapp.TagCharacterString {
				return bacnet.ErrInvalidDataType
			}
			p.description = value.CharacterString
			return nil

		default:
			if c.PropertyLists().Member(wp.ObjectProperty) {
				return bacnet.ErrWriteAccessDenied
			}
			return bacnet.ErrUnknownProperty
		}
	})
}

// writePresentValue commands a value of the object's own tag or
// relinquishes on null. Any other tag is an invalid data type, whatever
// the priority.
func (c *Commandable[T]) writePresentValue(p *point[T], value bacapp.Value, priority uint8) error {
	if value.Tag != c.kind.ValueTag && value.Tag != bacapp.TagNull {
		return bacnet.ErrInvalidDataType
	}
	if err := validPriority(priority, false); err != nil {
		return err
	}
	if value.Tag == bacapp.TagNull {
		p.priority.Relinquish(priority)
	} else {
		p.priority.Command(c.kind.decode(value), priority)
	}
	p.cov.detect(p.presentValue())
	return nil
}
