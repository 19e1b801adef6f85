package object

import (
	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// ReadPropertyData is a decoded ReadProperty request. ApplicationData is
// the caller's output buffer; its length bounds the encoded result.
type ReadPropertyData struct {
	ObjectType      bacnet.ObjectType
	ObjectInstance  uint32
	ObjectProperty  bacnet.PropertyID
	ArrayIndex      uint32
	ApplicationData []byte
}

// ReadProperty encodes the requested property into rp.ApplicationData and
// returns the number of octets written. Errors are *bacnet.Error values.
func (c *Commandable[T]) ReadProperty(rp *ReadPropertyData) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.objects.Get(rp.ObjectInstance)
	if p == nil {
		return 0, bacnet.ErrUnknownObject
	}

	var v bacapp.Value
	switch rp.ObjectProperty {
	case bacnet.PropObjectIdentifier:
		v = bacapp.ObjectIdentifier(bacnet.ObjectID{Type: c.kind.Type, Instance: rp.ObjectInstance})
	case bacnet.PropObjectName:
		v = bacapp.CharacterString(c.nameOf(rp.ObjectInstance, p))
	case bacnet.PropObjectType:
		v = bacapp.Enumerated(uint32(c.kind.Type))
	case bacnet.PropDescription:
		v = bacapp.CharacterString(p.description)
	case bacnet.PropPresentValue:
		v = c.kind.encode(p.presentValue())
	case bacnet.PropStatusFlags:
		v = bacapp.StatusFlags(bacnet.StatusFlags{OutOfService: p.outOfService})
	case bacnet.PropOutOfService:
		v = bacapp.Boolean(p.outOfService)
	case bacnet.PropUnits:
		v = bacapp.Enumerated(uint32(p.units))
	case bacnet.PropPriorityArray:
		return EncodeArray(rp.ApplicationData, rp.ArrayIndex, bacnet.MaxPriority, func(i int) bacapp.Value {
			if value, ok := p.priority.Slot(i); ok {
				return c.kind.encode(value)
			}
			return bacapp.Null()
		})
	case bacnet.PropRelinquishDefault:
		v = c.kind.encode(p.relinquishDefault)
	case bacnet.PropCOVIncrement:
		v = c.kind.encodeIncrement(p.cov.increment)
	default:
		return 0, bacnet.ErrUnknownProperty
	}

	if !IsArrayProperty(rp.ObjectProperty) && rp.ArrayIndex != bacnet.ArrayAll {
		return 0, bacnet.ErrPropertyIsNotAnArray
	}
	return encodeScalar(rp.ApplicationData, v)
}
