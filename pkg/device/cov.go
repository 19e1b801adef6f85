package device

import (
	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// SupportsCOV reports whether id is an existing object that produces
// change-of-value lists. The device object does not.
func (d *Device) SupportsCOV(id bacnet.ObjectID) bool {
	if id.Type == bacnet.ObjectDevice {
		return false
	}
	h, ok := d.Handler(id.Type)
	return ok && h.ValidInstance(id.Instance)
}

// ChangedObjects returns every object whose changed flag is set.
func (d *Device) ChangedObjects() []bacnet.ObjectID {
	var ids []bacnet.ObjectID
	for _, h := range d.Handlers() {
		for _, inst := range h.Instances() {
			if h.ChangeOfValue(inst) {
				ids = append(ids, bacnet.ObjectID{Type: h.ObjectType(), Instance: inst})
			}
		}
	}
	return ids
}

// TakeChangeOfValue acknowledges the changed flag of an object and returns
// the value list being reported, in one step. It returns false when there
// is nothing to report.
func (d *Device) TakeChangeOfValue(id bacnet.ObjectID) ([]bacapp.PropertyValue, bool) {
	h, ok := d.Handler(id.Type)
	if !ok {
		return nil, false
	}
	return h.TakeChangeOfValue(id.Instance)
}

// EncodeValueList returns the change-of-value list of an object.
func (d *Device) EncodeValueList(id bacnet.ObjectID) ([]bacapp.PropertyValue, error) {
	h, ok := d.Handler(id.Type)
	if !ok {
		return nil, bacnet.ErrUnknownObject
	}
	return h.EncodeValueList(id.Instance)
}
