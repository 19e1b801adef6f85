package inspect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Inspector errors.
var (
	ErrPartialPath = errors.New("path does not name a property")
	ErrNoTag       = errors.New("cannot infer value type")
)

// Target is a device whose properties can be inspected. The local
// service.DeviceService and a Remote both satisfy it.
type Target interface {
	ReadValues(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32) ([]bacapp.Value, error)
	ReadObject(id bacnet.ObjectID) (map[bacnet.PropertyID][]bacapp.Value, error)
	WriteValue(id bacnet.ObjectID, prop bacnet.PropertyID, index uint32, v bacapp.Value, priority uint8) error
}

// Inspector provides inspection and mutation capabilities for a device.
type Inspector struct {
	target Target
}

// NewInspector creates a new Inspector for the given target.
func NewInspector(target Target) *Inspector {
	return &Inspector{target: target}
}

// Target returns the inspected device.
func (i *Inspector) Target() Target {
	return i.target
}

// ObjectInfo represents object information for display.
type ObjectInfo struct {
	ID         bacnet.ObjectID
	Name       string
	Unit       string
	Properties []PropertyInfo
}

// PropertyInfo represents one property for display.
type PropertyInfo struct {
	ID     bacnet.PropertyID
	Values []bacapp.Value
}

// Property returns the values of prop, if present.
func (o *ObjectInfo) Property(prop bacnet.PropertyID) ([]bacapp.Value, bool) {
	for _, p := range o.Properties {
		if p.ID == prop {
			return p.Values, true
		}
	}
	return nil, false
}

// ListObjects returns the object list of the device.
func (i *Inspector) ListObjects() ([]bacnet.ObjectID, error) {
	vs, err := i.target.ReadValues(localDevice, bacnet.PropObjectList, bacnet.ArrayAll)
	if err != nil {
		return nil, err
	}
	ids := make([]bacnet.ObjectID, 0, len(vs))
	for _, v := range vs {
		if v.Tag == bacapp.TagObjectID {
			ids = append(ids, v.ObjectID)
		}
	}
	return ids, nil
}

// Read reads the property named by path.
func (i *Inspector) Read(path *Path) ([]bacapp.Value, error) {
	if path.IsPartial {
		return nil, ErrPartialPath
	}
	return i.target.ReadValues(path.Object, path.Property, path.ArrayIndex)
}

// ReadAll reads every property of an object, ordered by property id.
func (i *Inspector) ReadAll(id bacnet.ObjectID) (*ObjectInfo, error) {
	props, err := i.target.ReadObject(id)
	if err != nil {
		return nil, err
	}

	info := &ObjectInfo{ID: id}
	for prop, vs := range props {
		info.Properties = append(info.Properties, PropertyInfo{ID: prop, Values: vs})
		if len(vs) != 1 {
			continue
		}
		switch prop {
		case bacnet.PropObjectIdentifier:
			if vs[0].Tag == bacapp.TagObjectID {
				info.ID = vs[0].ObjectID
			}
		case bacnet.PropObjectName:
			info.Name = vs[0].CharacterString
		case bacnet.PropUnits:
			if vs[0].Tag == bacapp.TagEnumerated {
				info.Unit = bacnet.EngineeringUnits(vs[0].Enumerated).String()
			}
		}
	}
	sort.Slice(info.Properties, func(a, b int) bool {
		return info.Properties[a].ID < info.Properties[b].ID
	})
	return info, nil
}

// Write parses text as a value of the property's current type and writes it
// at priority. "null" relinquishes the slot.
func (i *Inspector) Write(path *Path, text string, priority uint8) error {
	if path.IsPartial {
		return ErrPartialPath
	}
	tag, err := i.valueTag(path)
	if err != nil {
		return err
	}
	v, err := bacapp.ParseValue(tag, text)
	if err != nil {
		return err
	}
	return i.target.WriteValue(path.Object, path.Property, path.ArrayIndex, v, priority)
}

// WriteTagged writes text parsed as a value of the given tag.
func (i *Inspector) WriteTagged(path *Path, tag bacapp.Tag, text string, priority uint8) error {
	if path.IsPartial {
		return ErrPartialPath
	}
	v, err := bacapp.ParseValue(tag, text)
	if err != nil {
		return err
	}
	return i.target.WriteValue(path.Object, path.Property, path.ArrayIndex, v, priority)
}

// Relinquish releases the present-value command of an object at priority.
func (i *Inspector) Relinquish(id bacnet.ObjectID, priority uint8) error {
	return i.target.WriteValue(id, bacnet.PropPresentValue, bacnet.ArrayAll, bacapp.Null(), priority)
}

// valueTag infers the tag of a written value from the property's current
// value, falling back to the present value for relinquished priority slots.
func (i *Inspector) valueTag(path *Path) (bacapp.Tag, error) {
	vs, err := i.target.ReadValues(path.Object, path.Property, path.ArrayIndex)
	if err != nil {
		return 0, err
	}
	if len(vs) == 1 && vs[0].Tag != bacapp.TagNull {
		return vs[0].Tag, nil
	}
	if path.Property != bacnet.PropPriorityArray {
		return 0, fmt.Errorf("%w: %s", ErrNoTag, path.Property)
	}
	pv, err := i.target.ReadValues(path.Object, bacnet.PropPresentValue, bacnet.ArrayAll)
	if err != nil {
		return 0, err
	}
	if len(pv) != 1 {
		return 0, fmt.Errorf("%w: %s", ErrNoTag, path.Property)
	}
	return pv[0].Tag, nil
}

var localDevice = bacnet.ObjectID{Type: bacnet.ObjectDevice, Instance: bacnet.MaxInstance}
