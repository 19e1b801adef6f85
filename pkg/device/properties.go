package device

import (
	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
	"github.com/bacnet-stack/bacnet-go/pkg/object"
)

// Fixed device object values.
const (
	ProtocolVersion     = 1
	SegmentationNone    = 3
	MaxAPDULengthAccept = bacapp.MaxAPDU
)

var deviceProperties = object.PropertyLists{
	Required: []bacnet.PropertyID{
		bacnet.PropObjectIdentifier,
		bacnet.PropObjectName,
		bacnet.PropObjectType,
		bacnet.PropSystemStatus,
		bacnet.PropVendorName,
		bacnet.PropVendorIdentifier,
		bacnet.PropModelName,
		bacnet.PropFirmwareRevision,
		bacnet.PropApplicationSoftwareVersion,
		bacnet.PropProtocolVersion,
		bacnet.PropObjectList,
		bacnet.PropMaxAPDULengthAccepted,
		bacnet.PropSegmentationSupported,
		bacnet.PropDatabaseRevision,
	},
	Optional: []bacnet.PropertyID{
		bacnet.PropDescription,
		bacnet.PropLocation,
	},
}

// PropertyLists returns the declared properties of an object type.
func (d *Device) PropertyLists(t bacnet.ObjectType) (object.PropertyLists, bool) {
	if t == bacnet.ObjectDevice {
		return deviceProperties, true
	}
	h, ok := d.Handler(t)
	if !ok {
		return object.PropertyLists{}, false
	}
	return h.PropertyLists(), true
}

// ReadProperty routes a read to the device object or to the handler of
// the object type.
func (d *Device) ReadProperty(rp *object.ReadPropertyData) (int, error) {
	id := bacnet.ObjectID{Type: rp.ObjectType, Instance: rp.ObjectInstance}
	if d.isDevice(id) {
		return d.readDevice(rp)
	}
	h, ok := d.Handler(rp.ObjectType)
	if !ok {
		return 0, bacnet.ErrUnknownObject
	}
	return h.ReadProperty(rp)
}

// WriteProperty routes a write to the device object or to the handler of
// the object type.
func (d *Device) WriteProperty(wp *object.WritePropertyData) error {
	id := bacnet.ObjectID{Type: wp.ObjectType, Instance: wp.ObjectInstance}
	if d.isDevice(id) {
		return d.writeDevice(wp)
	}
	h, ok := d.Handler(wp.ObjectType)
	if !ok {
		return bacnet.ErrUnknownObject
	}
	if wp.ObjectProperty == bacnet.PropObjectName {
		d.names.Lock()
		defer d.names.Unlock()
	}
	if err := h.WriteProperty(wp); err != nil {
		return err
	}
	if wp.ObjectProperty == bacnet.PropObjectName {
		d.bumpRevision()
	}
	return nil
}

func (d *Device) readDevice(rp *object.ReadPropertyData) (int, error) {
	if rp.ObjectProperty == bacnet.PropObjectList {
		ids := d.ObjectList()
		return object.EncodeArray(rp.ApplicationData, rp.ArrayIndex, len(ids), func(i int) bacapp.Value {
			return bacapp.ObjectIdentifier(ids[i])
		})
	}

	d.mu.RLock()
	cfg, status, revision := d.cfg, d.status, d.revision
	d.mu.RUnlock()

	var v bacapp.Value
	switch rp.ObjectProperty {
	case bacnet.PropObjectIdentifier:
		v = bacapp.ObjectIdentifier(d.ID())
	case bacnet.PropObjectName:
		v = bacapp.CharacterString(cfg.Name)
	case bacnet.PropObjectType:
		v = bacapp.Enumerated(uint32(bacnet.ObjectDevice))
	case bacnet.PropSystemStatus:
		v = bacapp.Enumerated(uint32(status))
	case bacnet.PropVendorName:
		v = bacapp.CharacterString(cfg.VendorName)
	case bacnet.PropVendorIdentifier:
		v = bacapp.Unsigned(cfg.VendorID)
	case bacnet.PropModelName:
		v = bacapp.CharacterString(cfg.ModelName)
	case bacnet.PropFirmwareRevision:
		v = bacapp.CharacterString(cfg.FirmwareVersion)
	case bacnet.PropApplicationSoftwareVersion:
		v = bacapp.CharacterString(cfg.SoftwareVersion)
	case bacnet.PropProtocolVersion:
		v = bacapp.Unsigned(ProtocolVersion)
	case bacnet.PropMaxAPDULengthAccepted:
		v = bacapp.Unsigned(MaxAPDULengthAccept)
	case bacnet.PropSegmentationSupported:
		v = bacapp.Enumerated(SegmentationNone)
	case bacnet.PropDatabaseRevision:
		v = bacapp.Unsigned(revision)
	case bacnet.PropDescription:
		v = bacapp.CharacterString(cfg.Description)
	case bacnet.PropLocation:
		v = bacapp.CharacterString(cfg.Location)
	default:
		return 0, bacnet.ErrUnknownProperty
	}

	if rp.ArrayIndex != bacnet.ArrayAll {
		return 0, bacnet.ErrPropertyIsNotAnArray
	}
	n, err := bacapp.Encode(rp.ApplicationData, v)
	if err != nil {
		return 0, bacnet.ErrAbortSegmentationNotSupported
	}
	return n, nil
}

func (d *Device) writeDevice(wp *object.WritePropertyData) error {
	value, _, err := bacapp.Decode(wp.ApplicationData)
	if err != nil {
		return bacnet.ErrValueOutOfRange
	}
	if !object.IsArrayProperty(wp.ObjectProperty) && wp.ArrayIndex != bacnet.ArrayAll {
		return bacnet.ErrPropertyIsNotAnArray
	}

	switch wp.ObjectProperty {
	case bacnet.PropObjectName:
		if value.Tag != bacapp.TagCharacterString {
			return bacnet.ErrInvalidDataType
		}
		return d.SetObjectName(d.ID(), value.CharacterString)
	case bacnet.PropDescription, bacnet.PropLocation:
		if value.Tag != bacapp.TagCharacterString {
			return bacnet.ErrInvalidDataType
		}
		if wp.ObjectProperty == bacnet.PropDescription {
			d.SetDescription(value.CharacterString)
		} else {
			d.SetLocation(value.CharacterString)
		}
		return nil
	default:
		if deviceProperties.Member(wp.ObjectProperty) {
			return bacnet.ErrWriteAccessDenied
		}
		return bacnet.ErrUnknownProperty
	}
}
