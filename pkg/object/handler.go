package object

import (
	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Handler is the contract every object type exposes to the device layer.
// *Commandable satisfies it for each of its value types.
type Handler interface {
	ObjectType() bacnet.ObjectType

	Create(instance uint32) (uint32, error)
	Delete(instance uint32) bool
	Cleanup()
	Count() int
	IndexToInstance(index int) uint32
	InstanceToIndex(instance uint32) (int, bool)
	Instances() []uint32
	ValidInstance(instance uint32) bool

	ObjectName(instance uint32) (string, bool)
	SetObjectName(instance uint32, name string) error
	SetNameCheck(fn NameCheck)
	PropertyLists() PropertyLists

	ReadProperty(rp *ReadPropertyData) (int, error)
	WriteProperty(wp *WritePropertyData) error

	ChangeOfValue(instance uint32) bool
	TakeChangeOfValue(instance uint32) ([]bacapp.PropertyValue, bool)
	EncodeValueList(instance uint32) ([]bacapp.PropertyValue, error)

	Snapshot() []Snapshot
	Restore(snaps []Snapshot) error
}

var (
	_ Handler = (*Commandable[uint32])(nil)
	_ Handler = (*Commandable[int32])(nil)
	_ Handler = (*Commandable[float32])(nil)
)

// EncodeValueList returns the change-of-value list of an object: its
// present value and its status flags, which carry the out-of-service bit.
func (c *Commandable[T]) EncodeValueList(instance uint32) ([]bacapp.PropertyValue, error) {
	var list []bacapp.PropertyValue
	err := c.with(instance, func(p *point[T]) error {
		list = c.valueList(p)
		return nil
	})
	return list, err
}

// TakeChangeOfValue acknowledges a pending change and returns the value
// list it reports. Both happen under one lock, so a write that lands
// afterwards latches the flag again. It returns false when the flag is
// clear or the object does not exist.
func (c *Commandable[T]) TakeChangeOfValue(instance uint32) ([]bacapp.PropertyValue, bool) {
	var list []bacapp.PropertyValue
	_ = c.with(instance, func(p *point[T]) error {
		if !p.cov.changed {
			return nil
		}
		list = c.valueList(p)
		p.cov.clear()
		return nil
	})
	return list, list != nil
}

func (c *Commandable[T]) valueList(p *point[T]) []bacapp.PropertyValue {
	return []bacapp.PropertyValue{
		{
			Property:   bacnet.PropPresentValue,
			ArrayIndex: bacnet.ArrayAll,
			Value:      c.kind.encode(p.presentValue()),
		},
		{
			Property:   bacnet.PropStatusFlags,
			ArrayIndex: bacnet.ArrayAll,
			Value:      bacapp.StatusFlags(bacnet.StatusFlags{OutOfService: p.outOfService}),
		},
	}
}
