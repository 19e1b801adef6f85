package object

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// point is one commandable object. The present value is never stored; it
// is resolved from the priority array on every access.
type point[T Numeric] struct {
	name              string
	description       string
	units             bacnet.EngineeringUnits
	outOfService      bool
	relinquishDefault T
	priority          PriorityArray[T]
	cov               changeDetector[T]
}

func (p *point[T]) presentValue() T {
	return p.priority.Resolve(p.relinquishDefault)
}

// NameCheck vets a new object name. It returns bacnet.ErrDuplicateName
// when another object already uses the name.
type NameCheck func(id bacnet.ObjectID, name string) error

// Commandable is one object type whose present value is arbitrated by a
// priority array. All methods are safe for concurrent use; each call is
// applied atomically.
type Commandable[T Numeric] struct {
	mu        sync.Mutex
	kind      Kind[T]
	objects   *Registry[point[T]]
	nameCheck NameCheck
}

// NewCommandable returns an empty object type described by kind.
func NewCommandable[T Numeric](kind Kind[T]) *Commandable[T] {
	return &Commandable[T]{
		kind:    kind,
		objects: NewRegistry[point[T]](),
	}
}

// ObjectType returns the object type served.
func (c *Commandable[T]) ObjectType() bacnet.ObjectType {
	return c.kind.Type
}

// SetNameCheck installs the hook consulted before an object is renamed.
func (c *Commandable[T]) SetNameCheck(fn NameCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nameCheck = fn
}

func (c *Commandable[T]) newPoint() *point[T] {
	return &point[T]{
		units:    c.kind.DefaultUnits,
		priority: NewPriorityArray[T](),
		cov:      changeDetector[T]{increment: 1},
	}
}

// Create adds an object and returns its instance. See Registry.Create for
// the wildcard and idempotency rules.
func (c *Commandable[T]) Create(instance uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.Create(instance, c.newPoint)
}

// Delete removes an object and reports whether it existed.
func (c *Commandable[T]) Delete(instance uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.Delete(instance)
}

// Cleanup removes every object.
func (c *Commandable[T]) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects.Clear()
}

// Count returns the number of objects.
func (c *Commandable[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.Count()
}

// IndexToInstance returns the instance at index in ascending order, or
// bacnet.MaxInstance.
func (c *Commandable[T]) IndexToInstance(index int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.IndexToInstance(index)
}

// InstanceToIndex returns the ascending position of instance.
func (c *Commandable[T]) InstanceToIndex(instance uint32) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.InstanceToIndex(instance)
}

// Instances returns all instances in ascending order.
func (c *Commandable[T]) Instances() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.Instances()
}

// ValidInstance reports whether instance exists.
func (c *Commandable[T]) ValidInstance(instance uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.Get(instance) != nil
}

// with runs fn on the object under the lock.
func (c *Commandable[T]) with(instance uint32, fn func(p *point[T]) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.objects.Get(instance)
	if p == nil {
		return bacnet.ErrUnknownObject
	}
	return fn(p)
}

// PresentValue returns the resolved present value.
func (c *Commandable[T]) PresentValue(instance uint32) (T, bool) {
	var v T
	err := c.with(instance, func(p *point[T]) error {
		v = p.presentValue()
		return nil
	})
	return v, err == nil
}

// Write commands value at priority. Priority 6 is reserved and rejected
// with bacnet.ErrWriteAccessDenied; priorities outside 1..16 fail with
// bacnet.ErrValueOutOfRange.
func (c *Commandable[T]) Write(instance uint32, value T, priority uint8) error {
	return c.command(instance, value, priority, false)
}

// SetPresentValue commands value at priority without reserving priority 6.
// It is meant for local control logic, not remote writes.
func (c *Commandable[T]) SetPresentValue(instance uint32, value T, priority uint8) error {
	return c.command(instance, value, priority, true)
}

func (c *Commandable[T]) command(instance uint32, value T, priority uint8, internal bool) error {
	return c.with(instance, func(p *point[T]) error {
		if err := validPriority(priority, internal); err != nil {
			return err
		}
		p.priority.Command(value, priority)
		p.cov.detect(p.presentValue())
		return nil
	})
}

// Relinquish releases priority. The priority rules match Write.
func (c *Commandable[T]) Relinquish(instance uint32, priority uint8) error {
	return c.with(instance, func(p *point[T]) error {
		if err := validPriority(priority, false); err != nil {
			return err
		}
		p.priority.Relinquish(priority)
		p.cov.detect(p.presentValue())
		return nil
	})
}

// PriorityArraySlot returns the value commanded at index 0..15 and whether
// the slot is occupied.
func (c *Commandable[T]) PriorityArraySlot(instance uint32, index int) (T, bool) {
	var (
		v  T
		ok bool
	)
	if index < 0 || index >= bacnet.MaxPriority {
		return v, false
	}
	_ = c.with(instance, func(p *point[T]) error {
		v, ok = p.priority.Slot(index)
		return nil
	})
	return v, ok
}

// ActivePriority returns the priority in control, or 0 when the relinquish
// default applies.
func (c *Commandable[T]) ActivePriority(instance uint32) uint8 {
	_, prio, _ := c.Commanded(instance)
	return prio
}

// Commanded returns the present value together with the priority in
// control, both read under one lock. The priority is 0 when the relinquish
// default applies.
func (c *Commandable[T]) Commanded(instance uint32) (T, uint8, bool) {
	var (
		v    T
		prio uint8
	)
	err := c.with(instance, func(p *point[T]) error {
		v = p.presentValue()
		prio = p.priority.Active()
		return nil
	})
	return v, prio, err == nil
}

// RelinquishDefault returns the fallback value.
func (c *Commandable[T]) RelinquishDefault(instance uint32) (T, bool) {
	var v T
	err := c.with(instance, func(p *point[T]) error {
		v = p.relinquishDefault
		return nil
	})
	return v, err == nil
}

// SetRelinquishDefault sets the fallback value.
func (c *Commandable[T]) SetRelinquishDefault(instance uint32, value T) error {
	return c.with(instance, func(p *point[T]) error {
		p.relinquishDefault = value
		p.cov.detect(p.presentValue())
		return nil
	})
}

// COVIncrement returns the change-of-value threshold.
func (c *Commandable[T]) COVIncrement(instance uint32) (float64, bool) {
	var inc float64
	err := c.with(instance, func(p *point[T]) error {
		inc = p.cov.increment
		return nil
	})
	return inc, err == nil
}

// SetCOVIncrement sets the threshold and re-evaluates the current present
// value against it.
func (c *Commandable[T]) SetCOVIncrement(instance uint32, inc float64) error {
	if err := validIncrement(inc); err != nil {
		return err
	}
	return c.with(instance, func(p *point[T]) error {
		p.cov.increment = inc
		p.cov.detect(p.presentValue())
		return nil
	})
}

// ChangeOfValue reports the sticky changed flag.
func (c *Commandable[T]) ChangeOfValue(instance uint32) bool {
	var changed bool
	_ = c.with(instance, func(p *point[T]) error {
		changed = p.cov.changed
		return nil
	})
	return changed
}

// ClearChangeOfValue acknowledges the changed flag.
func (c *Commandable[T]) ClearChangeOfValue(instance uint32) {
	_ = c.with(instance, func(p *point[T]) error {
		p.cov.clear()
		return nil
	})
}

// OutOfService reports the out-of-service flag.
func (c *Commandable[T]) OutOfService(instance uint32) bool {
	var oos bool
	_ = c.with(instance, func(p *point[T]) error {
		oos = p.outOfService
		return nil
	})
	return oos
}

// SetOutOfService sets the out-of-service flag. A transition latches the
// changed flag.
func (c *Commandable[T]) SetOutOfService(instance uint32, oos bool) error {
	return c.with(instance, func(p *point[T]) error {
		setOutOfService(p, oos)
		return nil
	})
}

func setOutOfService[T Numeric](p *point[T], oos bool) {
	if p.outOfService != oos {
		p.cov.markChanged()
	}
	p.outOfService = oos
}

// Units returns the engineering units.
func (c *Commandable[T]) Units(instance uint32) (bacnet.EngineeringUnits, bool) {
	var u bacnet.EngineeringUnits
	err := c.with(instance, func(p *point[T]) error {
		u = p.units
		return nil
	})
	return u, err == nil
}

// SetUnits sets the engineering units.
func (c *Commandable[T]) SetUnits(instance uint32, units bacnet.EngineeringUnits) error {
	return c.with(instance, func(p *point[T]) error {
		p.units = units
		return nil
	})
}

// defaultName is used until an object is named, e.g. ANALOG-VALUE-3.
func (c *Commandable[T]) defaultName(instance uint32) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(c.kind.Type.String()), instance)
}

func (c *Commandable[T]) nameOf(instance uint32, p *point[T]) string {
	if p.name == "" {
		return c.defaultName(instance)
	}
	return p.name
}

// ObjectName returns the object name.
func (c *Commandable[T]) ObjectName(instance uint32) (string, bool) {
	var name string
	err := c.with(instance, func(p *point[T]) error {
		name = c.nameOf(instance, p)
		return nil
	})
	return name, err == nil
}

// SetObjectName renames an object. The name check runs first and may call
// back into this object type, so it is invoked without the lock held.
// Check and rename are two steps; device.Device serializes them across
// every object type it owns.
func (c *Commandable[T]) SetObjectName(instance uint32, name string) error {
	if err := c.checkName(instance, name); err != nil {
		return err
	}
	return c.with(instance, func(p *point[T]) error {
		p.name = name
		return nil
	})
}

func (c *Commandable[T]) checkName(instance uint32, name string) error {
	if name == "" {
		return bacnet.ErrValueOutOfRange
	}
	c.mu.Lock()
	check := c.nameCheck
	c.mu.Unlock()
	if check == nil {
		return nil
	}
	return check(bacnet.ObjectID{Type: c.kind.Type, Instance: instance}, name)
}

// Description returns the description text.
func (c *Commandable[T]) Description(instance uint32) (string, bool) {
	var d string
	err := c.with(instance, func(p *point[T]) error {
		d = p.description
		return nil
	})
	return d, err == nil
}

// SetDescription sets the description text.
func (c *Commandable[T]) SetDescription(instance uint32, description string) error {
	return c.with(instance, func(p *point[T]) error {
		p.description = description
		return nil
	})
}
