package object

import "github.com/bacnet-stack/bacnet-go/pkg/bacnet"

// Numeric is the set of present-value types a commandable object can carry.
type Numeric interface {
	~uint32 | ~int32 | ~float32
}

type slot[T Numeric] struct {
	value        T
	relinquished bool
}

// PriorityArray is the 16-slot command table of a commandable object.
// Slot 0 holds priority 1, the highest.
type PriorityArray[T Numeric] struct {
	slots [bacnet.MaxPriority]slot[T]
}

// NewPriorityArray returns an array with every slot relinquished.
func NewPriorityArray[T Numeric]() PriorityArray[T] {
	var pa PriorityArray[T]
	pa.Reset()
	return pa
}

// Reset relinquishes every slot.
func (pa *PriorityArray[T]) Reset() {
	for i := range pa.slots {
		pa.slots[i] = slot[T]{relinquished: true}
	}
}

// validPriority applies the command priority rules. Priority 6 is only
// accepted when internal is set.
func validPriority(priority uint8, internal bool) error {
	if priority < 1 || priority > bacnet.MaxPriority {
		return bacnet.ErrValueOutOfRange
	}
	if priority == bacnet.MinimumOnOffPriority && !internal {
		return bacnet.ErrWriteAccessDenied
	}
	return nil
}

// Command stores value at priority. The priority must already be valid.
func (pa *PriorityArray[T]) Command(value T, priority uint8) {
	pa.slots[priority-1] = slot[T]{value: value}
}

// Relinquish releases priority. The priority must already be valid.
func (pa *PriorityArray[T]) Relinquish(priority uint8) {
	pa.slots[priority-1] = slot[T]{relinquished: true}
}

// Slot returns the value at index 0..15 and false when it is relinquished.
func (pa *PriorityArray[T]) Slot(index int) (T, bool) {
	s := pa.slots[index]
	return s.value, !s.relinquished
}

// Active returns the highest priority (1..16) in control, or 0 if every
// slot is relinquished.
func (pa *PriorityArray[T]) Active() uint8 {
	for i, s := range pa.slots {
		if !s.relinquished {
			return uint8(i + 1)
		}
	}
	return 0
}

// Resolve returns the value of the highest-priority occupied slot, or def
// when every slot is relinquished.
func (pa *PriorityArray[T]) Resolve(def T) T {
	for _, s := range pa.slots {
		if !s.relinquished {
			return s.value
		}
	}
	return def
}
