package object

import (
	"slices"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Registry holds objects keyed by instance number. Lookup goes through a
// map; enumeration follows a slice of keys kept in ascending order.
//
// Registry is not safe for concurrent use. The owning object type
// serializes access.
type Registry[T any] struct {
	objects map[uint32]*T
	keys    []uint32
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{objects: make(map[uint32]*T)}
}

// Create adds a new object built by newObj and returns its instance.
//
// bacnet.MaxInstance requests the lowest unused instance starting at 1.
// An instance that is already present is returned without creating a
// second object. An instance above bacnet.MaxInstance fails with
// ErrNoSpaceForObject.
func (r *Registry[T]) Create(instance uint32, newObj func() *T) (uint32, error) {
	if instance > bacnet.MaxInstance {
		return bacnet.MaxInstance, bacnet.ErrNoSpaceForObject
	}
	if instance == bacnet.MaxInstance {
		instance = r.nextFree()
		if instance == bacnet.MaxInstance {
			return bacnet.MaxInstance, bacnet.ErrNoSpaceForObject
		}
	}
	if _, ok := r.objects[instance]; ok {
		return instance, nil
	}

	r.objects[instance] = newObj()
	i, _ := slices.BinarySearch(r.keys, instance)
	r.keys = slices.Insert(r.keys, i, instance)
	return instance, nil
}

// nextFree walks the sorted keys for the first gap at or above 1.
func (r *Registry[T]) nextFree() uint32 {
	next := uint32(1)
	for _, k := range r.keys {
		if k < next {
			continue
		}
		if k > next {
			break
		}
		next++
	}
	return next
}

// Get returns the object for instance, or nil.
func (r *Registry[T]) Get(instance uint32) *T {
	return r.objects[instance]
}

// Count returns the number of objects.
func (r *Registry[T]) Count() int {
	return len(r.keys)
}

// IndexToInstance returns the instance at position index in ascending
// order, or bacnet.MaxInstance when index is out of range.
func (r *Registry[T]) IndexToInstance(index int) uint32 {
	if index < 0 || index >= len(r.keys) {
		return bacnet.MaxInstance
	}
	return r.keys[index]
}

// InstanceToIndex returns the position of instance in ascending order.
func (r *Registry[T]) InstanceToIndex(instance uint32) (int, bool) {
	if _, ok := r.objects[instance]; !ok {
		return 0, false
	}
	return slices.BinarySearch(r.keys, instance)
}

// Delete removes an object and reports whether it existed.
func (r *Registry[T]) Delete(instance uint32) bool {
	if _, ok := r.objects[instance]; !ok {
		return false
	}
	delete(r.objects, instance)
	if i, found := slices.BinarySearch(r.keys, instance); found {
		r.keys = slices.Delete(r.keys, i, i+1)
	}
	return true
}

// Clear removes every object. The registry stays usable.
func (r *Registry[T]) Clear() {
	clear(r.objects)
	r.keys = r.keys[:0]
}

// Instances returns a copy of the instance numbers in ascending order.
func (r *Registry[T]) Instances() []uint32 {
	return slices.Clone(r.keys)
}
