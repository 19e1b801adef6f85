package object

import "github.com/bacnet-stack/bacnet-go/pkg/bacnet"

// Snapshot is the persistent state of one commandable object. Values are
// widened to float64, which holds every uint32, int32 and float32 exactly.
// A nil priority slot is relinquished.
type Snapshot struct {
	Instance          uint32                       `json:"instance"`
	Name              string                       `json:"name,omitempty"`
	Description       string                       `json:"description,omitempty"`
	Units             bacnet.EngineeringUnits      `json:"units"`
	OutOfService      bool                         `json:"out_of_service"`
	COVIncrement      float64                      `json:"cov_increment"`
	RelinquishDefault float64                      `json:"relinquish_default"`
	PriorityArray     [bacnet.MaxPriority]*float64 `json:"priority_array"`
}

// Snapshot captures every object in ascending instance order.
func (c *Commandable[T]) Snapshot() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snaps := make([]Snapshot, 0, c.objects.Count())
	for _, instance := range c.objects.Instances() {
		p := c.objects.Get(instance)
		s := Snapshot{
			Instance:          instance,
			Name:              p.name,
			Description:       p.description,
			Units:             p.units,
			OutOfService:      p.outOfService,
			COVIncrement:      p.cov.increment,
			RelinquishDefault: float64(p.relinquishDefault),
		}
		for i := range s.PriorityArray {
			if v, ok := p.priority.Slot(i); ok {
				f := float64(v)
				s.PriorityArray[i] = &f
			}
		}
		snaps = append(snaps, s)
	}
	return snaps
}

// Restore creates or overwrites objects from snapshots. Restored objects
// start with the changed flag clear and the current present value latched.
// Every snapshot is validated before any object changes; a value outside
// the range of the present-value type fails with bacnet.ErrValueOutOfRange.
func (c *Commandable[T]) Restore(snaps []Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range snaps {
		if s.Instance >= bacnet.MaxInstance {
			return bacnet.ErrNoSpaceForObject
		}
		if err := validIncrement(s.COVIncrement); err != nil {
			return err
		}
		if !c.kind.fits(s.RelinquishDefault) {
			return bacnet.ErrValueOutOfRange
		}
		for _, v := range s.PriorityArray {
			if v != nil && !c.kind.fits(*v) {
				return bacnet.ErrValueOutOfRange
			}
		}
	}

	for _, s := range snaps {
		if _, err := c.objects.Create(s.Instance, c.newPoint); err != nil {
			return err
		}
		p := c.objects.Get(s.Instance)
		if s.Name != "" {
			p.name = s.Name
		}
		p.description = s.Description
		p.units = s.Units
		p.outOfService = s.OutOfService
		p.relinquishDefault = T(s.RelinquishDefault)
		p.priority.Reset()
		for i, v := range s.PriorityArray {
			if v != nil {
				p.priority.Command(T(*v), uint8(i+1))
			}
		}
		p.cov = changeDetector[T]{
			prior:     p.presentValue(),
			increment: s.COVIncrement,
		}
	}
	return nil
}
