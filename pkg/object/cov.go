package object

import "math"

// changeDetector latches a sticky changed flag when the present value
// moves by at least the increment since the last latch.
type changeDetector[T Numeric] struct {
	prior     T
	increment float64
	changed   bool
}

// detect compares value against the last latched value. The delta is
// taken in float64 so it cannot overflow at the bounds of T. A zero
// increment latches on any non-zero delta.
func (d *changeDetector[T]) detect(value T) {
	delta := math.Abs(float64(value) - float64(d.prior))
	if delta > 0 && delta >= d.increment {
		d.changed = true
		d.prior = value
	}
}

// markChanged latches the flag without touching the prior value.
func (d *changeDetector[T]) markChanged() {
	d.changed = true
}

func (d *changeDetector[T]) clear() {
	d.changed = false
}
