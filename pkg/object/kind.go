package object

import (
	"math"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Kind binds a commandable object type to the application tags of its
// present value and COV increment.
type Kind[T Numeric] struct {
	Type         bacnet.ObjectType
	ValueTag     bacapp.Tag
	IncrementTag bacapp.Tag
	DefaultUnits bacnet.EngineeringUnits
	encode       func(T) bacapp.Value
	decode       func(bacapp.Value) T
}

// PositiveIntegerValueKind carries unsigned present values.
var PositiveIntegerValueKind = Kind[uint32]{
	Type:         bacnet.ObjectPositiveIntegerValue,
	ValueTag:     bacapp.TagUnsigned,
	IncrementTag: bacapp.TagUnsigned,
	DefaultUnits: bacnet.UnitsPercent,
	encode:       bacapp.Unsigned,
	decode:       func(v bacapp.Value) uint32 { return v.Unsigned },
}

// IntegerValueKind carries signed present values with an unsigned COV
// increment.
var IntegerValueKind = Kind[int32]{
	Type:         bacnet.ObjectIntegerValue,
	ValueTag:     bacapp.TagSigned,
	IncrementTag: bacapp.TagUnsigned,
	DefaultUnits: bacnet.UnitsPercent,
	encode:       bacapp.Signed,
	decode:       func(v bacapp.Value) int32 { return v.Signed },
}

// AnalogValueKind carries real present values and a real COV increment.
var AnalogValueKind = Kind[float32]{
	Type:         bacnet.ObjectAnalogValue,
	ValueTag:     bacapp.TagReal,
	IncrementTag: bacapp.TagReal,
	DefaultUnits: bacnet.UnitsPercent,
	encode:       bacapp.Real,
	decode:       func(v bacapp.Value) float32 { return v.Real },
}

// NewPositiveIntegerValue returns an empty Positive Integer Value type.
func NewPositiveIntegerValue() *Commandable[uint32] {
	return NewCommandable(PositiveIntegerValueKind)
}

// NewIntegerValue returns an empty Integer Value type.
func NewIntegerValue() *Commandable[int32] {
	return NewCommandable(IntegerValueKind)
}

// NewAnalogValue returns an empty Analog Value type.
func NewAnalogValue() *Commandable[float32] {
	return NewCommandable(AnalogValueKind)
}

func (k Kind[T]) encodeIncrement(inc float64) bacapp.Value {
	if k.IncrementTag == bacapp.TagReal {
		return bacapp.Real(float32(inc))
	}
	return bacapp.Unsigned(uint32(inc))
}

// decodeIncrement checks a written COV increment against the increment tag.
func (k Kind[T]) decodeIncrement(v bacapp.Value) (float64, error) {
	if v.Tag != k.IncrementTag {
		return 0, bacnet.ErrInvalidDataType
	}
	if v.Tag == bacapp.TagUnsigned {
		return float64(v.Unsigned), nil
	}
	inc := float64(v.Real)
	if err := validIncrement(inc); err != nil {
		return 0, err
	}
	return inc, nil
}

// fits reports whether a value widened to float64 converts back to the
// present-value type without leaving its range. Integer kinds also reject
// fractions.
func (k Kind[T]) fits(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	switch k.ValueTag {
	case bacapp.TagUnsigned:
		return v >= 0 && v <= math.MaxUint32 && v == math.Trunc(v)
	case bacapp.TagSigned:
		return v >= math.MinInt32 && v <= math.MaxInt32 && v == math.Trunc(v)
	default:
		return math.Abs(v) <= math.MaxFloat32
	}
}

// validIncrement applies the same range rule to increments set locally.
func validIncrement(inc float64) error {
	if math.IsNaN(inc) || math.IsInf(inc, 0) || inc < 0 {
		return bacnet.ErrValueOutOfRange
	}
	return nil
}
