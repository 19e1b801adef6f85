package object

import (
	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// ElementEncoder returns element i (0-based) of an array property.
type ElementEncoder func(i int) bacapp.Value

// EncodeArray encodes an array property into dst following the array
// index rules:
//
//   - bacnet.ArrayAll encodes every element; if they do not fit the
//     result is bacnet.ErrAbortSegmentationNotSupported
//   - index 0 encodes the element count
//   - index 1..size encodes that element
//   - any other index is bacnet.ErrInvalidArrayIndex
func EncodeArray(dst []byte, index uint32, size int, elem ElementEncoder) (int, error) {
	var (
		out []byte
		err error
	)
	switch {
	case index == bacnet.ArrayAll:
		for i := 0; i < size; i++ {
			if out, err = bacapp.Append(out, elem(i)); err != nil {
				return 0, err
			}
		}
	case index == 0:
		out, err = bacapp.Append(out, bacapp.Unsigned(uint32(size)))
	case index <= uint32(size):
		out, err = bacapp.Append(out, elem(int(index-1)))
	default:
		return 0, bacnet.ErrInvalidArrayIndex
	}
	if err != nil {
		return 0, err
	}
	if len(out) > len(dst) {
		return 0, bacnet.ErrAbortSegmentationNotSupported
	}
	return copy(dst, out), nil
}

// encodeScalar writes a single value into dst.
func encodeScalar(dst []byte, v bacapp.Value) (int, error) {
	out, err := bacapp.Append(nil, v)
	if err != nil {
		return 0, err
	}
	if len(out) > len(dst) {
		return 0, bacnet.ErrAbortSegmentationNotSupported
	}
	return copy(dst, out), nil
}
