package bacapp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Encoding errors.
var (
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrUnsupportedTag = errors.New("unsupported application tag")
	ErrTruncated      = errors.New("truncated application data")
	ErrInvalidLength  = errors.New("invalid application data length")
	ErrContextTag     = errors.New("context tag where application tag expected")
)

const (
	lvtExtended  = 5
	extLen16     = 254
	extLen32     = 255
	maxShortLen  = 4
	maxExtLen8   = 253
	charsetUTF8  = 0
	classContext = 0x08
)

// Encode writes the encoding of v into dst and returns the number of
// octets used. dst is left untouched when it is too small.
func Encode(dst []byte, v Value) (int, error) {
	enc, err := Append(nil, v)
	if err != nil {
		return 0, err
	}
	if len(enc) > len(dst) {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrBufferTooSmall, len(enc), len(dst))
	}
	return copy(dst, enc), nil
}

// EncodedLen returns the number of octets Encode would use for v, or -1
// if v cannot be encoded.
func EncodedLen(v Value) int {
	enc, err := Append(nil, v)
	if err != nil {
		return -1
	}
	return len(enc)
}

// Append appends the encoding of v to b.
func Append(b []byte, v Value) ([]byte, error) {
	switch v.Tag {
	case TagNull:
		return append(b, byte(TagNull)<<4), nil

	case TagBoolean:
		var lvt byte
		if v.Boolean {
			lvt = 1
		}
		return append(b, byte(TagBoolean)<<4|lvt), nil

	case TagUnsigned:
		return appendUnsigned(b, TagUnsigned, v.Unsigned), nil

	case TagEnumerated:
		return appendUnsigned(b, TagEnumerated, v.Enumerated), nil

	case TagSigned:
		n := signedLen(v.Signed)
		b = appendHeader(b, TagSigned, n)
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(v.Signed))
		return append(b, tmp[4-n:]...), nil

	case TagReal:
		b = appendHeader(b, TagReal, 4)
		return binary.BigEndian.AppendUint32(b, math.Float32bits(v.Real)), nil

	case TagDouble:
		b = appendHeader(b, TagDouble, 8)
		return binary.BigEndian.AppendUint64(b, math.Float64bits(v.Double)), nil

	case TagOctetString:
		b = appendHeader(b, TagOctetString, len(v.OctetString))
		return append(b, v.OctetString...), nil

	case TagCharacterString:
		b = appendHeader(b, TagCharacterString, len(v.CharacterString)+1)
		b = append(b, charsetUTF8)
		return append(b, v.CharacterString...), nil

	case TagBitString:
		bs := v.BitString
		b = appendHeader(b, TagBitString, len(bs.data)+1)
		b = append(b, byte(bs.unused()))
		return append(b, bs.data...), nil

	case TagObjectID:
		raw, err := v.ObjectID.Encode()
		if err != nil {
			return b, err
		}
		b = appendHeader(b, TagObjectID, 4)
		return binary.BigEndian.AppendUint32(b, raw), nil

	default:
		return b, fmt.Errorf("%w: %s", ErrUnsupportedTag, v.Tag)
	}
}

func appendHeader(b []byte, tag Tag, length int) []byte {
	if length <= maxShortLen {
		return append(b, byte(tag)<<4|byte(length))
	}
	b = append(b, byte(tag)<<4|lvtExtended)
	switch {
	case length <= maxExtLen8:
		return append(b, byte(length))
	case length <= math.MaxUint16:
		b = append(b, extLen16)
		return binary.BigEndian.AppendUint16(b, uint16(length))
	default:
		b = append(b, extLen32)
		return binary.BigEndian.AppendUint32(b, uint32(length))
	}
}

func appendUnsigned(b []byte, tag Tag, v uint32) []byte {
	n := unsignedLen(v)
	b = appendHeader(b, tag, n)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[4-n:]...)
}

func unsignedLen(v uint32) int {
	switch {
	case v < 1<<8:
		return 1
	case v < 1<<16:
		return 2
	case v < 1<<24:
		return 3
	default:
		return 4
	}
}

func signedLen(v int32) int {
	switch {
	case v >= -128 && v <= 127:
		return 1
	case v >= -32768 && v <= 32767:
		return 2
	case v >= -8388608 && v <= 8388607:
		return 3
	default:
		return 4
	}
}

// AppendList appends the encodings of vs in order.
func AppendList(b []byte, vs []Value) ([]byte, error) {
	var err error
	for _, v := range vs {
		if b, err = Append(b, v); err != nil {
			return b, err
		}
	}
	return b, nil
}
