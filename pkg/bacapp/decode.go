package bacapp

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Header is a decoded tag octet plus extended length.
type Header struct {
	Tag    Tag
	LVT    uint32
	Length int // header octets consumed
}

// DecodeHeader parses the tag octet and any extended length that follows.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) == 0 {
		return Header{}, ErrTruncated
	}
	first := src[0]
	if first&classContext != 0 {
		return Header{}, ErrContextTag
	}
	h := Header{Tag: Tag(first >> 4), LVT: uint32(first & 0x07), Length: 1}
	if h.Tag > TagObjectID {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedTag, uint8(h.Tag))
	}
	if h.Tag == TagBoolean || h.LVT < lvtExtended {
		return h, nil
	}
	if h.LVT > lvtExtended {
		return Header{}, fmt.Errorf("%w: lvt %d", ErrInvalidLength, h.LVT)
	}

	if len(src) < 2 {
		return Header{}, ErrTruncated
	}
	switch src[1] {
	case extLen16:
		if len(src) < 4 {
			return Header{}, ErrTruncated
		}
		h.LVT = uint32(binary.BigEndian.Uint16(src[2:4]))
		h.Length = 4
	case extLen32:
		if len(src) < 6 {
			return Header{}, ErrTruncated
		}
		h.LVT = binary.BigEndian.Uint32(src[2:6])
		h.Length = 6
	default:
		h.LVT = uint32(src[1])
		h.Length = 2
	}
	return h, nil
}

// Decode parses one application-tagged value from the front of src and
// returns it with the number of octets consumed.
func Decode(src []byte) (Value, int, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return Value{}, 0, err
	}

	if h.Tag == TagBoolean {
		if h.LVT > 1 {
			return Value{}, 0, fmt.Errorf("%w: boolean %d", ErrInvalidLength, h.LVT)
		}
		return Boolean(h.LVT == 1), h.Length, nil
	}

	n := int(h.LVT)
	if n < 0 || len(src)-h.Length < n {
		return Value{}, 0, ErrTruncated
	}
	body := src[h.Length : h.Length+n]
	total := h.Length + n

	switch h.Tag {
	case TagNull:
		if n != 0 {
			return Value{}, 0, fmt.Errorf("%w: null %d", ErrInvalidLength, n)
		}
		return Null(), total, nil

	case TagUnsigned, TagEnumerated:
		if n < 1 || n > 4 {
			return Value{}, 0, fmt.Errorf("%w: %s %d", ErrInvalidLength, h.Tag, n)
		}
		var u uint32
		for _, c := range body {
			u = u<<8 | uint32(c)
		}
		if h.Tag == TagEnumerated {
			return Enumerated(u), total, nil
		}
		return Unsigned(u), total, nil

	case TagSigned:
		if n < 1 || n > 4 {
			return Value{}, 0, fmt.Errorf("%w: signed %d", ErrInvalidLength, n)
		}
		var s int32
		if body[0]&0x80 != 0 {
			s = -1
		}
		for _, c := range body {
			s = s<<8 | int32(c)
		}
		return Signed(s), total, nil

	case TagReal:
		if n != 4 {
			return Value{}, 0, fmt.Errorf("%w: real %d", ErrInvalidLength, n)
		}
		return Real(math.Float32frombits(binary.BigEndian.Uint32(body))), total, nil

	case TagDouble:
		if n != 8 {
			return Value{}, 0, fmt.Errorf("%w: double %d", ErrInvalidLength, n)
		}
		return Double(math.Float64frombits(binary.BigEndian.Uint64(body))), total, nil

	case TagOctetString:
		return OctetString(append([]byte(nil), body...)), total, nil

	case TagCharacterString:
		if n < 1 {
			return Value{}, 0, fmt.Errorf("%w: empty character string", ErrInvalidLength)
		}
		if body[0] != charsetUTF8 || !utf8.Valid(body[1:]) {
			return Value{}, 0, fmt.Errorf("%w: character set %d", ErrUnsupportedTag, body[0])
		}
		return CharacterString(string(body[1:])), total, nil

	case TagBitString:
		if n < 1 || n-1 > MaxBitStringBytes || body[0] > 7 || (n == 1 && body[0] != 0) {
			return Value{}, 0, fmt.Errorf("%w: bit string %d", ErrInvalidLength, n)
		}
		bs := BitString{n: (n-1)*8 - int(body[0]), data: append([]byte(nil), body[1:]...)}
		return Bits(bs), total, nil

	case TagObjectID:
		if n != 4 {
			return Value{}, 0, fmt.Errorf("%w: object identifier %d", ErrInvalidLength, n)
		}
		return ObjectIdentifier(bacnet.DecodeObjectID(binary.BigEndian.Uint32(body))), total, nil

	default:
		return Value{}, 0, fmt.Errorf("%w: %s", ErrUnsupportedTag, h.Tag)
	}
}

// DecodeList parses consecutive values until src is exhausted.
func DecodeList(src []byte) ([]Value, error) {
	var out []Value
	for len(src) > 0 {
		v, n, err := Decode(src)
		if err != nil {
			return out, err
		}
		out = append(out, v)
		src = src[n:]
	}
	return out, nil
}
