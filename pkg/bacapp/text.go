package bacapp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// ErrParseValue is returned when text cannot be converted to a value.
var ErrParseValue = errors.New("cannot parse value")

// ParseTag resolves a tag name ("unsigned", "real") or number.
func ParseTag(s string) (Tag, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t := TagNull; t <= TagObjectID; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || Tag(n) > TagObjectID {
		return 0, fmt.Errorf("%w: unknown tag %q", ErrParseValue, s)
	}
	return Tag(n), nil
}

// ParseValue converts text to a value of the given tag. "null" always
// parses to the null value.
func ParseValue(tag Tag, s string) (Value, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return Null(), nil
	}

	fail := func(err error) (Value, error) {
		return Value{}, fmt.Errorf("%w: %s %q: %v", ErrParseValue, tag, s, err)
	}

	switch tag {
	case TagNull:
		return fail(errors.New("expected null"))
	case TagBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fail(err)
		}
		return Boolean(b), nil
	case TagUnsigned, TagEnumerated:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fail(err)
		}
		if tag == TagEnumerated {
			return Enumerated(uint32(u)), nil
		}
		return Unsigned(uint32(u)), nil
	case TagSigned:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return fail(err)
		}
		return Signed(int32(i)), nil
	case TagReal:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fail(err)
		}
		return Real(float32(f)), nil
	case TagDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail(err)
		}
		return Double(f), nil
	case TagOctetString:
		b, err := hex.DecodeString(s)
		if err != nil {
			return fail(err)
		}
		return OctetString(b), nil
	case TagCharacterString:
		return CharacterString(s), nil
	case TagBitString:
		bs := NewBitString(len(s))
		for i, c := range s {
			switch c {
			case '1':
				bs.Set(i, true)
			case '0':
			default:
				return fail(errors.New("bits must be 0 or 1"))
			}
		}
		return Bits(bs), nil
	case TagObjectID:
		typ, inst, ok := strings.Cut(s, ":")
		if !ok {
			return fail(errors.New("expected type:instance"))
		}
		ot, err := bacnet.ParseObjectType(typ)
		if err != nil {
			return fail(err)
		}
		n, err := strconv.ParseUint(inst, 10, 32)
		if err != nil || uint32(n) > bacnet.MaxInstance {
			return fail(errors.New("instance out of range"))
		}
		return ObjectIdentifier(bacnet.ObjectID{Type: ot, Instance: uint32(n)}), nil
	default:
		return fail(ErrUnsupportedTag)
	}
}
