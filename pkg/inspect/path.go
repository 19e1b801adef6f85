// Package inspect provides object inspection and property manipulation
// utilities.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions (e.g., "analog-value:1/priority-array[3]")
//   - Resolving type and property names, including short aliases
//   - Reading and writing properties of a local or remote device
//   - Formatting output for display
package inspect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Path errors.
var (
	ErrEmptyPath       = errors.New("empty path")
	ErrInvalidPath     = errors.New("invalid path format")
	ErrInvalidNumber   = errors.New("invalid numeric value in path")
	ErrUnknownType     = errors.New("unknown object type")
	ErrUnknownProperty = errors.New("unknown property")
)

// Path represents a parsed inspection path.
// Format: type:instance[/property[[index]]]
type Path struct {
	// Object is the addressed object. A bare "device" addresses the local
	// device through the wildcard instance.
	Object bacnet.ObjectID

	// Property is the addressed property (when IsPartial is false).
	Property bacnet.PropertyID

	// ArrayIndex is the array index, bacnet.ArrayAll when absent.
	ArrayIndex uint32

	// IsPartial indicates the path doesn't include a property (used for
	// inspect operations that show all properties).
	IsPartial bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "analog-value:1" - partial (for listing properties)
//   - "analog-value:1/present-value" - property path
//   - "av:1/pa[3]" - array element, with short names
//   - "2:1/87" - numeric type and property
//   - "device/object-list[0]" - the local device
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}
	if strings.HasPrefix(input, "/") || strings.HasSuffix(input, "/") {
		return nil, ErrInvalidPath
	}

	parts := strings.Split(input, "/")
	if len(parts) > 2 {
		return nil, ErrInvalidPath
	}

	p := &Path{Raw: input, ArrayIndex: bacnet.ArrayAll}

	obj, err := parseObject(parts[0])
	if err != nil {
		return nil, fmt.Errorf("object: %w", err)
	}
	p.Object = obj

	if len(parts) == 1 {
		p.IsPartial = true
		return p, nil
	}

	prop, index, err := parseProperty(parts[1])
	if err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	p.Property = prop
	p.ArrayIndex = index
	return p, nil
}

// String returns the path in canonical form.
func (p *Path) String() string {
	var sb strings.Builder
	if p.Object.Type == bacnet.ObjectDevice && p.Object.Instance == bacnet.MaxInstance {
		sb.WriteString(bacnet.ObjectDevice.String())
	} else {
		sb.WriteString(p.Object.String())
	}
	if p.IsPartial {
		return sb.String()
	}
	sb.WriteString("/")
	sb.WriteString(p.Property.String())
	if p.ArrayIndex != bacnet.ArrayAll {
		sb.WriteString("[")
		sb.WriteString(strconv.FormatUint(uint64(p.ArrayIndex), 10))
		sb.WriteString("]")
	}
	return sb.String()
}

// parseObject parses "type:instance". A type without an instance is only
// accepted for the device, meaning the local device.
func parseObject(s string) (bacnet.ObjectID, error) {
	name, inst, hasInst := strings.Cut(s, ":")
	t, ok := ResolveObjectType(name)
	if !ok {
		return bacnet.ObjectID{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if !hasInst {
		if t != bacnet.ObjectDevice {
			return bacnet.ObjectID{}, fmt.Errorf("%w: missing instance", ErrInvalidPath)
		}
		return bacnet.ObjectID{Type: t, Instance: bacnet.MaxInstance}, nil
	}
	n, err := parseUint(inst, 22)
	if err != nil {
		return bacnet.ObjectID{}, err
	}
	return bacnet.ObjectID{Type: t, Instance: n}, nil
}

// parseProperty parses "property" or "property[index]".
func parseProperty(s string) (bacnet.PropertyID, uint32, error) {
	index := bacnet.ArrayAll
	name := s
	if open := strings.IndexByte(s, '['); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return 0, 0, ErrInvalidPath
		}
		n, err := parseUint(s[open+1:len(s)-1], 32)
		if err != nil {
			return 0, 0, err
		}
		if n == bacnet.ArrayAll {
			return 0, 0, fmt.Errorf("%w: %d", ErrInvalidNumber, n)
		}
		index = n
		name = s[:open]
	}
	prop, ok := ResolveProperty(name)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
	return prop, index, nil
}

// parseUint parses a decimal or 0x-prefixed hex number of at most bits.
func parseUint(s string, bits int) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	n, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return uint32(n), nil
}
