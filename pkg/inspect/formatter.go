package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bacnet-stack/bacnet-go/pkg/bacapp"
	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// statusFlagNames are the status-flags bits in bit order.
var statusFlagNames = [...]string{"in-alarm", "fault", "overridden", "out-of-service"}

// Formatter formats inspection output.
type Formatter struct {
	// ShowTags appends the application tag to every value
	ShowTags bool

	// ShowIDs includes numeric property ids alongside names
	ShowIDs bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{IndentWidth: 2}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a value for display with an optional unit.
func (f *Formatter) FormatValue(v bacapp.Value, unit string) string {
	var s string
	switch v.Tag {
	case bacapp.TagNull:
		s = "null"
	case bacapp.TagReal:
		s = fmt.Sprintf("%.2f", v.Real)
	case bacapp.TagDouble:
		s = fmt.Sprintf("%.2f", v.Double)
	case bacapp.TagOctetString:
		s = fmt.Sprintf("0x%x", v.OctetString)
	default:
		s = v.String()
	}
	if unit != "" && isNumeric(v.Tag) {
		s += " " + unit
	}
	if f.ShowTags {
		s += " (" + v.Tag.String() + ")"
	}
	return s
}

func isNumeric(t bacapp.Tag) bool {
	switch t {
	case bacapp.TagUnsigned, bacapp.TagSigned, bacapp.TagReal, bacapp.TagDouble:
		return true
	default:
		return false
	}
}

// FormatValues formats a property value list. A single value prints bare;
// lists print in brackets.
func (f *Formatter) FormatValues(vs []bacapp.Value, unit string) string {
	if len(vs) == 1 {
		return f.FormatValue(vs[0], unit)
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = f.FormatValue(v, unit)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatProperty formats the values of a property, rendering enumerations
// and bit strings by name where the property is known.
func (f *Formatter) FormatProperty(prop bacnet.PropertyID, vs []bacapp.Value, unit string) string {
	if len(vs) == 1 {
		v := vs[0]
		switch prop {
		case bacnet.PropObjectType:
			if v.Tag == bacapp.TagEnumerated {
				return bacnet.ObjectType(v.Enumerated).String()
			}
		case bacnet.PropUnits:
			if v.Tag == bacapp.TagEnumerated {
				return bacnet.EngineeringUnits(v.Enumerated).String()
			}
		case bacnet.PropStatusFlags:
			if v.Tag == bacapp.TagBitString {
				return FormatStatusFlags(v.BitString)
			}
		}
	}

	switch prop {
	case bacnet.PropPresentValue, bacnet.PropRelinquishDefault, bacnet.PropCOVIncrement, bacnet.PropPriorityArray:
		return f.FormatValues(vs, unit)
	default:
		return f.FormatValues(vs, "")
	}
}

// FormatStatusFlags lists the set status flags, e.g. "{out-of-service}".
func FormatStatusFlags(bs bacapp.BitString) string {
	var set []string
	for i, name := range statusFlagNames {
		if i < bs.Len() && bs.Bit(i) {
			set = append(set, name)
		}
	}
	return "{" + strings.Join(set, ", ") + "}"
}

// FormatPriorityArray lists the commanded slots of a priority array, one
// per line, e.g. "8: 21.50".
func (f *Formatter) FormatPriorityArray(vs []bacapp.Value, unit string) string {
	var sb strings.Builder
	for i, v := range vs {
		if v.Tag == bacapp.TagNull {
			continue
		}
		sb.WriteString(f.Indent(1, fmt.Sprintf("%2d: %s\n", i+1, f.FormatValue(v, unit))))
	}
	if sb.Len() == 0 {
		return f.Indent(1, "(all relinquished)\n")
	}
	return sb.String()
}

// FormatObject formats every property of an object, one per line.
func (f *Formatter) FormatObject(info *ObjectInfo) string {
	var sb strings.Builder

	header := info.ID.String()
	if info.Name != "" {
		header += fmt.Sprintf(" %q", info.Name)
	}
	sb.WriteString(header + "\n")

	for _, p := range info.Properties {
		name := p.ID.String()
		if f.ShowIDs {
			name = fmt.Sprintf("%s (%d)", name, p.ID)
		}
		sb.WriteString(f.Indent(1, fmt.Sprintf("%-20s %s\n", name+":", f.FormatProperty(p.ID, p.Values, info.Unit))))
	}
	return sb.String()
}

// FormatObjectList formats object identifiers, one per line.
func (f *Formatter) FormatObjectList(ids []bacnet.ObjectID) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(f.Indent(1, id.String()+"\n"))
	}
	return sb.String()
}

// FormatError formats an error, showing the BACnet class and code when the
// error carries them.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var be *bacnet.Error
	if errors.As(err, &be) {
		return fmt.Sprintf("error: %s: %s", be.Class, be.Code)
	}
	return "error: " + err.Error()
}
