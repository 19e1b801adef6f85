package object

import (
	"slices"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// PropertyLists are the properties an object type declares.
type PropertyLists struct {
	Required    []bacnet.PropertyID
	Optional    []bacnet.PropertyID
	Proprietary []bacnet.PropertyID
}

// Member reports whether p appears in any of the lists.
func (l PropertyLists) Member(p bacnet.PropertyID) bool {
	return slices.Contains(l.Required, p) ||
		slices.Contains(l.Optional, p) ||
		slices.Contains(l.Proprietary, p)
}

// All returns every declared property in list order.
func (l PropertyLists) All() []bacnet.PropertyID {
	all := make([]bacnet.PropertyID, 0, len(l.Required)+len(l.Optional)+len(l.Proprietary))
	all = append(all, l.Required...)
	all = append(all, l.Optional...)
	return append(all, l.Proprietary...)
}

var commandableProperties = PropertyLists{
	Required: []bacnet.PropertyID{
		bacnet.PropObjectIdentifier,
		bacnet.PropObjectName,
		bacnet.PropObjectType,
		bacnet.PropPresentValue,
		bacnet.PropStatusFlags,
		bacnet.PropUnits,
	},
	Optional: []bacnet.PropertyID{
		bacnet.PropOutOfService,
		bacnet.PropDescription,
		bacnet.PropCOVIncrement,
		bacnet.PropPriorityArray,
		bacnet.PropRelinquishDefault,
	},
}

// IsArrayProperty reports whether p may be accessed with an array index.
func IsArrayProperty(p bacnet.PropertyID) bool {
	switch p {
	case bacnet.PropPriorityArray, bacnet.PropEventTimeStamps, bacnet.PropObjectList:
		return true
	default:
		return false
	}
}

// PropertyLists returns the declared properties. The slices are shared
// and must not be modified.
func (c *Commandable[T]) PropertyLists() PropertyLists {
	return commandableProperties
}
