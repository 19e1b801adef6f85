package inspect

import (
	"strings"

	"github.com/bacnet-stack/bacnet-go/pkg/bacnet"
)

// Short names accepted in paths alongside the full kebab-case names.
var (
	objectTypeAliases = map[string]bacnet.ObjectType{
		"av":  bacnet.ObjectAnalogValue,
		"iv":  bacnet.ObjectIntegerValue,
		"piv": bacnet.ObjectPositiveIntegerValue,
		"dev": bacnet.ObjectDevice,
	}

	propertyAliases = map[string]bacnet.PropertyID{
		"pv":   bacnet.PropPresentValue,
		"pa":   bacnet.PropPriorityArray,
		"rd":   bacnet.PropRelinquishDefault,
		"oos":  bacnet.PropOutOfService,
		"name": bacnet.PropObjectName,
		"cov":  bacnet.PropCOVIncrement,
	}
)

// ResolveObjectType resolves an object type name, alias or number
// (case-insensitive).
func ResolveObjectType(name string) (bacnet.ObjectType, bool) {
	if t, ok := objectTypeAliases[strings.ToLower(name)]; ok {
		return t, true
	}
	t, err := bacnet.ParseObjectType(name)
	return t, err == nil
}

// ResolveProperty resolves a property name, alias or number
// (case-insensitive).
func ResolveProperty(name string) (bacnet.PropertyID, bool) {
	if p, ok := propertyAliases[strings.ToLower(name)]; ok {
		return p, true
	}
	p, err := bacnet.ParsePropertyID(name)
	return p, err == nil
}
