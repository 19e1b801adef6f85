package bacnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PropertyID identifies a property of an object.
type PropertyID uint32

const (
	PropAll                        PropertyID = 8
	PropApplicationSoftwareVersion PropertyID = 12
	PropCOVIncrement               PropertyID = 22
	PropDescription                PropertyID = 28
	PropEventState                 PropertyID = 36
	PropFirmwareRevision           PropertyID = 44
	PropLocation                   PropertyID = 58
	PropMaxAPDULengthAccepted      PropertyID = 62
	PropModelName                  PropertyID = 70
	PropObjectIdentifier           PropertyID = 75
	PropObjectList                 PropertyID = 76
	PropObjectName                 PropertyID = 77
	PropObjectType                 PropertyID = 79
	PropOptional                   PropertyID = 80
	PropOutOfService               PropertyID = 81
	PropPresentValue               PropertyID = 85
	PropPriorityArray              PropertyID = 87
	PropProtocolVersion            PropertyID = 98
	PropReliability                PropertyID = 103
	PropRelinquishDefault          PropertyID = 104
	PropRequired                   PropertyID = 105
	PropSegmentationSupported      PropertyID = 107
	PropStatusFlags                PropertyID = 111
	PropSystemStatus               PropertyID = 112
	PropUnits                      PropertyID = 117
	PropVendorIdentifier           PropertyID = 120
	PropVendorName                 PropertyID = 121
	PropEventTimeStamps            PropertyID = 130
	PropDatabaseRevision           PropertyID = 155
	PropPropertyList               PropertyID = 371
)

var propertyNames = map[PropertyID]string{
	PropAll:                        "all",
	PropApplicationSoftwareVersion: "application-software-version",
	PropCOVIncrement:               "cov-increment",
	PropDescription:                "description",
	PropEventState:                 "event-state",
	PropFirmwareRevision:           "firmware-revision",
	PropLocation:                   "location",
	PropMaxAPDULengthAccepted:      "max-apdu-length-accepted",
	PropModelName:                  "model-name",
	PropObjectIdentifier:           "object-identifier",
	PropObjectList:                 "object-list",
	PropObjectName:                 "object-name",
	PropObjectType:                 "object-type",
	PropOptional:                   "optional",
	PropOutOfService:               "out-of-service",
	PropPresentValue:               "present-value",
	PropPriorityArray:              "priority-array",
	PropProtocolVersion:            "protocol-version",
	PropReliability:                "reliability",
	PropRelinquishDefault:          "relinquish-default",
	PropRequired:                   "required",
	PropSegmentationSupported:      "segmentation-supported",
	PropStatusFlags:                "status-flags",
	PropSystemStatus:               "system-status",
	PropUnits:                      "units",
	PropVendorIdentifier:           "vendor-identifier",
	PropVendorName:                 "vendor-name",
	PropEventTimeStamps:            "event-time-stamps",
	PropDatabaseRevision:           "database-revision",
	PropPropertyList:               "property-list",
}

// String returns the kebab-case property name, or the number.
func (p PropertyID) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return strconv.FormatUint(uint64(p), 10)
}

// ErrUnknownPropertyName is returned by ParsePropertyID.
var ErrUnknownPropertyName = errors.New("unknown property")

// ParsePropertyID resolves a name ("present-value") or a decimal number.
func ParsePropertyID(s string) (PropertyID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range propertyNames {
		if name == s {
			return p, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 22)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPropertyName, s)
	}
	return PropertyID(n), nil
}

// StatusFlags is the four-bit status-flags property.
type StatusFlags struct {
	InAlarm      bool `json:"in_alarm"`
	Fault        bool `json:"fault"`
	Overridden   bool `json:"overridden"`
	OutOfService bool `json:"out_of_service"`
}

// Status flag bit positions.
const (
	StatusFlagInAlarm = iota
	StatusFlagFault
	StatusFlagOverridden
	StatusFlagOutOfService
)

// SystemStatus is the device system-status enumeration.
type SystemStatus uint32

const (
	SystemStatusOperational         SystemStatus = 0
	SystemStatusOperationalReadOnly SystemStatus = 1
	SystemStatusDownloadRequired    SystemStatus = 2
	SystemStatusDownloadInProgress  SystemStatus = 3
	SystemStatusNonOperational      SystemStatus = 4
)
