package bacnet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EngineeringUnits is the units enumeration.
type EngineeringUnits uint16

const (
	UnitsAmperes                 EngineeringUnits = 3
	UnitsVolts                   EngineeringUnits = 5
	UnitsKilowattHours           EngineeringUnits = 19
	UnitsHertz                   EngineeringUnits = 27
	UnitsPercentRelativeHumidity EngineeringUnits = 29
	UnitsWatts                   EngineeringUnits = 47
	UnitsKilowatts               EngineeringUnits = 48
	UnitsPascals                 EngineeringUnits = 53
	UnitsDegreesCelsius          EngineeringUnits = 62
	UnitsDegreesFahrenheit       EngineeringUnits = 64
	UnitsHours                   EngineeringUnits = 71
	UnitsMinutes                 EngineeringUnits = 72
	UnitsSeconds                 EngineeringUnits = 73
	UnitsLitersPerSecond         EngineeringUnits = 87
	UnitsNoUnits                 EngineeringUnits = 95
	UnitsPartsPerMillion         EngineeringUnits = 96
	UnitsPercent                 EngineeringUnits = 98
	UnitsCubicMetersPerHour      EngineeringUnits = 135
)

var unitNames = map[EngineeringUnits]string{
	UnitsAmperes:                 "amperes",
	UnitsVolts:                   "volts",
	UnitsKilowattHours:           "kilowatt-hours",
	UnitsHertz:                   "hertz",
	UnitsPercentRelativeHumidity: "percent-relative-humidity",
	UnitsWatts:                   "watts",
	UnitsKilowatts:               "kilowatts",
	UnitsPascals:                 "pascals",
	UnitsDegreesCelsius:          "degrees-celsius",
	UnitsDegreesFahrenheit:       "degrees-fahrenheit",
	UnitsHours:                   "hours",
	UnitsMinutes:                 "minutes",
	UnitsSeconds:                 "seconds",
	UnitsLitersPerSecond:         "liters-per-second",
	UnitsNoUnits:                 "no-units",
	UnitsPartsPerMillion:         "parts-per-million",
	UnitsPercent:                 "percent",
	UnitsCubicMetersPerHour:      "cubic-meters-per-hour",
}

// String returns the units name, or the number.
func (u EngineeringUnits) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return strconv.Itoa(int(u))
}

// ErrUnknownUnits is returned by ParseUnits.
var ErrUnknownUnits = errors.New("unknown engineering units")

// ParseUnits resolves a units name ("degrees-celsius") or a decimal number.
func ParseUnits(s string) (EngineeringUnits, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for u, name := range unitNames {
		if name == s {
			return u, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnits, s)
	}
	return EngineeringUnits(n), nil
}
