package zonal

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Unit is an output area unit.
type Unit string

// Supported output units. Rai is the Thai cadastral unit of 1600 square
// meters, the customary unit for village-level flood reporting.
const (
	UnitSquareMeter     Unit = "m2"
	UnitSquareKilometer Unit = "km2"
	UnitHectare         Unit = "hectare"
	UnitRai             Unit = "rai"
)

// unitDivisors maps each unit to its size in square meters.
var unitDivisors = map[Unit]float64{
	UnitSquareMeter:     1,
	UnitSquareKilometer: 1e6,
	UnitHectare:         1e4,
	UnitRai:             1600,
}

// Units lists the supported output units in display order.
func Units() []Unit {
	return []Unit{UnitSquareMeter, UnitSquareKilometer, UnitHectare, UnitRai}
}

// Divisor returns the unit's area in square meters. Unknown units return 0;
// ParseUnit or Aggregator.Run reject them before any arithmetic runs.
func (u Unit) Divisor() float64 { return unitDivisors[u] }

// ParseUnit resolves a unit name case-insensitively, accepting "ha" as a
// shorthand for hectare.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m2", "sqm":
		return UnitSquareMeter, nil
	case "km2", "sqkm":
		return UnitSquareKilometer, nil
	case "hectare", "ha":
		return UnitHectare, nil
	case "rai":
		return UnitRai, nil
	default:
		return "", eris.Wrapf(ErrConfig, "unknown area unit %q (want m2, km2, hectare, or rai)", s)
	}
}
