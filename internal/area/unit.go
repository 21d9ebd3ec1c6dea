package area

import (
	"fmt"
	"strings"
)

// Unit is a display unit for an area measurement.
type Unit int

// Supported display units.
const (
	SquareMeters Unit = iota
	Hectares
	Mu
)

// Conversion factors from square metres. The mu factor is kept as the map
// page has always displayed it, even though 1 mu is 1/15 ha (0.000667).
const (
	hectaresPerSquareMeter = 0.0001
	muPerSquareMeter       = 0.0015
)

// UnitOption describes a unit for the unit selector.
type UnitOption struct {
	Value Unit   `json:"value"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

var units = []UnitOption{
	{Value: SquareMeters, Code: "m2", Label: "m² (平方米)"},
	{Value: Hectares, Code: "ha", Label: "ha (公顷)"},
	{Value: Mu, Code: "mu", Label: "mu (亩)"},
}

// Units returns the unit selector options in display order.
func Units() []UnitOption {
	out := make([]UnitOption, len(units))
	copy(out, units)
	return out
}

// Convert converts a raw area in square metres into the unit.
func Convert(raw float64, u Unit) float64 {
	switch u {
	case Hectares:
		return raw * hectaresPerSquareMeter
	case Mu:
		return raw * muPerSquareMeter
	default:
		return raw
	}
}

// ParseUnit accepts a unit code, a common alias or the numeric selector value.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m2", "m²", "sqm", "square_meters", "squaremeters", "0":
		return SquareMeters, nil
	case "ha", "hectare", "hectares", "1":
		return Hectares, nil
	case "mu", "亩", "2":
		return Mu, nil
	}
	return SquareMeters, fmt.Errorf("unknown area unit %q", s)
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	return u >= SquareMeters && u <= Mu
}

// String returns the unit code.
func (u Unit) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Unit(%d)", int(u))
	}
	return units[u].Code
}

// Label returns the human readable selector label.
func (u Unit) Label() string {
	if !u.Valid() {
		return u.String()
	}
	return units[u].Label
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("invalid area unit %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
