// Package area computes geodesic areas and lengths and converts them into display units.
package area

import (
	"context"
	"math"

	"github.com/woozymasta/geoarea/internal/geo"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Source names the provider a measurement came from.
type Source string

// Measurement sources.
const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Measurement is the projection of a coordinate list onto a size.
// Raw is nil when fewer than 3 points enclose no area; Length is set for paths.
type Measurement struct {
	Raw    *float64 `json:"raw"`
	Length *float64 `json:"length,omitempty"`
	Unit   Unit     `json:"unit"`
	Source Source   `json:"source,omitempty"`
}

// Value returns the raw area converted into the measurement unit.
// The second result is false when there is no area.
func (m Measurement) Value() (float64, bool) {
	if m.Raw == nil {
		return 0, false
	}
	return Convert(*m.Raw, m.Unit), true
}

// round2 keeps the displayed figures stable across recomputations.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Ring returns the geodesic area of a closed ring in square metres,
// rounded to 2 decimals.
func Ring(ring orb.Ring) float64 {
	return round2(orbgeo.Area(ring))
}

// Length returns the geodesic length of a line in metres, rounded to 2 decimals.
func Length(line orb.LineString) float64 {
	return round2(orbgeo.Length(line))
}

// Measure computes the measurement of a coordinate list locally.
func Measure(list geo.CoordinateList, unit Unit) Measurement {
	m := Measurement{Unit: unit, Source: SourceLocal}

	g := geo.Classify(list)
	switch g.Kind {
	case geo.KindPath:
		l := Length(g.Coords.LineString())
		m.Length = &l
	case geo.KindPolygon:
		a := Ring(g.Ring())
		m.Raw = &a
	}

	return m
}

// Provider computes the raw area of a polygon given by its open ring.
type Provider interface {
	Area(ctx context.Context, list geo.CoordinateList) (float64, error)
}

// Local computes areas in process.
type Local struct{}

// Area implements Provider.
func (Local) Area(_ context.Context, list geo.CoordinateList) (float64, error) {
	if len(list) < 3 {
		return 0, ErrNotPolygon
	}
	return Ring(geo.Classify(list).Ring()), nil
}
