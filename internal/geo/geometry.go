package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrUnsupportedGeometry is returned for draw output that is not a point, line or polygon.
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// Kind tags the variant held by a Geometry.
type Kind int

// Geometry kinds, ordered by the number of points they need.
const (
	KindEmpty Kind = iota
	KindPoint
	KindPath
	KindPolygon
)

var kindNames = [...]string{
	KindEmpty:   "Empty",
	KindPoint:   "Point",
	KindPath:    "LineString",
	KindPolygon: "Polygon",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Geometry is derived from a CoordinateList and never edited by hand.
// For KindPolygon the coordinates form an open ring: the closing vertex
// is materialized by Ring and Orb only.
type Geometry struct {
	Kind   Kind
	Coords CoordinateList
}

// Classify builds the geometry represented by the list:
// 0 points is empty, 1 a point, 2 a path and 3 or more a polygon.
func Classify(list CoordinateList) Geometry {
	switch n := len(list); {
	case n == 0:
		return Geometry{Kind: KindEmpty}
	case n == 1:
		return Geometry{Kind: KindPoint, Coords: list.Clone()}
	case n == 2:
		return Geometry{Kind: KindPath, Coords: list.Clone()}
	default:
		return Geometry{Kind: KindPolygon, Coords: list.Clone()}
	}
}

// Extract returns the coordinate list the geometry was built from.
// Extract(Classify(l)) equals l.
func Extract(g Geometry) CoordinateList {
	switch g.Kind {
	case KindPoint, KindPath, KindPolygon:
		return g.Coords.Clone()
	default:
		return CoordinateList{}
	}
}

// IsEmpty reports whether the geometry has nothing to draw.
func (g Geometry) IsEmpty() bool {
	return g.Kind == KindEmpty
}

// Ring returns the closed ring of a polygon, first vertex repeated at the end.
// It returns nil for any other kind.
func (g Geometry) Ring() orb.Ring {
	if g.Kind != KindPolygon || len(g.Coords) == 0 {
		return nil
	}

	ring := make(orb.Ring, 0, len(g.Coords)+1)
	for _, c := range g.Coords {
		ring = append(ring, c.Point())
	}
	return append(ring, g.Coords[0].Point())
}

// Orb returns the drawable form of the geometry, or nil when it is empty.
func (g Geometry) Orb() orb.Geometry {
	switch g.Kind {
	case KindPoint:
		return g.Coords[0].Point()
	case KindPath:
		return g.Coords.LineString()
	case KindPolygon:
		return orb.Polygon{g.Ring()}
	default:
		return nil
	}
}

// FromOrb decodes geometry emitted by a draw surface.
// Polygons lose their closing vertex. Degenerate shapes (empty polygon,
// ring of fewer than 4 positions, line of fewer than 2) decode as empty.
func FromOrb(g orb.Geometry) (Geometry, error) {
	switch v := g.(type) {
	case nil:
		return Geometry{Kind: KindEmpty}, nil
	case orb.Point:
		return Classify(CoordinateList{FromPoint(v)}), nil
	case orb.LineString:
		if len(v) < 2 {
			return Geometry{Kind: KindEmpty}, nil
		}
		return Classify(pointsToList(v)), nil
	case orb.Ring:
		return fromRing(v), nil
	case orb.Polygon:
		if len(v) == 0 {
			return Geometry{Kind: KindEmpty}, nil
		}
		return fromRing(v[0]), nil
	default:
		return Geometry{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

func fromRing(ring orb.Ring) Geometry {
	// a closed ring needs at least three vertices plus the closing one
	if len(ring) < 4 {
		return Geometry{Kind: KindEmpty}
	}
	return Classify(pointsToList(ring[:len(ring)-1]))
}

func pointsToList(points []orb.Point) CoordinateList {
	list := make(CoordinateList, 0, len(points))
	for _, p := range points {
		list = append(list, FromPoint(p))
	}
	return list
}
