// Package geo handles coordinates, their text form and the geometries derived from them.
package geo

import (
	"strconv"

	"github.com/paulmach/orb"
)

// Coordinate is a WGS84 position.
// It is a value type: replace it, never mutate it in place.
type Coordinate struct {
	Lng float64 `json:"lng" yaml:"lng"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Valid reports whether the coordinate lies within the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Point returns the coordinate as an orb point ([lng, lat]).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// String formats the coordinate in the "lng,lat" entry form.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// FromPoint converts an orb point into a coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lng: p.Lon(), Lat: p.Lat()}
}

// CoordinateList is an ordered sequence of coordinates.
// Order defines the path or ring direction.
type CoordinateList []Coordinate

// Clone returns a copy that does not share the backing array.
func (l CoordinateList) Clone() CoordinateList {
	if l == nil {
		return CoordinateList{}
	}

	out := make(CoordinateList, len(l))
	copy(out, l)
	return out
}

// Index returns the position of the first coordinate equal to c, or -1.
func (l CoordinateList) Index(c Coordinate) int {
	for i := range l {
		if l[i] == c {
			return i
		}
	}
	return -1
}

// Without returns a new list with the first occurrence of c removed.
// The second result is false when c is not in the list.
func (l CoordinateList) Without(c Coordinate) (CoordinateList, bool) {
	i := l.Index(c)
	if i < 0 {
		return l, false
	}

	out := make(CoordinateList, 0, len(l)-1)
	out = append(out, l[:i]...)
	out = append(out, l[i+1:]...)
	return out, true
}

// LineString converts the list into an orb line string.
func (l CoordinateList) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(l))
	for _, c := range l {
		ls = append(ls, c.Point())
	}
	return ls
}

// Locations joins the list into the space separated "lng,lat" form
// used by the legacy area service.
func (l CoordinateList) Locations() string {
	buf := make([]byte, 0, len(l)*24)
	for i, c := range l {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c.String()...)
	}
	return string(buf)
}
