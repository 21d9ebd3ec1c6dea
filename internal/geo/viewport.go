package geo

import "github.com/paulmach/orb"

// Padding is the screen space, in pixels, kept around fitted bounds.
type Padding struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// DefaultPadding matches the map page layout (the coordinate panel sits on top).
var DefaultPadding = Padding{Top: 100, Bottom: 100, Left: 50, Right: 50}

// Viewport tells the map where to move after the coordinate list changed.
// Exactly one of Center and Bounds is set.
type Viewport struct {
	Center  *Coordinate    `json:"center,omitempty"`
	Bounds  *[2]Coordinate `json:"bounds,omitempty"` // south-west, north-east
	Padding *Padding       `json:"padding,omitempty"`
}

// ViewportFor centers on a single point and fits the bounding box of several.
// The second result is false for an empty list.
func ViewportFor(list CoordinateList) (Viewport, bool) {
	switch len(list) {
	case 0:
		return Viewport{}, false
	case 1:
		c := list[0]
		return Viewport{Center: &c}, true
	}

	mp := make(orb.MultiPoint, 0, len(list))
	for _, c := range list {
		mp = append(mp, c.Point())
	}
	b := mp.Bound()

	padding := DefaultPadding
	return Viewport{
		Bounds:  &[2]Coordinate{FromPoint(b.Min), FromPoint(b.Max)},
		Padding: &padding,
	}, true
}
