// Package session keeps a coordinate list and its drawn feature in sync
// and recomputes the measurement after every edit.
package session

import (
	"fmt"
	"time"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/geo"

	"github.com/paulmach/orb/geojson"
)

// State is derived from the number of coordinates in the session.
type State int

// Session states.
const (
	Empty State = iota
	SinglePoint
	TwoPoint
	PolygonReady
)

var stateNames = [...]string{
	Empty:        "Empty",
	SinglePoint:  "SinglePoint",
	TwoPoint:     "TwoPoint",
	PolygonReady: "PolygonReady",
}

// StateOf returns the state of a list.
func StateOf(list geo.CoordinateList) State {
	switch n := len(list); {
	case n == 0:
		return Empty
	case n == 1:
		return SinglePoint
	case n == 2:
		return TwoPoint
	default:
		return PolygonReady
	}
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the complete mutable state of one editing session.
// Only the Controller owning it writes to it.
type Session struct {
	UpdatedAt    time.Time
	Viewport     *geo.Viewport
	ID           string
	Style        string
	Input        string
	Coordinates  geo.CoordinateList
	Measurement  area.Measurement
	Unit         area.Unit
	InputVisible bool

	// advanced by every coordinate change and remote request
	generation uint64
}

// Snapshot is the persisted part of a session.
type Snapshot struct {
	UpdatedAt   time.Time          `json:"updated_at"`
	ID          string             `json:"id"`
	Style       string             `json:"style"`
	Coordinates geo.CoordinateList `json:"coordinates"`
	Unit        area.Unit          `json:"unit"`
}

// View is a read-only rendering of a session for clients.
type View struct {
	UpdatedAt    time.Time                  `json:"updated_at"`
	Area         *float64                   `json:"area"`
	Viewport     *geo.Viewport              `json:"viewport,omitempty"`
	Features     *geojson.FeatureCollection `json:"features"`
	ID           string                     `json:"id"`
	Style        string                     `json:"style"`
	Input        string                     `json:"input"`
	Geometry     string                     `json:"geometry"`
	Coordinates  geo.CoordinateList         `json:"coordinates"`
	Measurement  area.Measurement           `json:"measurement"`
	State        State                      `json:"state"`
	Unit         area.Unit                  `json:"unit"`
	InputVisible bool                       `json:"input_visible"`
}
