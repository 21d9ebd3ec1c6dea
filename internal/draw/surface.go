// Package draw provides the feature store the map draw tool edits.
package draw

import (
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EventType names a user edit on the draw surface.
type EventType string

// Draw tool events.
const (
	EventCreate EventType = "draw.create"
	EventUpdate EventType = "draw.update"
	EventDelete EventType = "draw.delete"
)

// ParseEventType accepts both "update" and "draw.update" forms.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType("draw." + strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "draw.")); t {
	case EventCreate, EventUpdate, EventDelete:
		return t, nil
	}
	return "", fmt.Errorf("unknown draw event %q", s)
}

// Event carries the complete feature set after a user edit.
type Event struct {
	Type     EventType
	Features *geojson.FeatureCollection
}

// Surface renders geometry under feature ids.
type Surface interface {
	AddFeature(id string, g orb.Geometry)
	DeleteAllFeatures()
	AllFeatures() *geojson.FeatureCollection
}

// Memory is an in-process Surface. Programmatic changes (AddFeature,
// DeleteAllFeatures) are silent; user edits go through Apply and are
// published to subscribers.
type Memory struct {
	mu        sync.Mutex
	features  []*geojson.Feature
	listeners map[int]func(Event)
	nextID    int
}

// NewMemory returns an empty surface.
func NewMemory() *Memory {
	return &Memory{listeners: make(map[int]func(Event))}
}

// AddFeature implements Surface. A feature with the same id is replaced.
func (m *Memory) AddFeature(id string, g orb.Geometry) {
	if g == nil {
		return
	}

	f := geojson.NewFeature(orb.Clone(g))
	f.ID = id

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.features {
		if existing.ID == id {
			m.features[i] = f
			return
		}
	}
	m.features = append(m.features, f)
}

// DeleteAllFeatures implements Surface.
func (m *Memory) DeleteAllFeatures() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.features = nil
}

// AllFeatures implements Surface. The returned collection is a copy.
func (m *Memory) AllFeatures() *geojson.FeatureCollection {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot()
}

func (m *Memory) snapshot() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range m.features {
		cp := geojson.NewFeature(orb.Clone(f.Geometry))
		cp.ID = f.ID
		for k, v := range f.Properties {
			cp.Properties[k] = v
		}
		fc.Append(cp)
	}
	return fc
}

// Subscribe registers fn for user edit events and returns a function removing it.
func (m *Memory) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Apply replaces the features with a user edited set and publishes the event.
// Listeners run after the surface is unlocked, so they may call back into it.
func (m *Memory) Apply(t EventType, fc *geojson.FeatureCollection) {
	m.mu.Lock()
	m.features = nil
	if fc != nil {
		for _, f := range fc.Features {
			if f == nil {
				continue
			}
			m.features = append(m.features, f)
		}
	}
	ev := Event{Type: t, Features: m.snapshot()}
	listeners := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
