// Package processor measures named coordinate lists in bulk.
package processor

import (
	"sync"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/config"
	"github.com/woozymasta/geoarea/internal/geo"
	"github.com/woozymasta/geoarea/internal/notify"
	"github.com/woozymasta/geoarea/internal/session"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// Feature property keys written by ProcessShapes.
const (
	PropName   = "name"
	PropState  = "state"
	PropArea   = "area"
	PropUnit   = "unit"
	PropLength = "length"
	PropError  = "error"
)

type job struct {
	Shape config.Shape
	Index int
}

type result struct {
	Feature *geojson.Feature
	Index   int
}

// ProcessShapes runs every shape through its own session and returns one
// feature per shape, in input order. Shapes with an invalid entry keep the
// points committed before it and carry the error in their properties.
func ProcessShapes(shapes []config.Shape, concurrency int, unit area.Unit) *geojson.FeatureCollection {
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan job, len(shapes))
	results := make(chan result, len(shapes))

	go func() {
		for i, s := range shapes {
			jobs <- job{Shape: s, Index: i}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- result{Feature: measureShape(j.Shape, unit), Index: j.Index}
			}
		}()
	}
	wg.Wait()
	close(results)

	features := make([]*geojson.Feature, len(shapes))
	for res := range results {
		features[res.Index] = res.Feature
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = features
	return fc
}

func measureShape(shape config.Shape, unit area.Unit) *geojson.Feature {
	if shape.Unit != nil && shape.Unit.Valid() {
		unit = *shape.Unit
	}

	ctrl := session.New(session.Options{
		ID:       shape.Name,
		Unit:     unit,
		Notifier: &notify.Queue{},
	})

	var commitErr error
	for i, p := range shape.Points {
		if err := ctrl.TextCommit(p); err != nil {
			commitErr = err
			log.Warn().
				Err(err).
				Str("shape", shape.Name).
				Int("entry", i).
				Msg("Invalid coordinate, shape truncated")
			break
		}
	}

	list := ctrl.Coordinates()
	g := geo.Classify(list)
	m := ctrl.Measurement()

	geometry := g.Orb()
	if geometry == nil {
		// empty shapes still need a valid GeoJSON geometry
		geometry = orb.Collection{}
	}

	f := geojson.NewFeature(geometry)
	f.Properties[PropName] = shape.Name
	f.Properties[PropState] = ctrl.State().String()
	f.Properties[PropUnit] = m.Unit.String()
	if v, ok := m.Value(); ok {
		f.Properties[PropArea] = v
	}
	if m.Length != nil {
		f.Properties[PropLength] = *m.Length
	}
	if commitErr != nil {
		f.Properties[PropError] = commitErr.Error()
	}

	log.Debug().
		Str("shape", shape.Name).
		Int("points", len(list)).
		Str("state", ctrl.State().String()).
		Msg("Shape measured")

	return f
}
