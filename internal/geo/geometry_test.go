package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var square = CoordinateList{
	{Lng: 10, Lat: 10},
	{Lng: 10, Lat: 20},
	{Lng: 20, Lat: 20},
	{Lng: 20, Lat: 10},
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindEmpty, Classify(nil).Kind)
	assert.Equal(t, KindPoint, Classify(square[:1]).Kind)
	assert.Equal(t, KindPath, Classify(square[:2]).Kind)
	assert.Equal(t, KindPolygon, Classify(square[:3]).Kind)
	assert.Equal(t, KindPolygon, Classify(square).Kind)
}

func TestClassifyDoesNotStoreClosingPoint(t *testing.T) {
	g := Classify(square)
	assert.Len(t, g.Coords, 4)

	ring := g.Ring()
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
	assert.True(t, ring.Closed())
}

func TestExtractRoundTrip(t *testing.T) {
	assert.Empty(t, Extract(Classify(nil)))

	for n := 1; n <= len(square); n++ {
		l := square[:n].Clone()
		assert.Equal(t, l, Extract(Classify(l)), "n=%d", n)
		assert.Equal(t, Classify(l), Classify(Extract(Classify(l))), "n=%d", n)
	}
}

func TestOrbForms(t *testing.T) {
	assert.Nil(t, Classify(nil).Orb())
	assert.Equal(t, orb.Point{10, 10}, Classify(square[:1]).Orb())
	assert.Equal(t, orb.LineString{{10, 10}, {10, 20}}, Classify(square[:2]).Orb())

	poly, ok := Classify(square[:3]).Orb().(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, orb.Ring{{10, 10}, {10, 20}, {20, 20}, {10, 10}}, poly[0])
}

func TestFromOrbRoundTrip(t *testing.T) {
	for n := 1; n <= len(square); n++ {
		g := Classify(square[:n])
		back, err := FromOrb(g.Orb())
		require.NoError(t, err)
		assert.Equal(t, g, back, "n=%d", n)
	}
}

func TestFromOrbDegenerate(t *testing.T) {
	tests := map[string]orb.Geometry{
		"nil":           nil,
		"empty polygon": orb.Polygon{},
		"empty ring":    orb.Polygon{orb.Ring{}},
		"short ring":    orb.Polygon{orb.Ring{{1, 1}, {2, 2}, {1, 1}}},
		"short line":    orb.LineString{{1, 1}},
	}

	for name, g := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := FromOrb(g)
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())
			assert.Empty(t, Extract(got))
		})
	}
}

func TestFromOrbUnsupported(t *testing.T) {
	_, err := FromOrb(orb.MultiPoint{{1, 1}, {2, 2}})
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)
}

func TestFromGeoJSONFeature(t *testing.T) {
	raw := []byte(`{"type":"Feature","id":"calculate-polygon","properties":{},
		"geometry":{"type":"Polygon","coordinates":[[[10,10],[10,20],[20,20],[10,10]]]}}`)

	f, err := geojson.UnmarshalFeature(raw)
	require.NoError(t, err)

	g, err := FromOrb(f.Geometry)
	require.NoError(t, err)
	assert.Equal(t, KindPolygon, g.Kind)
	assert.Equal(t, square[:3], Extract(g))
}

func TestCoordinateListWithout(t *testing.T) {
	l := CoordinateList{{Lng: 1, Lat: 1}, {Lng: 2, Lat: 2}, {Lng: 1, Lat: 1}}

	out, ok := l.Without(Coordinate{Lng: 1, Lat: 1})
	require.True(t, ok)
	assert.Equal(t, CoordinateList{{Lng: 2, Lat: 2}, {Lng: 1, Lat: 1}}, out)
	assert.Len(t, l, 3)

	_, ok = l.Without(Coordinate{Lng: 9, Lat: 9})
	assert.False(t, ok)
}
