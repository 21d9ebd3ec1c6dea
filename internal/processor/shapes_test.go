package processor

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/woozymasta/geoarea/internal/area"
	"github.com/woozymasta/geoarea/internal/config"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var square = []string{"0,0", "1,0", "1,1", "0,1"}

func TestProcessShapes(t *testing.T) {
	ha := area.Hectares
	shapes := []config.Shape{
		{Name: "square", Points: square},
		{Name: "square-ha", Points: square, Unit: &ha},
		{Name: "path", Points: []string{"0,0", "0,1"}},
		{Name: "point", Points: []string{"10,10"}},
		{Name: "broken", Points: []string{"0,0", "1,0", "200,0", "1,1"}},
		{Name: "none"},
	}

	fc := ProcessShapes(shapes, 3, area.SquareMeters)
	require.Len(t, fc.Features, len(shapes))

	for i, f := range fc.Features {
		assert.Equal(t, shapes[i].Name, f.Properties[PropName])
	}

	sq := fc.Features[0]
	assert.Equal(t, "PolygonReady", sq.Properties[PropState])
	assert.Equal(t, "m2", sq.Properties[PropUnit])
	poly, ok := sq.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 5)
	m2, ok := sq.Properties[PropArea].(float64)
	require.True(t, ok)
	assert.Greater(t, m2, 1.2e10)

	sqHa := fc.Features[1]
	assert.Equal(t, "ha", sqHa.Properties[PropUnit])
	assert.InDelta(t, m2*0.0001, sqHa.Properties[PropArea], 1e-6)

	path := fc.Features[2]
	assert.Equal(t, "TwoPoint", path.Properties[PropState])
	assert.NotContains(t, path.Properties, PropArea)
	assert.Greater(t, path.Properties[PropLength], 110000.0)
	assert.IsType(t, orb.LineString{}, path.Geometry)

	point := fc.Features[3]
	assert.Equal(t, "SinglePoint", point.Properties[PropState])
	assert.Equal(t, orb.Point{10, 10}, point.Geometry)

	broken := fc.Features[4]
	assert.Equal(t, "TwoPoint", broken.Properties[PropState])
	assert.Contains(t, broken.Properties[PropError], "longitude")

	none := fc.Features[5]
	assert.Equal(t, "Empty", none.Properties[PropState])
	assert.Equal(t, orb.Collection{}, none.Geometry)
}

func TestProcessShapesZeroConcurrency(t *testing.T) {
	fc := ProcessShapes([]config.Shape{{Name: "a", Points: square}}, 0, area.Mu)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "mu", fc.Features[0].Properties[PropUnit])
}

func TestEncode(t *testing.T) {
	fc := ProcessShapes([]config.Shape{{Name: "square", Points: square}, {Name: "empty"}}, 1, area.SquareMeters)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, fc, FormatJSON))
	decoded, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, decoded.Features, 2)
	assert.Equal(t, "square", decoded.Features[0].Properties.MustString(PropName))

	buf.Reset()
	require.NoError(t, Encode(&buf, fc, FormatYAML))
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc["type"])

	assert.Error(t, Encode(&buf, fc, "xml"))
}

func TestSave(t *testing.T) {
	fc := ProcessShapes([]config.Shape{{Name: "square", Points: square}}, 1, area.SquareMeters)
	path := filepath.Join(t.TempDir(), "out", "shapes.geojson")

	require.NoError(t, Save(path, fc, FormatJSON))
	assert.FileExists(t, path)
}
