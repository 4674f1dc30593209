package geo

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "a"}, "geometry": {"type": "Point", "coordinates": [1, 2]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[0, 0], [0, 1]]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Circle", "coordinates": [0, 0], "radius": 5}},
    {"type": "Feature", "properties": {}, "geometry": null},
    {"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": []}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon"}}
  ]
}`

func TestDecodeCollection(t *testing.T) {
	features, err := DecodeCollection([]byte(sampleCollection))
	require.NoError(t, err)
	require.Len(t, features, 6)

	assert.Equal(t, KindPoint, features[0].Kind)
	assert.Equal(t, orb.Point{1, 2}, features[0].Geometry)
	assert.Equal(t, "a", features[0].Properties.MustString("name"))

	assert.Equal(t, orb.LineString{{0, 0}, {0, 1}}, features[1].Geometry)

	assert.Equal(t, "Circle", features[2].Type)
	assert.Equal(t, KindUnknown, features[2].Kind)
	assert.Nil(t, features[2].Geometry)

	assert.False(t, features[3].HasGeometry())

	assert.Equal(t, KindLineString, features[4].Kind)
	assert.Equal(t, KindPolygon, features[5].Kind)

	s := Summarize(features)
	assert.Equal(t, Summary{{"Point", 1}, {"LineString", 2}, {"Circle", 1}, {"Polygon", 1}}, s)

	stats := Detail(features)
	ls, _ := stats.Get("LineString")
	assert.Equal(t, int64(111195), ls.TotalLength)
	poly, _ := stats.Get("Polygon")
	assert.Zero(t, poly.TotalLength)
	assert.True(t, poly.LengthApplicable())
}

func TestDecodeSingleFeatureAndGeometry(t *testing.T) {
	features, err := DecodeCollection([]byte(`{"type":"Feature","geometry":{"type":"MultiLineString","coordinates":[[[0,0],[0,1]]]},"properties":null}`))
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, KindMultiLineString, features[0].Kind)

	features, err = DecodeCollection([]byte(`{"type":"Point","coordinates":[5,6]}`))
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, orb.Point{5, 6}, features[0].Geometry)
}

func TestDecodeCollectionErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":     `<kml/>`,
		"missing type": `{"features": []}`,
		"unknown type": `{"type": "Topology"}`,
		"bad feature":  `{"type": "FeatureCollection", "features": [42]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCollection([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidCollection)
		})
	}
}

func TestToCollectionKeepsSourceIndex(t *testing.T) {
	features, err := DecodeCollection([]byte(sampleCollection))
	require.NoError(t, err)

	fc := ToCollection(features)
	ids := make([]any, 0, len(fc.Features))
	for _, f := range fc.Features {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []any{0, 1, 4, 5}, ids)

	_, err = json.Marshal(fc)
	require.NoError(t, err)
}
