package geo

import (
	"encoding/json"
	"testing"

	"github.com/dondetu/dondetu/pkg/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	zocalo := models.NewGeometryPoint(19.4326, -99.1332)
	angel := models.NewGeometryPoint(19.4270, -99.1677)
	guadalajara := models.NewGeometryPoint(20.6597, -103.3496)

	testcases := []struct {
		name  string
		a, b  models.GeometryPoint
		want  float64
		delta float64
	}{
		{name: "same point", a: zocalo, b: zocalo, want: 0, delta: 1e-9},
		{name: "across the city", a: zocalo, b: angel, want: 3.675, delta: 0.05},
		{name: "between cities", a: zocalo, b: guadalajara, want: 461.6, delta: 1},
		{name: "antipodes", a: models.NewGeometryPoint(0, 0), b: models.NewGeometryPoint(0, 180), want: 20037.5, delta: 1},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Haversine(tc.a, tc.b), tc.delta)
			assert.InDelta(t, Haversine(tc.a, tc.b), Haversine(tc.b, tc.a), 1e-9)
		})
	}
}

func TestFeatureCollection_JSON(t *testing.T) {
	fc := NewFeatureCollection([]*Feature{
		NewFeature("p1", models.NewGeometryPoint(19.4, -99.1), map[string]any{"name": "Bósforo"}),
	})

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"id": "p1",
			"geometry": {"type": "Point", "coordinates": [-99.1, 19.4]},
			"properties": {"name": "Bósforo"}
		}]
	}`, string(data))

	empty, err := json.Marshal(NewFeatureCollection(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "FeatureCollection", "features": []}`, string(empty))
}

func TestNewFeature(t *testing.T) {
	f := NewFeature("p2", models.NewGeometryPoint(20.67, -103.35), nil)
	assert.Equal(t, "p2", f.ID)
	assert.Equal(t, orb.Point{-103.35, 20.67}, f.Geometry)
	assert.Empty(t, f.Properties)

	anonymous := NewFeature("", models.NewGeometryPoint(1, 2), map[string]any{"featured": true})
	assert.Nil(t, anonymous.ID)
	assert.Equal(t, true, anonymous.Properties["featured"])
}
