// Package geo adapts place coordinates to orb for distance math and the
// GeoJSON the map screens use.
package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/dondetu/dondetu/pkg/models"
)

// FeatureCollection is the GeoJSON document served to the map SDK.
type FeatureCollection = geojson.FeatureCollection

// Feature is one GeoJSON marker.
type Feature = geojson.Feature

// Point returns p in orb's (longitude, latitude) order.
func Point(p models.GeometryPoint) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b models.GeometryPoint) float64 {
	return orbgeo.DistanceHaversine(Point(a), Point(b)) / 1000
}

// NewFeature returns a point feature carrying id and properties.
func NewFeature(id string, p models.GeometryPoint, properties map[string]any) *Feature {
	f := geojson.NewFeature(Point(p))
	if id != "" {
		f.ID = id
	}
	for k, v := range properties {
		f.Properties[k] = v
	}
	return f
}

// NewFeatureCollection returns a collection; a nil slice encodes as [].
func NewFeatureCollection(features []*Feature) *FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	return fc
}
