package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// tagGeometryPoint is the CBOR tag SurrealDB uses for geometry points.
const tagGeometryPoint = 88

// GeometryPoint is a WGS84 coordinate. Map SDKs and SurrealDB both order the
// pair as (longitude, latitude) on the wire.
type GeometryPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func NewGeometryPoint(latitude, longitude float64) GeometryPoint {
	return GeometryPoint{
		Latitude: latitude, Longitude: longitude,
	}
}

// GetCoordinates returns the point in GeoJSON order.
func (gp GeometryPoint) GetCoordinates() [2]float64 {
	return [2]float64{gp.Longitude, gp.Latitude}
}

// IsZero reports whether the point was never set.
func (gp GeometryPoint) IsZero() bool {
	return gp.Latitude == 0 && gp.Longitude == 0
}

// Validate checks the coordinate ranges.
func (gp GeometryPoint) Validate() error {
	if math.IsNaN(gp.Latitude) || gp.Latitude < -90 || gp.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", gp.Latitude)
	}
	if math.IsNaN(gp.Longitude) || gp.Longitude < -180 || gp.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", gp.Longitude)
	}
	return nil
}

func (gp GeometryPoint) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  tagGeometryPoint,
		Content: gp.GetCoordinates(),
	})
}

func (gp *GeometryPoint) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag.Number != tagGeometryPoint {
		return fmt.Errorf("unexpected tag number: got %d, want %d", tag.Number, tagGeometryPoint)
	}

	content, ok := tag.Content.([]any)
	if !ok || len(content) != 2 {
		return fmt.Errorf("unexpected content type: got %T, want [2]float64", tag.Content)
	}

	lon, ok := content[0].(float64)
	if !ok {
		return fmt.Errorf("unexpected type for longitude: got %T, want float64", content[0])
	}

	lat, ok := content[1].(float64)
	if !ok {
		return fmt.Errorf("unexpected type for latitude: got %T, want float64", content[1])
	}

	gp.Latitude = lat
	gp.Longitude = lon

	return nil
}

// Value implements the driver.Valuer interface for database storage
func (gp GeometryPoint) Value() (driver.Value, error) {
	b, err := json.Marshal(gp)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database retrieval
func (gp *GeometryPoint) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil || b == nil {
		*gp = GeometryPoint{}
		return err
	}
	return json.Unmarshal(b, gp)
}

func (GeometryPoint) GormDataType() string { return "json" }
