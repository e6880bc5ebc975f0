package geojson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

const (
	typeFeatureCollection = "FeatureCollection"
	typeFeature           = "Feature"
)

type featureCollection struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox,omitempty"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string     `json:"type"`
	ID         int        `json:"id"`
	BBox       []float64  `json:"bbox,omitempty"`
	Geometry   *geometry  `json:"geometry"`
	Properties properties `json:"properties"`
}

// geometry holds one of the coordinate nestings below, chosen by Type.
type geometry struct {
	Type        domain.GeometryType `json:"type"`
	Coordinates any                 `json:"coordinates"`
}

type (
	position        = []float64
	lineString      = []position
	polygon         = []lineString
	multiPolygon    = []polygon
	multiLineString = []lineString
)

// properties marshals attributes as a JSON object in .dbf field order.
type properties domain.Attributes

func (p properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(attr.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal property %q: %w", attr.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
