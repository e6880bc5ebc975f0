// Package shapefile decodes the ESRI .shp geometry and dBASE .dbf attribute
// formats into domain features.
package shapefile

import "fmt"

// ShapeType is the shape type code stored in the .shp header and in every
// record.
type ShapeType int32

const (
	Null        ShapeType = 0
	Point       ShapeType = 1
	PolyLine    ShapeType = 3
	Polygon     ShapeType = 5
	MultiPoint  ShapeType = 8
	PointZ      ShapeType = 11
	PolyLineZ   ShapeType = 13
	PolygonZ    ShapeType = 15
	MultiPointZ ShapeType = 18
	PointM      ShapeType = 21
	PolyLineM   ShapeType = 23
	PolygonM    ShapeType = 25
	MultiPointM ShapeType = 28
	MultiPatch  ShapeType = 31
)

var shapeTypeNames = map[ShapeType]string{
	Null:        "Null",
	Point:       "Point",
	PolyLine:    "PolyLine",
	Polygon:     "Polygon",
	MultiPoint:  "MultiPoint",
	PointZ:      "PointZ",
	PolyLineZ:   "PolyLineZ",
	PolygonZ:    "PolygonZ",
	MultiPointZ: "MultiPointZ",
	PointM:      "PointM",
	PolyLineM:   "PolyLineM",
	PolygonM:    "PolygonM",
	MultiPointM: "MultiPointM",
	MultiPatch:  "MultiPatch",
}

func (t ShapeType) String() string {
	if s, ok := shapeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ShapeType(%d)", int32(t))
}

// Supported reports whether records of this type can be decoded.
func (t ShapeType) Supported() bool {
	return t == Null || t.Base() != Null
}

// Base strips the Z or M variant, e.g. PolygonZ becomes Polygon.
func (t ShapeType) Base() ShapeType {
	switch t {
	case Point, PointZ, PointM:
		return Point
	case PolyLine, PolyLineZ, PolyLineM:
		return PolyLine
	case Polygon, PolygonZ, PolygonM:
		return Polygon
	case MultiPoint, MultiPointZ, MultiPointM:
		return MultiPoint
	}
	return Null
}

// HasZ reports whether records carry a Z array.
func (t ShapeType) HasZ() bool {
	return t == PointZ || t == PolyLineZ || t == PolygonZ || t == MultiPointZ
}

// HasM reports whether records may carry an optional M array. Z types also
// allow a trailing M array.
func (t ShapeType) HasM() bool {
	return t.HasZ() || t == PointM || t == PolyLineM || t == PolygonM || t == MultiPointM
}
