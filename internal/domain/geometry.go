package domain

// GeometryType names a GeoJSON geometry kind. The zero value is a null
// geometry.
type GeometryType string

const (
	GeometryNull            GeometryType = ""
	GeometryPoint           GeometryType = "Point"
	GeometryMultiPoint      GeometryType = "MultiPoint"
	GeometryLineString      GeometryType = "LineString"
	GeometryMultiLineString GeometryType = "MultiLineString"
	GeometryPolygon         GeometryType = "Polygon"
	GeometryMultiPolygon    GeometryType = "MultiPolygon"
)

// Coord is a single vertex. Z is meaningful only when the owning geometry
// has HasZ set.
type Coord struct {
	X, Y, Z float64
}

// Geometry is a decoded shape. Exactly one of Points, Lines or Polygons is
// populated, depending on Type:
//
//	Point, MultiPoint            Points
//	LineString, MultiLineString  Lines
//	Polygon, MultiPolygon        Polygons (each polygon is exterior ring first, then holes)
type Geometry struct {
	Type     GeometryType
	HasZ     bool
	Points   []Coord
	Lines    [][]Coord
	Polygons [][][]Coord
}

// IsNull reports whether the geometry carries no shape.
func (g Geometry) IsNull() bool {
	return g.Type == GeometryNull
}

// NumVertices returns the total number of coordinates in the geometry.
func (g Geometry) NumVertices() int {
	n := len(g.Points)
	for _, l := range g.Lines {
		n += len(l)
	}
	for _, p := range g.Polygons {
		for _, r := range p {
			n += len(r)
		}
	}
	return n
}

// NumRings returns the number of polygon rings across all polygons.
func (g Geometry) NumRings() int {
	n := 0
	for _, p := range g.Polygons {
		n += len(p)
	}
	return n
}

// Transform returns a copy of g with fn applied to every coordinate. The
// part, ring and vertex structure is preserved exactly. The first error
// returned by fn aborts the transform.
func (g Geometry) Transform(fn func(Coord) (Coord, error)) (Geometry, error) {
	out := Geometry{Type: g.Type, HasZ: g.HasZ}
	var err error
	if g.Points != nil {
		if out.Points, err = transformCoords(g.Points, fn); err != nil {
			return Geometry{}, err
		}
	}
	if g.Lines != nil {
		out.Lines = make([][]Coord, len(g.Lines))
		for i, l := range g.Lines {
			if out.Lines[i], err = transformCoords(l, fn); err != nil {
				return Geometry{}, err
			}
		}
	}
	if g.Polygons != nil {
		out.Polygons = make([][][]Coord, len(g.Polygons))
		for i, p := range g.Polygons {
			rings := make([][]Coord, len(p))
			for j, r := range p {
				if rings[j], err = transformCoords(r, fn); err != nil {
					return Geometry{}, err
				}
			}
			out.Polygons[i] = rings
		}
	}
	return out, nil
}

func transformCoords(in []Coord, fn func(Coord) (Coord, error)) ([]Coord, error) {
	out := make([]Coord, len(in))
	for i, c := range in {
		t, err := fn(c)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
