package shapefile

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

var errNonFinite = errors.New("coordinate is NaN or infinite")

func decodeRecord(b []byte, fileType ShapeType) (domain.Geometry, error) {
	st := ShapeType(int32(le.Uint32(b[0:4])))
	if st == Null {
		return domain.Geometry{}, nil
	}
	if st != fileType {
		return domain.Geometry{}, fmt.Errorf("shape type %s in a %s file", st, fileType)
	}
	switch st.Base() {
	case Point:
		return decodePoint(b, st)
	case MultiPoint:
		return decodeMultiPoint(b, st)
	case PolyLine, Polygon:
		return decodeParts(b, st)
	}
	return domain.Geometry{}, fmt.Errorf("unsupported shape type %s", st)
}

// checkLength accepts the layout length with or without the optional M block.
func checkLength(got, base, mBlock int, st ShapeType) error {
	if got == base || (st.HasM() && got == base+mBlock) {
		return nil
	}
	return fmt.Errorf("content length %d does not match %s layout (%d bytes)", got, st, base)
}

func decodePoint(b []byte, st ShapeType) (domain.Geometry, error) {
	base := 20
	if st.HasZ() {
		base = 28
	}
	if err := checkLength(len(b), base, 8, st); err != nil {
		return domain.Geometry{}, err
	}
	c := domain.Coord{X: f64(b[4:]), Y: f64(b[12:])}
	if st.HasZ() {
		c.Z = f64(b[20:])
	}
	if !finite(c) {
		return domain.Geometry{}, errNonFinite
	}
	return domain.Geometry{Type: domain.GeometryPoint, HasZ: st.HasZ(), Points: []domain.Coord{c}}, nil
}

func decodeMultiPoint(b []byte, st ShapeType) (domain.Geometry, error) {
	if len(b) < 40 {
		return domain.Geometry{}, fmt.Errorf("content length %d too short for %s", len(b), st)
	}
	n := int(int32(le.Uint32(b[36:40])))
	if n < 0 {
		return domain.Geometry{}, fmt.Errorf("negative point count %d", n)
	}
	base := 40 + 16*n
	if st.HasZ() {
		base += 16 + 8*n
	}
	if err := checkLength(len(b), base, 16+8*n, st); err != nil {
		return domain.Geometry{}, err
	}
	pts, err := readPoints(b, 40, n, st, 40+16*n)
	if err != nil {
		return domain.Geometry{}, err
	}
	return domain.Geometry{Type: domain.GeometryMultiPoint, HasZ: st.HasZ(), Points: pts}, nil
}

func decodeParts(b []byte, st ShapeType) (domain.Geometry, error) {
	if len(b) < 44 {
		return domain.Geometry{}, fmt.Errorf("content length %d too short for %s", len(b), st)
	}
	numParts := int(int32(le.Uint32(b[36:40])))
	numPoints := int(int32(le.Uint32(b[40:44])))
	if numParts < 0 || numPoints < 0 {
		return domain.Geometry{}, fmt.Errorf("negative part or point count (%d, %d)", numParts, numPoints)
	}
	pointsAt := 44 + 4*numParts
	base := pointsAt + 16*numPoints
	if st.HasZ() {
		base += 16 + 8*numPoints
	}
	if err := checkLength(len(b), base, 16+8*numPoints, st); err != nil {
		return domain.Geometry{}, err
	}
	if numParts == 0 {
		if numPoints != 0 {
			return domain.Geometry{}, fmt.Errorf("%d points but no parts", numPoints)
		}
		return domain.Geometry{}, nil
	}

	starts := make([]int, numParts)
	for i := range starts {
		starts[i] = int(int32(le.Uint32(b[44+4*i:])))
	}
	if starts[0] != 0 {
		return domain.Geometry{}, fmt.Errorf("first part starts at %d, want 0", starts[0])
	}
	for i := 1; i < numParts; i++ {
		if starts[i] <= starts[i-1] || starts[i] >= numPoints {
			return domain.Geometry{}, fmt.Errorf("part %d start index %d out of order or beyond %d points", i, starts[i], numPoints)
		}
	}
	if numPoints == 0 {
		return domain.Geometry{}, fmt.Errorf("%d parts but no points", numParts)
	}

	pts, err := readPoints(b, pointsAt, numPoints, st, pointsAt+16*numPoints)
	if err != nil {
		return domain.Geometry{}, err
	}
	parts := make([][]domain.Coord, numParts)
	for i, s := range starts {
		e := numPoints
		if i+1 < numParts {
			e = starts[i+1]
		}
		parts[i] = pts[s:e:e]
	}

	g := domain.Geometry{HasZ: st.HasZ()}
	if st.Base() == PolyLine {
		g.Type = domain.GeometryMultiLineString
		if len(parts) == 1 {
			g.Type = domain.GeometryLineString
		}
		g.Lines = parts
		return g, nil
	}
	g.Polygons = assemblePolygons(parts)
	g.Type = domain.GeometryMultiPolygon
	if len(g.Polygons) == 1 {
		g.Type = domain.GeometryPolygon
	}
	return g, nil
}

// readPoints reads n XY pairs at off and, for Z types, the Z array that
// follows the Z range at zrangeAt.
func readPoints(b []byte, off, n int, st ShapeType, zrangeAt int) ([]domain.Coord, error) {
	pts := make([]domain.Coord, n)
	for i := range pts {
		p := off + 16*i
		pts[i] = domain.Coord{X: f64(b[p:]), Y: f64(b[p+8:])}
	}
	if st.HasZ() {
		zAt := zrangeAt + 16
		for i := range pts {
			pts[i].Z = f64(b[zAt+8*i:])
		}
	}
	for _, c := range pts {
		if !finite(c) {
			return nil, errNonFinite
		}
	}
	return pts, nil
}

func finite(c domain.Coord) bool {
	for _, v := range [3]float64{c.X, c.Y, c.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
