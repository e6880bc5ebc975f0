// Package geojson encodes a WGS84 feature collection as an RFC 7946
// FeatureCollection document.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

// Options controls optional parts of the output.
type Options struct {
	// RFC7946Winding rewinds polygon rings so exteriors are counterclockwise
	// and holes clockwise. When false, rings keep their stored order.
	RFC7946Winding bool
	// BBox adds a bbox member to the collection and to each feature.
	BBox bool
}

// DefaultOptions returns RFC 7946 winding without bounding boxes.
func DefaultOptions() Options {
	return Options{RFC7946Winding: true}
}

// Encode renders fc as a FeatureCollection. Features keep their order and
// each feature's id is its record index.
func Encode(fc domain.FeatureCollection, opts Options) ([]byte, error) {
	doc := featureCollection{
		Type:     typeFeatureCollection,
		Features: make([]feature, 0, len(fc.Features)),
	}

	var total extent
	for _, f := range fc.Features {
		out := feature{
			Type:       typeFeature,
			ID:         f.Index,
			Properties: properties(f.Properties),
		}
		if out.Properties == nil {
			out.Properties = properties{}
		}
		if !f.Geometry.IsNull() {
			g, err := encodeGeometry(f.Geometry, opts.RFC7946Winding)
			if err != nil {
				return nil, fmt.Errorf("encode feature %d: %w", f.Index, err)
			}
			out.Geometry = g
			if opts.BBox {
				e := extentOf(f.Geometry)
				out.BBox = e.bbox()
				total.union(e)
			}
		}
		doc.Features = append(doc.Features, out)
	}
	if opts.BBox {
		doc.BBox = total.bbox()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	return data, nil
}

func encodeGeometry(g domain.Geometry, rfcWinding bool) (*geometry, error) {
	pos := func(c domain.Coord) position {
		if g.HasZ {
			return position{c.X, c.Y, c.Z}
		}
		return position{c.X, c.Y}
	}
	line := func(cs []domain.Coord) lineString {
		out := make(lineString, len(cs))
		for i, c := range cs {
			out[i] = pos(c)
		}
		return out
	}
	poly := func(rings [][]domain.Coord) polygon {
		out := make(polygon, len(rings))
		for i, r := range rings {
			out[i] = line(r)
			if rfcWinding && needsRewind(r, i == 0) {
				rewind(out[i])
			}
		}
		return out
	}

	out := &geometry{Type: g.Type}
	switch g.Type {
	case domain.GeometryPoint:
		if len(g.Points) != 1 {
			return nil, fmt.Errorf("point has %d coordinates", len(g.Points))
		}
		out.Coordinates = pos(g.Points[0])
	case domain.GeometryMultiPoint:
		out.Coordinates = line(g.Points)
	case domain.GeometryLineString:
		if len(g.Lines) != 1 {
			return nil, fmt.Errorf("line string has %d parts", len(g.Lines))
		}
		out.Coordinates = line(g.Lines[0])
	case domain.GeometryMultiLineString:
		lines := make(multiLineString, len(g.Lines))
		for i, l := range g.Lines {
			lines[i] = line(l)
		}
		out.Coordinates = lines
	case domain.GeometryPolygon:
		if len(g.Polygons) != 1 {
			return nil, fmt.Errorf("polygon has %d parts", len(g.Polygons))
		}
		out.Coordinates = poly(g.Polygons[0])
	case domain.GeometryMultiPolygon:
		polys := make(multiPolygon, len(g.Polygons))
		for i, p := range g.Polygons {
			polys[i] = poly(p)
		}
		out.Coordinates = polys
	default:
		return nil, fmt.Errorf("unknown geometry type %q", g.Type)
	}
	return out, nil
}

// needsRewind reports whether a ring runs against RFC 7946 orientation.
// Degenerate rings with zero area are left alone.
func needsRewind(ring []domain.Coord, exterior bool) bool {
	a := domain.SignedArea(ring)
	if exterior {
		return a < 0
	}
	return a > 0
}

// rewind reverses a ring in place. The closing vertex stays a copy of the
// first.
func rewind(ring lineString) {
	for i := len(ring)/2 - 1; i >= 0; i-- {
		opp := len(ring) - 1 - i
		ring[i], ring[opp] = ring[opp], ring[i]
	}
}

// extent accumulates a bounding box, including z when every contributing
// geometry has it.
type extent struct {
	n                int
	hasZ             bool
	minX, minY, minZ float64
	maxX, maxY, maxZ float64
}

func extentOf(g domain.Geometry) extent {
	e := extent{hasZ: g.HasZ}
	add := func(c domain.Coord) {
		if e.n == 0 {
			e.minX, e.maxX = c.X, c.X
			e.minY, e.maxY = c.Y, c.Y
			e.minZ, e.maxZ = c.Z, c.Z
		}
		e.n++
		e.minX, e.maxX = math.Min(e.minX, c.X), math.Max(e.maxX, c.X)
		e.minY, e.maxY = math.Min(e.minY, c.Y), math.Max(e.maxY, c.Y)
		e.minZ, e.maxZ = math.Min(e.minZ, c.Z), math.Max(e.maxZ, c.Z)
	}
	for _, c := range g.Points {
		add(c)
	}
	for _, l := range g.Lines {
		for _, c := range l {
			add(c)
		}
	}
	for _, p := range g.Polygons {
		for _, r := range p {
			for _, c := range r {
				add(c)
			}
		}
	}
	return e
}

func (e *extent) union(o extent) {
	if o.n == 0 {
		return
	}
	if e.n == 0 {
		*e = o
		return
	}
	e.n += o.n
	e.hasZ = e.hasZ && o.hasZ
	e.minX, e.maxX = math.Min(e.minX, o.minX), math.Max(e.maxX, o.maxX)
	e.minY, e.maxY = math.Min(e.minY, o.minY), math.Max(e.maxY, o.maxY)
	e.minZ, e.maxZ = math.Min(e.minZ, o.minZ), math.Max(e.maxZ, o.maxZ)
}

func (e extent) bbox() []float64 {
	switch {
	case e.n == 0:
		return nil
	case e.hasZ:
		return []float64{e.minX, e.minY, e.minZ, e.maxX, e.maxY, e.maxZ}
	default:
		return []float64{e.minX, e.minY, e.maxX, e.maxY}
	}
}
