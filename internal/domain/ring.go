package domain

import "github.com/golang/geo/r2"

// SignedArea returns the shoelace area of a ring in its own plane. It is
// negative for clockwise rings. An unclosed ring is treated as closed.
func SignedArea(ring []Coord) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := range n - 1 {
		sum += point(ring[i]).Cross(point(ring[i+1]))
	}
	if ring[0].X != ring[n-1].X || ring[0].Y != ring[n-1].Y {
		sum += point(ring[n-1]).Cross(point(ring[0]))
	}
	return sum / 2
}

// Bounds returns the planar bounding rectangle of a ring.
func Bounds(ring []Coord) r2.Rect {
	r := r2.EmptyRect()
	for _, c := range ring {
		r = r.AddPoint(point(c))
	}
	return r
}

// RingContains reports whether p lies inside ring by even-odd ray casting.
// Points on the boundary may report either way.
func RingContains(ring []Coord, p Coord) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func point(c Coord) r2.Point { return r2.Point{X: c.X, Y: c.Y} }
