package shapefile

import (
	"math"
	"sort"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

// assemblePolygons groups a flat list of rings into polygons. Clockwise rings
// are exteriors. Every other ring becomes a hole of the smallest exterior
// that contains it; a ring contained by no exterior stands as its own
// polygon. Such rings are promoted largest first so the result does not
// depend on the order rings are stored in. Rings are never reordered within
// a polygon or modified.
func assemblePolygons(rings [][]domain.Coord) [][][]domain.Coord {
	n := len(rings)
	area := make([]float64, n)
	exterior := make([]bool, n)
	for i, r := range rings {
		area[i] = domain.SignedArea(r)
		exterior[i] = area[i] < 0
	}

	var candidates []int
	for i := range rings {
		if !exterior[i] {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return math.Abs(area[candidates[a]]) > math.Abs(area[candidates[b]])
	})
	for _, i := range candidates {
		if containingExterior(rings, exterior, area, rings[i]) < 0 {
			exterior[i] = true
		}
	}

	owner := make([]int, n)
	for i, r := range rings {
		owner[i] = -1
		if !exterior[i] {
			owner[i] = containingExterior(rings, exterior, area, r)
		}
	}

	slot := make([]int, n)
	var polys [][][]domain.Coord
	for i, r := range rings {
		if exterior[i] {
			slot[i] = len(polys)
			polys = append(polys, [][]domain.Coord{r})
		}
	}
	for i, r := range rings {
		if !exterior[i] {
			s := slot[owner[i]]
			polys[s] = append(polys[s], r)
		}
	}
	return polys
}

func containingExterior(rings [][]domain.Coord, exterior []bool, area []float64, hole []domain.Coord) int {
	if len(hole) == 0 {
		return -1
	}
	hb := domain.Bounds(hole)
	best, bestArea := -1, math.Inf(1)
	for j, r := range rings {
		if !exterior[j] || !domain.Bounds(r).Contains(hb) {
			continue
		}
		if !holeInside(r, hole) {
			continue
		}
		if a := math.Abs(area[j]); a < bestArea {
			best, bestArea = j, a
		}
	}
	return best
}

// holeInside tests hole vertices against the exterior until one falls
// strictly on a side. A hole that shares all its vertices with the exterior
// boundary is treated as inside.
func holeInside(exterior, hole []domain.Coord) bool {
	for _, p := range hole {
		if onVertex(exterior, p) {
			continue
		}
		return domain.RingContains(exterior, p)
	}
	return true
}

func onVertex(ring []domain.Coord, p domain.Coord) bool {
	for _, c := range ring {
		if c.X == p.X && c.Y == p.Y {
			return true
		}
	}
	return false
}
