package shapefile

import (
	"testing"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cwSquare(x, y, s float64) []domain.Coord {
	return []domain.Coord{{X: x, Y: y}, {X: x, Y: y + s}, {X: x + s, Y: y + s}, {X: x + s, Y: y}, {X: x, Y: y}}
}

func ccwSquare(x, y, s float64) []domain.Coord {
	return []domain.Coord{{X: x, Y: y}, {X: x + s, Y: y}, {X: x + s, Y: y + s}, {X: x, Y: y + s}, {X: x, Y: y}}
}

func TestAssemblePolygons(t *testing.T) {
	t.Run("exterior with hole", func(t *testing.T) {
		outer, hole := cwSquare(0, 0, 10), ccwSquare(2, 2, 2)
		polys := assemblePolygons([][]domain.Coord{outer, hole})
		require.Len(t, polys, 1)
		assert.Equal(t, [][]domain.Coord{outer, hole}, polys[0])
	})

	t.Run("holes listed after all exteriors", func(t *testing.T) {
		a, b := cwSquare(0, 0, 10), cwSquare(20, 0, 10)
		ha, hb := ccwSquare(2, 2, 2), ccwSquare(22, 2, 2)
		polys := assemblePolygons([][]domain.Coord{a, b, hb, ha})
		require.Len(t, polys, 2)
		assert.Equal(t, [][]domain.Coord{a, ha}, polys[0])
		assert.Equal(t, [][]domain.Coord{b, hb}, polys[1])
	})

	t.Run("uncontained counter-clockwise ring stands alone", func(t *testing.T) {
		a, stray := cwSquare(0, 0, 10), ccwSquare(50, 50, 2)
		polys := assemblePolygons([][]domain.Coord{a, stray})
		require.Len(t, polys, 2)
		assert.Equal(t, [][]domain.Coord{stray}, polys[1])
	})

	t.Run("island inside a hole", func(t *testing.T) {
		outer, hole, island := cwSquare(0, 0, 100), ccwSquare(10, 10, 50), cwSquare(20, 20, 10)
		polys := assemblePolygons([][]domain.Coord{outer, hole, island})
		require.Len(t, polys, 2)
		assert.Equal(t, [][]domain.Coord{outer, hole}, polys[0])
		assert.Equal(t, [][]domain.Coord{island}, polys[1])
	})

	t.Run("hole goes to the smallest containing exterior", func(t *testing.T) {
		outer, hole, island, inner := cwSquare(0, 0, 100), ccwSquare(10, 10, 50), cwSquare(20, 20, 20), ccwSquare(25, 25, 5)
		polys := assemblePolygons([][]domain.Coord{outer, hole, island, inner})
		require.Len(t, polys, 2)
		assert.Equal(t, [][]domain.Coord{island, inner}, polys[1])
	})

	t.Run("all counter-clockwise rings", func(t *testing.T) {
		outer, inner := ccwSquare(0, 0, 10), ccwSquare(2, 2, 2)
		polys := assemblePolygons([][]domain.Coord{outer, inner})
		require.Len(t, polys, 1)
		assert.Equal(t, [][]domain.Coord{outer, inner}, polys[0])
	})

	t.Run("all counter-clockwise rings, inner stored first", func(t *testing.T) {
		outer, inner := ccwSquare(0, 0, 10), ccwSquare(2, 2, 2)
		polys := assemblePolygons([][]domain.Coord{inner, outer})
		require.Len(t, polys, 1)
		assert.Equal(t, [][]domain.Coord{outer, inner}, polys[0])
	})
}
