package shapefile_test

import (
	"testing"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile/shptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parcels() shptest.Dataset {
	return shptest.Dataset{
		Name: "parcels",
		Type: shapefile.Polygon,
		Shapes: []shptest.Shape{
			{Parts: [][]domain.Coord{shptest.Square(0, 0, 10)}},
			{Null: true},
			{Parts: [][]domain.Coord{shptest.Square(20, 0, 10), shptest.Reverse(shptest.Square(22, 2, 2))}},
		},
		Table: shptest.Table{
			Fields: []shptest.Field{{Name: "id", Type: 'N', Length: 6}, {Name: "name", Type: 'C', Length: 16}},
			Rows:   [][]any{{1, "first"}, {2, "second"}, {3, "third"}},
		},
	}
}

func componentBytes(d shptest.Dataset) (shp, dbf []byte) {
	shp, _ = shptest.SHP(d.Type, d.Shapes)
	return shp, d.Table.Bytes()
}

func TestDecode(t *testing.T) {
	shp, dbf := componentBytes(parcels())

	ds, err := shapefile.Decode(shp, dbf, nil, 0)
	require.NoError(t, err)
	require.Len(t, ds.Features, 3)
	assert.Equal(t, shapefile.Polygon, ds.Header.ShapeType)
	assert.Len(t, ds.Fields, 2)

	for i, f := range ds.Features {
		assert.Equal(t, i, f.Index)
		id, ok := f.Properties.Get("id")
		require.True(t, ok)
		assert.Equal(t, int64(i+1), id)
	}
	assert.True(t, ds.Features[1].Geometry.IsNull())
	assert.Equal(t, 2, ds.Features[2].Geometry.NumRings())
	assert.Len(t, ds.Collection().Features, 3)
}

func TestDecode_CountMismatch(t *testing.T) {
	d := parcels()
	d.Table.Rows = d.Table.Rows[:2]
	shp, dbf := componentBytes(d)

	ds, err := shapefile.Decode(shp, dbf, nil, 0)
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), "3 records but dbf has 2 rows")
}

func TestDecode_RecordCeilingCheckedBeforeGeometry(t *testing.T) {
	shp, dbf := componentBytes(parcels())
	// Corrupt the first geometry record; the ceiling must trip first.
	shp[108] = 0xFF

	_, err := shapefile.Decode(shp, dbf, nil, 2)
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)

	_, err = shapefile.Decode(shp, dbf, nil, 3)
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestDecode_UsesCPG(t *testing.T) {
	d := parcels()
	d.Table.Rows[0][1] = "Gen\xe8ve"
	shp, dbf := componentBytes(d)

	ds, err := shapefile.Decode(shp, dbf, []byte("1252"), 0)
	require.NoError(t, err)
	name, _ := ds.Features[0].Properties.Get("name")
	assert.Equal(t, "Genève", name)
}
