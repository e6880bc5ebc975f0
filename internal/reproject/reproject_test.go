package reproject

import (
	"testing"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollection() domain.FeatureCollection {
	return domain.FeatureCollection{Features: []domain.Feature{
		{
			Index: 0,
			Geometry: domain.Geometry{
				Type: domain.GeometryPolygon,
				Polygons: [][][]domain.Coord{{
					{{X: 2693000, Y: 236000}, {X: 2693000, Y: 237000}, {X: 2694000, Y: 237000}, {X: 2694000, Y: 236000}, {X: 2693000, Y: 236000}},
				}},
			},
			Properties: domain.Attributes{{Name: "id", Value: int64(1)}},
		},
		{Index: 1, Properties: domain.Attributes{{Name: "id", Value: int64(2)}}},
		{
			Index:    2,
			Geometry: domain.Geometry{Type: domain.GeometryPoint, Points: []domain.Coord{{X: 2711000, Y: 232000}}},
		},
	}}
}

func TestCollection_PreservesStructure(t *testing.T) {
	tr, err := New(lookup(t, 2272))
	require.NoError(t, err)

	in := sampleCollection()
	out, err := Collection(in, tr)
	require.NoError(t, err)
	require.Len(t, out.Features, 3)

	poly := out.Features[0].Geometry
	assert.Equal(t, in.Features[0].Geometry.NumVertices(), poly.NumVertices())
	assert.Equal(t, in.Features[0].Geometry.NumRings(), poly.NumRings())
	assert.InDelta(t, -75.165435039, poly.Polygons[0][0][0].X, 1e-8)
	assert.Equal(t, poly.Polygons[0][0][0], poly.Polygons[0][0][4], "ring stays closed")
	assert.Equal(t, in.Features[0].Properties, out.Features[0].Properties)

	assert.True(t, out.Features[1].Geometry.IsNull())
	assert.InDelta(t, 39.939630566, out.Features[2].Geometry.Points[0].Y, 1e-8)

	assert.Equal(t, 2693000.0, in.Features[0].Geometry.Polygons[0][0][0].X, "input must not be mutated")
}

func TestCollection_Identity(t *testing.T) {
	tr, err := New(lookup(t, 4326))
	require.NoError(t, err)

	in := sampleCollection()
	out, err := Collection(in, tr)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCollection_ErrorNamesFeature(t *testing.T) {
	tr, err := New(lookup(t, 5070))
	require.NoError(t, err)

	in := domain.FeatureCollection{Features: []domain.Feature{
		{Index: 0, Geometry: domain.Geometry{Type: domain.GeometryPoint, Points: []domain.Coord{{X: 0, Y: 0}}}},
		{Index: 1, Geometry: domain.Geometry{Type: domain.GeometryPoint, Points: []domain.Coord{{X: 0, Y: 1e8}}}},
	}}
	_, err = Collection(in, tr)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReprojection)
	assert.Contains(t, err.Error(), "feature 1")
}
