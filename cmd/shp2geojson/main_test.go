package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile/shptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, ds shptest.Dataset) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ds.Name+".zip")
	require.NoError(t, os.WriteFile(p, ds.Zip(), 0o600))
	return p
}

func stops() shptest.Dataset {
	return shptest.Dataset{
		Name: "stops",
		Type: shapefile.Point,
		Shapes: []shptest.Shape{
			{Parts: [][]domain.Coord{{{X: -75.1652, Y: 39.9526}}}},
		},
		Table: shptest.Table{
			Fields: []shptest.Field{{Name: "name", Type: 'C', Length: 16}},
			Rows:   [][]any{{"City Hall"}},
		},
	}
}

func defaultOptions(t *testing.T, in string) options {
	return options{
		in:          in,
		fallback:    "EPSG:4326",
		maxRecords:  100,
		maxBytes:    1 << 20,
		scratchRoot: t.TempDir(),
	}
}

func TestRun_WritesToStdout(t *testing.T) {
	opts := defaultOptions(t, writeArchive(t, stops()))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), opts, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[{"type":"Feature","id":0,`+
		`"geometry":{"type":"Point","coordinates":[-75.1652,39.9526]},"properties":{"name":"City Hall"}}]}`,
		stdout.String())
	assert.Contains(t, stderr.String(), "stops.shp: 1 features")
}

func TestRun_Verbose(t *testing.T) {
	quiet := defaultOptions(t, writeArchive(t, stops()))
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), quiet, &stdout, &stderr), stderr.String())
	assert.NotContains(t, stderr.String(), "level=DEBUG")

	verbose := defaultOptions(t, writeArchive(t, stops()))
	verbose.verbose = true
	stdout.Reset()
	stderr.Reset()
	require.Equal(t, 0, run(context.Background(), verbose, &stdout, &stderr), stderr.String())
	assert.Contains(t, stderr.String(), "level=DEBUG")
	assert.Contains(t, stderr.String(), `msg="shapefile decoded"`)
}

func TestRun_WritesToFile(t *testing.T) {
	opts := defaultOptions(t, writeArchive(t, stops()))
	opts.out = filepath.Join(t.TempDir(), "stops.geojson")
	opts.bbox = true

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(context.Background(), opts, &stdout, &stderr), stderr.String())
	assert.Zero(t, stdout.Len())

	doc, err := os.ReadFile(opts.out)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"bbox":[-75.1652,39.9526,-75.1652,39.9526]`)
}

func TestRun_Failures(t *testing.T) {
	noFallback := defaultOptions(t, writeArchive(t, stops()))
	noFallback.fallback = ""

	missing := defaultOptions(t, filepath.Join(t.TempDir(), "absent.zip"))

	badFallback := defaultOptions(t, writeArchive(t, stops()))
	badFallback.fallback = "EPSG:0"

	tests := []struct {
		name     string
		opts     options
		wantCode int
		wantErr  string
	}{
		{"conversion error", noFallback, 3, "CrsError"},
		{"missing input", missing, 1, "read archive"},
		{"invalid fallback", badFallback, 2, "CRS fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.opts, &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, stderr.String(), tt.wantErr)
			assert.Zero(t, stdout.Len())
		})
	}
}
