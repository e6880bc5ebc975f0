// Command shp2geojson converts a zipped shapefile bundle to a GeoJSON
// FeatureCollection in WGS84 without running the service.
//
// Usage:
//
//	go run ./cmd/shp2geojson -in parcels.zip -out parcels.geojson
//	go run ./cmd/shp2geojson -in parcels.zip -crs-fallback EPSG:2272 -bbox
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/couchcryptid/shp-geojson-service/internal/archive"
	"github.com/couchcryptid/shp-geojson-service/internal/crs"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/geojson"
	"github.com/couchcryptid/shp-geojson-service/internal/observability"
	"github.com/couchcryptid/shp-geojson-service/internal/pipeline"
)

type options struct {
	in, out     string
	fallback    string
	bbox        bool
	noRewind    bool
	maxRecords  int
	maxBytes    int64
	verbose     bool
	scratchRoot string
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "", "path to the zipped shapefile bundle (required)")
	flag.StringVar(&opts.out, "out", "", "output path (default stdout)")
	flag.StringVar(&opts.fallback, "crs-fallback", "", "CRS to assume when the bundle has no .prj, e.g. EPSG:4326")
	flag.BoolVar(&opts.bbox, "bbox", false, "add bbox members to the collection and features")
	flag.BoolVar(&opts.noRewind, "no-rewind", false, "keep stored ring orientation instead of RFC 7946 winding")
	flag.IntVar(&opts.maxRecords, "max-records", 1_000_000, "maximum number of records to decode")
	flag.Int64Var(&opts.maxBytes, "max-bytes", 512<<20, "maximum archive size in bytes")
	flag.BoolVar(&opts.verbose, "v", false, "log each conversion stage to stderr")
	flag.StringVar(&opts.scratchRoot, "scratch-dir", os.TempDir(), "directory for temporary extraction")
	flag.Parse()

	if opts.in == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, opts, os.Stdout, os.Stderr))
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(opts.in)
	if err != nil {
		fmt.Fprintf(stderr, "read archive: %v\n", err)
		return 1
	}

	resolver, err := crs.NewResolver(opts.fallback)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := observability.NewLoggerTo(stderr, level, "text")

	converter := pipeline.NewConverter(
		archive.DirScratch{Root: opts.scratchRoot},
		resolver,
		pipeline.ConverterOptions{
			Limits: archive.Limits{
				MaxArchiveBytes:      opts.maxBytes,
				MaxUncompressedBytes: 4 * opts.maxBytes,
				MaxEntries:           256,
			},
			MaxRecords: opts.maxRecords,
			GeoJSON:    geojson.Options{RFC7946Winding: !opts.noRewind, BBox: opts.bbox},
		},
		logger,
		observability.NewUnregisteredMetrics(),
	)

	conv, err := converter.Convert(ctx, data)
	if err != nil {
		fmt.Fprintf(stderr, "convert %s: %v\n", opts.in, err)
		if domain.KindOf(err) == domain.KindInternal {
			return 1
		}
		return 3
	}

	if err := write(opts.out, stdout, conv.Document); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "%s: %d features from %s\n", conv.Source, conv.Features, conv.CRS)
	return 0
}

func write(path string, stdout io.Writer, doc []byte) error {
	if path == "" {
		_, err := stdout.Write(doc)
		return err
	}
	return os.WriteFile(path, doc, 0o644)
}
