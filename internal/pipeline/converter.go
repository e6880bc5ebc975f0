package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/couchcryptid/shp-geojson-service/internal/archive"
	"github.com/couchcryptid/shp-geojson-service/internal/crs"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/geojson"
	"github.com/couchcryptid/shp-geojson-service/internal/observability"
	"github.com/couchcryptid/shp-geojson-service/internal/reproject"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage names used for spans and the stage duration metric.
const (
	StageArchive   = "archive"
	StageDecode    = "decode"
	StageCRS       = "crs"
	StageReproject = "reproject"
	StageEncode    = "encode"
)

// ConverterOptions configures limits and output format.
type ConverterOptions struct {
	Limits     archive.Limits
	MaxRecords int
	GeoJSON    geojson.Options
}

// Converter runs the archive, decode, CRS, reproject and encode stages for
// one archive at a time. It holds no per-request state and is safe for
// concurrent use.
type Converter struct {
	scratch  archive.ScratchProvider
	resolver *crs.Resolver
	opts     ConverterOptions
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	tracer   trace.Tracer
}

// ConverterOption customizes a Converter.
type ConverterOption func(*Converter)

// WithClock sets the clock used for stage durations.
func WithClock(clock clockwork.Clock) ConverterOption {
	return func(c *Converter) { c.clock = clock }
}

// NewConverter creates a Converter that extracts archives into directories
// from scratch and resolves source CRSs with resolver.
func NewConverter(scratch archive.ScratchProvider, resolver *crs.Resolver, opts ConverterOptions, logger *slog.Logger, metrics *observability.Metrics, options ...ConverterOption) *Converter {
	c := &Converter{
		scratch:  scratch,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		tracer:   observability.Tracer(),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Fingerprint identifies the options that affect the output document.
func (c *Converter) Fingerprint() string {
	fallback := ""
	if c.resolver != nil && c.resolver.Fallback != nil {
		fallback = fmt.Sprintf("%v", *c.resolver.Fallback)
	}
	return fmt.Sprintf("winding=%t bbox=%t fallback=%s",
		c.opts.GeoJSON.RFC7946Winding, c.opts.GeoJSON.BBox, fallback)
}

// Convert turns a zipped shapefile bundle into a GeoJSON document. Errors
// are *domain.ConversionError values, except for context cancellation and
// scratch storage failures.
func (c *Converter) Convert(ctx context.Context, data []byte) (domain.Conversion, error) {
	ctx, span := c.tracer.Start(ctx, "convert", trace.WithAttributes(attribute.Int("archive.bytes", len(data))))
	defer span.End()

	start := c.clock.Now()
	c.metrics.ArchiveBytes.Observe(float64(len(data)))

	conv, err := c.convert(ctx, data)
	if err != nil {
		kind := domain.KindOf(err)
		c.metrics.Conversions.WithLabelValues(string(kind)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		c.logger.Warn("conversion failed", "kind", kind, "error", err)
		return domain.Conversion{}, err
	}

	c.metrics.Conversions.WithLabelValues("success").Inc()
	c.metrics.FeaturesConverted.Add(float64(conv.Features))
	span.SetAttributes(attribute.Int("features", conv.Features), attribute.String("crs", conv.CRS))
	c.logger.Info("conversion complete",
		"source", conv.Source,
		"crs", conv.CRS,
		"features", conv.Features,
		"bytes", len(conv.Document),
		"duration", c.clock.Since(start),
	)
	return conv, nil
}

func (c *Converter) convert(ctx context.Context, data []byte) (domain.Conversion, error) {
	var bundle *archive.Bundle
	err := c.stage(ctx, StageArchive, func(ctx context.Context) error {
		var err error
		bundle, err = archive.Inspect(ctx, data, c.scratch, c.opts.Limits)
		return err
	})
	if err != nil {
		return domain.Conversion{}, err
	}
	defer func() {
		if err := bundle.Close(); err != nil {
			c.logger.Warn("release scratch dir failed", "dir", bundle.Dir, "error", err)
		}
	}()
	if len(bundle.Shapefiles) > 1 {
		c.logger.Info("archive holds several shapefiles, converting the first",
			"selected", bundle.Name, "shapefiles", bundle.Shapefiles)
	}
	c.logger.Debug("archive opened", "shp", bundle.Name, "prj", bundle.PRJ != nil, "cpg", bundle.CPG != nil)

	var ds *shapefile.Dataset
	err = c.stage(ctx, StageDecode, func(context.Context) error {
		var err error
		ds, err = shapefile.Decode(bundle.SHP, bundle.DBF, bundle.CPG, c.opts.MaxRecords)
		return err
	})
	if err != nil {
		return domain.Conversion{}, err
	}
	c.logger.Debug("shapefile decoded",
		"shape_type", ds.Header.ShapeType.String(),
		"features", len(ds.Features),
		"fields", len(ds.Fields),
		"deleted", ds.Deleted,
	)

	var src *crs.CRS
	err = c.stage(ctx, StageCRS, func(context.Context) error {
		var err error
		src, err = c.resolver.Resolve(bundle.PRJ)
		return err
	})
	if err != nil {
		return domain.Conversion{}, err
	}
	c.logger.Debug("crs resolved", "crs", src.String(), "kind", src.Kind.String(), "from_prj", bundle.PRJ != nil)

	fc := ds.Collection()
	err = c.stage(ctx, StageReproject, func(context.Context) error {
		t, err := reproject.New(src)
		if err != nil {
			return err
		}
		fc, err = reproject.Collection(fc, t)
		return err
	})
	if err != nil {
		return domain.Conversion{}, err
	}
	c.logger.Debug("reprojection complete", "features", len(fc.Features))

	var doc []byte
	err = c.stage(ctx, StageEncode, func(context.Context) error {
		var err error
		doc, err = geojson.Encode(fc, c.opts.GeoJSON)
		return err
	})
	if err != nil {
		return domain.Conversion{}, err
	}

	return domain.Conversion{
		Document: doc,
		Features: len(fc.Features),
		Source:   path.Base(bundle.Name),
		CRS:      src.String(),
	}, nil
}

// stage runs fn inside a span and records its duration. A cancelled context
// stops the conversion before the stage starts.
func (c *Converter) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := c.tracer.Start(ctx, name)
	defer span.End()

	start := c.clock.Now()
	err := fn(ctx)
	c.metrics.StageDuration.WithLabelValues(name).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
		return err
	}
	return nil
}

// CheckReadiness verifies that scratch storage accepts writes.
func (c *Converter) CheckReadiness(_ context.Context) error {
	dir, release, err := c.scratch.Acquire()
	if err != nil {
		return fmt.Errorf("scratch storage unavailable: %w", err)
	}
	defer release() //nolint:errcheck // probe dir cleanup is best-effort

	if err := os.WriteFile(filepath.Join(dir, "probe"), []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("scratch storage not writable: %w", err)
	}
	return nil
}
