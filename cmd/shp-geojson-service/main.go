package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/shp-geojson-service/internal/adapter/cache"
	"github.com/couchcryptid/shp-geojson-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/shp-geojson-service/internal/adapter/kafka"
	"github.com/couchcryptid/shp-geojson-service/internal/adapter/valkey"
	"github.com/couchcryptid/shp-geojson-service/internal/archive"
	"github.com/couchcryptid/shp-geojson-service/internal/config"
	"github.com/couchcryptid/shp-geojson-service/internal/crs"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/geojson"
	"github.com/couchcryptid/shp-geojson-service/internal/observability"
	"github.com/couchcryptid/shp-geojson-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (feature-flagged via OTEL_ENABLED).
	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelEndpoint)
		if err != nil {
			logger.Error("failed to init tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("tracer shutdown error", "error", err)
			}
		}()
		logger.Info("tracing enabled", "endpoint", cfg.OTelEndpoint)
	}

	resolver, err := crs.NewResolver(cfg.CRSFallback)
	if err != nil {
		logger.Error("invalid CRS_FALLBACK", "error", err)
		os.Exit(1)
	}

	converter := pipeline.NewConverter(
		archive.DirScratch{Root: cfg.ScratchDir},
		resolver,
		pipeline.ConverterOptions{
			Limits: archive.Limits{
				MaxArchiveBytes:      cfg.MaxArchiveBytes,
				MaxUncompressedBytes: cfg.MaxUncompressedBytes,
				MaxEntries:           cfg.MaxArchiveEntries,
			},
			MaxRecords: cfg.MaxRecords,
			GeoJSON: geojson.Options{
				RFC7946Winding: cfg.RFC7946Winding,
				BBox:           cfg.GeoJSONBBox,
			},
		},
		logger,
		metrics,
	)
	ready := httpadapter.Readiness{converter}

	// Shared document cache (optional, via VALKEY_ADDR).
	var cacheOpts []cache.Option
	if cfg.ValkeyAddr != "" {
		store, err := valkey.New(cfg.ValkeyAddr)
		if err != nil {
			logger.Warn("valkey unavailable, shared cache disabled", "error", err)
		} else {
			defer store.Close()
			cacheOpts = append(cacheOpts, cache.WithStore(store, cfg.CacheTTL))
			ready = append(ready, store)
			logger.Info("shared document cache enabled", "addr", cfg.ValkeyAddr, "ttl", cfg.CacheTTL)
		}
	}

	var conv domain.Converter = converter
	if cfg.CacheSize > 0 || len(cacheOpts) > 0 {
		conv = cache.NewCachedConverter(converter, converter.Fingerprint(), cfg.CacheSize, logger, metrics, cacheOpts...)
	}

	// Conversion-job worker (feature-flagged via KAFKA_ENABLED).
	var (
		wg     sync.WaitGroup
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(conv, logger, clockwork.NewRealClock())
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("conversion-job worker enabled",
			"source_topic", cfg.KafkaSourceTopic, "sink_topic", cfg.KafkaSinkTopic)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, conv, cfg.MaxArchiveBytes, ready, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
