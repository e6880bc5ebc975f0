package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Conversion limits and policy.
	ScratchDir           string
	MaxArchiveBytes      int64
	MaxUncompressedBytes int64
	MaxArchiveEntries    int
	MaxRecords           int
	CRSFallback          string
	RFC7946Winding       bool
	GeoJSONBBox          bool

	// Converted-document cache. CacheSize 0 disables the in-process LRU;
	// an empty ValkeyAddr disables the shared cache.
	CacheSize  int
	CacheTTL   time.Duration
	ValkeyAddr string

	// Conversion-job worker.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaSourceTopic     string
	KafkaSinkTopic       string
	KafkaGroupID         string
	KafkaMaxMessageBytes int
	BatchSize            int
	BatchFlushInterval   time.Duration

	OTelEnabled  bool
	OTelEndpoint string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cacheTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("CACHE_TTL", "1h"))
	if err != nil || cacheTTL <= 0 {
		return nil, errors.New("invalid CACHE_TTL")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ScratchDir:  sharedcfg.EnvOrDefault("SCRATCH_DIR", os.TempDir()),
		CRSFallback: os.Getenv("CRS_FALLBACK"),

		CacheTTL:   cacheTTL,
		ValkeyAddr: os.Getenv("VALKEY_ADDR"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "shapefile-uploads"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geojson-documents"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "shp-geojson"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint: sharedcfg.EnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	}

	if cfg.MaxArchiveBytes, err = parseSize("MAX_ARCHIVE_BYTES", 64<<20); err != nil {
		return nil, err
	}
	if cfg.MaxUncompressedBytes, err = parseSize("MAX_UNCOMPRESSED_BYTES", 512<<20); err != nil {
		return nil, err
	}
	if cfg.MaxArchiveEntries, err = parseCount("MAX_ARCHIVE_ENTRIES", 64, false); err != nil {
		return nil, err
	}
	if cfg.MaxRecords, err = parseCount("MAX_RECORDS", 1_000_000, false); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = parseCount("CACHE_SIZE", 64, true); err != nil {
		return nil, err
	}
	if cfg.KafkaMaxMessageBytes, err = parseCount("KAFKA_MAX_MESSAGE_BYTES", 16<<20, false); err != nil {
		return nil, err
	}
	if cfg.RFC7946Winding, err = parseBool("GEOJSON_RFC7946_WINDING", true); err != nil {
		return nil, err
	}
	if cfg.GeoJSONBBox, err = parseBool("GEOJSON_BBOX", false); err != nil {
		return nil, err
	}

	if cfg.MaxUncompressedBytes < cfg.MaxArchiveBytes {
		return nil, errors.New("MAX_UNCOMPRESSED_BYTES must not be smaller than MAX_ARCHIVE_BYTES")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parseSize(key string, def int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseCount(key string, def int, allowZero bool) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.New("invalid " + key)
	}
	return b, nil
}
