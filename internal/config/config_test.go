package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, os.TempDir(), cfg.ScratchDir)
	assert.Equal(t, int64(64<<20), cfg.MaxArchiveBytes)
	assert.Equal(t, int64(512<<20), cfg.MaxUncompressedBytes)
	assert.Equal(t, 64, cfg.MaxArchiveEntries)
	assert.Equal(t, 1_000_000, cfg.MaxRecords)
	assert.Empty(t, cfg.CRSFallback)
	assert.True(t, cfg.RFC7946Winding)
	assert.False(t, cfg.GeoJSONBBox)

	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Empty(t, cfg.ValkeyAddr)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "shapefile-uploads", cfg.KafkaSourceTopic)
	assert.Equal(t, "geojson-documents", cfg.KafkaSinkTopic)
	assert.Equal(t, "shp-geojson", cfg.KafkaGroupID)
	assert.Equal(t, 16<<20, cfg.KafkaMaxMessageBytes)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4318", cfg.OTelEndpoint)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SCRATCH_DIR", "/var/tmp/shp")
	t.Setenv("MAX_ARCHIVE_BYTES", "1048576")
	t.Setenv("MAX_UNCOMPRESSED_BYTES", "8388608")
	t.Setenv("MAX_ARCHIVE_ENTRIES", "10")
	t.Setenv("MAX_RECORDS", "500")
	t.Setenv("CRS_FALLBACK", "EPSG:2272")
	t.Setenv("GEOJSON_RFC7946_WINDING", "false")
	t.Setenv("GEOJSON_BBOX", "true")
	t.Setenv("CACHE_SIZE", "0")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("VALKEY_ADDR", "valkey:6379")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("KAFKA_MAX_MESSAGE_BYTES", "2097152")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/tmp/shp", cfg.ScratchDir)
	assert.Equal(t, int64(1<<20), cfg.MaxArchiveBytes)
	assert.Equal(t, int64(8<<20), cfg.MaxUncompressedBytes)
	assert.Equal(t, 10, cfg.MaxArchiveEntries)
	assert.Equal(t, 500, cfg.MaxRecords)
	assert.Equal(t, "EPSG:2272", cfg.CRSFallback)
	assert.False(t, cfg.RFC7946Winding)
	assert.True(t, cfg.GeoJSONBBox)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "valkey:6379", cfg.ValkeyAddr)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 2<<20, cfg.KafkaMaxMessageBytes)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "collector:4318", cfg.OTelEndpoint)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CACHE_TTL", "bad"},
		{"CACHE_TTL", "0s"},
		{"MAX_ARCHIVE_BYTES", "0"},
		{"MAX_ARCHIVE_BYTES", "lots"},
		{"MAX_UNCOMPRESSED_BYTES", "-1"},
		{"MAX_ARCHIVE_ENTRIES", "0"},
		{"MAX_RECORDS", "1e6"},
		{"CACHE_SIZE", "-1"},
		{"KAFKA_MAX_MESSAGE_BYTES", "0"},
		{"GEOJSON_RFC7946_WINDING", "maybe"},
		{"GEOJSON_BBOX", "yes please"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_UncompressedLimitBelowArchiveLimit(t *testing.T) {
	t.Setenv("MAX_ARCHIVE_BYTES", "2048")
	t.Setenv("MAX_UNCOMPRESSED_BYTES", "1024")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UNCOMPRESSED_BYTES")
}

func TestLoad_KafkaEnabledWithDefaults(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
}

func TestLoad_KafkaEnabledRequiresTrue(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "1")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
