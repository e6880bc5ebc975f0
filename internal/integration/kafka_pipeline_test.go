//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/shp-geojson-service/internal/adapter/kafka"
	"github.com/couchcryptid/shp-geojson-service/internal/archive"
	"github.com/couchcryptid/shp-geojson-service/internal/config"
	"github.com/couchcryptid/shp-geojson-service/internal/crs"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/geojson"
	"github.com/couchcryptid/shp-geojson-service/internal/observability"
	"github.com/couchcryptid/shp-geojson-service/internal/pipeline"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile/shptest"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testSourceTopic = "test-uploads"
	testSinkTopic   = "test-documents"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("shp-geojson-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:         []string{broker},
		KafkaSourceTopic:     testSourceTopic,
		KafkaSinkTopic:       testSinkTopic,
		KafkaGroupID:         fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		KafkaMaxMessageBytes: 16 << 20,
		BatchFlushInterval:   5 * time.Second,
	}
}

func newConverter(t *testing.T) *pipeline.Converter {
	t.Helper()
	resolver, err := crs.NewResolver("EPSG:4326")
	require.NoError(t, err)
	return pipeline.NewConverter(
		archive.DirScratch{Root: t.TempDir()},
		resolver,
		pipeline.ConverterOptions{
			Limits:     archive.Limits{MaxArchiveBytes: 1 << 20, MaxUncompressedBytes: 8 << 20, MaxEntries: 16},
			MaxRecords: 1000,
			GeoJSON:    geojson.DefaultOptions(),
		},
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
}

func stops(n int) shptest.Dataset {
	ds := shptest.Dataset{
		Name: "stops",
		Type: shapefile.Point,
		Table: shptest.Table{
			Fields: []shptest.Field{{Name: "seq", Type: 'N', Length: 6}},
		},
	}
	for i := range n {
		ds.Shapes = append(ds.Shapes, shptest.Shape{Parts: [][]domain.Coord{{{X: -75 + float64(i)/100, Y: 40}}}})
		ds.Table.Rows = append(ds.Table.Rows, []any{i})
	}
	return ds
}

type sinkMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return sinkMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies that kafka.Reader and kafka.Writer round-trip
// an upload and a result through a real broker.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	upload := stops(2).Zip()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte("job-1"), Value: upload}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.UploadJob
	for len(batch) == 0 {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for upload")
		}
	}
	require.Len(t, batch, 1)
	job := batch[0]
	assert.Equal(t, []byte("job-1"), job.Key)
	assert.Equal(t, upload, job.Archive)
	require.NotNil(t, job.Commit)
	require.NoError(t, job.Commit(ctx))

	transformer := pipeline.NewTransformer(newConverter(t), discardLogger(), nil)
	result, err := transformer.Transform(ctx, job)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.ResultMessage{result}))

	msg := readSink(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "job-1", msg.Key)
	assert.Equal(t, pipeline.StatusOK, msg.Headers[pipeline.HeaderStatus])
	assert.Equal(t, "2", msg.Headers[pipeline.HeaderFeatures])
	assert.Equal(t, pipeline.ContentTypeGeoJSON, msg.Headers[pipeline.HeaderContentType])
	_, err = time.Parse(time.RFC3339, msg.Headers[pipeline.HeaderConvertedAt])
	assert.NoError(t, err, "converted_at should be RFC3339")

	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Len(t, doc.Features, 2)
}

// TestPipelineEndToEnd runs the worker loop against a real broker. Every
// upload, including a broken one, produces exactly one result.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("one"), Value: stops(1).Zip()},
		kafkago.Message{Key: []byte("broken"), Value: []byte("not a zip")},
		kafkago.Message{Key: []byte("three"), Value: stops(3).Zip()},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(newConverter(t), discardLogger(), nil)
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := map[string]sinkMessage{}
	for len(received) < 3 {
		msg := readSink(ctx, t, consumer)
		received[msg.Key] = msg
	}

	pipelineCancel()
	require.NoError(t, <-errCh)
	require.NoError(t, p.CheckReadiness(ctx))

	assert.Equal(t, "1", received["one"].Headers[pipeline.HeaderFeatures])
	assert.Equal(t, "3", received["three"].Headers[pipeline.HeaderFeatures])

	broken := received["broken"]
	assert.Equal(t, pipeline.StatusError, broken.Headers[pipeline.HeaderStatus])
	assert.Equal(t, string(domain.KindArchive), broken.Headers[pipeline.HeaderErrorKind])
	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(broken.Value, &body))
	assert.Equal(t, domain.KindArchive, body.Error.Kind)
}
