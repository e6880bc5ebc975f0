package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/shp-geojson-service/internal/config"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces result messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchBytes:   int64(cfg.KafkaMaxMessageBytes),
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes the results to the sink topic in a single
// WriteMessages call. Results keep their job key so they land on the same
// partition as each other.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.ResultMessage) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msgs[i] = toMessage(results[i])
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage converts a ResultMessage into a Kafka message with headers in
// key order.
func toMessage(result domain.ResultMessage) kafkago.Message {
	keys := make([]string, 0, len(result.Headers))
	for k := range result.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(result.Headers[k])})
	}
	return kafkago.Message{
		Key:     result.Key,
		Value:   result.Value,
		Headers: headers,
	}
}
