package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/shp-geojson-service/internal/config"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes zipped shapefile uploads from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
// Offsets are committed explicitly once a job's result is published.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		MaxBytes:    cfg.KafkaMaxMessageBytes,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch fetches up to batchSize jobs. It returns early with a partial
// (possibly empty) batch once the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.UploadJob, error) {
	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	jobs := make([]domain.UploadJob, 0, batchSize)
	for len(jobs) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if len(jobs) > 0 {
				r.logger.Warn("fetch message failed, returning partial batch", "error", err, "batch_size", len(jobs))
				break
			}
			return nil, fmt.Errorf("fetch message: %w", err)
		}
		job := mapMessageToJob(msg)
		job.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToJob copies a Kafka message into an UploadJob without a commit
// callback.
func mapMessageToJob(msg kafkago.Message) domain.UploadJob {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.UploadJob{
		Key:       msg.Key,
		Archive:   msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
