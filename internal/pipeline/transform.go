package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Result message headers.
const (
	HeaderStatus      = "status"
	HeaderErrorKind   = "error_kind"
	HeaderContentType = "content-type"
	HeaderSource      = "source"
	HeaderCRS         = "crs"
	HeaderFeatures    = "features"
	HeaderConvertedAt = "converted_at"
	HeaderJobID       = "job_id"

	StatusOK    = "ok"
	StatusError = "error"

	ContentTypeGeoJSON = "application/geo+json"
	ContentTypeJSON    = "application/json"
)

// JobTransformer implements Transformer by running each job's archive
// through a domain.Converter.
type JobTransformer struct {
	converter domain.Converter
	logger    *slog.Logger
	clock     clockwork.Clock
}

// NewTransformer creates a JobTransformer. A nil clock uses the real clock.
func NewTransformer(converter domain.Converter, logger *slog.Logger, clock clockwork.Clock) *JobTransformer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JobTransformer{
		converter: converter,
		logger:    logger,
		clock:     clock,
	}
}

// Transform converts the job's archive. A failed conversion becomes an
// error result rather than an error, so the failure is published and the
// job is never silently dropped. Only context cancellation is returned.
func (t *JobTransformer) Transform(ctx context.Context, job domain.UploadJob) (domain.ResultMessage, error) {
	headers := map[string]string{
		HeaderConvertedAt: t.clock.Now().UTC().Format(time.RFC3339),
	}
	if len(job.Key) > 0 {
		headers[HeaderJobID] = string(job.Key)
	}

	conv, err := t.converter.Convert(ctx, job.Archive)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ResultMessage{}, fmt.Errorf("convert job: %w", ctx.Err())
		}
		body, merr := json.Marshal(domain.NewErrorResponse(err))
		if merr != nil {
			return domain.ResultMessage{}, fmt.Errorf("marshal error result: %w", merr)
		}
		kind := domain.KindOf(err)
		t.logger.Info("job failed", "job_id", string(job.Key), "kind", kind,
			"topic", job.Topic, "partition", job.Partition, "offset", job.Offset)
		headers[HeaderStatus] = StatusError
		headers[HeaderErrorKind] = string(kind)
		headers[HeaderContentType] = ContentTypeJSON
		return domain.ResultMessage{Key: job.Key, Value: body, Headers: headers}, nil
	}

	headers[HeaderStatus] = StatusOK
	headers[HeaderContentType] = ContentTypeGeoJSON
	headers[HeaderSource] = conv.Source
	headers[HeaderCRS] = conv.CRS
	headers[HeaderFeatures] = strconv.Itoa(conv.Features)
	return domain.ResultMessage{Key: job.Key, Value: conv.Document, Headers: headers}, nil
}
