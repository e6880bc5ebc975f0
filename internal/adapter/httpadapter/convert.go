package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// uploadField is the multipart form field holding the archive.
const uploadField = "file"

// multipartOverhead is allowed on top of the archive limit for multipart
// boundaries and part headers.
const multipartOverhead = 64 << 10

var errMissingUpload = errors.New("missing upload")

type requestIDKey struct{}

// withRequestID takes the caller's X-Request-ID or generates one, echoes it
// on the response and makes it available to handlers.
func withRequestID(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type convertHandler struct {
	converter domain.Converter
	maxUpload int64
	logger    *slog.Logger
}

func (h *convertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", requestID(r.Context()))

	data, err := h.readUpload(w, r)
	if err != nil {
		status, body := uploadError(err)
		logger.Info("upload rejected", "status", status, "error", err)
		writeJSON(w, status, body)
		return
	}

	conv, err := h.converter.Convert(r.Context(), data)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.Error("conversion failed", "error", err)
		} else {
			logger.Info("conversion rejected", "status", status, "kind", domain.KindOf(err), "error", err)
		}
		writeJSON(w, status, domain.NewErrorResponse(err))
		return
	}

	logger.Info("conversion served", "source", conv.Source, "features", conv.Features, "bytes", len(conv.Document))
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Length", strconv.Itoa(len(conv.Document)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(conv.Document)
}

// readUpload returns the archive from a multipart "file" field or, for any
// other content type, the raw request body.
func (h *convertHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(data) == 0 {
			return nil, errMissingUpload
		}
		return data, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("read multipart: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingUpload
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart: %w", err)
		}
		if part.FormName() != uploadField {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, h.maxUpload+1))
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		if int64(len(data)) > h.maxUpload {
			return nil, &http.MaxBytesError{Limit: h.maxUpload}
		}
		if len(data) == 0 {
			return nil, errMissingUpload
		}
		return data, nil
	}
}

// uploadError maps a failure to read the request into a response.
func uploadError(err error) (int, domain.ErrorResponse) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, domain.ErrorResponse{Error: domain.ErrorDetail{
			Kind:    domain.KindLimitExceeded,
			Message: fmt.Sprintf("archive exceeds %d bytes", mbe.Limit),
		}}
	}
	msg := "request body must be a zip archive or a multipart form with a \"file\" field"
	if !errors.Is(err, errMissingUpload) {
		msg = "malformed upload"
	}
	return http.StatusBadRequest, domain.ErrorResponse{Error: domain.ErrorDetail{
		Kind:    domain.KindArchive,
		Message: msg,
	}}
}

// statusFor maps a conversion error to an HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindArchive, domain.KindDecode, domain.KindCRS, domain.KindReprojection:
		return http.StatusUnprocessableEntity
	case domain.KindLimitExceeded:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
