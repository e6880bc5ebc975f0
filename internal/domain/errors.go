package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a conversion failed. The string values are part
// of the HTTP and Kafka error payloads.
type ErrorKind string

const (
	KindArchive       ErrorKind = "ArchiveError"
	KindDecode        ErrorKind = "DecodeError"
	KindCRS           ErrorKind = "CrsError"
	KindReprojection  ErrorKind = "ReprojectionError"
	KindLimitExceeded ErrorKind = "LimitExceededError"
	// KindInternal is reported for failures that are not caused by the input,
	// such as an unwritable scratch directory.
	KindInternal ErrorKind = "InternalError"
)

// ConversionError is the error type returned by every conversion stage.
type ConversionError struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrArchive       = &ConversionError{Kind: KindArchive}
	ErrDecode        = &ConversionError{Kind: KindDecode}
	ErrCRS           = &ConversionError{Kind: KindCRS}
	ErrReprojection  = &ConversionError{Kind: KindReprojection}
	ErrLimitExceeded = &ConversionError{Kind: KindLimitExceeded}
)

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is matches a sentinel of the same kind.
func (e *ConversionError) Is(target error) bool {
	t, ok := target.(*ConversionError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Errorf builds a ConversionError of the given kind. The format supports %w.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return &ConversionError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first ConversionError in err's chain, or
// KindInternal if there is none.
func KindOf(err error) ErrorKind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// ErrorResponse is the JSON error payload returned over HTTP and published
// to the sink topic for failed jobs.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed conversion.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewErrorResponse builds the payload for err. Internal errors carry a
// generic message so server details are not exposed.
func NewErrorResponse(err error) ErrorResponse {
	var ce *ConversionError
	if !errors.As(err, &ce) {
		return ErrorResponse{Error: ErrorDetail{Kind: KindInternal, Message: "internal error"}}
	}
	msg := string(ce.Kind)
	if ce.Err != nil {
		msg = ce.Err.Error()
	}
	return ErrorResponse{Error: ErrorDetail{Kind: ce.Kind, Message: msg}}
}
