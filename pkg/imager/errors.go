package imager

import (
	"errors"
	"fmt"
)

// Batch-level errors. They are returned by Pipeline.Run instead of a report.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstreamUnavailable = errors.New("figma API unavailable")
)

// Per-image errors. They only ever appear inside a Failed outcome.
var (
	ErrRenderUnavailable = errors.New("render unavailable")
	ErrDownloadFailed    = errors.New("download failed")
	ErrCompressionFailed = errors.New("compression failed")
	ErrUploadFailed      = errors.New("upload failed")
	ErrTimeout           = errors.New("timeout")
	ErrCanceled          = errors.New("canceled")
	ErrInternal          = errors.New("internal error")
)

// Error describes why one image failed. Kind is one of the per-image sentinel errors, so
// errors.Is(err, ErrUploadFailed) works on it.
type Error struct {
	Kind   error
	NodeID string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func targetError(kind error, nodeID string, err error, reason string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		NodeID: nodeID,
		Reason: fmt.Sprintf(reason, args...),
		Err:    err,
	}
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
