package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageMetadata Stage = "metadata"
	StageImage    Stage = "image"
	StageDecode   Stage = "decode"
)

const (
	ErrorTimeout           = "timeout"
	ErrorTransport         = "transport"
	ErrorStatus            = "bad_status"
	ErrorTooLarge          = "too_large"
	ErrorInvalidMetadata   = "invalid_metadata"
	ErrorUnsupportedScheme = "unsupported_scheme"
	ErrorDecode            = "decode_failed"
)

// ErrNoImage reports metadata without an image reference. No artifact is
// produced, but nothing failed either.
var ErrNoImage = errors.New("metadata has no image")

// Error is a categorized failure of one fetch step.
type Error struct {
	Stage      Stage
	Category   string
	URI        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := fmt.Sprintf("%s fetch %s", e.Stage, e.Category)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.StatusCode)
	}
	if e.URI != "" {
		msg += " " + e.URI
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(stage Stage, category string, uri string, err error) *Error {
	return &Error{Stage: stage, Category: category, URI: uri, Err: err}
}

// transportError classifies a failed HTTP round trip.
func transportError(stage Stage, uri string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(stage, ErrorTimeout, uri, err)
	}

	return newError(stage, ErrorTransport, uri, err)
}

// StageOf returns the failing stage for fetch errors, or "" otherwise.
func StageOf(err error) Stage {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Stage
	}

	return ""
}

// CategoryOf returns the stable category for an error when available.
func CategoryOf(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoImage) {
		return "no_image"
	}

	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Category
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}

	return ErrorTransport
}
