package multipart

import (
	"errors"
	"fmt"
)

// Kind classifies the broad category of failure a ParseError represents.
// Callers that need to map failures onto a status code or retry policy
// should dispatch on Kind rather than string-matching the error message.
type Kind int

const (
	// FormatError means the input was invalid or internally inconsistent:
	// malformed headers, the wrong line ending, a bad header option, a
	// Content-Length mismatch, an unexpected end of stream, a missing
	// Content-Disposition, or a declared content length exceeded.
	FormatError Kind = iota

	// StrictWarning means the input was unusual but technically tolerable,
	// and was only rejected because the parser was constructed in strict
	// mode.
	StrictWarning

	// LimitReached means a configured capacity was exceeded: header size,
	// header count, segment size, or segment count.
	LimitReached

	// ClosedError means the parser was used after it had already closed, or
	// Close was asked to check completeness on a stream that never reached
	// COMPLETE.
	ClosedError
)

// String returns a short name for the Kind, suitable for logging.
func (k Kind) String() string {
	switch k {
	case FormatError:
		return "FormatError"
	case StrictWarning:
		return "StrictWarning"
	case LimitReached:
		return "LimitReached"
	case ClosedError:
		return "ClosedError"
	default:
		return "UnknownError"
	}
}

// ParseError is the error type raised by every failure inside PushParser and
// Segment. It always carries a Kind for programmatic dispatch and a short
// human-readable Msg describing the specific rule that failed.
type ParseError struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, if any; may be nil
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("multipart: %s: %s: %s", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("multipart: %s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause, allowing errors.Is and errors.As to see
// through a ParseError to the underlying failure.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// newError constructs a ParseError of the given Kind with no wrapped cause.
func newError(kind Kind, msg string) *ParseError {
	return &ParseError{Kind: kind, Msg: msg}
}

// wrapError constructs a ParseError of the given Kind wrapping err.
func wrapError(kind Kind, msg string, err error) *ParseError {
	return &ParseError{Kind: kind, Msg: msg, Err: err}
}

// Sentinel errors for conditions a caller may want to test for directly with
// errors.Is.
var (
	// ErrClosed is returned (wrapped in a ParseError of Kind ClosedError)
	// when Parse is called on a parser that has already closed.
	ErrClosed = errors.New("parser closed")

	// ErrIncomplete is returned (wrapped in a ParseError of Kind
	// ClosedError) by Close when checkComplete is true and the stream never
	// reached COMPLETE.
	ErrIncomplete = errors.New("unexpected end of multipart stream")

	// ErrContentLengthExceeded is returned (wrapped in a ParseError of Kind
	// FormatError) when the declared total content length would be
	// exceeded by buffered or incoming input.
	ErrContentLengthExceeded = errors.New("content-length exceeded")

	// ErrMissingDisposition is returned (wrapped in a ParseError of Kind
	// FormatError) when a segment's headers contain no Content-Disposition
	// field.
	ErrMissingDisposition = errors.New("missing Content-Disposition")

	// ErrWrongDispositionType is returned (wrapped in a ParseError of Kind
	// FormatError) when Content-Disposition's primary token is not
	// "form-data".
	ErrWrongDispositionType = errors.New("wrong Content-Disposition type")

	// ErrSizeMismatch is returned (wrapped in a ParseError of Kind
	// FormatError) when a segment's declared Content-Length does not match
	// the number of body bytes actually observed.
	ErrSizeMismatch = errors.New("size mismatch")
)
