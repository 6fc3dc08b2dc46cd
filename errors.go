package imgprep

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by the component that raised them.
type ErrorKind string

// Error kinds.
const (
	DecodeError      ErrorKind = "DECODE"
	ValidationError  ErrorKind = "VALIDATION"
	StageError       ErrorKind = "STAGE"
	RecognitionError ErrorKind = "RECOGNITION"
	TransformError   ErrorKind = "TRANSFORM"
)

var (
	// ErrNotPicture is returned when the dimensions of a source cannot be read.
	ErrNotPicture = errors.New("file is not a picture")
	// ErrDecodeFailed is returned once the sample size has grown past the retry limit.
	ErrDecodeFailed = errors.New("failed to decode image")
	// ErrOutOfMemory is returned by an allocator that cannot hold the requested buffer.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrInvalidConfig is returned for malformed or out-of-range preprocessing settings.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrEmptyImage is returned by stages given an image without pixels.
	ErrEmptyImage = errors.New("empty image")
	// ErrReleased is returned when a released image is used.
	ErrReleased = errors.New("image has been released")
	// ErrInvalidDimensions is returned for non-positive image or surface sizes.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrNoResult is returned when recognition produced nothing.
	ErrNoResult = errors.New("no recognition result")
)

// Error records a failure along with the operation and component that caused it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
