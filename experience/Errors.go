package experience

import "errors"

// Error reports a failed experience operation
type Error struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrEmptyBuffer is returned when sampling from a buffer that holds
// no transitions
var ErrEmptyBuffer = errors.New("buffer empty")

// ErrInsufficientSamples is returned when sampling more transitions
// than the buffer holds
var ErrInsufficientSamples = errors.New("insufficient samples in buffer")

// IsInsufficientSamples returns whether or not an error reports that
// there are insufficient samples in the buffer to sample from the
// buffer.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, ErrInsufficientSamples)
}

// IsEmptyBuffer returns whether or not an error reports that a
// buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, ErrEmptyBuffer)
}
