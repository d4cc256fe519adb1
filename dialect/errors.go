package dialect

import "fmt"

// DecodeError indicates that a transport-encoded value could not be
// decoded. Use errors.As to inspect the encoding and errors.Unwrap to
// reach the codec error.
type DecodeError struct {
	Encoding string
	cause    error
}

func newDecodeError(encoding string, cause error) *DecodeError {
	return &DecodeError{Encoding: encoding, cause: cause}
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s value: %v", e.Encoding, e.cause)
}

// Unwrap returns the underlying codec error.
func (e *DecodeError) Unwrap() error {
	return e.cause
}
