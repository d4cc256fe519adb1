package vcardio

import (
	"errors"
	"fmt"
)

var (
	// ErrNilCard is returned when a nil card is passed to Serialize.
	ErrNilCard = errors.New("card must not be nil")
)

// DecodeError indicates a property value that could not be decoded.
// It aborts the parse; there is no property-level recovery.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DecodeError struct {
	Property string
	cause    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode property %s: %v", e.Property, e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }
