package vcardio

import (
	"github.com/hupe1980/vcardio/dialect"
	"github.com/hupe1980/vcardio/spool"
)

// Event is one decoded property line delivered to a Sink.
type Event struct {
	// Name is the property name, upper-cased.
	Name string

	// Params holds the surviving parameters after dialect processing.
	// TYPE and PREF are already consumed into Label and Pref.
	Params dialect.Params

	// Value is the decoded in-memory payload. Empty when Body is set.
	Value string

	// Body is the payload handle for values above the spool threshold,
	// nil otherwise. Ownership passes to the Sink.
	Body *spool.Buffer

	// Label is the first non-preference TYPE value, lower-cased.
	Label string

	// Pref is the preference rank (1 = most preferred), 0 when absent.
	Pref int

	// Dialect is the rule set the line was decoded under. Sinks use it
	// to unescape text values.
	Dialect dialect.Dialect
}

// Sink receives property events during a parse. It is the sole
// extension point of the parser: substitute the built-in CardBuilder
// with any implementation to process properties on the fly.
//
// Consume is invoked once per recognized property line, in document
// order. Finish is invoked exactly once, after the last event.
type Sink interface {
	Consume(e Event) error
	Finish() (*Card, error)
}
