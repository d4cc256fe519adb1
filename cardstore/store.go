// Package cardstore persists serialized vCards under caller-chosen
// ids. The Local backend keeps cards as files on disk; the s3 and
// minio subpackages provide object-storage backends with the same
// Store contract.
package cardstore

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/hupe1980/vcardio"
)

// ErrNotFound is returned when no card is stored under the given id.
//
// Implementations return errors satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist so plain file-system misses need
// no translation.
var ErrNotFound = os.ErrNotExist

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cardstore: store is closed")

// ErrInvalidID is returned for ids that cannot name a stored card.
var ErrInvalidID = errors.New("cardstore: invalid id")

// Store is an abstraction for persisting cards.
type Store interface {
	// Put serializes card and stores it under id, replacing any
	// previous revision.
	Put(ctx context.Context, id string, card *vcardio.Card) error

	// Get loads and parses the card stored under id.
	Get(ctx context.Context, id string) (*vcardio.Card, error)

	// Open returns a read-only handle to the serialized bytes
	// stored under id.
	Open(ctx context.Context, id string) (Object, error)

	// Delete removes the card stored under id.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored cards.
	List(ctx context.Context) ([]string, error)
}

// Object is a read-only handle to a stored card's serialized form.
type Object interface {
	io.ReaderAt
	io.Closer

	// Size returns the serialized length in bytes.
	Size() int64
}

// ReadCard parses the card held by an object. It is the common Get
// path shared by the backends.
func ReadCard(obj Object, optFns ...vcardio.Option) (*vcardio.Card, error) {
	return vcardio.Parse(io.NewSectionReader(obj, 0, obj.Size()), optFns...)
}
