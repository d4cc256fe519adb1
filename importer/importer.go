// Package importer bulk-loads vCard streams into a card store and,
// optionally, an in-memory directory index.
//
// A single Run decodes cards sequentially from the input stream and
// fans them out to a bounded worker pool that persists and indexes
// them. Malformed cards are counted and skipped rather than aborting
// the whole import, unless fail-fast is requested. When a resource
// controller is attached, a Run claims one import slot for its whole
// duration, source reads are throughput-limited, and every in-flight
// card holds a reservation against the memory budget.
//
// # Usage
//
//	imp := &importer.Importer{
//		Store:     store,
//		Directory: dir,
//	}
//
//	stats, err := imp.Run(ctx, f, importer.WithWorkers(8))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("imported %d cards (%d failed)\n", stats.Imported, stats.Failed)
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/cardstore"
	"github.com/hupe1980/vcardio/directory"
	"github.com/hupe1980/vcardio/resource"
)

// ErrNoStore is returned by Run when the importer has no store to
// write to.
var ErrNoStore = errors.New("importer: no store configured")

// Stats reports the outcome of one Run.
type Stats struct {
	// Imported counts cards stored (and indexed) successfully.
	Imported int64

	// Failed counts cards that could not be decoded or stored.
	Failed int64

	// Skipped counts decoded cards with no content, as produced by
	// stray terminator lines in damaged exports.
	Skipped int64

	// Bytes is the total number of bytes read from the source.
	Bytes int64
}

type options struct {
	workers    int
	failFast   bool
	cardID     func(seq int, card *vcardio.Card) string
	logger     *vcardio.Logger
	decodeOpts []vcardio.Option
}

// Option configures a single Run.
type Option func(*options)

// WithWorkers sets the number of concurrent store/index workers.
// Defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithFailFast aborts the import on the first malformed card or
// store failure instead of counting it and moving on.
func WithFailFast() Option {
	return func(o *options) {
		o.failFast = true
	}
}

// WithCardID overrides how store IDs are derived. seq is the card's
// zero-based position in the decoded stream. The default uses the
// card's UID when present and "card-<seq>" otherwise.
func WithCardID(fn func(seq int, card *vcardio.Card) string) Option {
	return func(o *options) {
		if fn != nil {
			o.cardID = fn
		}
	}
}

// WithLogger configures structured logging for the import.
func WithLogger(logger *vcardio.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDecodeOptions passes options through to the stream decoder,
// e.g. vcardio.WithSpoolThreshold or vcardio.WithDialect.
func WithDecodeOptions(optFns ...vcardio.Option) Option {
	return func(o *options) {
		o.decodeOpts = append(o.decodeOpts, optFns...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		workers: runtime.GOMAXPROCS(0),
		cardID:  defaultCardID,
		logger:  vcardio.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}

func defaultCardID(seq int, card *vcardio.Card) string {
	if card.UID != "" {
		return card.UID
	}
	return fmt.Sprintf("card-%06d", seq)
}

// Importer bulk-imports vCard streams. Store is required; Directory
// and Controller are optional.
type Importer struct {
	// Store receives every successfully decoded card.
	Store cardstore.Store

	// Directory, when set, indexes every stored card.
	Directory *directory.Directory

	// Controller, when set, limits concurrent imports, source read
	// throughput, and the memory held by in-flight cards.
	Controller *resource.Controller
}

// item is one decoded card in flight between the decoder and the
// workers, together with its memory reservation.
type item struct {
	seq  int
	card *vcardio.Card
	cost int64
}

// Run imports every card readable from r. It returns the counts even
// when it fails partway.
func (imp *Importer) Run(ctx context.Context, r io.Reader, optFns ...Option) (Stats, error) {
	opts := applyOptions(optFns)

	if imp.Store == nil {
		return Stats{}, ErrNoStore
	}

	if err := imp.Controller.AcquireImport(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to acquire import slot: %w", err)
	}
	defer imp.Controller.ReleaseImport()

	var imported, failed, skipped, bytes atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	items := make(chan *item, opts.workers*2)

	g.Go(func() error {
		defer close(items)
		return imp.decodeLoop(gctx, r, opts, items, &failed, &skipped, &bytes)
	})

	for i := 0; i < opts.workers; i++ {
		g.Go(func() error {
			for it := range items {
				err := imp.storeOne(gctx, it, opts)
				imp.release(it)
				if err != nil {
					if isFatal(err) || opts.failFast {
						failed.Add(1)
						return err
					}
					opts.logger.Warn("failed to store card", "seq", it.seq, "error", err)
					failed.Add(1)
					continue
				}
				imported.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()

	// Reservations of cards still queued when a worker aborted.
	for it := range items {
		imp.release(it)
	}

	stats := Stats{
		Imported: imported.Load(),
		Failed:   failed.Load(),
		Skipped:  skipped.Load(),
		Bytes:    bytes.Load(),
	}

	if err != nil {
		opts.logger.Error("bulk import aborted",
			"imported", stats.Imported,
			"failed", stats.Failed,
			"error", err,
		)
		return stats, err
	}

	opts.logger.Info("bulk import completed",
		"imported", stats.Imported,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"bytes", stats.Bytes,
	)

	return stats, nil
}

// decodeLoop reads cards off the stream and hands them to the
// workers. Decode errors count as failures unless they are fatal; the
// decoder resynchronizes on the following card.
func (imp *Importer) decodeLoop(ctx context.Context, r io.Reader, opts options, items chan<- *item, failed, skipped, bytes *atomic.Int64) error {
	src := resource.NewThrottledReader(ctx, &countingReader{r: r, n: bytes}, imp.Controller)
	dec := vcardio.NewDecoder(src, opts.decodeOpts...)

	for seq := 0; ; seq++ {
		card, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			failed.Add(1)
			var decErr *vcardio.DecodeError
			if !errors.As(err, &decErr) || opts.failFast {
				return fmt.Errorf("failed to decode card %d: %w", seq, err)
			}
			opts.logger.Warn("skipping malformed card", "seq", seq, "error", err)
			continue
		}

		if isEmpty(card) {
			skipped.Add(1)
			closeBodies(card)
			continue
		}

		cost := cardstore.CardSize(card)
		if limit := imp.Controller.MemoryLimit(); limit > 0 && cost > limit {
			// An oversized card reserves the whole budget.
			cost = limit
		}

		it := &item{seq: seq, card: card, cost: cost}
		if err := imp.Controller.AcquireMemory(ctx, it.cost); err != nil {
			closeBodies(card)
			return err
		}

		select {
		case items <- it:
		case <-ctx.Done():
			imp.release(it)
			return ctx.Err()
		}
	}
}

// storeOne persists one card and indexes it.
func (imp *Importer) storeOne(ctx context.Context, it *item, opts options) error {
	id := opts.cardID(it.seq, it.card)

	if err := imp.Store.Put(ctx, id, it.card); err != nil {
		return fmt.Errorf("failed to store card %q: %w", id, err)
	}

	if imp.Directory != nil {
		imp.Directory.Add(it.card)
	}

	opts.logger.Debug("card imported", "id", id, "seq", it.seq)

	return nil
}

// release returns the card's memory reservation and closes any
// disk-backed property bodies.
func (imp *Importer) release(it *item) {
	closeBodies(it.card)
	imp.Controller.ReleaseMemory(it.cost)
}

// isFatal reports whether an error must abort the import regardless
// of fail-fast: a dead context cannot recover on the next card.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// isEmpty reports whether a card carries no content at all. The
// version alone does not count: a stray END line decodes to a card
// whose only field is the default version.
func isEmpty(card *vcardio.Card) bool {
	return card.UID == "" &&
		card.FormattedName == "" &&
		card.Name == nil &&
		card.Kind == "" &&
		card.Nickname == "" &&
		card.Birthday == "" &&
		card.Anniversary == "" &&
		card.Gender == "" &&
		card.Note == "" &&
		card.ProductID == "" &&
		len(card.Emails) == 0 &&
		len(card.Phones) == 0 &&
		len(card.Addresses) == 0 &&
		len(card.URLs) == 0 &&
		len(card.IMPPs) == 0 &&
		len(card.CustomProperties) == 0
}

// closeBodies releases the disk-backed payload handles of a card.
// Bulk imports persist cards immediately, so the handles are not
// needed after the store write.
func closeBodies(card *vcardio.Card) {
	for i := range card.CustomProperties {
		if body := card.CustomProperties[i].Body; body != nil {
			body.Close()
		}
	}
}

// countingReader tallies bytes read from the source.
type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n.Add(int64(n))
	return n, err
}
