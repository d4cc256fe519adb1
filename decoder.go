// Package vcardio provides streaming vCard parsing and serialization.
//
// This file implements the streaming multi-card decoder.
package vcardio

import (
	"errors"
	"io"
	"time"

	"github.com/hupe1980/vcardio/lineio"
	"github.com/hupe1980/vcardio/spool"
)

// Decoder reads a stream of concatenated BEGIN:VCARD..END:VCARD blocks.
// Each card detects its own dialect unless WithDialect pins one. A
// Decoder is not safe for concurrent use.
type Decoder struct {
	opts     options
	spooler  *spool.Spooler
	unfolder *lineio.Unfolder
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader, optFns ...Option) *Decoder {
	opts := applyOptions(optFns)
	spooler := opts.newSpooler()

	dec := &Decoder{
		opts:    opts,
		spooler: spooler,
	}
	dec.unfolder = lineio.NewUnfolder(r, spooler, func(o *lineio.Options) {
		o.QuotedPrintable = opts.dialect != nil && opts.dialect.SoftLineBreaks()
	})

	return dec
}

// Decode returns the next card from the stream, or io.EOF when the
// stream is exhausted.
func (dec *Decoder) Decode() (*Card, error) {
	start := time.Now()

	run := &parseRun{
		unfolder:  dec.unfolder,
		sink:      dec.opts.newSink(),
		d:         dec.opts.dialect,
		threshold: dec.spooler.Threshold(),
		logger:    dec.opts.logger,
		metrics:   dec.opts.metricsCollector,
	}
	// The previous card may have switched the soft break rule.
	dec.unfolder.SetQuotedPrintable(run.d != nil && run.d.SoftLineBreaks())

	err := run.run()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}

	var card *Card
	if err == nil {
		card, err = run.sink.Finish()
	}

	dec.opts.metricsCollector.RecordParse(run.lines, time.Since(start), err)
	dec.opts.logger.LogParse(run.version(), run.lines, err)

	return card, err
}
