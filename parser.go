// Package vcardio provides streaming vCard parsing and serialization.
//
// This file implements the streaming parser: logical lines are unfolded,
// tokenized, decoded per dialect, and delivered to the event sink.
package vcardio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hupe1980/vcardio/dialect"
	"github.com/hupe1980/vcardio/lineio"
	"github.com/hupe1980/vcardio/spool"
)

// Parser reads vCard text into Card values. A Parser holds immutable
// configuration; every Parse call owns its buffers exclusively, so a
// Parser is safe for concurrent use unless it was configured with
// WithSink (the sink is shared across calls).
type Parser struct {
	opts options
}

// NewParser creates a Parser.
func NewParser(optFns ...Option) *Parser {
	return &Parser{
		opts: applyOptions(optFns),
	}
}

// Parse reads one card from r. The card ends at END:VCARD or at the end
// of the input; empty input parses to an empty card.
func (p *Parser) Parse(r io.Reader) (*Card, error) {
	start := time.Now()
	run := p.newRun(r)

	err := run.run()
	if errors.Is(err, io.EOF) {
		err = nil
	}

	var card *Card
	if err == nil {
		card, err = run.sink.Finish()
	}

	p.opts.metricsCollector.RecordParse(run.lines, time.Since(start), err)
	p.opts.logger.LogParse(run.version(), run.lines, err)

	return card, err
}

// ParseString parses one card from s.
func (p *Parser) ParseString(s string) (*Card, error) {
	return p.Parse(strings.NewReader(s))
}

// Parse reads one card from r.
func Parse(r io.Reader, optFns ...Option) (*Card, error) {
	return NewParser(optFns...).Parse(r)
}

// ParseString parses one card from s.
func ParseString(s string, optFns ...Option) (*Card, error) {
	return NewParser(optFns...).ParseString(s)
}

func (p *Parser) newRun(r io.Reader) *parseRun {
	spooler := p.opts.newSpooler()

	run := &parseRun{
		sink:      p.opts.newSink(),
		d:         p.opts.dialect,
		threshold: spooler.Threshold(),
		logger:    p.opts.logger,
		metrics:   p.opts.metricsCollector,
	}
	run.unfolder = lineio.NewUnfolder(r, spooler, func(o *lineio.Options) {
		o.QuotedPrintable = run.d != nil && run.d.SoftLineBreaks()
	})

	return run
}

// pendingLine is a logical line buffered while the dialect is still
// unknown. The prefix up to the colon is already consumed from buf.
type pendingLine struct {
	prefix string
	buf    *spool.Buffer
}

// parseRun is the state of one card parse.
type parseRun struct {
	unfolder  *lineio.Unfolder
	sink      Sink
	d         dialect.Dialect // nil while detecting
	threshold int64
	logger    *Logger
	metrics   MetricsCollector

	stash []pendingLine
	lines int
}

// run consumes lines until END:VCARD or the end of the input. It returns
// io.EOF when the input is exhausted before the first line.
func (r *parseRun) run() error {
	defer r.drainStash()

	for {
		buf, err := r.unfolder.Next()
		if errors.Is(err, io.EOF) {
			if r.lines == 0 {
				return io.EOF
			}
			return r.finishDetection()
		}
		if err != nil {
			return err
		}

		r.lines++
		r.metrics.RecordLine(buf.Len())
		if buf.Spilled() {
			r.metrics.RecordSpoolPromotion(buf.Len())
			r.logger.LogSpoolPromotion(buf.Len())
		}

		prefix, found, err := splitPrefix(buf)
		if err != nil {
			buf.Close()
			return fmt.Errorf("failed to read logical line: %w", err)
		}
		if !found {
			r.logger.LogMalformedLine(int64(len(prefix)))
			buf.Close()
			continue
		}

		tokens := strings.Split(prefix, ";")
		name := strings.ToUpper(tokens[0])

		switch {
		case name == "BEGIN":
			buf.Close()
		case name == "END":
			buf.Close()
			return r.finishDetection()
		case r.d == nil && name == "VERSION":
			if err := r.lockFromVersion(tokens, buf); err != nil {
				return err
			}
		case r.d == nil:
			r.stash = append(r.stash, pendingLine{prefix: prefix, buf: buf})
		default:
			if err := r.emit(name, tokens[1:], buf); err != nil {
				return err
			}
		}
	}
}

// lockFromVersion locks the dialect named by a VERSION line, replays the
// buffered lines under it, and delivers the VERSION event itself.
// Unrecognized versions fall back to the default dialect.
func (r *parseRun) lockFromVersion(tokens []string, buf *spool.Buffer) error {
	raw, err := buf.String()
	buf.Close()
	if err != nil {
		return fmt.Errorf("failed to read VERSION value: %w", err)
	}

	d, ok := dialect.ByVersion(raw)
	if !ok {
		d = dialect.Default
	}
	r.lock(d)

	if err := r.replay(); err != nil {
		return err
	}

	params, label, pref := r.property(tokens[1:])

	return r.sink.Consume(Event{
		Name:    "VERSION",
		Params:  params,
		Value:   raw,
		Label:   label,
		Pref:    pref,
		Dialect: r.d,
	})
}

// finishDetection locks the default dialect and replays buffered lines
// when the card ends without a VERSION property.
func (r *parseRun) finishDetection() error {
	if r.d != nil {
		return nil
	}

	r.lock(dialect.Default)

	return r.replay()
}

func (r *parseRun) lock(d dialect.Dialect) {
	r.d = d
	r.unfolder.SetQuotedPrintable(d.SoftLineBreaks())
}

// replay delivers the lines buffered during detection, in document
// order.
func (r *parseRun) replay() error {
	for len(r.stash) > 0 {
		ln := r.stash[0]
		r.stash = r.stash[1:]

		tokens := strings.Split(ln.prefix, ";")
		if err := r.emit(strings.ToUpper(tokens[0]), tokens[1:], ln.buf); err != nil {
			return err
		}
	}

	return nil
}

func (r *parseRun) drainStash() {
	for _, ln := range r.stash {
		ln.buf.Close()
	}
	r.stash = nil
}

// emit decodes one property line and delivers it to the sink.
func (r *parseRun) emit(name string, paramTokens []string, buf *spool.Buffer) error {
	params, label, pref := r.property(paramTokens)

	value, handle, err := r.d.DecodeValue(&params, buf, r.threshold)
	if err != nil {
		buf.Close()
		r.metrics.RecordDecodeError(name)
		return &DecodeError{Property: name, cause: err}
	}
	if handle == nil {
		buf.Close()
	}

	return r.sink.Consume(Event{
		Name:    name,
		Params:  params,
		Value:   value,
		Body:    handle,
		Label:   label,
		Pref:    pref,
		Dialect: r.d,
	})
}

// property applies the dialect parameter grammar and extracts label and
// preference. TYPE and PREF are consumed for every property.
func (r *parseRun) property(tokens []string) (dialect.Params, string, int) {
	params := r.d.ParseParams(tokens)
	label, pref := r.d.TypeAndPref(params)
	params.Del("TYPE")
	params.Del("PREF")

	return params, label, pref
}

func (r *parseRun) version() string {
	if r.d == nil {
		return ""
	}
	return r.d.Version()
}

// splitPrefix consumes the line buffer up to and including the first
// colon and returns the bytes before it. found is false when the line
// has no colon; prefix then holds the whole line.
func splitPrefix(buf *spool.Buffer) (prefix string, found bool, err error) {
	var sb strings.Builder
	one := make([]byte, 1)

	for {
		n, err := buf.Read(one)
		if n > 0 {
			if one[0] == ':' {
				return sb.String(), true, nil
			}
			sb.WriteByte(one[0])
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), false, nil
		}
		if err != nil {
			return "", false, err
		}
	}
}
