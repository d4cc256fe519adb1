package lineio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/vcardio/spool"
)

// qpParam is the parameter that arms the 2.1 soft line break rule. The
// match is a case-insensitive substring scan over the first physical line
// of the logical line, up to and including its colon.
const qpParam = ";ENCODING=QUOTED-PRINTABLE"

// flushChunk bounds how many content bytes are staged before they are
// handed to the spool buffer.
const flushChunk = 512

// Options configures an Unfolder.
type Options struct {
	// QuotedPrintable enables the vCard 2.1 soft line break rule: a
	// logical line whose first physical line carries
	// ;ENCODING=QUOTED-PRINTABLE and which ends with a bare '=' continues
	// on the next physical line with the '=' stripped.
	QuotedPrintable bool
}

// DefaultOptions are the defaults for an Unfolder.
var DefaultOptions = Options{}

// Unfolder turns an arbitrarily chunked byte stream into logical property
// lines. Line endings (CRLF, LF, CR), RFC folding, and optional 2.1 soft
// line breaks are resolved so that the produced sequence does not depend
// on where chunk boundaries fall in the source. An Unfolder is not safe
// for concurrent use.
type Unfolder struct {
	r       *bufio.Reader
	spooler *spool.Spooler
	qpAware bool

	pending    []byte // content bytes not yet flushed to the spool buffer
	prefix     []byte // first physical line up to ':' of the current logical line
	prefixDone bool
}

// NewUnfolder creates an Unfolder reading from r. Logical lines are
// accumulated in buffers from the given spooler.
func NewUnfolder(r io.Reader, spooler *spool.Spooler, optFns ...func(o *Options)) *Unfolder {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &Unfolder{
		r:       br,
		spooler: spooler,
		qpAware: opts.QuotedPrintable,
	}
}

// SetQuotedPrintable toggles the 2.1 soft line break rule. The setting
// applies from the next logical line on.
func (u *Unfolder) SetQuotedPrintable(enabled bool) {
	u.qpAware = enabled
}

// Next returns the next logical line as a fresh buffer positioned at its
// start, or io.EOF when the source is exhausted. Empty logical lines are
// skipped. The caller owns the returned buffer and must Close it.
func (u *Unfolder) Next() (*spool.Buffer, error) {
	buf := u.spooler.NewBuffer()
	u.pending = u.pending[:0]
	u.prefix = u.prefix[:0]
	u.prefixDone = false

	for {
		c, err := u.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// No trailing line ending: the final line still counts.
				if len(u.pending) > 0 || buf.Len() > 0 {
					if ferr := u.flush(buf); ferr != nil {
						_ = buf.Close()
						return nil, ferr
					}
					return buf, nil
				}
				_ = buf.Close()
				return nil, io.EOF
			}
			_ = buf.Close()
			return nil, fmt.Errorf("failed to read source: %w", err)
		}

		if c != '\r' && c != '\n' {
			u.pending = append(u.pending, c)
			if !u.prefixDone {
				u.prefix = append(u.prefix, c)
				if c == ':' {
					u.prefixDone = true
				}
			}
			if len(u.pending) >= flushChunk {
				if err := u.flush(buf); err != nil {
					_ = buf.Close()
					return nil, err
				}
			}
			continue
		}

		// A CR may be the first half of a CRLF pair split across a chunk
		// boundary; the peek blocks until the source yields the next byte
		// or reports EOF.
		if c == '\r' {
			next, ok, err := u.peekByte()
			if err != nil {
				_ = buf.Close()
				return nil, err
			}
			if ok && next == '\n' {
				_, _ = u.r.ReadByte()
			}
		}

		next, ok, err := u.peekByte()
		if err != nil {
			_ = buf.Close()
			return nil, err
		}

		// Folding: drop the ending and the single whitespace byte,
		// continue the same logical line. Takes precedence over the soft
		// break rule.
		if ok && (next == ' ' || next == '\t') {
			_, _ = u.r.ReadByte()
			u.prefixDone = true
			continue
		}

		// 2.1 soft line break: strip the trailing '=' and continue the
		// same logical line without inserting the ending bytes.
		if u.qpAware && u.softBreak(buf) {
			if err := u.stripSoftBreak(buf); err != nil {
				_ = buf.Close()
				return nil, err
			}
			u.prefixDone = true
			continue
		}

		if len(u.pending) == 0 && buf.Len() == 0 {
			// Blank line. Skip it and start the next logical line fresh.
			u.prefix = u.prefix[:0]
			u.prefixDone = false
			continue
		}

		if err := u.flush(buf); err != nil {
			_ = buf.Close()
			return nil, err
		}
		return buf, nil
	}
}

func (u *Unfolder) flush(buf *spool.Buffer) error {
	if len(u.pending) == 0 {
		return nil
	}
	if _, err := buf.Write(u.pending); err != nil {
		return err
	}
	u.pending = u.pending[:0]
	return nil
}

func (u *Unfolder) peekByte() (byte, bool, error) {
	b, err := u.r.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read source: %w", err)
	}
	return b[0], true, nil
}

// softBreak reports whether the logical line collected so far ends with a
// bare '=' on a quoted-printable property line.
func (u *Unfolder) softBreak(buf *spool.Buffer) bool {
	var last byte
	if n := len(u.pending); n > 0 {
		last = u.pending[n-1]
	} else {
		b, ok := buf.LastByte()
		if !ok {
			return false
		}
		last = b
	}
	if last != '=' {
		return false
	}
	return strings.Contains(strings.ToUpper(string(u.prefix)), qpParam)
}

func (u *Unfolder) stripSoftBreak(buf *spool.Buffer) error {
	if n := len(u.pending); n > 0 {
		u.pending = u.pending[:n-1]
		return nil
	}
	return buf.Unwrite(1)
}
