package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/dialect"
	"github.com/hupe1980/vcardio/internal/fs"
	"github.com/hupe1980/vcardio/internal/hash"
)

// Writer appends cards to a new archive file. Not safe for
// concurrent use.
type Writer struct {
	f    fs.File
	fsys fs.FileSystem
	path string
	buf  *bufio.Writer

	// frames is where framed cards go: the compressor, or buf
	// directly for CompressionNone.
	frames io.Writer
	zw     *zstd.Encoder
	lz     *lz4.Writer

	dialect dialect.Dialect
	count   int
	closed  bool
}

// NewWriter creates the archive file at path, truncating any
// existing file.
func NewWriter(path string, optFns ...Option) (*Writer, error) {
	o := applyOptions(optFns)

	f, err := o.fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("archive: create %q: %w", path, err)
	}

	w := &Writer{
		f:       f,
		fsys:    o.fsys,
		path:    path,
		buf:     bufio.NewWriter(f),
		dialect: o.dialect,
	}

	if err := writeHeader(w.buf, o.compression); err != nil {
		w.abort()
		return nil, fmt.Errorf("archive: write header: %w", err)
	}

	switch o.compression {
	case CompressionZSTD:
		zw, err := zstd.NewWriter(w.buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			w.abort()
			return nil, fmt.Errorf("archive: init zstd: %w", err)
		}
		w.zw = zw
		w.frames = zw
	case CompressionLZ4:
		w.lz = lz4.NewWriter(w.buf)
		w.frames = w.lz
	default:
		w.frames = w.buf
	}

	return w, nil
}

// Write serializes card and appends it as one frame.
func (w *Writer) Write(card *vcardio.Card) error {
	if w.closed {
		return ErrClosed
	}

	var serializeOpts []vcardio.Option
	if w.dialect != nil {
		serializeOpts = append(serializeOpts, vcardio.WithDialect(w.dialect))
	}

	text, err := vcardio.Serialize(card, serializeOpts...)
	if err != nil {
		return fmt.Errorf("archive: serialize card %d: %w", w.count, err)
	}

	if err := w.writeFrame([]byte(text)); err != nil {
		return err
	}

	w.count++
	return nil
}

// Count returns the number of cards written so far.
func (w *Writer) Count() int {
	return w.count
}

func (w *Writer) writeFrame(payload []byte) error {
	var hdr [frameHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[4:8], hash.CRC32C(payload))

	if _, err := w.frames.Write(hdr[:]); err != nil {
		return fmt.Errorf("archive: write frame: %w", err)
	}
	if _, err := w.frames.Write(payload); err != nil {
		return fmt.Errorf("archive: write frame: %w", err)
	}
	return nil
}

// Close flushes the compressor, syncs, and closes the file. The
// archive is only complete once Close returns nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			w.f.Close()
			return fmt.Errorf("archive: close zstd: %w", err)
		}
	}
	if w.lz != nil {
		if err := w.lz.Close(); err != nil {
			w.f.Close()
			return fmt.Errorf("archive: close lz4: %w", err)
		}
	}

	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: flush: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: sync: %w", err)
	}
	return w.f.Close()
}

// abort tears down a half-initialized writer.
func (w *Writer) abort() {
	w.closed = true
	w.f.Close()
	w.fsys.Remove(w.path)
}
