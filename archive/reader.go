package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/internal/fs"
	"github.com/hupe1980/vcardio/internal/hash"
)

// Reader iterates the cards of an archive file. Not safe for
// concurrent use.
type Reader struct {
	f      fs.File
	frames io.Reader
	zr     *zstd.Decoder
	codec  CompressionType
	closed bool
}

// NewReader opens the archive at path. The codec is taken from the
// file header.
func NewReader(path string, optFns ...Option) (*Reader, error) {
	o := applyOptions(optFns)

	f, err := o.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("archive: open %q: %w", path, err)
	}

	br := bufio.NewReader(f)

	codec, err := readHeader(br)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &Reader{f: f, codec: codec}

	switch codec {
	case CompressionZSTD:
		zr, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("archive: init zstd: %w", err)
		}
		r.zr = zr
		r.frames = zr
	case CompressionLZ4:
		r.frames = lz4.NewReader(br)
	default:
		r.frames = br
	}

	return r, nil
}

// Compression returns the codec the archive was written with.
func (r *Reader) Compression() CompressionType {
	return r.codec
}

// Next parses and returns the next card. It returns io.EOF after the
// last card.
func (r *Reader) Next() (*vcardio.Card, error) {
	payload, err := r.nextFrame()
	if err != nil {
		return nil, err
	}

	card, err := vcardio.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("archive: parse card: %w", err)
	}
	return card, nil
}

func (r *Reader) nextFrame() ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r.frames, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("archive: truncated frame header: %w", err)
	}

	length := binary.LittleEndian.Uint32(hdr[0:4])
	sum := binary.LittleEndian.Uint32(hdr[4:8])

	if length > maxFrameLen {
		return nil, fmt.Errorf("archive: frame length %d exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.frames, payload); err != nil {
		return nil, fmt.Errorf("archive: truncated frame: %w", err)
	}

	if hash.CRC32C(payload) != sum {
		return nil, ErrChecksum
	}

	return payload, nil
}

// Close releases the decompressor and closes the file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.zr != nil {
		r.zr.Close()
	}
	return r.f.Close()
}
