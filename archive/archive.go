// Package archive reads and writes compressed card archives: a
// sequence of serialized vCards, length-prefixed and checksummed,
// behind an optional zstd or lz4 stream. Archives are the bulk
// export/backup format; the importer consumes them back.
//
// # File layout
//
//	[magic "VCA0"][version u16][codec u8][reserved 9B]   raw header
//	[len u32][crc32c u32][serialized card] ...           framed stream
//
// The frame stream is compressed as a whole when a codec is set; the
// 16-byte header always stays uncompressed so readers can sniff the
// codec. All integers are little-endian.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/vcardio/dialect"
	"github.com/hupe1980/vcardio/internal/fs"
)

// CompressionType selects the codec for the frame stream.
type CompressionType uint8

const (
	// CompressionNone stores frames uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 trades ratio for speed.
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD gives the better ratio at default speed.
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

var (
	// ErrInvalidFormat is returned when the file does not start with
	// the archive magic.
	ErrInvalidFormat = errors.New("archive: invalid header magic")
	// ErrChecksum is returned when a frame fails its CRC check.
	ErrChecksum = errors.New("archive: frame checksum mismatch")
	// ErrClosed is returned by operations on a closed writer or
	// reader.
	ErrClosed = errors.New("archive: closed")
)

var archiveMagic = [4]byte{'V', 'C', 'A', '0'}

const (
	headerVersion  = uint16(1)
	headerLen      = 16
	frameHeaderLen = 8

	// maxFrameLen bounds a single card's serialized size. Corrupt
	// length prefixes must not drive allocation.
	maxFrameLen = 256 << 20
)

// Option configures a Writer or Reader. Serialization options are
// ignored by NewReader; the codec is read from the header.
type Option func(*options)

type options struct {
	fsys        fs.FileSystem
	dialect     dialect.Dialect
	compression CompressionType
}

// WithFS overrides the file system used for archive IO.
func WithFS(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithDialect forces every card to be serialized in the given
// dialect. By default each card keeps its own version.
func WithDialect(d dialect.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithCompression selects the codec for new archives. Defaults to
// zstd.
func WithCompression(c CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		fsys:        fs.Default,
		compression: CompressionZSTD,
	}

	for _, fn := range optFns {
		fn(&o)
	}

	return o
}

func writeHeader(w io.Writer, codec CompressionType) error {
	var hdr [headerLen]byte
	copy(hdr[0:4], archiveMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], headerVersion)
	hdr[6] = byte(codec)
	// hdr[7:16] reserved

	_, err := w.Write(hdr[:])
	return err
}

func readHeader(r io.Reader) (CompressionType, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("archive: read header: %w", err)
	}

	if [4]byte(hdr[0:4]) != archiveMagic {
		return 0, ErrInvalidFormat
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != headerVersion {
		return 0, fmt.Errorf("archive: unsupported version %d", v)
	}

	codec := CompressionType(hdr[6])
	switch codec {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
		return codec, nil
	default:
		return 0, fmt.Errorf("archive: unsupported codec %d", hdr[6])
	}
}
