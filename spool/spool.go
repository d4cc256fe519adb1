package spool

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/vcardio/internal/fs"
)

const (
	// DefaultThreshold is the default number of bytes a buffer may hold
	// in memory before it spills to disk.
	DefaultThreshold int64 = 1 << 20 // 1 MiB

	// NoLimit disables spilling entirely; buffers stay in memory.
	NoLimit int64 = math.MaxInt64
)

var (
	// ErrClosed is returned when a buffer is used after Close.
	ErrClosed = errors.New("buffer is closed")

	// ErrReadMode is returned when a buffer is written after reading started.
	ErrReadMode = errors.New("buffer is in read mode")
)

// Options configures a Spooler.
type Options struct {
	// Threshold is the number of bytes a buffer may hold in memory.
	// The first write that pushes a buffer strictly beyond the threshold
	// spills it to a temp file; a buffer whose final size equals the
	// threshold exactly stays memory-backed. 0 sends every non-empty
	// buffer to disk; NoLimit keeps everything in memory.
	Threshold int64

	// FS is the file system used for spill files.
	FS fs.FileSystem

	// Dir is the directory for spill files. Empty means the OS temp dir.
	Dir string
}

// DefaultOptions are the defaults for a Spooler.
var DefaultOptions = Options{
	Threshold: DefaultThreshold,
	FS:        fs.Default,
}

// Spooler creates buffers that share a spill configuration.
type Spooler struct {
	opts Options
}

// New creates a new Spooler.
func New(optFns ...func(o *Options)) *Spooler {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.FS == nil {
		opts.FS = fs.Default
	}

	if opts.Threshold < 0 {
		opts.Threshold = DefaultThreshold
	}

	return &Spooler{opts: opts}
}

// Threshold returns the configured spill threshold.
func (s *Spooler) Threshold() int64 {
	return s.opts.Threshold
}

// NewBuffer returns a fresh, empty, memory-backed buffer.
func (s *Spooler) NewBuffer() *Buffer {
	return &Buffer{
		threshold: s.opts.Threshold,
		fsys:      s.opts.FS,
		dir:       s.opts.Dir,
	}
}

// Buffer is an append-then-read byte buffer. It starts memory-backed and
// spills to a temp file once its size strictly exceeds the threshold.
// Spilling happens at most once and is never undone. A buffer is not safe
// for concurrent use.
type Buffer struct {
	threshold int64
	fsys      fs.FileSystem
	dir       string

	mem     []byte
	file    fs.File // non-nil once spilled
	size    int64
	readOff int64
	reading bool
	closed  bool
}

// Len returns the number of bytes held by the buffer.
func (b *Buffer) Len() int64 {
	return b.size
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int64 {
	return b.size - b.readOff
}

// Spilled reports whether the buffer is disk-backed.
func (b *Buffer) Spilled() bool {
	return b.file != nil
}

// Write appends p to the buffer, spilling to disk when the cumulative
// size strictly exceeds the threshold.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if b.reading {
		return 0, ErrReadMode
	}
	if len(p) == 0 {
		return 0, nil
	}

	if b.file == nil && b.size+int64(len(p)) > b.threshold {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}

	if b.file != nil {
		n, err := b.file.Write(p)
		b.size += int64(n)
		if err != nil {
			return n, fmt.Errorf("failed to write spill file: %w", err)
		}
		return n, nil
	}

	b.mem = append(b.mem, p...)
	b.size += int64(len(p))
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// LastByte returns the final content byte. ok is false for an empty or
// closed buffer.
func (b *Buffer) LastByte() (byte, bool) {
	if b.closed || b.size == 0 {
		return 0, false
	}
	if b.file != nil {
		var p [1]byte
		if _, err := b.file.ReadAt(p[:], b.size-1); err != nil {
			return 0, false
		}
		return p[0], true
	}
	return b.mem[len(b.mem)-1], true
}

// Unwrite removes the last n bytes. Only valid before reading started.
func (b *Buffer) Unwrite(n int) error {
	if b.closed {
		return ErrClosed
	}
	if b.reading {
		return ErrReadMode
	}
	if n < 0 || int64(n) > b.size {
		return fmt.Errorf("unwrite %d bytes out of range (size %d)", n, b.size)
	}
	if n == 0 {
		return nil
	}

	b.size -= int64(n)

	if b.file != nil {
		if err := b.file.Truncate(b.size); err != nil {
			return fmt.Errorf("failed to truncate spill file: %w", err)
		}
		if _, err := b.file.Seek(b.size, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek spill file: %w", err)
		}
		return nil
	}

	b.mem = b.mem[:len(b.mem)-n]
	return nil
}

// Read drains the buffer from the start. The first call switches the
// buffer to read mode; writes are rejected from then on.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	if !b.reading {
		if err := b.beginRead(); err != nil {
			return 0, err
		}
	}

	if b.file != nil {
		n, err := b.file.Read(p)
		b.readOff += int64(n)
		return n, err
	}

	if b.readOff >= int64(len(b.mem)) {
		return 0, io.EOF
	}
	n := copy(p, b.mem[b.readOff:])
	b.readOff += int64(n)
	return n, nil
}

// String reads the remaining content into a string.
func (b *Buffer) String() (string, error) {
	if b.closed {
		return "", ErrClosed
	}

	// Fast path: memory-backed and nothing read yet.
	if b.file == nil && !b.reading {
		b.reading = true
		b.readOff = b.size
		return string(b.mem), nil
	}

	data, err := io.ReadAll(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close releases the buffer. Disk-backed buffers remove their spill file.
func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem = nil

	if b.file == nil {
		return nil
	}

	name := b.file.Name()
	err := b.file.Close()
	b.file = nil
	if rerr := b.fsys.Remove(name); rerr != nil && err == nil {
		err = rerr
	}
	if err != nil {
		return fmt.Errorf("failed to release spill file: %w", err)
	}
	return nil
}

func (b *Buffer) beginRead() error {
	b.reading = true
	if b.file != nil {
		if _, err := b.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek spill file: %w", err)
		}
	}
	return nil
}

func (b *Buffer) spill() error {
	f, err := b.fsys.CreateTemp(b.dir, "vcardio-spool-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create spill file: %w", err)
	}

	if len(b.mem) > 0 {
		if _, err := f.Write(b.mem); err != nil {
			_ = f.Close()
			_ = b.fsys.Remove(f.Name())
			return fmt.Errorf("failed to copy buffer to spill file: %w", err)
		}
	}

	b.file = f
	b.mem = nil
	return nil
}
