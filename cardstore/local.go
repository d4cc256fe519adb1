package cardstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/dialect"
	"github.com/hupe1980/vcardio/internal/fs"
	"github.com/hupe1980/vcardio/internal/mmap"
)

const localExt = ".vcf"

// LocalOption configures a Local store.
type LocalOption func(*localOptions)

type localOptions struct {
	fsys    fs.FileSystem
	dialect dialect.Dialect
}

// WithFS overrides the file system used for writes and fallback
// reads. Mainly useful for fault injection in tests.
func WithFS(fsys fs.FileSystem) LocalOption {
	return func(o *localOptions) {
		o.fsys = fsys
	}
}

// WithDialect sets the dialect cards are serialized in on Put.
// Defaults to 4.0.
func WithDialect(d dialect.Dialect) LocalOption {
	return func(o *localOptions) {
		o.dialect = d
	}
}

// Local implements Store using one file per card under a root
// directory. Open memory-maps the stored file and falls back to
// plain file reads when mapping fails.
type Local struct {
	root    string
	fsys    fs.FileSystem
	dialect dialect.Dialect
	closed  atomic.Bool
}

// NewLocal creates a Local store rooted at dir, creating it if
// needed.
func NewLocal(dir string, optFns ...LocalOption) (*Local, error) {
	o := localOptions{
		fsys:    fs.Default,
		dialect: dialect.Default,
	}

	for _, fn := range optFns {
		fn(&o)
	}

	if err := o.fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	return &Local{
		root:    dir,
		fsys:    o.fsys,
		dialect: o.dialect,
	}, nil
}

// Put serializes card and writes it under id. The write goes through
// a temp file and a rename, so readers never observe a partial card.
func (s *Local) Put(ctx context.Context, id string, card *vcardio.Card) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := vcardio.Serialize(card, vcardio.WithDialect(s.dialect))
	if err != nil {
		return fmt.Errorf("serialize %q: %w", id, err)
	}

	f, err := s.fsys.CreateTemp(s.root, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmp := f.Name()

	if _, err := io.WriteString(f, text); err != nil {
		f.Close()
		s.fsys.Remove(tmp)
		return fmt.Errorf("write %q: %w", id, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		s.fsys.Remove(tmp)
		return fmt.Errorf("sync %q: %w", id, err)
	}
	if err := f.Close(); err != nil {
		s.fsys.Remove(tmp)
		return fmt.Errorf("close %q: %w", id, err)
	}

	if err := s.fsys.Rename(tmp, path); err != nil {
		s.fsys.Remove(tmp)
		return fmt.Errorf("rename %q: %w", id, err)
	}

	return nil
}

// Get loads and parses the card stored under id.
func (s *Local) Get(ctx context.Context, id string) (*vcardio.Card, error) {
	obj, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return ReadCard(obj)
}

// Open returns a handle to the serialized bytes stored under id.
func (s *Local) Open(ctx context.Context, id string) (Object, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := mmap.Open(path)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %q: %w", id, ErrNotFound)
	}

	// Mapping can fail on exotic file systems; serve the bytes the
	// slow way instead.
	f, ferr := s.fsys.OpenFile(path, os.O_RDONLY, 0)
	if ferr != nil {
		return nil, fmt.Errorf("open %q: %w", id, ferr)
	}
	fi, ferr := f.Stat()
	if ferr != nil {
		f.Close()
		return nil, fmt.Errorf("stat %q: %w", id, ferr)
	}

	return &fileObject{f: f, size: fi.Size()}, nil
}

// Delete removes the card stored under id.
func (s *Local) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fsys.Remove(path); err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	return nil
}

// List returns the ids of all stored cards in lexical order.
func (s *Local) List(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.fsys.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, localExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, localExt))
	}

	return ids, nil
}

// Close marks the store closed. Objects already opened stay usable.
func (s *Local) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Local) path(id string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.root, id+localExt), nil
}

type fileObject struct {
	f    fs.File
	size int64
}

func (o *fileObject) ReadAt(p []byte, off int64) (int, error) {
	return o.f.ReadAt(p, off)
}

func (o *fileObject) Close() error {
	return o.f.Close()
}

func (o *fileObject) Size() int64 {
	return o.size
}
