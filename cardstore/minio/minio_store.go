// Package minio implements the cardstore.Store interface for MinIO
// and other S3-compatible object storage.
package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/cardstore"
	"github.com/hupe1980/vcardio/dialect"
)

const objectExt = ".vcf"

// Option configures a Store.
type Option func(*options)

type options struct {
	dialect dialect.Dialect
}

// WithDialect sets the dialect cards are serialized in on Put.
// Defaults to 4.0.
func WithDialect(d dialect.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// api is the slice of the MinIO client the store uses. The concrete
// *minio.Client is adapted onto it so tests can substitute a fake.
type api interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

type clientAdapter struct {
	c *minio.Client
}

func (a clientAdapter) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.c.StatObject(ctx, bucket, key, opts)
}

func (a clientAdapter) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.c.GetObject(ctx, bucket, key, opts)
}

func (a clientAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.c.PutObject(ctx, bucket, key, r, size, opts)
}

func (a clientAdapter) RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error {
	return a.c.RemoveObject(ctx, bucket, key, opts)
}

func (a clientAdapter) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return a.c.ListObjects(ctx, bucket, opts)
}

// Store implements cardstore.Store for MinIO. One object per card,
// keyed `<prefix>/<id>.vcf`.
type Store struct {
	api     api
	bucket  string
	prefix  string
	dialect dialect.Dialect
}

// NewStore creates a MinIO card store. rootPrefix is prepended to
// all keys (e.g. "contacts/").
func NewStore(client *minio.Client, bucket, rootPrefix string, optFns ...Option) *Store {
	return newStore(clientAdapter{c: client}, bucket, rootPrefix, optFns...)
}

func newStore(api api, bucket, rootPrefix string, optFns ...Option) *Store {
	o := options{dialect: dialect.Default}

	for _, fn := range optFns {
		fn(&o)
	}

	return &Store{
		api:     api,
		bucket:  bucket,
		prefix:  rootPrefix,
		dialect: o.dialect,
	}
}

func (s *Store) key(id string) string {
	return path.Join(s.prefix, id+objectExt)
}

// Put serializes card and uploads it under id.
func (s *Store) Put(ctx context.Context, id string, card *vcardio.Card) error {
	text, err := vcardio.Serialize(card, vcardio.WithDialect(s.dialect))
	if err != nil {
		return fmt.Errorf("serialize %q: %w", id, err)
	}

	w, err := s.Create(ctx, id)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		w.Close()
		return fmt.Errorf("upload %q: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %q: %w", id, err)
	}

	return nil
}

// Create starts a streaming upload for id. The object becomes
// visible when the returned writer is closed without error.
func (s *Store) Create(ctx context.Context, id string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()

	w := &uploadWriter{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		_, err := s.api.PutObject(ctx, s.bucket, s.key(id), pr, -1, minio.PutObjectOptions{
			ContentType: "text/vcard",
		})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Get loads and parses the card stored under id.
func (s *Store) Get(ctx context.Context, id string) (*vcardio.Card, error) {
	obj, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return cardstore.ReadCard(obj)
}

// Open returns a handle to the serialized bytes stored under id.
func (s *Store) Open(ctx context.Context, id string) (cardstore.Object, error) {
	key := s.key(id)

	info, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("open %q: %w", id, cardstore.ErrNotFound)
		}
		return nil, err
	}

	return &object{
		api:    s.api,
		bucket: s.bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

// Delete removes the card stored under id. Deleting a missing id is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.api.RemoveObject(ctx, s.bucket, s.key(id), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil
		}
		return err
	}
	return nil
}

// List returns the ids of all stored cards in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string

	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if !strings.HasSuffix(obj.Key, objectExt) {
			continue
		}
		rel := strings.TrimPrefix(obj.Key, s.prefix)
		rel = strings.TrimPrefix(rel, "/")
		ids = append(ids, strings.TrimSuffix(rel, objectExt))
	}

	sort.Strings(ids)
	return ids, nil
}

// object serves stored bytes through ranged GetObject calls.
type object struct {
	api    api
	bucket string
	key    string
	size   int64
}

func (o *object) Close() error {
	return nil
}

func (o *object) Size() int64 {
	return o.size
}

func (o *object) ReadAt(p []byte, off int64) (int, error) {
	if off >= o.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= o.size {
		end = o.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	r, err := o.api.GetObject(context.Background(), o.bucket, o.key, opts)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, p[:end-off+1])
	if err != nil {
		return n, err
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// uploadWriter is the write end of a background upload.
type uploadWriter struct {
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return w.pw.Write(p)
}

func (w *uploadWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return io.ErrClosedPipe
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
