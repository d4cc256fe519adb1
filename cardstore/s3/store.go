package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

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

// Store implements cardstore.Store on S3. One object per card,
// keyed `<prefix>/<id>.vcf`.
type Store struct {
	client  Client
	bucket  string
	prefix  string
	dialect dialect.Dialect
}

// NewStore creates an S3 card store. rootPrefix is prepended to all
// keys (e.g. "contacts/").
func NewStore(client Client, bucket, rootPrefix string, optFns ...Option) *Store {
	o := options{dialect: dialect.Default}

	for _, fn := range optFns {
		fn(&o)
	}

	return &Store{
		client:  client,
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

	uploader := manager.NewUploader(s.client)

	// The uploader consumes the pipe in the background; Close waits
	// for it to finish.
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(id)),
			Body:        pr,
			ContentType: aws.String("text/vcard"),
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
// Reads are served as ranged GetObject requests.
func (s *Store) Open(ctx context.Context, id string) (cardstore.Object, error) {
	key := s.key(id)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("open %q: %w", id, cardstore.ErrNotFound)
		}
		return nil, err
	}

	return &object{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Delete removes the card stored under id. Deleting a missing id is
// not an error; S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	return err
}

// List returns the ids of all stored cards in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, objectExt) {
				continue
			}
			rel := strings.TrimPrefix(key, s.prefix)
			rel = strings.TrimPrefix(rel, "/")
			ids = append(ids, strings.TrimSuffix(rel, objectExt))
		}
	}

	sort.Strings(ids)
	return ids, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// object serves stored bytes through ranged GetObject calls.
type object struct {
	client Client
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

	resp, err := o.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.ReadFull(resp.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		if off+int64(n) == o.size {
			return n, nil
		}
		return n, io.EOF
	}

	expected := end - off + 1
	if int64(n) == expected && int64(n) < int64(len(p)) {
		return n, io.EOF
	}

	return n, err
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
