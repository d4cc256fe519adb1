package integration_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/archive"
	"github.com/hupe1980/vcardio/cardstore"
	"github.com/hupe1980/vcardio/directory"
	"github.com/hupe1980/vcardio/importer"
	"github.com/hupe1980/vcardio/resource"
	"github.com/hupe1980/vcardio/testutil"
)

// TestImportStoreQuery drives the full pipeline: a serialized stream
// is bulk-imported into a cached local store and a directory index,
// then queried back through both.
func TestImportStoreQuery(t *testing.T) {
	ctx := context.Background()

	local, err := cardstore.NewLocal(t.TempDir())
	require.NoError(t, err)

	ctrl := resource.NewController(resource.Config{
		MemoryLimitBytes:     32 << 20,
		MaxConcurrentImports: 2,
	})

	store := cardstore.NewCachingStore(local, 8<<20, cardstore.WithController(ctrl))
	defer store.Close()

	dir := directory.New()

	rng := testutil.NewRNG(42)
	cards := rng.Cards(200)
	input, err := testutil.Stream(cards)
	require.NoError(t, err)

	imp := &importer.Importer{Store: store, Directory: dir, Controller: ctrl}

	stats, err := imp.Run(ctx, strings.NewReader(input), importer.WithWorkers(4))
	require.NoError(t, err)

	assert.Equal(t, int64(200), stats.Imported)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Equal(t, int64(len(input)), stats.Bytes)
	assert.Equal(t, 200, dir.Len())

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 200)

	// Directory queries agree with a linear scan.
	var wantWork int
	for _, card := range cards {
		for _, e := range card.Emails {
			if e.Label == "work" {
				wantWork++
				break
			}
		}
	}
	assert.Len(t, dir.Find(directory.Query{Labels: []string{"work"}}), wantWork)

	var want30 int
	for _, card := range cards {
		if card.Version == "3.0" {
			want30++
		}
	}
	assert.Len(t, dir.Find(directory.Query{Version: "3.0"}), want30)

	// Reads come back identical through the cache on the second hit.
	first, err := store.Get(ctx, ids[0])
	require.NoError(t, err)
	second, err := store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Same(t, first, second)

	hits, _ := store.CacheStats()
	assert.GreaterOrEqual(t, hits, int64(1))

	// Resource accounting is fully drained after the import.
	rs := ctrl.Stats()
	assert.Equal(t, int64(0), rs.ActiveImports)
}

// TestArchiveRoundTripThroughStore exports every stored card into a
// compressed archive and imports the archive into a fresh store.
func TestArchiveRoundTripThroughStore(t *testing.T) {
	ctx := context.Background()

	src, err := cardstore.NewLocal(t.TempDir())
	require.NoError(t, err)

	rng := testutil.NewRNG(7)
	for _, card := range rng.Cards(50) {
		require.NoError(t, src.Put(ctx, card.UID, card))
	}

	ids, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 50)

	// Export.
	path := filepath.Join(t.TempDir(), "backup.vca")
	w, err := archive.NewWriter(path, archive.WithCompression(archive.CompressionZSTD))
	require.NoError(t, err)

	for _, id := range ids {
		card, err := src.Get(ctx, id)
		require.NoError(t, err)
		require.NoError(t, w.Write(card))
	}
	require.Equal(t, 50, w.Count())
	require.NoError(t, w.Close())

	// Import into a fresh store.
	dst, err := cardstore.NewLocal(t.TempDir())
	require.NoError(t, err)

	r, err := archive.NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	var restored int
	for {
		card, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, dst.Put(ctx, card.UID, card))
		restored++
	}
	assert.Equal(t, 50, restored)

	// Spot-check one card survives both hops intact.
	want, err := src.Get(ctx, ids[0])
	require.NoError(t, err)
	got, err := dst.Get(ctx, ids[0])
	require.NoError(t, err)

	assert.Equal(t, want.FormattedName, got.FormattedName)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Emails, got.Emails)
	assert.Equal(t, want.Phones, got.Phones)
}

// TestMalformedBatchKeepsGoing feeds a stream with a damaged card in
// the middle and verifies the rest of the batch still lands.
func TestMalformedBatchKeepsGoing(t *testing.T) {
	ctx := context.Background()

	store, err := cardstore.NewLocal(t.TempDir())
	require.NoError(t, err)

	rng := testutil.NewRNG(99)
	head, err := testutil.Stream(rng.Cards(5))
	require.NoError(t, err)
	tail, err := testutil.Stream(rng.Cards(5))
	require.NoError(t, err)

	damaged := "BEGIN:VCARD\r\n" +
		"VERSION:2.1\r\n" +
		"NOTE;ENCODING=QUOTED-PRINTABLE:=XY\r\n" +
		"END:VCARD\r\n"

	imp := &importer.Importer{Store: store}

	stats, err := imp.Run(ctx, strings.NewReader(head+damaged+tail))
	require.NoError(t, err)

	assert.Equal(t, int64(10), stats.Imported)
	assert.Equal(t, int64(1), stats.Failed)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 10)
}

// TestLargePhotoSpillsAndRoundTrips pushes a card with an oversized
// payload through parse and store, with the payload spooled to disk.
func TestLargePhotoSpillsAndRoundTrips(t *testing.T) {
	ctx := context.Background()

	payload := strings.Repeat("A", 64<<10)
	input := "BEGIN:VCARD\r\n" +
		"VERSION:3.0\r\n" +
		"FN:Photo Person\r\n" +
		"UID:photo-1\r\n" +
		"PHOTO:" + payload + "\r\n" +
		"END:VCARD\r\n"

	card, err := vcardio.Parse(strings.NewReader(input), vcardio.WithSpoolThreshold(4<<10))
	require.NoError(t, err)

	require.Len(t, card.CustomProperties, 1)
	photo := card.CustomProperties[0]
	assert.Equal(t, "PHOTO", photo.Name)
	require.NotNil(t, photo.Body, "payload above the threshold arrives as a handle")

	store, err := cardstore.NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, card.UID, card))
	require.NoError(t, photo.Body.Close())

	got, err := store.Get(ctx, "photo-1")
	require.NoError(t, err)
	require.Len(t, got.CustomProperties, 1)

	var value string
	if got.CustomProperties[0].Body != nil {
		value, err = got.CustomProperties[0].Body.String()
		require.NoError(t, err)
		require.NoError(t, got.CustomProperties[0].Body.Close())
	} else {
		value = got.CustomProperties[0].Value
	}
	assert.Equal(t, payload, value)
}
