package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vcardio"
	"github.com/hupe1980/vcardio/dialect"
)

func sampleCard(i int) *vcardio.Card {
	return &vcardio.Card{
		UID:           fmt.Sprintf("card-%03d", i),
		FormattedName: fmt.Sprintf("Contact %03d", i),
		Emails: []vcardio.Email{
			{Address: fmt.Sprintf("contact%03d@example.com", i), Label: "work"},
		},
		Note: "bulk exported",
	}
}

func writeArchive(t *testing.T, path string, n int, optFns ...Option) {
	t.Helper()

	w, err := NewWriter(path, optFns...)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		require.NoError(t, w.Write(sampleCard(i)))
	}
	assert.Equal(t, n, w.Count())
	require.NoError(t, w.Close())
}

func readAll(t *testing.T, path string) []*vcardio.Card {
	t.Helper()

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	var cards []*vcardio.Card
	for {
		card, err := r.Next()
		if err == io.EOF {
			return cards
		}
		require.NoError(t, err)
		cards = append(cards, card)
	}
}

func TestRoundTrip(t *testing.T) {
	codecs := map[string]CompressionType{
		"none": CompressionNone,
		"lz4":  CompressionLZ4,
		"zstd": CompressionZSTD,
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cards.vca")
			writeArchive(t, path, 25, WithCompression(codec))

			r, err := NewReader(path)
			require.NoError(t, err)
			assert.Equal(t, codec, r.Compression())
			require.NoError(t, r.Close())

			cards := readAll(t, path)
			require.Len(t, cards, 25)
			for i, card := range cards {
				assert.Equal(t, fmt.Sprintf("card-%03d", i), card.UID)
				assert.Equal(t, fmt.Sprintf("Contact %03d", i), card.FormattedName)
				require.Len(t, card.Emails, 1)
				assert.Equal(t, "work", card.Emails[0].Label)
				assert.Equal(t, "bulk exported", card.Note)
			}
		})
	}
}

func TestCompressionShrinksRepetitiveCards(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.vca")
	packed := filepath.Join(dir, "packed.vca")

	writeArchive(t, plain, 200, WithCompression(CompressionNone))
	writeArchive(t, packed, 200, WithCompression(CompressionZSTD))

	plainInfo, err := os.Stat(plain)
	require.NoError(t, err)
	packedInfo, err := os.Stat(packed)
	require.NoError(t, err)

	assert.Less(t, packedInfo.Size(), plainInfo.Size())
}

func TestMixedDialectsPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vca")

	w, err := NewWriter(path, WithCompression(CompressionNone))
	require.NoError(t, err)
	require.NoError(t, w.Write(&vcardio.Card{Version: "2.1", UID: "a", FormattedName: "A"}))
	require.NoError(t, w.Write(&vcardio.Card{Version: "3.0", UID: "b", FormattedName: "B"}))
	require.NoError(t, w.Write(&vcardio.Card{UID: "c", FormattedName: "C"}))
	require.NoError(t, w.Close())

	cards := readAll(t, path)
	require.Len(t, cards, 3)
	assert.Equal(t, "2.1", cards[0].Version)
	assert.Equal(t, "3.0", cards[1].Version)
	assert.Equal(t, "4.0", cards[2].Version)
}

func TestWithDialectNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vca")

	w, err := NewWriter(path, WithDialect(dialect.V30))
	require.NoError(t, err)
	require.NoError(t, w.Write(&vcardio.Card{Version: "2.1", UID: "a", FormattedName: "A"}))
	require.NoError(t, w.Close())

	cards := readAll(t, path)
	require.Len(t, cards, 1)
	assert.Equal(t, "3.0", cards[0].Version)
}

func TestEmptyArchive(t *testing.T) {
	for name, codec := range map[string]CompressionType{"none": CompressionNone, "zstd": CompressionZSTD} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "empty.vca")
			writeArchive(t, path, 0, WithCompression(codec))

			r, err := NewReader(path)
			require.NoError(t, err)
			defer r.Close()

			_, err = r.Next()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vca")
	writeArchive(t, path, 1, WithCompression(CompressionNone))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the first frame's payload.
	raw[headerLen+frameHeaderLen+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestTruncatedFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vca")
	writeArchive(t, path, 1, WithCompression(CompressionNone))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-10], 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err, "truncation is corruption, not end of archive")
	assert.Contains(t, err.Error(), "truncated")
}

func TestInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-archive")
	require.NoError(t, os.WriteFile(path, []byte("BEGIN:VCARD\r\nEND:VCARD\r\n"), 0o644))

	_, err := NewReader(path)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestUnsupportedCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vca")
	writeArchive(t, path, 0, WithCompression(CompressionNone))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[6] = 0x7F
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = NewReader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported codec")
}

func TestClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.vca")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleCard(0)))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close is idempotent")
	assert.ErrorIs(t, w.Write(sampleCard(1)), ErrClosed)

	r, err := NewReader(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCompressionTypeString(t *testing.T) {
	assert.Equal(t, "none", CompressionNone.String())
	assert.Equal(t, "lz4", CompressionLZ4.String())
	assert.Equal(t, "zstd", CompressionZSTD.String())
	assert.Equal(t, "unknown(9)", CompressionType(9).String())
}
