package spool

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vcardio/internal/fs"
)

func TestBuffer_MemoryRoundTrip(t *testing.T) {
	s := New()
	b := s.NewBuffer()

	_, err := b.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = b.Write([]byte("world"))
	require.NoError(t, err)

	assert.Equal(t, int64(11), b.Len())
	assert.False(t, b.Spilled())

	got, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	require.NoError(t, b.Close())
}

func TestBuffer_ThresholdBoundary(t *testing.T) {
	t.Run("equal stays in memory", func(t *testing.T) {
		s := New(func(o *Options) {
			o.Threshold = 8
			o.Dir = t.TempDir()
		})
		b := s.NewBuffer()

		_, err := b.Write([]byte("12345678")) // exactly 8 bytes
		require.NoError(t, err)
		assert.False(t, b.Spilled())

		require.NoError(t, b.Close())
	})

	t.Run("one byte over spills", func(t *testing.T) {
		dir := t.TempDir()
		s := New(func(o *Options) {
			o.Threshold = 8
			o.Dir = dir
		})
		b := s.NewBuffer()

		_, err := b.Write([]byte("12345678"))
		require.NoError(t, err)
		require.False(t, b.Spilled())

		_, err = b.Write([]byte("9"))
		require.NoError(t, err)
		assert.True(t, b.Spilled())

		got, err := b.String()
		require.NoError(t, err)
		assert.Equal(t, "123456789", got)

		// The spill file lives in the configured directory until Close.
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		require.NoError(t, b.Close())

		entries, err = os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestBuffer_ZeroThreshold(t *testing.T) {
	s := New(func(o *Options) {
		o.Threshold = 0
		o.Dir = t.TempDir()
	})
	b := s.NewBuffer()

	_, err := b.Write([]byte("x"))
	require.NoError(t, err)
	assert.True(t, b.Spilled())

	got, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	require.NoError(t, b.Close())
}

func TestBuffer_NoLimit(t *testing.T) {
	s := New(func(o *Options) {
		o.Threshold = NoLimit
	})
	b := s.NewBuffer()

	_, err := b.Write(bytes.Repeat([]byte("a"), 1<<16))
	require.NoError(t, err)
	assert.False(t, b.Spilled())

	require.NoError(t, b.Close())
}

func TestBuffer_SpillContentEquality(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64 KiB

	s := New(func(o *Options) {
		o.Threshold = 1024
		o.Dir = t.TempDir()
	})
	b := s.NewBuffer()

	// Write in uneven slices to cross the threshold mid-stream.
	for i := 0; i < len(payload); i += 1000 {
		end := i + 1000
		if end > len(payload) {
			end = len(payload)
		}
		_, err := b.Write(payload[i:end])
		require.NoError(t, err)
	}

	require.True(t, b.Spilled())
	require.Equal(t, int64(len(payload)), b.Len())

	got, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))

	require.NoError(t, b.Close())
}

func TestBuffer_Unwrite(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s := New()
		b := s.NewBuffer()

		_, err := b.Write([]byte("abc="))
		require.NoError(t, err)
		require.NoError(t, b.Unwrite(1))

		got, err := b.String()
		require.NoError(t, err)
		assert.Equal(t, "abc", got)

		require.NoError(t, b.Close())
	})

	t.Run("disk", func(t *testing.T) {
		s := New(func(o *Options) {
			o.Threshold = 2
			o.Dir = t.TempDir()
		})
		b := s.NewBuffer()

		_, err := b.Write([]byte("abc="))
		require.NoError(t, err)
		require.True(t, b.Spilled())

		require.NoError(t, b.Unwrite(1))

		// Writes after Unwrite continue where the content now ends.
		_, err = b.Write([]byte("def"))
		require.NoError(t, err)

		got, err := b.String()
		require.NoError(t, err)
		assert.Equal(t, "abcdef", got)

		require.NoError(t, b.Close())
	})

	t.Run("out of range", func(t *testing.T) {
		s := New()
		b := s.NewBuffer()

		_, err := b.Write([]byte("ab"))
		require.NoError(t, err)

		assert.Error(t, b.Unwrite(3))
		assert.Error(t, b.Unwrite(-1))

		require.NoError(t, b.Close())
	})
}

func TestBuffer_WriteAfterRead(t *testing.T) {
	s := New()
	b := s.NewBuffer()

	_, err := b.Write([]byte("abc"))
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = b.Read(buf)
	require.NoError(t, err)

	_, err = b.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrReadMode)

	assert.ErrorIs(t, b.Unwrite(1), ErrReadMode)

	require.NoError(t, b.Close())
}

func TestBuffer_UseAfterClose(t *testing.T) {
	s := New()
	b := s.NewBuffer()

	require.NoError(t, b.Close())
	require.NoError(t, b.Close()) // idempotent

	_, err := b.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = b.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = b.String()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBuffer_PartialReadThenString(t *testing.T) {
	s := New()
	b := s.NewBuffer()

	_, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "ab", string(buf))

	rest, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, "cdef", rest)

	require.NoError(t, b.Close())
}

func TestBuffer_SpillCreateFailure(t *testing.T) {
	boom := errors.New("disk full")
	ffs := fs.NewFaultyFS(nil)
	ffs.FailCreate = boom

	s := New(func(o *Options) {
		o.Threshold = 2
		o.FS = ffs
		o.Dir = t.TempDir()
	})
	b := s.NewBuffer()

	_, err := b.Write([]byte("abc"))
	assert.ErrorIs(t, err, boom)
}

func TestBuffer_SpillWriteFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.SetLimit(4)

	s := New(func(o *Options) {
		o.Threshold = 2
		o.FS = ffs
		o.Dir = t.TempDir()
	})
	b := s.NewBuffer()

	// The first write lands 3 bytes in the spill file; the follow-up
	// write exceeds the fault limit.
	_, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	require.True(t, b.Spilled())

	_, err = b.Write([]byte("defgh"))
	assert.Error(t, err)
}

func TestBuffer_Remaining(t *testing.T) {
	s := New()
	b := s.NewBuffer()

	_, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), b.Remaining())

	buf := make([]byte, 2)
	_, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(4), b.Remaining())

	_, err = b.String()
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Remaining())

	require.NoError(t, b.Close())
}

func TestBuffer_LastByte(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s := New()
		b := s.NewBuffer()

		_, ok := b.LastByte()
		assert.False(t, ok)

		_, err := b.Write([]byte("ab="))
		require.NoError(t, err)

		c, ok := b.LastByte()
		require.True(t, ok)
		assert.Equal(t, byte('='), c)

		require.NoError(t, b.Unwrite(1))
		c, ok = b.LastByte()
		require.True(t, ok)
		assert.Equal(t, byte('b'), c)

		require.NoError(t, b.Close())
	})

	t.Run("disk", func(t *testing.T) {
		s := New(func(o *Options) {
			o.Threshold = 1
			o.Dir = t.TempDir()
		})
		b := s.NewBuffer()

		_, err := b.Write([]byte("xyz"))
		require.NoError(t, err)
		require.True(t, b.Spilled())

		c, ok := b.LastByte()
		require.True(t, ok)
		assert.Equal(t, byte('z'), c)

		require.NoError(t, b.Unwrite(1))
		c, ok = b.LastByte()
		require.True(t, ok)
		assert.Equal(t, byte('y'), c)

		require.NoError(t, b.Close())
	})
}

func TestSpooler_Threshold(t *testing.T) {
	s := New(func(o *Options) {
		o.Threshold = 42
	})
	assert.Equal(t, int64(42), s.Threshold())

	// Negative thresholds fall back to the default.
	s = New(func(o *Options) {
		o.Threshold = -1
	})
	assert.Equal(t, DefaultThreshold, s.Threshold())
}

func TestBuffer_LargeString(t *testing.T) {
	payload := strings.Repeat("x", 10_000)

	s := New(func(o *Options) {
		o.Threshold = 100
		o.Dir = t.TempDir()
	})
	b := s.NewBuffer()

	_, err := io.Copy(b, strings.NewReader(payload))
	require.NoError(t, err)
	require.True(t, b.Spilled())

	got, err := b.String()
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, b.Close())
}
