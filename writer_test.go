package zip

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Create(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("streamed payload ", 500)

	methods := []Method{Stored, Deflate, Zstd, XZ}
	for _, method := range methods {
		method := method
		t.Run(method.String(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewWriter(&buf)

			sw, err := w.Create("stream.bin", method)
			require.NoError(t, err)

			// Write in chunks to exercise incremental compression.
			for chunk := payload; chunk != ""; {
				n := min(1000, len(chunk))
				_, err := sw.Write([]byte(chunk[:n]))
				require.NoError(t, err)
				chunk = chunk[n:]
			}
			require.NoError(t, sw.Close())
			require.NoError(t, w.Close())

			a, err := Open(NewBytesSource(buf.Bytes()))
			require.NoError(t, err)

			e, ok := a.Entry("stream.bin")
			require.True(t, ok)
			assert.True(t, e.Streamed())
			assert.Equal(t, uint64(len(payload)), e.UncompressedSize)

			content, err := a.ReadEntry(e)
			require.NoError(t, err)
			assert.Equal(t, payload, string(content))
		})
	}
}

func TestWriter_CreateEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)

	sw, err := w.Create("empty.bin", Deflate)
	require.NoError(t, err)
	require.NoError(t, sw.Close())
	require.NoError(t, w.Close())

	a, err := Open(NewBytesSource(buf.Bytes()))
	require.NoError(t, err)
	content, err := a.ReadEntryAt(0)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestWriter_CreateObligations(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)

	sw, err := w.Create("open.bin", Stored)
	require.NoError(t, err)

	// With a streaming entry open, nothing else may proceed.
	require.Error(t, w.Add("other.txt", []byte("x"), Stored))
	_, err = w.Create("another.bin", Stored)
	require.Error(t, err)
	require.Error(t, w.Close())

	require.NoError(t, sw.Close())

	// The stream writer is single-use.
	_, err = sw.Write([]byte("late"))
	require.Error(t, err)
	require.Error(t, sw.Close())

	require.NoError(t, w.Close())
}

func TestWriter_CreateUnsupportedMethod(t *testing.T) {
	t.Parallel()

	w := NewWriter(&bytes.Buffer{})
	_, err := w.Create("x.bin", Method(12))
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestWriter_ClosedRejectsWrites(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Close())

	require.Error(t, w.Add("late.txt", []byte("x"), Stored))
	_, err := w.Create("late.bin", Stored)
	require.Error(t, err)
	require.Error(t, w.Close())
}

func TestWriter_AbandonedWriterIsUnreadable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Add("a.txt", []byte("content"), Deflate))

	// Without Close there is no central directory to find.
	_, err := Open(NewBytesSource(buf.Bytes()))
	require.ErrorIs(t, err, ErrDirectoryNotFound)
}

func TestWriter_AddRawCopiesVerbatim(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("copy me ", 300)
	src := buildArchive(t, []testEntry{
		{name: "orig.bin", content: payload, method: Zstd, opts: []EntryOption{
			WithModTime(time.Date(2023, time.May, 2, 8, 0, 0, 0, time.UTC)),
			WithEntryComment("copied entry"),
		}},
	})

	from, err := Open(NewBytesSource(src))
	require.NoError(t, err)
	e, ok := from.Entry("orig.bin")
	require.True(t, ok)
	raw, err := from.ReadEntryRaw(e)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.AddRaw(e, raw))
	require.NoError(t, w.Close())

	to, err := Open(NewBytesSource(buf.Bytes()))
	require.NoError(t, err)

	got, ok := to.Entry("orig.bin")
	require.True(t, ok)
	assert.Equal(t, e.Method, got.Method)
	assert.Equal(t, e.CRC32, got.CRC32)
	assert.Equal(t, e.ModTime, got.ModTime)
	assert.Equal(t, e.Comment, got.Comment)

	content, err := to.ReadEntry(got)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
}

func TestWriter_EntryOptions(t *testing.T) {
	t.Parallel()

	modTime := time.Date(2022, time.November, 30, 12, 0, 0, 0, time.UTC)
	extra := []byte{0x99, 0x99, 0x02, 0x00, 0xab, 0xcd}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Add("opt.txt", []byte("options"), Stored,
		WithModTime(modTime),
		WithEntryComment("per entry"),
		WithExternalAttrs(0o644<<16),
		WithExtra(extra),
	))
	require.NoError(t, w.Close())

	a, err := Open(NewBytesSource(buf.Bytes()))
	require.NoError(t, err)

	e, ok := a.Entry("opt.txt")
	require.True(t, ok)
	assert.Equal(t, modTime, e.ModTime)
	assert.Equal(t, "per entry", e.Comment)
	assert.Equal(t, uint32(0o644)<<16, e.ExternalAttrs)
	assert.Equal(t, extra, e.Extra)
	assert.Equal(t, "-rw-r--r--", e.Mode().String())
}

func TestWriter_Limits(t *testing.T) {
	t.Parallel()

	t.Run("comment too long", func(t *testing.T) {
		t.Parallel()

		w := NewWriter(&bytes.Buffer{})
		require.Error(t, w.SetComment(strings.Repeat("c", 1<<16)))
	})

	t.Run("name too long", func(t *testing.T) {
		t.Parallel()

		w := NewWriter(&bytes.Buffer{})
		require.Error(t, w.Add(strings.Repeat("n", 1<<16), nil, Stored))
	})

	t.Run("extra too long", func(t *testing.T) {
		t.Parallel()

		w := NewWriter(&bytes.Buffer{})
		err := w.Add("x.txt", nil, Stored, WithExtra(make([]byte, 1<<16)))
		require.Error(t, err)
	})
}

func TestWriter_DirectoryEntries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Add("dir/", nil, Stored))
	require.NoError(t, w.Add("dir/file.txt", []byte("inside"), Stored))
	require.NoError(t, w.Close())

	a, err := Open(NewBytesSource(buf.Bytes()))
	require.NoError(t, err)

	e, ok := a.Entry("dir/")
	require.True(t, ok)
	assert.True(t, e.IsDir())
	assert.Equal(t, uint64(0), e.UncompressedSize)
}
