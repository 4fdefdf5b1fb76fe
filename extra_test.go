package zip

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// extraField serializes one tag/length/payload extra field.
func extraField(tag ExtraTag, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(tag))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(payload)))
	copy(buf[4:], payload)
	return buf
}

// extendedTimestampField builds an Info-ZIP extended-timestamp field
// carrying only the modification time.
func extendedTimestampField(mtime time.Time) []byte {
	payload := make([]byte, 5)
	payload[0] = 1 // modtime present
	binary.LittleEndian.PutUint32(payload[1:], uint32(mtime.Unix()))
	return extraField(TagExtendedTimestamp, payload)
}

func TestEntry_ExtraField(t *testing.T) {
	t.Parallel()

	first := extraField(0x1234, []byte{0xaa, 0xbb})
	second := extraField(0x5678, []byte{0xcc})
	e := Entry{Extra: append(append([]byte{}, first...), second...)}

	payload, ok := e.ExtraField(0x5678)
	require.True(t, ok)
	assert.Equal(t, []byte{0xcc}, payload)

	payload, ok = e.ExtraField(0x1234)
	require.True(t, ok)
	assert.Equal(t, []byte{0xaa, 0xbb}, payload)

	_, ok = e.ExtraField(0x9999)
	assert.False(t, ok)
}

func TestEntry_ExtraField_Malformed(t *testing.T) {
	t.Parallel()

	t.Run("declared size overruns", func(t *testing.T) {
		t.Parallel()

		e := Entry{Extra: []byte{0x34, 0x12, 0xff, 0x00, 0x01}}
		_, ok := e.ExtraField(0x1234)
		assert.False(t, ok)
	})

	t.Run("trailing garbage after valid field", func(t *testing.T) {
		t.Parallel()

		extra := append(extraField(0x1234, []byte{0x01}), 0xde, 0xad)
		e := Entry{Extra: extra}
		payload, ok := e.ExtraField(0x1234)
		require.True(t, ok)
		assert.Equal(t, []byte{0x01}, payload)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		e := Entry{}
		_, ok := e.ExtraField(0x1234)
		assert.False(t, ok)
	})
}

func TestEntry_ExtendedTimestamp(t *testing.T) {
	t.Parallel()

	mtime := time.Date(2024, time.February, 29, 23, 59, 17, 0, time.UTC)

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		e := Entry{Extra: extendedTimestampField(mtime)}
		got, ok := e.ExtendedTimestamp()
		require.True(t, ok)
		assert.Equal(t, mtime, got)
	})

	t.Run("modtime flag unset", func(t *testing.T) {
		t.Parallel()

		payload := make([]byte, 5)
		payload[0] = 2 // access time only
		e := Entry{Extra: extraField(TagExtendedTimestamp, payload)}
		_, ok := e.ExtendedTimestamp()
		assert.False(t, ok)
	})

	t.Run("payload too short", func(t *testing.T) {
		t.Parallel()

		e := Entry{Extra: extraField(TagExtendedTimestamp, []byte{1})}
		_, ok := e.ExtendedTimestamp()
		assert.False(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()

		e := Entry{}
		_, ok := e.ExtendedTimestamp()
		assert.False(t, ok)
	})
}

func TestEntry_ExtendedTimestamp_OverridesDosTime(t *testing.T) {
	t.Parallel()

	// The one-second extended timestamp wins over the two-second DOS
	// fields when both are present.
	dosTime := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	precise := time.Date(2024, time.June, 1, 12, 0, 17, 0, time.UTC)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Add("t.txt", []byte("x"), Stored,
		WithModTime(dosTime),
		WithExtra(extendedTimestampField(precise)),
	))
	require.NoError(t, w.Close())

	a, err := Open(NewBytesSource(buf.Bytes()))
	require.NoError(t, err)

	e, ok := a.Entry("t.txt")
	require.True(t, ok)
	assert.Equal(t, precise, e.ModTime)
}

func TestEntry_UnicodePath(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		payload := append([]byte{1, 0, 0, 0, 0}, []byte("café.txt")...)
		e := Entry{Extra: extraField(TagUnicodePath, payload)}
		name, ok := e.UnicodePath()
		require.True(t, ok)
		assert.Equal(t, "café.txt", name)
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()

		payload := append([]byte{2, 0, 0, 0, 0}, []byte("name")...)
		e := Entry{Extra: extraField(TagUnicodePath, payload)}
		_, ok := e.UnicodePath()
		assert.False(t, ok)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		t.Parallel()

		payload := append([]byte{1, 0, 0, 0, 0}, 0xff, 0xfe)
		e := Entry{Extra: extraField(TagUnicodePath, payload)}
		_, ok := e.UnicodePath()
		assert.False(t, ok)
	})
}

func TestEntry_Mode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name:  "unix regular file",
			entry: Entry{Name: "f", MadeBy: 3 << 8, ExternalAttrs: (sIFREG | 0o644) << 16},
			want:  "-rw-r--r--",
		},
		{
			name:  "unix directory",
			entry: Entry{Name: "d/", MadeBy: 3 << 8, ExternalAttrs: (sIFDIR | 0o755) << 16},
			want:  "drwxr-xr-x",
		},
		{
			name:  "unix symlink",
			entry: Entry{Name: "l", MadeBy: 3 << 8, ExternalAttrs: (sIFLNK | 0o777) << 16},
			want:  "Lrwxrwxrwx",
		},
		{
			name:  "msdos default",
			entry: Entry{Name: "f", MadeBy: 0},
			want:  "-rw-rw-rw-",
		},
		{
			name:  "msdos read only",
			entry: Entry{Name: "f", MadeBy: 0, ExternalAttrs: 0x01},
			want:  "-r--r--r--",
		},
		{
			name:  "trailing slash implies directory",
			entry: Entry{Name: "d/", MadeBy: 0},
			want:  "drwxrwxrwx",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.entry.Mode().String())
		})
	}
}
