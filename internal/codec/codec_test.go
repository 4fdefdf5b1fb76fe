package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roundTripMethods = []struct {
	name   string
	method uint16
}{
	{name: "stored", method: MethodStored},
	{name: "deflate", method: MethodDeflate},
	{name: "zstd", method: MethodZstd},
	{name: "xz", method: MethodXZ},
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	raw := bytes.Repeat([]byte("compressible payload "), 200)

	for _, tt := range roundTripMethods {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			compressed, err := Compress(tt.method, raw)
			require.NoError(t, err)

			got, err := decompress(tt.method, compressed, int64(len(raw)))
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestRoundTrip_Empty(t *testing.T) {
	t.Parallel()

	for _, tt := range roundTripMethods {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			compressed, err := Compress(tt.method, nil)
			require.NoError(t, err)

			got, err := decompress(tt.method, compressed, 0)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestDecompress_UnknownSize(t *testing.T) {
	t.Parallel()

	raw := []byte("size unknown until the stream ends")
	compressed, err := Compress(MethodDeflate, raw)
	require.NoError(t, err)

	got, err := decompress(MethodDeflate, compressed, -1)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDecompress_UnsupportedMethod(t *testing.T) {
	t.Parallel()

	_, err := decompress(12, []byte("bzip2 data"), 10)
	require.ErrorIs(t, err, ErrUnsupportedMethod)

	_, err = Compress(12, []byte("raw"))
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestDecompress_StoredSizeMismatch(t *testing.T) {
	t.Parallel()

	t.Run("too short", func(t *testing.T) {
		t.Parallel()

		_, err := decompress(MethodStored, []byte("abc"), 10)
		require.ErrorIs(t, err, ErrSizeMismatch)
	})

	t.Run("too long", func(t *testing.T) {
		t.Parallel()

		_, err := decompress(MethodStored, []byte("abcdef"), 3)
		require.ErrorIs(t, err, ErrSizeMismatch)
	})
}

func TestDecompress_CorruptStream(t *testing.T) {
	t.Parallel()

	raw := bytes.Repeat([]byte("payload "), 64)
	compressed, err := Compress(MethodDeflate, raw)
	require.NoError(t, err)

	// Truncating the stream removes the end-of-stream marker.
	_, err = decompress(MethodDeflate, compressed[:len(compressed)/2], int64(len(raw)))
	require.ErrorIs(t, err, ErrDecompress)
}

func TestSupported(t *testing.T) {
	t.Parallel()

	assert.True(t, Supported(MethodStored))
	assert.True(t, Supported(MethodDeflate))
	assert.True(t, Supported(MethodZstd))
	assert.True(t, Supported(MethodXZ))
	assert.False(t, Supported(12))
	assert.False(t, Supported(99))
}

func TestFor(t *testing.T) {
	t.Parallel()

	c, ok := For(MethodZstd)
	require.True(t, ok)
	require.NotNil(t, c)

	_, ok = For(14)
	assert.False(t, ok)
}
