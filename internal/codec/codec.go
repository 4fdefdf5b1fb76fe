// Package codec implements per-method compression and decompression of
// entry data, keyed by the wire method code.
//
// Codecs are format-agnostic byte transformers: integrity checking against
// the stored CRC32 is the caller's responsibility.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Compression method codes from the ZIP application note.
const (
	MethodStored  uint16 = 0
	MethodDeflate uint16 = 8
	MethodZstd    uint16 = 93
	MethodXZ      uint16 = 95
)

// Sentinel errors.
var (
	// ErrUnsupportedMethod is returned when no codec exists for a method code.
	ErrUnsupportedMethod = errors.New("zip: unsupported compression method")

	// ErrSizeMismatch is returned when a stored entry's length disagrees
	// with its declared size.
	ErrSizeMismatch = errors.New("zip: stored entry size mismatch")

	// ErrDecompress is returned when a compressed stream fails to decode.
	ErrDecompress = errors.New("zip: decompression failed")
)

// Codec transforms entry data for one compression method.
type Codec interface {
	// NewReader returns a reader producing decompressed bytes from r.
	// The reader decodes until the method's end-of-stream marker, so it
	// works when the output size is unknown in advance.
	NewReader(r io.Reader) (io.ReadCloser, error)

	// NewWriter returns a writer compressing into w. The caller must
	// Close it to flush the stream.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

var codecs = map[uint16]Codec{
	MethodStored:  storedCodec{},
	MethodDeflate: deflateCodec{},
	MethodZstd:    newZstdCodec(),
	MethodXZ:      xzCodec{},
}

// For returns the codec for a method code.
func For(method uint16) (Codec, bool) {
	c, ok := codecs[method]
	return c, ok
}

// Supported reports whether a codec exists for the method code.
func Supported(method uint16) bool {
	_, ok := codecs[method]
	return ok
}

// decompress decodes data compressed with the given method. When
// expectedSize is non-negative, the output length must match it exactly;
// pass a negative value when the size is unknown.
func decompress(method uint16, data []byte, expectedSize int64) ([]byte, error) {
	c, ok := codecs[method]
	if !ok {
		return nil, fmt.Errorf("%w: method %d", ErrUnsupportedMethod, method)
	}

	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer r.Close()

	if expectedSize < 0 {
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
		}
		return out, nil
	}

	out := make([]byte, expectedSize)
	if _, err := io.ReadFull(r, out); err != nil {
		if method == MethodStored {
			return nil, fmt.Errorf("%w: expected %d bytes", ErrSizeMismatch, expectedSize)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	if err := ensureExhausted(r); err != nil {
		if method == MethodStored {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrSizeMismatch, expectedSize)
		}
		return nil, err
	}
	return out, nil
}

// Compress encodes raw with the given method.
func Compress(method uint16, raw []byte) ([]byte, error) {
	c, ok := codecs[method]
	if !ok {
		return nil, fmt.Errorf("%w: method %d", ErrUnsupportedMethod, method)
	}

	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ensureExhausted fails when r yields any byte past the expected output.
func ensureExhausted(r io.Reader) error {
	var one [1]byte
	n, err := r.Read(one[:])
	if n > 0 {
		return fmt.Errorf("%w: trailing data after end of stream", ErrDecompress)
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return nil
}
