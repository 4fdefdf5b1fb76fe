package codec

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxDecoderMemory bounds the window memory of pooled zstd decoders so a
// hostile frame header cannot demand arbitrary allocations.
const maxDecoderMemory = 256 << 20

// zstdCodec implements Zstandard (method 93). Decoders are pooled and
// reset per stream to reduce allocation overhead.
type zstdCodec struct {
	pool *sync.Pool
}

func newZstdCodec() *zstdCodec {
	c := &zstdCodec{}
	c.pool = &sync.Pool{
		New: func() any {
			dec, err := c.newDecoder(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return c
}

func (c *zstdCodec) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	return zstd.NewReader(r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxDecoderMemory),
	)
}

func (c *zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	if value := c.pool.Get(); value != nil {
		dec, ok := value.(*zstd.Decoder)
		if ok {
			if err := dec.Reset(r); err == nil {
				return &zstdReader{dec: dec, pool: c.pool}, nil
			}
			dec.Close()
		}
	}

	dec, err := c.newDecoder(r)
	if err != nil {
		return nil, err
	}
	return &zstdReader{dec: dec}, nil
}

func (c *zstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
}

// zstdReader returns its decoder to the pool on Close instead of
// releasing it.
type zstdReader struct {
	dec  *zstd.Decoder
	pool *sync.Pool
}

func (r *zstdReader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

func (r *zstdReader) Close() error {
	if r.dec == nil {
		return nil
	}
	if r.pool != nil {
		_ = r.dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		r.pool.Put(r.dec)
	} else {
		r.dec.Close()
	}
	r.dec = nil
	return nil
}
