package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateCodec implements raw deflate (method 8), the ZIP wire encoding:
// no zlib or gzip framing.
type deflateCodec struct{}

func (deflateCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

func (deflateCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(w, flate.DefaultCompression)
}
