package codec

import (
	"io"

	"github.com/ulikunitz/xz"
)

// xzCodec implements XZ (method 95).
type xzCodec struct{}

func (xzCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

func (xzCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}
