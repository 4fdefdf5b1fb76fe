package codec

import "io"

// storedCodec passes bytes through unchanged (method 0).
type storedCodec struct{}

func (storedCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (storedCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return &nopWriteCloser{w}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (*nopWriteCloser) Close() error {
	return nil
}
