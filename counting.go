package zip

import "io"

// countingWriter wraps a writer and tracks the absolute offset, which
// becomes each entry's local header offset in the central directory.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.n += uint64(n)
	}
	return n, err
}
