package zip

import (
	"bytes"
	"io"
)

// ByteSource provides random access to archive bytes.
//
// Implementations exist for in-memory slices (NewBytesSource), seekable
// files via NewReaderAtSource, and HTTP range requests (the http
// subpackage). Read-only sharing is safe: no archive read mutates the
// source, so multiple goroutines may read disjoint ranges concurrently.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// NewBytesSource wraps an in-memory byte slice as a ByteSource. The slice
// is retained; callers must not modify it while the source is in use.
func NewBytesSource(data []byte) ByteSource {
	return &bytesSource{bytes.NewReader(data), int64(len(data))}
}

type bytesSource struct {
	*bytes.Reader
	size int64
}

func (s *bytesSource) Size() int64 {
	return s.size
}

// NewReaderAtSource wraps an io.ReaderAt of known total size as a
// ByteSource, e.g. an *os.File with its stat size.
func NewReaderAtSource(r io.ReaderAt, size int64) ByteSource {
	return &readerAtSource{r, size}
}

type readerAtSource struct {
	io.ReaderAt
	size int64
}

func (s *readerAtSource) Size() int64 {
	return s.size
}
