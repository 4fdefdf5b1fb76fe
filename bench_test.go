package zip

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/archfmt/zip/cache"
)

// benchArchive builds an archive of count entries of size bytes each.
func benchArchive(b *testing.B, count, size int, method Method) *Archive {
	b.Helper()

	payload := bytes.Repeat([]byte("benchmark payload data. "), size/24+1)[:size]
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < count; i++ {
		if err := w.Add(fmt.Sprintf("file-%04d.bin", i), payload, method); err != nil {
			b.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		b.Fatal(err)
	}

	a, err := Open(NewBytesSource(buf.Bytes()))
	if err != nil {
		b.Fatal(err)
	}
	return a
}

func BenchmarkOpen(b *testing.B) {
	payload := bytes.Repeat([]byte("x"), 256)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 1000; i++ {
		if err := w.Add(fmt.Sprintf("file-%04d.bin", i), payload, Stored); err != nil {
			b.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		b.Fatal(err)
	}
	src := NewBytesSource(buf.Bytes())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Open(src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadEntry(b *testing.B) {
	for _, method := range []Method{Stored, Deflate, Zstd} {
		b.Run(method.String(), func(b *testing.B) {
			a := benchArchive(b, 1, 128<<10, method)
			e, _ := a.Entry("file-0000.bin")

			b.SetBytes(int64(e.UncompressedSize))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := a.ReadEntry(e); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReadEntry_Cached(b *testing.B) {
	a := benchArchive(b, 1, 128<<10, Zstd)
	a.cache = cache.NewMemory(1 << 20)
	e, _ := a.Entry("file-0000.bin")

	b.SetBytes(int64(e.UncompressedSize))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.ReadEntry(e); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadEntries(b *testing.B) {
	a := benchArchive(b, 16, 256<<10, Zstd)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.ReadEntries(ctx, a.Entries()); err != nil {
			b.Fatal(err)
		}
	}
}
