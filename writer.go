package zip

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/archfmt/zip/internal/codec"
	"github.com/archfmt/zip/internal/record"
)

// Version-needed-to-extract values by feature set.
const (
	versionDefault = 20 // 2.0: deflate, directories
	versionModern  = 63 // 6.3: zstd, xz
)

// versionHost is the version-made-by field written to the central
// directory: Unix attributes, format 6.3.
const versionHost = creatorUnix<<8 | versionModern

// Writer builds a ZIP archive on an io.Writer.
//
// Each entry is written to the sink as it is added, never buffered whole.
// Close writes the central directory and is mandatory: abandoning a
// Writer without calling Close leaves a truncated archive with no
// readable central directory, which a later Open reports as
// ErrDirectoryNotFound.
//
// Writers are single-use and not safe for concurrent use; callers must
// serialize access and use one Writer per archive.
type Writer struct {
	cw      countingWriter
	headers []record.CentralHeader
	comment string
	stream  *streamEntry // open streaming entry, if any
	closed  bool
	logger  *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return w.logger
}

// NewWriter creates a Writer emitting the archive to sink.
func NewWriter(sink io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{cw: countingWriter{w: sink}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetComment sets the archive comment written with the central directory.
func (w *Writer) SetComment(comment string) error {
	if len(comment) > record.MaxCommentLen {
		return fmt.Errorf("zip: comment of %d bytes exceeds the %d byte limit", len(comment), record.MaxCommentLen)
	}
	w.comment = comment
	return nil
}

// Add compresses data with the given method and writes it as one entry.
//
// Sizes are known up front, so the local header carries the real values
// and no data descriptor is emitted. Use Create when the content length
// is unknown in advance.
func (w *Writer) Add(name string, data []byte, method Method, opts ...EntryOption) error {
	cfg, err := w.prepare(name, opts)
	if err != nil {
		return err
	}

	compressed, err := codec.Compress(uint16(method), data)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	h := w.newHeader(name, method, cfg)
	h.CRC32 = crc32.ChecksumIEEE(data)
	if err := setSizes(&h, uint64(len(compressed)), uint64(len(data))); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	if err := w.writeEntry(&h, compressed); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	w.log().Debug("entry added", "name", name, "method", method.String(),
		"compressed", len(compressed), "uncompressed", len(data))
	return nil
}

// AddRaw writes already-compressed bytes as one entry, using the method,
// CRC32, and uncompressed size recorded in e. This permits byte-exact
// copies of entries from another archive, including entries whose method
// has no codec.
func (w *Writer) AddRaw(e Entry, compressed []byte) error {
	cfg, err := w.prepare(e.Name, nil)
	if err != nil {
		return err
	}
	cfg.modTime = e.ModTime
	cfg.extra = e.Extra
	cfg.comment = e.Comment
	cfg.externalAttrs = e.ExternalAttrs

	h := w.newHeader(e.Name, e.Method, cfg)
	h.CRC32 = e.CRC32
	h.InternalAttrs = e.InternalAttrs
	if err := setSizes(&h, uint64(len(compressed)), e.UncompressedSize); err != nil {
		return fmt.Errorf("add %s: %w", e.Name, err)
	}

	if err := w.writeEntry(&h, compressed); err != nil {
		return fmt.Errorf("add %s: %w", e.Name, err)
	}
	return nil
}

// Create opens a streaming entry for content of unknown length.
//
// The local header is written immediately with zeroed sizes and the
// streaming flag set; compressed bytes flow to the sink as the returned
// writer is used, and Close emits the trailing data descriptor with the
// real CRC and sizes. Only one streaming entry may be open at a time,
// and it must be closed before the next Add, Create, or Close.
func (w *Writer) Create(name string, method Method, opts ...EntryOption) (io.WriteCloser, error) {
	cfg, err := w.prepare(name, opts)
	if err != nil {
		return nil, err
	}
	c, ok := codec.For(uint16(method))
	if !ok {
		return nil, fmt.Errorf("create %s: %w: method %d", name, ErrUnsupportedMethod, method)
	}

	h := w.newHeader(name, method, cfg)
	h.Flags |= record.FlagStreamed

	local := localFromCentral(&h)
	if _, err := w.cw.Write(local.Encode()); err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	dataOff := w.cw.n

	compress, err := c.NewWriter(&w.cw)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	w.stream = &streamEntry{
		w:        w,
		header:   h,
		compress: compress,
		crc:      crc32.NewIEEE(),
		dataOff:  dataOff,
	}
	return w.stream, nil
}

// Close writes the central directory and the end-of-central-directory
// record. This is the single step that makes the archive readable; until
// it succeeds the sink holds no consistent index.
func (w *Writer) Close() error {
	if w.closed {
		return errors.New("zip: writer already closed")
	}
	if w.stream != nil {
		return errors.New("zip: streaming entry still open")
	}
	w.closed = true

	dirOff := w.cw.n
	for i := range w.headers {
		if _, err := w.cw.Write(w.headers[i].Encode()); err != nil {
			return fmt.Errorf("write central directory: %w", err)
		}
	}
	dirSize := w.cw.n - dirOff

	if dirOff > math.MaxUint32 || dirSize > math.MaxUint32 {
		return fmt.Errorf("%w: central directory at offset %d", ErrUnsupportedVersion, dirOff)
	}

	eocd := record.EndOfCentralDir{
		EntriesOnDisk: uint16(len(w.headers)),
		TotalEntries:  uint16(len(w.headers)),
		DirSize:       uint32(dirSize),
		DirOffset:     uint32(dirOff),
		Comment:       []byte(w.comment),
	}
	if _, err := w.cw.Write(eocd.Encode()); err != nil {
		return fmt.Errorf("write end of central directory: %w", err)
	}

	w.log().Debug("archive finished", "entries", len(w.headers), "size", w.cw.n)
	return nil
}

// prepare validates writer state and entry parameters shared by Add,
// AddRaw, and Create, and applies entry options.
func (w *Writer) prepare(name string, opts []EntryOption) (*entryConfig, error) {
	if w.closed {
		return nil, errors.New("zip: writer already closed")
	}
	if w.stream != nil {
		return nil, errors.New("zip: streaming entry still open")
	}
	if len(name) > math.MaxUint16 {
		return nil, fmt.Errorf("zip: name of %d bytes exceeds the %d byte limit", len(name), math.MaxUint16)
	}
	if len(w.headers) >= math.MaxUint16 {
		return nil, fmt.Errorf("%w: more than %d entries", ErrUnsupportedVersion, math.MaxUint16-1)
	}
	if w.cw.n > math.MaxUint32 {
		return nil, fmt.Errorf("%w: entry %q starts beyond 4GiB", ErrUnsupportedVersion, name)
	}

	cfg := &entryConfig{modTime: time.Now()}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.extra) > math.MaxUint16 {
		return nil, fmt.Errorf("zip: extra field of %d bytes exceeds the %d byte limit", len(cfg.extra), math.MaxUint16)
	}
	if len(cfg.comment) > math.MaxUint16 {
		return nil, fmt.Errorf("zip: comment of %d bytes exceeds the %d byte limit", len(cfg.comment), math.MaxUint16)
	}
	return cfg, nil
}

// newHeader builds the central directory header for a new entry at the
// current sink offset.
func (w *Writer) newHeader(name string, method Method, cfg *entryConfig) record.CentralHeader {
	dosDate, dosTime := record.TimeToDos(cfg.modTime)
	needed := uint16(versionDefault)
	if method == Zstd || method == XZ {
		needed = versionModern
	}
	return record.CentralHeader{
		VersionMadeBy: versionHost,
		VersionNeeded: needed,
		Flags:         record.FlagUTF8,
		Method:        uint16(method),
		ModTime:       dosTime,
		ModDate:       dosDate,
		ExternalAttrs: cfg.externalAttrs,
		LocalOffset:   uint32(w.cw.n),
		Name:          []byte(name),
		Extra:         cfg.extra,
		Comment:       []byte(cfg.comment),
	}
}

// writeEntry emits the local header and compressed data, then records
// the central directory header.
func (w *Writer) writeEntry(h *record.CentralHeader, compressed []byte) error {
	local := localFromCentral(h)
	if _, err := w.cw.Write(local.Encode()); err != nil {
		return err
	}
	if _, err := w.cw.Write(compressed); err != nil {
		return err
	}
	w.headers = append(w.headers, *h)
	return nil
}

// setSizes stores the entry sizes, refusing values that require Zip64.
func setSizes(h *record.CentralHeader, compressed, uncompressed uint64) error {
	if compressed >= uint64(record.Marker32) || uncompressed >= uint64(record.Marker32) {
		return fmt.Errorf("%w: entry larger than 4GiB", ErrUnsupportedVersion)
	}
	h.CompressedSize = uint32(compressed)
	h.UncompressedSize = uint32(uncompressed)
	return nil
}

// localFromCentral derives the local file header from a central header.
func localFromCentral(h *record.CentralHeader) record.LocalHeader {
	return record.LocalHeader{
		VersionNeeded:    h.VersionNeeded,
		Flags:            h.Flags,
		Method:           h.Method,
		ModTime:          h.ModTime,
		ModDate:          h.ModDate,
		CRC32:            h.CRC32,
		CompressedSize:   h.CompressedSize,
		UncompressedSize: h.UncompressedSize,
		Name:             h.Name,
		Extra:            h.Extra,
	}
}

// streamEntry is an open streaming entry. Writes compress straight to
// the sink; Close finalizes the entry with a data descriptor.
type streamEntry struct {
	w        *Writer
	header   record.CentralHeader
	compress io.WriteCloser
	crc      hash32
	dataOff  uint64
	rawSize  uint64
	closed   bool
}

// hash32 is the subset of hash.Hash32 the stream needs.
type hash32 interface {
	io.Writer
	Sum32() uint32
}

func (s *streamEntry) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("zip: streaming entry already closed")
	}
	n, err := s.compress.Write(p)
	if n > 0 {
		s.crc.Write(p[:n]) //nolint:errcheck // hash writes cannot fail
		s.rawSize += uint64(n)
	}
	return n, err
}

// Close flushes the compressor, writes the data descriptor, and records
// the entry in the central directory.
func (s *streamEntry) Close() error {
	if s.closed {
		return errors.New("zip: streaming entry already closed")
	}
	s.closed = true
	s.w.stream = nil

	if err := s.compress.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", s.header.Name, err)
	}

	compressed := s.w.cw.n - s.dataOff
	s.header.CRC32 = s.crc.Sum32()
	if err := setSizes(&s.header, compressed, s.rawSize); err != nil {
		return fmt.Errorf("finish %s: %w", s.header.Name, err)
	}

	desc := record.DataDescriptor{
		CRC32:            s.header.CRC32,
		CompressedSize:   s.header.CompressedSize,
		UncompressedSize: s.header.UncompressedSize,
	}
	if _, err := s.w.cw.Write(desc.Encode()); err != nil {
		return fmt.Errorf("finish %s: %w", s.header.Name, err)
	}

	s.w.headers = append(s.w.headers, s.header)
	return nil
}
