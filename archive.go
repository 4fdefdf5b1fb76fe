package zip

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"github.com/archfmt/zip/cache"
	"github.com/archfmt/zip/internal/codec"
	"github.com/archfmt/zip/internal/record"
	"github.com/archfmt/zip/internal/sizing"
)

// DefaultMaxEntrySize is the default per-entry size limit (256MB),
// bounding what a hostile central directory can make a single read
// allocate. Raise or disable it with WithMaxEntrySize.
const DefaultMaxEntrySize = 256 << 20

// Archive provides random access to the entries of a ZIP archive.
//
// The source is borrowed, not owned: closing it is the caller's
// responsibility, and it must remain open for the lifetime of the Archive.
// All read methods are safe for concurrent use.
type Archive struct {
	src          ByteSource
	entries      []Entry
	byName       map[string]int // first occurrence wins; duplicates stay addressable by index
	sortedNames  []int          // entry indices ordered by name, for directory iteration
	comment      string
	maxEntrySize uint64
	cache        cache.Cache        // nil = no caching
	readGroup    singleflight.Group // zero value is valid
	logger       *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.logger
}

// Open reads the central directory of the archive in src.
//
// It fails with ErrDirectoryNotFound when no end-of-central-directory
// record exists, ErrCorruptDirectory when the directory disagrees with
// that record, and ErrUnsupportedVersion when the archive requires Zip64
// or spans multiple volumes.
func Open(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{
		src:          src,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(a)
	}

	eocd, eocdOff, err := record.FindEndOfCentralDir(src)
	if err != nil {
		return nil, err
	}
	if eocd.DiskNumber != 0 || eocd.DirStartDisk != 0 {
		return nil, fmt.Errorf("%w: multi-volume archive", ErrUnsupportedVersion)
	}
	if eocd.EntriesOnDisk != eocd.TotalEntries {
		return nil, fmt.Errorf("%w: entry counts disagree (%d on disk, %d total)",
			ErrCorruptDirectory, eocd.EntriesOnDisk, eocd.TotalEntries)
	}

	headers, err := record.ReadCentralDir(src, eocd, eocdOff)
	if err != nil {
		return nil, err
	}

	a.comment = string(eocd.Comment)
	a.entries = make([]Entry, len(headers))
	a.byName = make(map[string]int, len(headers))
	for i := range headers {
		a.entries[i] = entryFromHeader(&headers[i])
		if _, ok := a.byName[a.entries[i].Name]; !ok {
			a.byName[a.entries[i].Name] = i
		}
	}

	a.sortedNames = make([]int, len(a.entries))
	for i := range a.sortedNames {
		a.sortedNames[i] = i
	}
	sort.SliceStable(a.sortedNames, func(i, j int) bool {
		return a.entries[a.sortedNames[i]].Name < a.entries[a.sortedNames[j]].Name
	})

	a.log().Debug("archive opened", "entries", len(a.entries), "size", src.Size())
	return a, nil
}

// Len returns the number of entries in the archive.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Comment returns the archive comment from the end-of-central-directory
// record.
func (a *Archive) Comment() string {
	return a.comment
}

// Entries returns all entries in central-directory order. The slice is
// shared; callers must not modify it.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// Entry returns the first entry with the given name.
//
// ZIP does not forbid duplicate names. Name lookup is deliberately
// first-match; every occurrence remains addressable through EntryAt.
func (a *Archive) Entry(name string) (Entry, bool) {
	i, ok := a.byName[name]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// EntryAt returns the entry at index i in central-directory order.
func (a *Archive) EntryAt(i int) (Entry, bool) {
	if i < 0 || i >= len(a.entries) {
		return Entry{}, false
	}
	return a.entries[i], true
}

// ReadEntry returns the decompressed content of an entry.
//
// The local file header is validated against the central directory record
// (ErrInconsistentEntry on disagreement), and the result is verified
// against the stored CRC32 (ErrChecksum on mismatch). A failure affects
// only this entry; other entries remain readable.
//
// When a cache is configured, content is served from it and concurrent
// reads of the same entry are deduplicated. The cache retains its own
// slice; callers always receive a private copy they may modify.
func (a *Archive) ReadEntry(e Entry) ([]byte, error) {
	if a.cache == nil {
		return a.readEntry(e)
	}

	key := entryKey(e)
	if content, ok := a.cache.Get(key); ok {
		a.log().Debug("entry cache hit", "name", e.Name)
		return bytes.Clone(content), nil
	}

	result, err, _ := a.readGroup.Do(key, func() (any, error) {
		if content, ok := a.cache.Get(key); ok {
			return content, nil
		}
		content, err := a.readEntry(e)
		if err != nil {
			return nil, err
		}
		a.cache.Put(key, content)
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(result.([]byte)), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// ReadEntryAt is shorthand for reading the entry at index i.
func (a *Archive) ReadEntryAt(i int) ([]byte, error) {
	e, ok := a.EntryAt(i)
	if !ok {
		return nil, fmt.Errorf("zip: entry index %d out of range [0, %d)", i, len(a.entries))
	}
	return a.ReadEntry(e)
}

// ReadEntryRaw returns the stored bytes of an entry without decompression.
// This permits byte-exact copies of entries whose method has no codec.
func (a *Archive) ReadEntryRaw(e Entry) ([]byte, error) {
	dataOff, err := a.validateEntry(e)
	if err != nil {
		return nil, err
	}

	size, err := sizing.ToInt(e.CompressedSize, ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(a.src, dataOff, int64(size)), raw); err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", e.Name, ErrTruncated, err)
	}
	return raw, nil
}

// readEntry performs the uncached read: local header validation,
// decompression, descriptor cross-check, and CRC verification.
func (a *Archive) readEntry(e Entry) ([]byte, error) {
	dataOff, err := a.validateEntry(e)
	if err != nil {
		return nil, err
	}

	c, ok := codec.For(uint16(e.Method))
	if !ok {
		return nil, fmt.Errorf("read %s: %w: method %d", e.Name, ErrUnsupportedMethod, e.Method)
	}

	compSize, err := sizing.ToInt64(e.CompressedSize, ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.Name, err)
	}
	section := io.NewSectionReader(a.src, dataOff, compSize)
	reader, err := c.NewReader(section)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", e.Name, ErrDecompress, err)
	}
	defer reader.Close()

	content, sum, err := a.readContentAndSum(e, reader)
	if err != nil {
		return nil, err
	}

	if e.Streamed() {
		if err := a.checkDataDescriptor(e, dataOff+compSize); err != nil {
			return nil, err
		}
	}

	if sum != e.CRC32 {
		return nil, fmt.Errorf("read %s: %w: got %#08x, central directory has %#08x",
			e.Name, ErrChecksum, sum, e.CRC32)
	}
	return content, nil
}

// validateEntry bounds-checks the entry against the source, parses its
// local file header, and checks the header agrees with the central
// directory record. It returns the absolute offset of the compressed data.
func (a *Archive) validateEntry(e Entry) (int64, error) {
	srcSize := a.src.Size()
	if a.maxEntrySize > 0 {
		if e.CompressedSize > a.maxEntrySize || e.UncompressedSize > a.maxEntrySize {
			return 0, fmt.Errorf("read %s: %w: entry exceeds %d byte limit", e.Name, ErrSizeOverflow, a.maxEntrySize)
		}
	}
	end, ok := sizing.AddUint64(e.Offset, e.CompressedSize)
	if !ok || end > uint64(srcSize) {
		return 0, fmt.Errorf("read %s: %w: entry data exceeds archive bounds", e.Name, ErrTruncated)
	}

	off, err := sizing.ToInt64(e.Offset, ErrSizeOverflow)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", e.Name, err)
	}
	lh, dataOff, err := record.ReadLocalHeader(a.src, off)
	if err != nil {
		return 0, fmt.Errorf("read %s at offset %d: %w", e.Name, off, err)
	}

	if string(lh.Name) != e.Name {
		return 0, fmt.Errorf("%w: entry %q has local name %q", ErrInconsistentEntry, e.Name, lh.Name)
	}
	if Method(lh.Method) != e.Method {
		return 0, fmt.Errorf("%w: entry %q has local method %d, central directory has %d",
			ErrInconsistentEntry, e.Name, lh.Method, e.Method)
	}

	if dataEnd, ok := sizing.AddUint64(uint64(dataOff), e.CompressedSize); !ok || dataEnd > uint64(srcSize) {
		return 0, fmt.Errorf("read %s: %w: entry data exceeds archive bounds", e.Name, ErrTruncated)
	}
	return dataOff, nil
}

// readContentAndSum reads the full decompressed content while computing
// its CRC32, and verifies the stream is exhausted at the expected size.
func (a *Archive) readContentAndSum(e Entry, reader io.Reader) ([]byte, uint32, error) {
	size, err := sizing.ToInt(e.UncompressedSize, ErrSizeOverflow)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", e.Name, err)
	}
	content := make([]byte, size)

	crc := crc32.NewIEEE()
	n, err := io.ReadFull(io.TeeReader(reader, crc), content)
	if err != nil {
		return nil, 0, a.mapReadError(e, n, size, err)
	}

	// The stream must end exactly at the declared size.
	var one [1]byte
	if n, _ := reader.Read(one[:]); n > 0 {
		if e.Method == Stored {
			return nil, 0, fmt.Errorf("read %s: %w: more than %d bytes", e.Name, ErrSizeMismatch, size)
		}
		return nil, 0, fmt.Errorf("read %s: %w: trailing data after end of stream", e.Name, ErrDecompress)
	}

	return content, crc.Sum32(), nil
}

// mapReadError converts short reads and decode failures to the
// appropriate error kind for the entry's method.
func (a *Archive) mapReadError(e Entry, n, expected int, err error) error {
	if e.Method == Stored {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("read %s: %w: %d of %d bytes", e.Name, ErrSizeMismatch, n, expected)
		}
		return fmt.Errorf("read %s: %w", e.Name, err)
	}
	return fmt.Errorf("read %s: %w: %v", e.Name, ErrDecompress, err)
}

// checkDataDescriptor reads the trailing data descriptor of a streamed
// entry (either form) and checks it agrees with the central directory.
func (a *Archive) checkDataDescriptor(e Entry, off int64) error {
	desc, _, err := record.ReadDataDescriptor(a.src, off)
	if err != nil {
		return fmt.Errorf("read %s: %w", e.Name, err)
	}
	if desc.CRC32 != e.CRC32 ||
		uint64(desc.CompressedSize) != e.CompressedSize ||
		uint64(desc.UncompressedSize) != e.UncompressedSize {
		return fmt.Errorf("%w: entry %q data descriptor disagrees with central directory",
			ErrInconsistentEntry, e.Name)
	}
	return nil
}

// entryKey builds a cache key from the fields that identify an entry's
// content within its archive.
func entryKey(e Entry) string {
	return fmt.Sprintf("%d:%d:%08x", e.Offset, e.CompressedSize, e.CRC32)
}
