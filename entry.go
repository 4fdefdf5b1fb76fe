package zip

import (
	"io/fs"
	"strings"
	"time"

	"github.com/archfmt/zip/internal/record"
)

// creatorUnix is the VersionMadeBy host byte for Unix, whose external
// attributes carry file mode bits in the high 16 bits.
const creatorUnix = 3

// Entry describes one archive member as recorded in the central directory.
//
// Entries hold no reference to the Archive they came from; operations that
// need both, such as Archive.ReadEntry, take them as separate arguments.
// The size and CRC fields are the central directory's values, which are
// authoritative over any local header copy.
type Entry struct {
	// Name is the entry path as stored, using forward slashes. It is not
	// guaranteed to be UTF-8 unless UTF8 reports true.
	Name string

	// Comment is the per-entry comment from the central directory.
	Comment string

	// Method is the compression method code.
	Method Method

	// Flags is the general purpose bit flag field.
	Flags uint16

	// CRC32 is the checksum of the uncompressed content.
	CRC32 uint32

	// CompressedSize is the byte count of the stored (compressed) content.
	CompressedSize uint64

	// UncompressedSize is the byte count of the content after decompression.
	UncompressedSize uint64

	// Offset is the absolute byte offset of the entry's local file header.
	Offset uint64

	// ModTime is the last-modified time, from the extended-timestamp extra
	// field when present, otherwise from the two-second DOS fields.
	ModTime time.Time

	// MadeBy and VersionNeeded are the format version fields.
	MadeBy        uint16
	VersionNeeded uint16

	// InternalAttrs and ExternalAttrs are host-dependent attribute fields.
	InternalAttrs uint16
	ExternalAttrs uint32

	// Extra holds the raw extra-field bytes, preserved opaquely for
	// round-trips. Typed accessors parse known fields on demand.
	Extra []byte
}

// entryFromHeader converts a parsed central directory header into an Entry.
func entryFromHeader(h *record.CentralHeader) Entry {
	e := Entry{
		Name:             string(h.Name),
		Comment:          string(h.Comment),
		Method:           Method(h.Method),
		Flags:            h.Flags,
		CRC32:            h.CRC32,
		CompressedSize:   uint64(h.CompressedSize),
		UncompressedSize: uint64(h.UncompressedSize),
		Offset:           uint64(h.LocalOffset),
		ModTime:          record.DosToTime(h.ModDate, h.ModTime),
		MadeBy:           h.VersionMadeBy,
		VersionNeeded:    h.VersionNeeded,
		InternalAttrs:    h.InternalAttrs,
		ExternalAttrs:    h.ExternalAttrs,
		Extra:            h.Extra,
	}
	if ts, ok := e.ExtendedTimestamp(); ok {
		e.ModTime = ts
	}
	return e
}

// IsDir reports whether the entry is a directory, per the ZIP convention
// of a trailing slash.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// Streamed reports whether the entry was written with sizes unknown up
// front, meaning its local header carries zeros and a data descriptor
// follows the compressed bytes.
func (e *Entry) Streamed() bool {
	return e.Flags&record.FlagStreamed != 0
}

// UTF8 reports whether the name and comment are declared to be UTF-8.
func (e *Entry) UTF8() bool {
	return e.Flags&record.FlagUTF8 != 0
}

// Mode returns the file mode. For entries made on Unix the mode comes
// from the high bits of the external attributes; otherwise a plain 0o666
// (or 0o777 for directories) is synthesized, with the MS-DOS read-only
// attribute masking the write bits.
func (e *Entry) Mode() fs.FileMode {
	var mode fs.FileMode
	if e.MadeBy>>8 == creatorUnix {
		mode = unixMode(e.ExternalAttrs >> 16)
	} else {
		mode = 0o666
		if e.ExternalAttrs&0x01 != 0 { // MS-DOS read-only
			mode &^= 0o222
		}
	}
	if e.IsDir() || e.ExternalAttrs&0x10 != 0 { // MS-DOS directory
		mode |= fs.ModeDir | 0o111
	}
	return mode
}

// Unix mode bits.
const (
	sIFMT   = 0xf000
	sIFDIR  = 0x4000
	sIFREG  = 0x8000
	sIFLNK  = 0xa000
	sISUID  = 0x800
	sISGID  = 0x400
	sISVTX  = 0x200
)

func unixMode(m uint32) fs.FileMode {
	mode := fs.FileMode(m & 0o777)
	switch m & sIFMT {
	case sIFDIR:
		mode |= fs.ModeDir
	case sIFLNK:
		mode |= fs.ModeSymlink
	}
	if m&sISUID != 0 {
		mode |= fs.ModeSetuid
	}
	if m&sISGID != 0 {
		mode |= fs.ModeSetgid
	}
	if m&sISVTX != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}
