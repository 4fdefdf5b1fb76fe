// Package zip reads and writes ZIP archives over an abstract random-access
// byte source.
//
// An archive is opened by locating the end-of-central-directory record and
// parsing the central directory, the authoritative entry index. Entry content
// is decompressed lazily on access and verified against the stored CRC32.
// The write side streams each entry to an io.Writer as it is added and emits
// the central directory on Close.
//
// Supported compression methods are Stored, Deflate, Zstandard, and XZ.
// Entries using other methods remain listed and can be copied as raw bytes,
// but decompressing them fails with ErrUnsupportedMethod. Zip64 archives are
// detected and refused with ErrUnsupportedVersion.
//
// The package implements fs.FS and related interfaces for stdlib
// compatibility.
package zip

import (
	"errors"

	"github.com/archfmt/zip/internal/codec"
	"github.com/archfmt/zip/internal/record"
)

// Sentinel errors re-exported from the wire and codec layers.
var (
	// ErrTruncated is returned when fewer bytes are available than a field declares.
	ErrTruncated = record.ErrTruncated

	// ErrDirectoryNotFound is returned when no end-of-central-directory
	// record exists within the backward scan window.
	ErrDirectoryNotFound = record.ErrDirectoryNotFound

	// ErrCorruptDirectory is returned when the central directory disagrees
	// with the end-of-central-directory record.
	ErrCorruptDirectory = record.ErrCorruptDirectory

	// ErrUnsupportedVersion is returned when an archive requires an
	// unimplemented format feature such as Zip64.
	ErrUnsupportedVersion = record.ErrZip64

	// ErrUnsupportedMethod is returned when an entry's compression method
	// has no codec.
	ErrUnsupportedMethod = codec.ErrUnsupportedMethod

	// ErrSizeMismatch is returned when a stored entry's length disagrees
	// with its declared size.
	ErrSizeMismatch = codec.ErrSizeMismatch

	// ErrDecompress is returned when a compressed stream fails to decode.
	ErrDecompress = codec.ErrDecompress
)

// Sentinel errors specific to the archive façade.
var (
	// ErrChecksum is returned when decompressed content fails CRC32 verification.
	ErrChecksum = errors.New("zip: checksum mismatch")

	// ErrInconsistentEntry is returned when a local file header disagrees
	// with the central directory record for the same entry.
	ErrInconsistentEntry = errors.New("zip: local header disagrees with central directory")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("zip: size overflow")
)

// Method identifies the compression method of an entry, using the wire
// method code. Codes without a codec are preserved so entries can still be
// listed and copied raw.
type Method uint16

const (
	Stored  Method = Method(codec.MethodStored)
	Deflate Method = Method(codec.MethodDeflate)
	Zstd    Method = Method(codec.MethodZstd)
	XZ      Method = Method(codec.MethodXZ)
)

// String returns the human-readable name of the compression method.
func (m Method) String() string {
	switch m {
	case Stored:
		return "stored"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	case XZ:
		return "xz"
	default:
		return "unknown"
	}
}

// Supported reports whether a codec exists for the method.
func (m Method) Supported() bool {
	return codec.Supported(uint16(m))
}
