// Package record implements the ZIP wire format: the fixed little-endian
// records that make up an archive (local file headers, data descriptors,
// central directory file headers, and the end-of-central-directory record).
//
// Decoding works over byte slices fetched from a random-access Source;
// encoding produces byte slices for the caller to write. All multi-byte
// integers are little-endian per the format.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Record signatures. All begin with the two-byte marker "PK".
const (
	LocalHeaderSignature     uint32 = 0x04034b50
	CentralHeaderSignature   uint32 = 0x02014b50
	EndOfCentralDirSignature uint32 = 0x06054b50
	DataDescriptorSignature  uint32 = 0x08074b50
	Zip64EndOfDirSignature   uint32 = 0x06064b50
	Zip64LocatorSignature    uint32 = 0x07064b50
)

// Fixed record sizes in bytes, excluding variable-length fields.
const (
	LocalHeaderLen     = 30
	CentralHeaderLen   = 46
	EndOfCentralDirLen = 22
	DataDescriptorLen  = 12 // without the optional signature
)

// MaxCommentLen bounds the EOCD comment and therefore the backward
// scan window when locating the record.
const MaxCommentLen = math.MaxUint16

// General purpose flag bits.
const (
	FlagEncrypted uint16 = 1 << 0
	FlagStreamed  uint16 = 1 << 3 // sizes unknown at write time; data descriptor follows
	FlagUTF8      uint16 = 1 << 11
)

// Zip64 marker values. A field holding its marker defers the real value
// to the Zip64 extended information extra field.
const (
	Marker16 uint16 = math.MaxUint16
	Marker32 uint32 = math.MaxUint32
)

// Sentinel errors.
var (
	// ErrTruncated is returned when fewer bytes are available than a field declares.
	ErrTruncated = errors.New("zip: truncated input")

	// ErrDirectoryNotFound is returned when no end-of-central-directory
	// record exists within the scan window.
	ErrDirectoryNotFound = errors.New("zip: end of central directory not found")

	// ErrCorruptDirectory is returned when the central directory disagrees
	// with the end-of-central-directory record.
	ErrCorruptDirectory = errors.New("zip: corrupt central directory")

	// ErrZip64 is returned when an archive requires Zip64 extensions.
	ErrZip64 = errors.New("zip: zip64 archives are not supported")
)

// Source provides random access to archive bytes.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Cursor decodes little-endian fields from a byte slice.
//
// The first out-of-bounds read latches ErrTruncated; subsequent reads
// return zero values. Callers check Err once after a decode sequence.
type Cursor struct {
	buf []byte
	off int
	err error
}

// NewCursor creates a Cursor over buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Err returns the first decoding error, or nil.
func (c *Cursor) Err() error {
	return c.err
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

func (c *Cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.off+n > len(c.buf) {
		c.err = ErrTruncated
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() uint64 {
	b := c.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Bytes reads a fixed-length byte string. The returned slice aliases the
// underlying buffer.
func (c *Cursor) Bytes(n int) []byte {
	return c.take(n)
}

// readAt reads exactly len(buf) bytes from src at off, mapping short reads
// to ErrTruncated.
func readAt(src Source, buf []byte, off int64) error {
	n, err := src.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF || err == nil {
		return fmt.Errorf("%w: %d bytes at offset %d, got %d", ErrTruncated, len(buf), off, n)
	}
	return err
}
