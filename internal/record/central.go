package record

import (
	"encoding/binary"
	"fmt"
)

// CentralHeader is one file header in the central directory. It mirrors
// the local header but additionally carries file attributes and the
// absolute offset of the entry's local header.
type CentralHeader struct {
	VersionMadeBy    uint16
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	DiskStart        uint16
	InternalAttrs    uint16
	ExternalAttrs    uint32
	LocalOffset      uint32
	Name             []byte
	Extra            []byte
	Comment          []byte
}

// NeedsZip64 reports whether any field holds a Zip64 marker value,
// deferring the real value to the extended information extra field.
func (h *CentralHeader) NeedsZip64() bool {
	return h.CompressedSize == Marker32 ||
		h.UncompressedSize == Marker32 ||
		h.LocalOffset == Marker32
}

// decodeCentralHeader parses one header from the cursor, including the
// variable-length name, extra, and comment fields.
func decodeCentralHeader(c *Cursor) (CentralHeader, error) {
	if sig := c.U32(); sig != CentralHeaderSignature {
		if err := c.Err(); err != nil {
			return CentralHeader{}, err
		}
		return CentralHeader{}, fmt.Errorf("%w: bad file header signature %#08x", ErrCorruptDirectory, sig)
	}

	h := CentralHeader{
		VersionMadeBy:    c.U16(),
		VersionNeeded:    c.U16(),
		Flags:            c.U16(),
		Method:           c.U16(),
		ModTime:          c.U16(),
		ModDate:          c.U16(),
		CRC32:            c.U32(),
		CompressedSize:   c.U32(),
		UncompressedSize: c.U32(),
	}
	nameLen := int(c.U16())
	extraLen := int(c.U16())
	commentLen := int(c.U16())
	h.DiskStart = c.U16()
	h.InternalAttrs = c.U16()
	h.ExternalAttrs = c.U32()
	h.LocalOffset = c.U32()
	h.Name = c.Bytes(nameLen)
	h.Extra = c.Bytes(extraLen)
	h.Comment = c.Bytes(commentLen)

	if err := c.Err(); err != nil {
		return CentralHeader{}, err
	}
	return h, nil
}

// ReadCentralDir reads and parses the central directory described by the
// end-of-central-directory record. dirEnd is the absolute offset at which
// the directory must end (the offset of the EOCD record itself).
//
// Exactly eocd.TotalEntries headers must be present; fewer well-formed
// headers, or a header whose local offset lies beyond the directory,
// fail with ErrCorruptDirectory.
func ReadCentralDir(src Source, eocd *EndOfCentralDir, dirEnd int64) ([]CentralHeader, error) {
	if eocd.TotalEntries == Marker16 || eocd.DirOffset == Marker32 || eocd.DirSize == Marker32 {
		return nil, ErrZip64
	}

	dirOff := int64(eocd.DirOffset)
	dirSize := int64(eocd.DirSize)
	if dirOff+dirSize > dirEnd {
		return nil, fmt.Errorf("%w: directory of %d bytes at offset %d overruns its end at %d",
			ErrCorruptDirectory, dirSize, dirOff, dirEnd)
	}

	buf := make([]byte, dirSize)
	if err := readAt(src, buf, dirOff); err != nil {
		return nil, err
	}

	headers := make([]CentralHeader, 0, eocd.TotalEntries)
	c := NewCursor(buf)
	for i := 0; i < int(eocd.TotalEntries); i++ {
		h, err := decodeCentralHeader(c)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d of %d: %v", ErrCorruptDirectory, i, eocd.TotalEntries, err)
		}
		if h.NeedsZip64() {
			return nil, fmt.Errorf("%w: entry %q", ErrZip64, h.Name)
		}
		if int64(h.LocalOffset) >= dirOff {
			return nil, fmt.Errorf("%w: entry %q declares local header at %d inside the directory",
				ErrCorruptDirectory, h.Name, h.LocalOffset)
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// Encode serializes the header, including the variable-length fields.
func (h *CentralHeader) Encode() []byte {
	buf := make([]byte, CentralHeaderLen+len(h.Name)+len(h.Extra)+len(h.Comment))

	binary.LittleEndian.PutUint32(buf[0:4], CentralHeaderSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[6:8], h.VersionNeeded)
	binary.LittleEndian.PutUint16(buf[8:10], h.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], h.Method)
	binary.LittleEndian.PutUint16(buf[12:14], h.ModTime)
	binary.LittleEndian.PutUint16(buf[14:16], h.ModDate)
	binary.LittleEndian.PutUint32(buf[16:20], h.CRC32)
	binary.LittleEndian.PutUint32(buf[20:24], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[24:28], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Name)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(h.Extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(h.Comment)))
	binary.LittleEndian.PutUint16(buf[34:36], h.DiskStart)
	binary.LittleEndian.PutUint16(buf[36:38], h.InternalAttrs)
	binary.LittleEndian.PutUint32(buf[38:42], h.ExternalAttrs)
	binary.LittleEndian.PutUint32(buf[42:46], h.LocalOffset)

	off := CentralHeaderLen
	off += copy(buf[off:], h.Name)
	off += copy(buf[off:], h.Extra)
	copy(buf[off:], h.Comment)

	return buf
}
