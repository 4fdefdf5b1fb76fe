package record

import (
	"encoding/binary"
	"fmt"
)

// LocalHeader is the per-entry header stored immediately before that
// entry's compressed bytes.
type LocalHeader struct {
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	Name             []byte
	Extra            []byte
}

// Streamed reports whether the sizes were unknown when the header was
// written, in which case the real values live in the trailing data
// descriptor and the central directory.
func (h *LocalHeader) Streamed() bool {
	return h.Flags&FlagStreamed != 0
}

// ReadLocalHeader decodes the local file header at off. It returns the
// header and the absolute offset of the entry's compressed data.
func ReadLocalHeader(src Source, off int64) (LocalHeader, int64, error) {
	var fixed [LocalHeaderLen]byte
	if err := readAt(src, fixed[:], off); err != nil {
		return LocalHeader{}, 0, err
	}

	c := NewCursor(fixed[:])
	if sig := c.U32(); sig != LocalHeaderSignature {
		return LocalHeader{}, 0, fmt.Errorf("%w: bad local header signature %#08x at offset %d", ErrCorruptDirectory, sig, off)
	}

	h := LocalHeader{
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
	if err := c.Err(); err != nil {
		return LocalHeader{}, 0, err
	}

	variable := make([]byte, nameLen+extraLen)
	if err := readAt(src, variable, off+LocalHeaderLen); err != nil {
		return LocalHeader{}, 0, err
	}
	h.Name = variable[:nameLen]
	h.Extra = variable[nameLen:]

	dataOff := off + LocalHeaderLen + int64(nameLen) + int64(extraLen)
	return h, dataOff, nil
}

// Encode serializes the header, including the variable-length name and
// extra fields.
func (h *LocalHeader) Encode() []byte {
	buf := make([]byte, LocalHeaderLen+len(h.Name)+len(h.Extra))

	binary.LittleEndian.PutUint32(buf[0:4], LocalHeaderSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionNeeded)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint16(buf[8:10], h.Method)
	binary.LittleEndian.PutUint16(buf[10:12], h.ModTime)
	binary.LittleEndian.PutUint16(buf[12:14], h.ModDate)
	binary.LittleEndian.PutUint32(buf[14:18], h.CRC32)
	binary.LittleEndian.PutUint32(buf[18:22], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[22:26], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(h.Name)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.Extra)))

	copy(buf[LocalHeaderLen:], h.Name)
	copy(buf[LocalHeaderLen+len(h.Name):], h.Extra)

	return buf
}

// DataDescriptor is the trailing record carrying the real CRC and sizes
// for entries written in streaming mode.
type DataDescriptor struct {
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
}

// ReadDataDescriptor decodes a data descriptor at off. Both the bare and
// the signature-prefixed forms are accepted. It returns the descriptor
// and the number of bytes the record occupies.
func ReadDataDescriptor(src Source, off int64) (DataDescriptor, int64, error) {
	buf := make([]byte, DataDescriptorLen+4)
	n := int64(len(buf))
	if off+n > src.Size() {
		n = src.Size() - off
	}
	if n < DataDescriptorLen {
		return DataDescriptor{}, 0, fmt.Errorf("%w: data descriptor at offset %d", ErrTruncated, off)
	}
	if err := readAt(src, buf[:n], off); err != nil {
		return DataDescriptor{}, 0, err
	}

	consumed := int64(DataDescriptorLen)
	c := NewCursor(buf[:n])
	first := c.U32()
	if first == DataDescriptorSignature {
		if n < DataDescriptorLen+4 {
			return DataDescriptor{}, 0, fmt.Errorf("%w: data descriptor at offset %d", ErrTruncated, off)
		}
		first = c.U32()
		consumed += 4
	}

	d := DataDescriptor{
		CRC32:            first,
		CompressedSize:   c.U32(),
		UncompressedSize: c.U32(),
	}
	if err := c.Err(); err != nil {
		return DataDescriptor{}, 0, err
	}
	return d, consumed, nil
}

// Encode serializes the descriptor in the signature-prefixed form, which
// is what most modern writers emit.
func (d *DataDescriptor) Encode() []byte {
	buf := make([]byte, DataDescriptorLen+4)
	binary.LittleEndian.PutUint32(buf[0:4], DataDescriptorSignature)
	binary.LittleEndian.PutUint32(buf[4:8], d.CRC32)
	binary.LittleEndian.PutUint32(buf[8:12], d.CompressedSize)
	binary.LittleEndian.PutUint32(buf[12:16], d.UncompressedSize)
	return buf
}
