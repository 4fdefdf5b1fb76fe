package record

import (
	"encoding/binary"
	"fmt"
)

// EndOfCentralDir is the end-of-archive record locating the central
// directory. It is found by scanning backward from the end of the source
// because a trailing comment of unknown length may follow it.
type EndOfCentralDir struct {
	DiskNumber    uint16
	DirStartDisk  uint16
	EntriesOnDisk uint16
	TotalEntries  uint16
	DirSize       uint32
	DirOffset     uint32
	Comment       []byte
}

// scanChunkSize is the read granularity of the backward signature scan.
const scanChunkSize = 1024

// FindEndOfCentralDir scans backward from the end of src for the
// end-of-central-directory record, bounded by the maximum comment length.
// It returns the parsed record and its absolute offset, or
// ErrDirectoryNotFound when no signature exists within the window.
func FindEndOfCentralDir(src Source) (*EndOfCentralDir, int64, error) {
	size := src.Size()
	if size < EndOfCentralDirLen {
		return nil, 0, fmt.Errorf("%w: source of %d bytes is too small", ErrDirectoryNotFound, size)
	}

	window := min(int64(MaxCommentLen)+EndOfCentralDirLen, size)
	buf := make([]byte, scanChunkSize)

	// Scan chunks back to front, overlapping by 3 bytes so a signature
	// straddling a chunk boundary is still seen.
	lowest := size - window
	for chunkEnd := size; ; {
		chunkStart := max(chunkEnd-scanChunkSize, lowest)
		chunk := buf[:chunkEnd-chunkStart]
		if err := readAt(src, chunk, chunkStart); err != nil {
			return nil, 0, err
		}

		for p := len(chunk) - 4; p >= 0; p-- {
			if binary.LittleEndian.Uint32(chunk[p:p+4]) != EndOfCentralDirSignature {
				continue
			}
			off := chunkStart + int64(p)
			eocd, err := readEndOfCentralDir(src, off)
			if err != nil {
				// A false positive (signature bytes inside a comment or
				// entry data); keep scanning.
				continue
			}
			// The record's declared comment must run exactly to the end of
			// the source. A candidate that falls short is signature bytes
			// inside a real record's comment, which would otherwise shadow
			// the record that owns them.
			if off+EndOfCentralDirLen+int64(len(eocd.Comment)) != size {
				continue
			}
			return eocd, off, nil
		}

		if chunkStart == lowest {
			break
		}
		chunkEnd = chunkStart + 3
	}

	return nil, 0, ErrDirectoryNotFound
}

// readEndOfCentralDir decodes the EOCD record at off, including its comment.
func readEndOfCentralDir(src Source, off int64) (*EndOfCentralDir, error) {
	var fixed [EndOfCentralDirLen]byte
	if err := readAt(src, fixed[:], off); err != nil {
		return nil, err
	}

	c := NewCursor(fixed[:])
	if sig := c.U32(); sig != EndOfCentralDirSignature {
		return nil, fmt.Errorf("%w: bad signature %#08x at offset %d", ErrDirectoryNotFound, sig, off)
	}

	eocd := &EndOfCentralDir{
		DiskNumber:    c.U16(),
		DirStartDisk:  c.U16(),
		EntriesOnDisk: c.U16(),
		TotalEntries:  c.U16(),
		DirSize:       c.U32(),
		DirOffset:     c.U32(),
	}
	commentLen := int(c.U16())
	if err := c.Err(); err != nil {
		return nil, err
	}

	if commentLen > 0 {
		comment := make([]byte, commentLen)
		if err := readAt(src, comment, off+EndOfCentralDirLen); err != nil {
			return nil, err
		}
		eocd.Comment = comment
	}

	return eocd, nil
}

// Encode serializes the record, including the trailing comment.
func (e *EndOfCentralDir) Encode() []byte {
	buf := make([]byte, EndOfCentralDirLen+len(e.Comment))

	binary.LittleEndian.PutUint32(buf[0:4], EndOfCentralDirSignature)
	binary.LittleEndian.PutUint16(buf[4:6], e.DiskNumber)
	binary.LittleEndian.PutUint16(buf[6:8], e.DirStartDisk)
	binary.LittleEndian.PutUint16(buf[8:10], e.EntriesOnDisk)
	binary.LittleEndian.PutUint16(buf[10:12], e.TotalEntries)
	binary.LittleEndian.PutUint32(buf[12:16], e.DirSize)
	binary.LittleEndian.PutUint32(buf[16:20], e.DirOffset)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(len(e.Comment)))

	copy(buf[EndOfCentralDirLen:], e.Comment)

	return buf
}
