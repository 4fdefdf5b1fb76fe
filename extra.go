package zip

import (
	"time"
	"unicode/utf8"

	"github.com/archfmt/zip/internal/record"
)

// ExtraTag identifies an extra-field type within an entry's extra bytes.
type ExtraTag uint16

// Known extra-field tags.
const (
	TagZip64             ExtraTag = 0x0001
	TagExtendedTimestamp ExtraTag = 0x5455
	TagUnicodePath       ExtraTag = 0x7075
)

// ExtraField returns the payload of the first extra field with the given
// tag. The raw bytes are stored opaquely per entry; this walks the
// tag/length/payload sequence on demand. Malformed trailing bytes end the
// walk without error.
func (e *Entry) ExtraField(tag ExtraTag) ([]byte, bool) {
	extra := e.Extra
	for len(extra) >= 4 {
		c := record.NewCursor(extra)
		fieldTag := ExtraTag(c.U16())
		size := int(c.U16())
		payload := c.Bytes(size)
		if c.Err() != nil {
			break
		}
		if fieldTag == tag {
			return payload, true
		}
		extra = extra[4+size:]
	}
	return nil, false
}

// ExtendedTimestamp returns the modification time from the Info-ZIP
// extended-timestamp field (tag 0x5455), which stores Unix times at
// one-second precision, unlike the two-second DOS fields.
func (e *Entry) ExtendedTimestamp() (time.Time, bool) {
	payload, ok := e.ExtraField(TagExtendedTimestamp)
	if !ok || len(payload) < 5 {
		return time.Time{}, false
	}
	const flagModTime = 1 << 0
	c := record.NewCursor(payload)
	if c.Bytes(1)[0]&flagModTime == 0 {
		return time.Time{}, false
	}
	mtime := c.U32()
	if c.Err() != nil {
		return time.Time{}, false
	}
	return time.Unix(int64(int32(mtime)), 0).UTC(), true
}

// UnicodePath returns the UTF-8 name from the Info-ZIP unicode path field
// (tag 0x7075), used by writers whose primary name field is not UTF-8.
// Only version 1 of the field is understood.
func (e *Entry) UnicodePath() (string, bool) {
	payload, ok := e.ExtraField(TagUnicodePath)
	if !ok || len(payload) < 5 {
		return "", false
	}
	if payload[0] != 1 {
		return "", false
	}
	// Skip the CRC32 of the primary name field; the unicode name follows.
	name := payload[5:]
	if !utf8.Valid(name) {
		return "", false
	}
	return string(name), true
}
