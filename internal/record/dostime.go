package record

import "time"

// TimeToDos converts t to MS-DOS date and time fields.
// The DOS epoch starts at 1980; earlier times clamp to it. Seconds are
// stored with two-second granularity.
func TimeToDos(t time.Time) (dosDate, dosTime uint16) {
	year := min(max(t.Year()-1980, 0), 127)
	dosDate = uint16(year)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	dosTime = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	return dosDate, dosTime
}

// DosToTime converts MS-DOS date and time fields to a UTC time.
// Out-of-range month and day values clamp to 1.
func DosToTime(dosDate, dosTime uint16) time.Time {
	day := dosDate & 0x1F
	month := (dosDate >> 5) & 0x0F
	year := int((dosDate>>9)&0x7F) + 1980
	second := (dosTime & 0x1F) * 2
	minute := (dosTime >> 5) & 0x3F
	hour := (dosTime >> 11) & 0x1F

	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}

	return time.Date(year, time.Month(month), int(day), int(hour), int(minute), int(second), 0, time.UTC)
}
