// Package pdfdate converts PDF date strings (D:YYYYMMDDHHmmSSOHH'mm') as found in the
// CreationDate and ModDate fields of PDF metadata into a display string and a time.Time.
//
// Parsing never fails: input that is not a PDF date is returned unchanged,
// partial dates are shortened to the fields present.
package pdfdate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	prefix = "D:"
	// digits in YYYYMMDDHHmmSS
	fullWidth = 14
	// digits following the year in a complete date
	tailWidth = fullWidth - 4
)

// ErrNoTimestamp is returned by ToTime if no point in time could be derived from the input.
var ErrNoTimestamp = errors.New("no timestamp in PDF date")

// field describes one 2-digit component after the year and the separator written before it
type field struct {
	sep   string
	width int
	min   int
	max   int
}

var fields = []field{
	{"/", 2, 1, 12}, // month
	{"/", 2, 1, 31}, // day
	{" ", 2, 0, 23}, // hour
	{":", 2, 0, 59}, // minute
	{":", 2, 0, 59}, // second
}

// Codec parses PDF dates. The zero value is ready to use.
type Codec struct {
	// Location is used for dates without an UTC offset. Defaults to time.Local.
	Location *time.Location
}

var defaultCodec Codec

// Parse parses s with the default Codec.
func Parse(s string) (string, time.Time, bool) {
	return defaultCodec.Parse(s)
}

// Parse returns the normalized form YYYY/MM/DD HH:MM:SS ±HH:MM of the PDF date s,
// containing only the fields present in s. The returned time is valid only if ok is true,
// which requires at least year, month and day.
// If s does not start with "D:" it is returned unchanged.
func (c Codec) Parse(s string) (text string, t time.Time, ok bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, time.Time{}, false
	}
	i := len(prefix)
	for i < len(s) && s[i] == ' ' {
		i++
	}
	from := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	run := s[from:i]
	if len(run) == 0 {
		return s, time.Time{}, false
	}

	yearWidth := min(4, len(run))
	if len(run) > fullWidth {
		yearWidth = len(run) - tailWidth
	}
	year, yearOk := parseYear(run[:yearWidth])

	var b strings.Builder
	b.WriteString(run[:yearWidth])
	// month, day, hour, minute, second
	values := [5]int{1, 1, 0, 0, 0}
	present := 0
	inRange := yearOk
	pos := yearWidth
	for k, f := range fields {
		if pos >= len(run) {
			break
		}
		v, n := readDigits(run, pos, f.width)
		b.WriteString(f.sep)
		b.WriteString(run[pos : pos+n])
		if v < f.min || v > f.max {
			inRange = false
		}
		values[k] = v
		pos += n
		present++
	}

	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	if rest := s[i:]; len(rest) > 0 && isSign(rest[0]) {
		var off int
		b.WriteByte(' ')
		off, loc = writeOffset(&b, rest)
		if off < -24*3600 || off > 24*3600 {
			inRange = false
		}
	}

	text = b.String()
	if present < 2 || !inRange {
		return text, time.Time{}, false
	}
	t = time.Date(year, time.Month(values[0]), values[1], values[2], values[3], values[4], 0, loc)
	// time.Date normalizes Feb 31 to Mar 3
	if t.Month() != time.Month(values[0]) || t.Day() != values[1] {
		return text, time.Time{}, false
	}
	return text, t, true
}

// writeOffset copies the offset starting with the sign character in rest to b
// and returns the offset in seconds east of UTC along with a matching location.
func writeOffset(b *strings.Builder, rest string) (int, *time.Location) {
	sign := rest[0]
	b.WriteByte(sign)
	i := 1
	hours, n := readDigits(rest, i, 2)
	b.WriteString(rest[i : i+n])
	i += n
	// HH'mm' - skip the apostrophe
	if n > 0 && i < len(rest) && !isDigit(rest[i]) {
		i++
	}
	minutes, n := readDigits(rest, i, 2)
	if n > 0 {
		b.WriteByte(':')
		b.WriteString(rest[i : i+n])
	}
	off := hours*3600 + minutes*60
	if sign == '-' {
		off = -off
	}
	if off == 0 && sign == 'Z' {
		return 0, time.UTC
	}
	return off, time.FixedZone("", off)
}

// parseYear returns the numeric year of the (possibly too wide) year digits.
// "19100" and alike, written by software that put "19" in front of a
// two-digit year counter, is mapped to 2000.
func parseYear(digits string) (int, bool) {
	switch {
	case len(digits) == 4:
		return DigitsToInt(digits, 0, 4), true
	case len(digits) == 5 && strings.HasPrefix(digits, "19"):
		return 1900 + DigitsToInt(digits, 2, 3), true
	default:
		return DigitsToInt(digits, 0, 4), false
	}
}

// DigitsToInt returns the decimal value of at most maxDigits ASCII digits in s starting at offset.
// Reading stops at the first non-digit. Returns 0 if there is no digit at offset.
func DigitsToInt(s string, offset, maxDigits int) int {
	v, _ := readDigits(s, offset, maxDigits)
	return v
}

// readDigits is DigitsToInt, additionally returning the number of digits consumed.
func readDigits(s string, offset, maxDigits int) (int, int) {
	if offset < 0 || offset >= len(s) {
		return 0, 0
	}
	v, n := 0, 0
	for n < maxDigits && offset+n < len(s) && isDigit(s[offset+n]) {
		v = 10*v + int(s[offset+n]-'0')
		n++
	}
	return v, n
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isSign(c byte) bool {
	return c == '+' || c == '-' || c == 'Z'
}

// Format returns t as PDF date string, e.g. D:20240419110302+02'00'.
// Times in UTC get the suffix Z.
func Format(t time.Time) string {
	_, off := t.Zone()
	base := prefix + t.Format("20060102150405")
	if off == 0 && t.Location() == time.UTC {
		return base + "Z"
	}
	sign := byte('+')
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("%s%c%02d'%02d'", base, sign, off/3600, off%3600/60)
}

// ToTime parses the date/time string from PDF metadata and returns a time.Time object.
func ToTime(pdfdate string) (time.Time, error) {
	_, t, ok := Parse(pdfdate)
	if !ok {
		return t, fmt.Errorf("parsing %q: %w", pdfdate, ErrNoTimestamp)
	}
	return t, nil
}

// ToISO returns the PDF date/time as RFC3339 string.
// Returns an empty string if pdfdate has no timestamp.
func ToISO(pdfdate string) string {
	t, err := ToTime(pdfdate)
	if err != nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
