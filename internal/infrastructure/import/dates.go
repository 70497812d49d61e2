package csvimport

import (
	"strconv"
	"strings"
	"time"
)

// MinDateYear is the earliest year an imported date may carry
const MinDateYear = 1990

// Four-digit-year layouts, tried in order. Day-first wins over month-first.
var fullYearLayouts = []string{
	"2/1/2006",
	"2006-1-2",
	"1/2/2006",
	"2-1-2006",
	"2006/1/2",
}

// Two-digit-year layouts; the century is inferred afterwards.
var shortYearLayouts = []string{
	"2/1/06",
	"2-1-06",
	"1/2/06",
}

// Fallback layouts for exports that carry a time or a month name.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"20060102",
}

// Excel serial day numbers accepted by the fallback (1970-01-01 .. 2119)
const (
	minExcelSerial = 25569
	maxExcelSerial = 80000
)

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// DateParser parses the date formats found in legacy exports
type DateParser struct {
	now func() time.Time
}

// NewDateParser creates a parser whose year window ends ten years after now()
func NewDateParser(now func() time.Time) *DateParser {
	if now == nil {
		now = time.Now
	}
	return &DateParser{now: now}
}

var defaultDateParser = NewDateParser(nil)

// ParseDate parses s with the default parser
func ParseDate(s string) (time.Time, bool) {
	return defaultDateParser.Parse(s)
}

// Parse returns the calendar date of s at midnight UTC. Dates outside
// [1990, now+10] and unparseable input are absent; Parse never fails.
func (p *DateParser) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isAbsent(s) {
		return time.Time{}, false
	}

	t, ok := p.parse(s)
	if !ok {
		return time.Time{}, false
	}
	if t.Year() < MinDateYear || t.Year() > p.now().Year()+10 {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func (p *DateParser) parse(s string) (time.Time, bool) {
	for _, layout := range fullYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range shortYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t, ok := inferCentury(t); ok {
				return t, true
			}
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if n, err := strconv.Atoi(s); err == nil && n >= minExcelSerial && n <= maxExcelSerial {
		return excelEpoch.AddDate(0, 0, n), true
	}

	return time.Time{}, false
}

// inferCentury maps two-digit years 00-30 to 2000-2030 and 31-99 to 1931-1999
func inferCentury(t time.Time) (time.Time, bool) {
	yy := t.Year() % 100
	year := 1900 + yy
	if yy <= 30 {
		year = 2000 + yy
	}
	out := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if out.Day() != t.Day() {
		return time.Time{}, false
	}
	return out, true
}
