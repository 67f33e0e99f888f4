package valueparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Years outside this range are treated as parser false positives.
const (
	MinPlausibleYear = 1900
	MaxPlausibleYear = 2100
)

const monthAlt = `(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	usDatePattern       = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	dashedDatePattern   = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
	looseSlashPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	yearFirstPattern    = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	namedMonthPattern   = regexp.MustCompile(`(?i)^` + monthAlt + `[a-z]*\s*(\d{1,2}),?\s*(\d{4})$`)
	dayMonthYearPattern = regexp.MustCompile(`(?i)^(\d{1,2})-` + monthAlt + `[a-z]*-(\d{4})$`)

	pureDigits = regexp.MustCompile(`^\d+$`)
)

// fallbackLayouts is tried when none of the fixed patterns match.
var fallbackLayouts = []string{
	time.RFC3339, time.RFC3339Nano, time.RFC1123, time.RFC1123Z, time.RFC850,
	"2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"2006/01/02 15:04", "2006/01/02 15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
	"January 2, 2006", "January 2 2006", "2 January 2006", "2 Jan 2006",
	"Jan 2006", "January 2006", "Mon Jan 2 2006", "Mon, 2 Jan 2006",
	"2006-01", "2006",
}

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// IsDate reports whether s looks like a calendar date. A fixed pattern match
// is accepted outright; otherwise the generic layouts are tried, rejecting
// pure-digit strings and years outside [MinPlausibleYear, MaxPlausibleYear].
func IsDate(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	if matchesDatePattern(s) {
		return true
	}
	_, ok := parseFallback(s)
	return ok
}

func matchesDatePattern(s string) bool {
	for _, re := range []*regexp.Regexp{
		isoDatePattern, usDatePattern, dashedDatePattern, looseSlashPattern,
		yearFirstPattern, namedMonthPattern, dayMonthYearPattern,
	} {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ParseDate converts a value that passes IsDate into a UTC time. Values that
// match a pattern but name an impossible day (e.g. 31/31/2020) fail.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return civil(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := usDatePattern.FindStringSubmatch(s); m != nil {
		return civil(atoi(m[3]), atoi(m[1]), atoi(m[2]))
	}
	if m := dashedDatePattern.FindStringSubmatch(s); m != nil {
		return civil(atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := looseSlashPattern.FindStringSubmatch(s); m != nil {
		year := expandYear(m[3])
		a, b := atoi(m[1]), atoi(m[2])
		// month first like the US form; swap when the first part cannot be a month
		if t, ok := civil(year, a, b); ok {
			return t, true
		}
		return civil(year, b, a)
	}
	if m := yearFirstPattern.FindStringSubmatch(s); m != nil {
		return civil(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := namedMonthPattern.FindStringSubmatch(s); m != nil {
		return civilMonth(atoi(m[3]), m[1], atoi(m[2]))
	}
	if m := dayMonthYearPattern.FindStringSubmatch(s); m != nil {
		return civilMonth(atoi(m[3]), m[2], atoi(m[1]))
	}
	return parseFallback(s)
}

func parseFallback(s string) (time.Time, bool) {
	if pureDigits.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range fallbackLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if y := t.Year(); y < MinPlausibleYear || y > MaxPlausibleYear {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

func civil(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; reject that
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func civilMonth(year int, name string, day int) (time.Time, bool) {
	m, ok := monthIndex[strings.ToLower(name[:3])]
	if !ok {
		return time.Time{}, false
	}
	return civil(year, int(m), day)
}

func expandYear(s string) int {
	y := atoi(s)
	if len(s) > 2 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
