package parser

import (
	"strconv"
	"strings"
	"time"
)

// layouts are tried in order; zone-less layouts are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05,999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"02/Jan/2006:15:04:05 -0700",
	"20060102 15:04:05",
	"01/02/2006 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// yearless layouts (syslog) need a reference year.
const syslogLayout = "Jan 2 15:04:05"

// parseTimestamp tries the known layouts and numeric epochs. year resolves layouts
// that carry no year; zero disables them.
func parseTimestamp(s string, year int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseEpoch(s); ok {
		return t, true
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if year > 0 {
		// "Oct  1 12:00:00" and "Oct 1 12:00:00" both normalise to single spaces.
		norm := strings.Join(strings.Fields(s), " ")
		if t, err := time.Parse(syslogLayout, norm); err == nil {
			return time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseEpoch accepts unix seconds (10 digits, optional fraction) or milliseconds (13 digits).
func parseEpoch(s string) (time.Time, bool) {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if !isDigits(intPart) || (hasFrac && !isDigits(frac)) {
		return time.Time{}, false
	}
	switch len(intPart) {
	case 10:
		sec, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		var nsec int64
		if hasFrac {
			f, err := strconv.ParseFloat("0."+frac, 64)
			if err == nil {
				nsec = int64(f * float64(time.Second))
			}
		}
		return time.Unix(sec, nsec).UTC(), true
	case 13:
		if hasFrac {
			return time.Time{}, false
		}
		ms, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
