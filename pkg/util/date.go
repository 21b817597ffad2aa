package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-day format used for bar and forecast dates.
const DateLayout = "2006-01-02"

var timeLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTime tries the date layouts, RFC3339 and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// AddDays returns the calendar day n days after t, ignoring weekends and holidays.
func AddDays(t time.Time, n int) string {
	return t.AddDate(0, 0, n).Format(DateLayout)
}
