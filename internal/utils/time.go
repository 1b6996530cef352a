package utils

import (
	"regexp"
	"strings"
	"time"
)

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
	layoutSlot     = "2006-01-02 15:04"
)

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// ParseSlot combines a YYYY-MM-DD date and HH:MM time in local timezone.
func ParseSlot(date, hm string) (time.Time, error) {
	return time.ParseInLocation(layoutSlot, strings.TrimSpace(date)+" "+strings.TrimSpace(hm), time.Local)
}

// IsHHMM reports whether s looks like a 24h HH:MM value.
func IsHHMM(s string) bool {
	return hhmm.MatchString(strings.TrimSpace(s))
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}
