package utils

import (
	"fmt"
	"time"
)

// FormatCount abbreviates counts of a thousand or more, e.g. 1234 -> "1.2k".
func FormatCount(n int) string {
	if n >= 1000 || n <= -1000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// TimeAgo renders t relative to now ("just now", "5 minutes ago", ...).
func TimeAgo(t time.Time) string {
	return timeAgo(t, time.Now())
}

func timeAgo(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
