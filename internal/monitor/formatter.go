package monitor

import (
	"fmt"
	"time"
)

// FormatPercent formats a 0-100 value as "X.X%".
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatAge formats how long ago something happened as "<1m", "Xm", "Xh" or
// "Xd". Unknown ages render as "-".
func FormatAge(d time.Duration, known bool) string {
	if !known {
		return "-"
	}
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// Since formats the age of t relative to now.
func Since(now, t time.Time) string {
	return FormatAge(now.Sub(t), !t.IsZero())
}
