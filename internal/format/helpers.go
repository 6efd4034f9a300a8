package format

import (
	"fmt"
	"time"
)

// Value renders a flow or voltage the way the outcome CSV does.
func Value(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// Percent renders a relative difference with two decimals and a sign.
func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// Duration renders d as "Xm Ys", "Ys" or, under a second, "Nms".
func Duration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen runes, ending with "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
