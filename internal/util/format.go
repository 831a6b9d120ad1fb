// Package util holds small formatting helpers shared by the views.
package util

import (
	"fmt"
	"time"
)

// FormatDuration formats d as m:ss, or h:mm:ss from one hour up.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatLength is FormatDuration for track lengths; unknown lengths
// (streams, external players) render as --:--.
func FormatLength(d time.Duration) string {
	if d <= 0 {
		return "--:--"
	}
	return FormatDuration(d)
}
