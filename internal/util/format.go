// Package util holds small formatting helpers shared by the UI.
package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats d as m:ss, or h:mm:ss from one hour up. Negative
// durations format as zero.
func FormatDuration(d time.Duration) string {
	d = max(d, 0).Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPosition formats "elapsed / total" with elapsed left-padded to the
// width of total so the text does not jitter as it grows.
func FormatPosition(elapsed, total time.Duration) string {
	e, t := FormatDuration(min(elapsed, total)), FormatDuration(total)
	if pad := len(t) - len(e); pad > 0 {
		e = strings.Repeat(" ", pad) + e
	}
	return e + " / " + t
}
