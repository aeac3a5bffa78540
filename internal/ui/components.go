package ui

import (
	"fmt"
	"strings"

	"github.com/olivier-w/patterns/internal/analysis"
	"github.com/olivier-w/patterns/internal/loader"
	"github.com/olivier-w/patterns/internal/scene"
)

const (
	nameWidth  = 18
	meterWidth = 8
)

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100))
}

// renderTrackLine draws one row of the track panel.
func renderTrackLine(info scene.TrackInfo, level, peak float64, buf *analysis.Buffer, width int) string {
	style := trackStyle(info.Color)
	name := info.Name
	if len([]rune(name)) > nameWidth {
		name = string([]rune(name)[:nameWidth-1]) + "…"
	}
	name = fmt.Sprintf("%-*s", nameWidth, name)
	if info.Muted {
		name = mutedStyle.Render(name)
	} else {
		name = style.Render(name)
	}

	var status string
	switch info.Load {
	case loader.Ready:
		status = renderVolumePercent(info.Volume)
	default:
		status = info.Load.String()
	}

	traceWidth := width - nameWidth - meterWidth - 20
	line := fmt.Sprintf("%d %s %s %s %s",
		info.Index+1,
		style.Render(info.Shape.Icon()),
		name,
		style.Render(renderMeter(level, peak, meterWidth)),
		statusStyle.Render(fmt.Sprintf("%-8s", status)),
	)
	if traceWidth > 0 && info.Load == loader.Ready {
		line += " " + renderTrace(buf, info.Row, info.Channel, traceWidth)
	}
	return line
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
