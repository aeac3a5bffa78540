package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/olivier-w/patterns/internal/analysis"
)

var (
	meterChars = []rune(" ▁▂▃▄▅▆▇█")
	traceChars = []rune{' ', '.', ':', '-', '=', '+', '*', '#', '%', '@'}
	peakChar   = '▕'
)

const (
	meterFrequency = 9.0
	meterDamping   = 0.75
	// peakFall is how much of the held peak survives one second.
	peakFall = 0.25
)

// meter is one track's displayed level and its falling peak.
type meter struct {
	level, velocity float64
	peak            float64
}

// levelMeters eases each track's energy through a spring and holds the
// recent peak, letting it fall off over time.
type levelMeters struct {
	spring harmonica.Spring
	fall   float64 // per-frame peak retention
	meters []meter
}

func newLevelMeters(n, fps int) *levelMeters {
	return &levelMeters{
		spring: harmonica.NewSpring(harmonica.FPS(fps), meterFrequency, meterDamping),
		fall:   math.Pow(peakFall, 1/float64(max(fps, 1))),
		meters: make([]meter, n),
	}
}

// update moves meter i one frame toward energy.
func (l *levelMeters) update(i int, energy float64) {
	if i < 0 || i >= len(l.meters) {
		return
	}
	m := &l.meters[i]
	m.level, m.velocity = l.spring.Update(m.level, m.velocity, clamp01(energy))
	m.peak = math.Max(clamp01(m.level), m.peak*l.fall)
}

func (l *levelMeters) reading(i int) (level, peak float64) {
	if i < 0 || i >= len(l.meters) {
		return 0, 0
	}
	return clamp01(l.meters[i].level), l.meters[i].peak
}

// renderMeter draws a level as a horizontal bar of eighth blocks, with a
// tick in the cell holding the peak when it sits past the bar.
func renderMeter(level, peak float64, width int) string {
	level = clamp01(level) * float64(width)
	peakCell := -1
	if p := clamp01(peak) * float64(width); p > level+0.5 {
		peakCell = min(int(p), width-1)
	}
	var b strings.Builder
	for i := range width {
		fill := level - float64(i)
		switch {
		case fill >= 1:
			b.WriteRune(meterChars[len(meterChars)-1])
		case i == peakCell:
			b.WriteRune(peakChar)
		case fill <= 0:
			b.WriteRune(meterChars[0])
		default:
			b.WriteRune(meterChars[int(fill*float64(len(meterChars)-1))])
		}
	}
	return b.String()
}

// renderTrace shows the last width columns a track wrote into the analysis
// buffer, newest on the right, on the heat palette.
func renderTrace(buf *analysis.Buffer, row, channel, width int) string {
	if buf == nil || width <= 0 {
		return ""
	}
	var out strings.Builder
	color := newANSIState()
	head := buf.Column()
	w := buf.Width()
	for i := width - 1; i >= 0; i-- {
		col := ((head-i)%w + w) % w
		v := clamp01(float64(buf.At(row, col, channel)))
		ch := traceChars[int(v*float64(len(traceChars)-1))]
		if ch == ' ' {
			color.reset(&out)
			out.WriteRune(ch)
			continue
		}
		color.set(&out, heatColor(v))
		out.WriteRune(ch)
	}
	color.reset(&out)
	return out.String()
}
