package ui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

type colorProfile uint8

const (
	colorNone colorProfile = iota
	colorANSI16
	colorANSI256
	colorTrueColor
)

var (
	profileOnce sync.Once
	profile     colorProfile
	seqCache    sync.Map
)

func currentColorProfile() colorProfile {
	profileOnce.Do(func() {
		if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
			profile = colorNone
			return
		}
		term := strings.ToLower(os.Getenv("TERM"))
		colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
		switch {
		case strings.Contains(colorTerm, "truecolor"), strings.Contains(colorTerm, "24bit"):
			profile = colorTrueColor
		case strings.Contains(term, "256color"):
			profile = colorANSI256
		case term == "", term == "dumb":
			profile = colorNone
		default:
			profile = colorANSI16
		}
	})
	return profile
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

var (
	background = colorful.Color{R: 0.07, G: 0.086, B: 0.125}
	dimWhite   = colorful.Color{R: 0.55, G: 0.55, B: 0.6}
	white      = colorful.Color{R: 0.95, G: 0.95, B: 0.95}

	axisTangent   = colorful.Color{R: 0.95, G: 0.3, B: 0.25}
	axisNormal    = colorful.Color{R: 0.3, G: 0.9, B: 0.4}
	axisBitangent = colorful.Color{R: 0.3, G: 0.5, B: 1}
)

// heatStops runs from cold blue through green and yellow to red.
var heatStops = []colorful.Color{
	{R: 16.0 / 255, G: 25.0 / 255, B: 70.0 / 255},
	{R: 0, G: 174.0 / 255, B: 1},
	{R: 20.0 / 255, G: 1, B: 161.0 / 255},
	{R: 1, G: 230.0 / 255, B: 92.0 / 255},
	{R: 1, G: 80.0 / 255, B: 60.0 / 255},
}

func heatColor(t float64) colorful.Color {
	t = clamp01(t) * float64(len(heatStops)-1)
	i := int(t)
	if i >= len(heatStops)-1 {
		return heatStops[len(heatStops)-1]
	}
	return heatStops[i].BlendLab(heatStops[i+1], t-float64(i)).Clamped()
}

// shade mixes a track color toward the background as energy drops.
func shade(base colorful.Color, energy float64) colorful.Color {
	return background.BlendLab(base, 0.35+0.65*clamp01(energy)).Clamped()
}

type ansiState struct {
	profile colorProfile
	current uint32
}

func newANSIState() ansiState {
	return ansiState{profile: currentColorProfile(), current: ^uint32(0)}
}

func (s *ansiState) set(sb *strings.Builder, c colorful.Color) {
	if s.profile == colorNone {
		return
	}
	r, g, b := c.Clamped().RGB255()
	key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if key == s.current {
		return
	}
	sb.WriteString(colorSequence(s.profile, r, g, b))
	s.current = key
}

func (s *ansiState) reset(sb *strings.Builder) {
	if s.profile == colorNone || s.current == ^uint32(0) {
		return
	}
	sb.WriteString("\x1b[0m")
	s.current = ^uint32(0)
}

var ansi16 = []colorful.Color{
	{R: 0, G: 0, B: 0},
	{R: 205.0 / 255, G: 49.0 / 255, B: 49.0 / 255},
	{R: 13.0 / 255, G: 188.0 / 255, B: 121.0 / 255},
	{R: 229.0 / 255, G: 229.0 / 255, B: 16.0 / 255},
	{R: 36.0 / 255, G: 114.0 / 255, B: 200.0 / 255},
	{R: 188.0 / 255, G: 63.0 / 255, B: 188.0 / 255},
	{R: 17.0 / 255, G: 168.0 / 255, B: 205.0 / 255},
	{R: 229.0 / 255, G: 229.0 / 255, B: 229.0 / 255},
}

func colorSequence(p colorProfile, r, g, b uint8) string {
	key := uint32(p)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if seq, ok := seqCache.Load(key); ok {
		return seq.(string)
	}

	var seq string
	switch p {
	case colorTrueColor:
		seq = fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
	case colorANSI256:
		idx := 16 + 36*(int(r)*5/255) + 6*(int(g)*5/255) + int(b)*5/255
		seq = fmt.Sprintf("\x1b[38;5;%dm", idx)
	case colorANSI16:
		c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		best, bestDist := 0, math.MaxFloat64
		for i, pc := range ansi16 {
			if d := c.DistanceRgb(pc); d < bestDist {
				best, bestDist = i, d
			}
		}
		seq = fmt.Sprintf("\x1b[%dm", 30+best)
	}

	seqCache.Store(key, seq)
	return seq
}
