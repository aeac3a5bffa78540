package track

import (
	"github.com/lucasb-eyer/go-colorful"
)

// paletteHues spreads the five tracks around the hue circle, starting from
// a warm orange.
var paletteHues = [...]float64{24, 200, 330, 95, 265}

// ColorForIndex returns the display color of a track.
func ColorForIndex(index int) colorful.Color {
	h := paletteHues[((index%len(paletteHues))+len(paletteHues))%len(paletteHues)]
	return colorful.Hcl(h, 0.6, 0.7).Clamped()
}
