package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape is the pattern family a track spawns along the curve.
type Shape int

const (
	Flag Shape = iota
	Triangle
	Polygon
	Circle
	Stick
)

// ShapeForIndex maps a track index onto its shape family.
func ShapeForIndex(index int) Shape {
	return Shape(((index % 5) + 5) % 5)
}

func (s Shape) String() string {
	switch s {
	case Flag:
		return "flag"
	case Triangle:
		return "triangle"
	case Polygon:
		return "polygon"
	case Circle:
		return "circle"
	case Stick:
		return "stick"
	default:
		return "unknown"
	}
}

// Icon returns a single-cell glyph for the family.
func (s Shape) Icon() string {
	switch s {
	case Flag:
		return "⚑"
	case Triangle:
		return "▲"
	case Polygon:
		return "⬢"
	case Circle:
		return "●"
	case Stick:
		return "┃"
	default:
		return "?"
	}
}

// Outline returns the shape as polylines in its local plane: X runs along
// the curve tangent and Y along the normal, with the base at the origin.
func (s Shape) Outline() [][]mgl64.Vec3 {
	switch s {
	case Flag:
		return [][]mgl64.Vec3{
			{{0, 0, 0}, {0, 0.12, 0}},
			{{0, 0.12, 0}, {0.06, 0.105, 0}, {0, 0.09, 0}},
		}
	case Triangle:
		return [][]mgl64.Vec3{ring(3, 0.05, 0.05)}
	case Polygon:
		return [][]mgl64.Vec3{ring(6, 0.05, 0.05)}
	case Circle:
		return [][]mgl64.Vec3{ring(24, 0.05, 0.05)}
	case Stick:
		return [][]mgl64.Vec3{{{-0.015, 0, 0}, {-0.015, 0.15, 0}, {0.015, 0.15, 0}, {0.015, 0, 0}, {-0.015, 0, 0}}}
	default:
		return nil
	}
}

// ring is a closed regular polygon centred at (0, lift).
func ring(segments int, radius, lift float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, segments+1)
	for i := 0; i <= segments; i++ {
		a := float64(i)/float64(segments)*2*math.Pi + math.Pi/2
		out = append(out, mgl64.Vec3{radius * math.Cos(a), lift + radius*math.Sin(a), 0})
	}
	return out
}
