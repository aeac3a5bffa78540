package ui

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Braille dot positions (col, row) → bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

// canvas is a grid of braille cells addressed in dots: each cell holds 2x4
// dots and one color, the color of the last dot drawn into it.
type canvas struct {
	cols, rows int
	bits       []uint8
	colors     []colorful.Color
}

func (c *canvas) resize(cols, rows int) {
	cols, rows = max(cols, 1), max(rows, 1)
	if cols == c.cols && rows == c.rows {
		return
	}
	c.cols, c.rows = cols, rows
	c.bits = make([]uint8, cols*rows)
	c.colors = make([]colorful.Color, cols*rows)
}

func (c *canvas) dotWidth() int  { return c.cols * 2 }
func (c *canvas) dotHeight() int { return c.rows * 4 }

func (c *canvas) clear() {
	clear(c.bits)
}

func (c *canvas) dot(x, y int, col colorful.Color) {
	if x < 0 || y < 0 || x >= c.dotWidth() || y >= c.dotHeight() {
		return
	}
	i := (y/4)*c.cols + x/2
	c.bits[i] |= 1 << brailleBits[x%2][y%4]
	c.colors[i] = col
}

// line draws from (x0,y0) to (x1,y1) with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int, col colorful.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.dot(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// cross draws a small plus centred on (x,y).
func (c *canvas) cross(x, y, r int, col colorful.Color) {
	c.line(x-r, y, x+r, y, col)
	c.line(x, y-r, x, y+r, col)
}

func (c *canvas) String() string {
	var out strings.Builder
	color := newANSIState()
	for row := range c.rows {
		if row > 0 {
			out.WriteByte('\n')
		}
		for col := range c.cols {
			i := row*c.cols + col
			if c.bits[i] == 0 {
				color.reset(&out)
				out.WriteByte(' ')
				continue
			}
			color.set(&out, c.colors[i])
			out.WriteRune(rune(0x2800 + int(c.bits[i])))
		}
		color.reset(&out)
	}
	return out.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
