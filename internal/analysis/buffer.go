// Package analysis keeps the rolling grid of per-track audio energy that
// colors the patterns. Time runs along the columns, tracks own rows and each
// track writes one color channel.
package analysis

import (
	"math"
	"sync"
)

// Channels is the number of values per cell.
const Channels = 3

// DefaultSize is the default grid width and height.
const DefaultSize = 512

// MaxLog is the natural log of the largest analyser byte value.
var MaxLog = math.Log(255)

// Energy maps an average frequency value onto [0,1] on a log scale. Values
// at or below threshold map to exactly 0.
func Energy(avg, threshold float64) float64 {
	if avg <= 0 {
		return 0
	}
	v := math.Log(avg) / MaxLog
	if v <= threshold {
		return 0
	}
	return math.Min(v, 1)
}

// Slot addresses the writes of one track.
type Slot struct {
	VerticalOffset float64
	Channel        int
	Key            int
}

type writeKey struct {
	key     int
	channel int
}

// Buffer is a double-buffered width x height x 3 float grid. Begin copies
// the front target into the back one, Write fills the current column and
// Commit swaps the targets.
type Buffer struct {
	width  int
	height int

	mu      sync.RWMutex
	targets [2][]float32
	front   int
	frame   int
	column  int
	wraps   int
	written map[writeKey]bool
	open    bool
	begun   bool
}

// New allocates a zeroed grid.
func New(width, height int) *Buffer {
	if width <= 0 {
		width = DefaultSize
	}
	if height <= 0 {
		height = DefaultSize
	}
	n := width * height * Channels
	return &Buffer{
		width:   width,
		height:  height,
		targets: [2][]float32{make([]float32, n), make([]float32, n)},
		written: make(map[writeKey]bool),
	}
}

// Width returns the number of columns.
func (b *Buffer) Width() int { return b.width }

// Height returns the number of rows.
func (b *Buffer) Height() int { return b.height }

// Begin starts frame: the feedback pass copies the read target into the
// write target and the write column moves to frame % width. It returns true
// when the column wrapped back to 0. Beginning the same frame again rejects
// writes that frame already made.
func (b *Buffer) Begin(frame int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frame < 0 {
		frame = 0
	}
	copy(b.targets[1-b.front], b.targets[b.front])

	repeat := b.begun && frame == b.frame
	wrapped := false
	col := frame % b.width
	if frame > 0 && col == 0 && !repeat {
		b.wraps++
		wrapped = true
	}
	b.frame = frame
	b.column = col
	if !repeat {
		// A held frame keeps its writes so the column is written once.
		clear(b.written)
	}
	b.begun = true
	b.open = true
	return wrapped
}

// Write stores value for slot in the current column. A second write for the
// same key and channel in one frame is rejected.
func (b *Buffer) Write(slot Slot, value float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open || slot.Channel < 0 || slot.Channel >= Channels {
		return false
	}
	k := writeKey{key: slot.Key, channel: slot.Channel}
	if b.written[k] {
		return false
	}
	row := b.row(slot.VerticalOffset)
	b.targets[1-b.front][b.index(row, b.column, slot.Channel)] = value
	b.written[k] = true
	return true
}

// Commit makes the write target the read target.
func (b *Buffer) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return
	}
	b.front = 1 - b.front
	b.open = false
}

// Read returns the read target. The slice is shared and must not be
// modified.
func (b *Buffer) Read() []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.targets[b.front]
}

// At returns one cell of the read target, or 0 outside the grid.
func (b *Buffer) At(row, col, channel int) float32 {
	if row < 0 || row >= b.height || col < 0 || col >= b.width || channel < 0 || channel >= Channels {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.targets[b.front][b.index(row, col, channel)]
}

// Row returns the grid row owned by a vertical offset.
func (b *Buffer) Row(offset float64) int {
	return b.row(offset)
}

// Column returns the column of the current frame.
func (b *Buffer) Column() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.column
}

// Frame returns the frame passed to the last Begin.
func (b *Buffer) Frame() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame
}

// Wraps returns how many times the column returned to 0.
func (b *Buffer) Wraps() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.wraps
}

func (b *Buffer) row(offset float64) int {
	r := int(math.Floor(offset * float64(b.height)))
	return max(0, min(r, b.height-1))
}

func (b *Buffer) index(row, col, channel int) int {
	return row*b.width*Channels + col*Channels + channel
}
