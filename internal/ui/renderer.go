package ui

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/scene"
	"github.com/olivier-w/patterns/internal/track"
)

const (
	curveSegments = 96
	axisLength    = 0.15
	gridExtent    = 2.0
	gridStep      = 0.5
	// segments farther than this many canvases off screen are dropped
	clipMargin = 2.0
)

// terminalRenderer rasterises the scene into a braille canvas.
type terminalRenderer struct {
	canvas   canvas
	last     *scene.Snapshot
	selected curve.PointID
	outlines map[track.Shape][][]mgl64.Vec3
}

func newTerminalRenderer() *terminalRenderer {
	r := &terminalRenderer{
		selected: curve.StartHandle,
		outlines: make(map[track.Shape][][]mgl64.Vec3),
	}
	for s := track.Flag; s <= track.Stick; s++ {
		r.outlines[s] = s.Outline()
	}
	return r
}

func (r *terminalRenderer) resize(cols, rows int) {
	r.canvas.resize(cols, rows)
}

// RenderBackground clears the canvas and draws the floor grid with the
// previous frame's camera.
func (r *terminalRenderer) RenderBackground() {
	r.canvas.clear()
	if r.last == nil {
		return
	}
	floor := background.BlendLab(dimWhite, 0.25)
	for v := -gridExtent; v <= gridExtent+1e-9; v += gridStep {
		r.segment(r.last, mgl64.Vec3{v, 0, -gridExtent}, mgl64.Vec3{v, 0, gridExtent}, floor)
		r.segment(r.last, mgl64.Vec3{-gridExtent, 0, v}, mgl64.Vec3{gridExtent, 0, v}, floor)
	}
}

// RenderScene draws the curve, its handles, the play head and every
// revealed instance.
func (r *terminalRenderer) RenderScene(s *scene.Snapshot) {
	r.last = s

	for _, tv := range s.Tracks {
		r.drawTrack(s, tv)
	}

	prev := s.Points.Sample(0)
	for i := 1; i <= curveSegments; i++ {
		next := s.Points.Sample(float64(i) / curveSegments)
		r.segment(s, prev, next, white)
		prev = next
	}

	if s.State == scene.BezierSetup || s.State == scene.Init {
		guide := dimWhite
		if s.Editable {
			guide = white
		}
		for _, g := range s.Guides {
			r.segment(s, g[0], g[1], guide)
		}
		for id, p := range s.Points {
			col := dimWhite
			if s.Editable && curve.PointID(id) == r.selected {
				col = axisTangent
			}
			r.marker(s, p, col)
		}
	}

	if s.State == scene.Prepare || s.State == scene.Patterns {
		f := s.Frenet
		r.segment(s, s.Playhead, s.Playhead.Add(f.Tangent.Mul(axisLength)), axisTangent)
		r.segment(s, s.Playhead, s.Playhead.Add(f.Normal.Mul(axisLength)), axisNormal)
		r.segment(s, s.Playhead, s.Playhead.Add(f.Bitangent.Mul(axisLength)), axisBitangent)
		r.marker(s, s.Playhead, white)
	}
}

func (r *terminalRenderer) drawTrack(s *scene.Snapshot, tv scene.TrackView) {
	node := tv.Node
	if node == nil || !node.Visible || node.Batch == nil {
		return
	}
	lines := r.outlines[tv.Shape]
	width := 1
	if s.Buffer != nil {
		width = s.Buffer.Width()
	}
	for _, in := range node.Batch.Instances[:node.Batch.Revealed()] {
		energy := in.Energy
		if s.Buffer != nil {
			energy = math.Max(energy, float64(s.Buffer.At(tv.Row, in.Index%width, tv.Channel)))
		}
		col := shade(tv.Color, energy)
		scale := 0.6 + 0.8*energy
		for _, line := range lines {
			prev := in.Transform(line[0].Mul(scale))
			for _, v := range line[1:] {
				next := in.Transform(v.Mul(scale))
				r.segment(s, prev, next, col)
				prev = next
			}
		}
	}
}

func (r *terminalRenderer) marker(s *scene.Snapshot, p mgl64.Vec3, col colorful.Color) {
	x, y, ok := r.toDots(s, p)
	if !ok {
		return
	}
	r.canvas.cross(x, y, 2, col)
}

func (r *terminalRenderer) segment(s *scene.Snapshot, a, b mgl64.Vec3, col colorful.Color) {
	x0, y0, ok0 := r.toDots(s, a)
	x1, y1, ok1 := r.toDots(s, b)
	if !ok0 || !ok1 {
		return
	}
	r.canvas.line(x0, y0, x1, y1, col)
}

// toDots projects a world point to canvas dot coordinates.
func (r *terminalRenderer) toDots(s *scene.Snapshot, p mgl64.Vec3) (int, int, bool) {
	ndc, ok := s.Project(p)
	if !ok || math.Abs(ndc.X()) > 1+clipMargin || math.Abs(ndc.Y()) > 1+clipMargin {
		return 0, 0, false
	}
	x := (ndc.X() + 1) / 2 * float64(r.canvas.dotWidth())
	y := (1 - ndc.Y()) / 2 * float64(r.canvas.dotHeight())
	return int(math.Floor(x)), int(math.Floor(y)), true
}

// cellOf returns the terminal cell a world point projects into.
func (r *terminalRenderer) cellOf(p mgl64.Vec3) (col, row int, ok bool) {
	if r.last == nil {
		return 0, 0, false
	}
	x, y, ok := r.toDots(r.last, p)
	return x / 2, y / 4, ok
}

// ndcOfCell returns the normalized device coordinates of a cell centre.
func (r *terminalRenderer) ndcOfCell(col, row int) (float64, float64) {
	x := (float64(col)+0.5)/float64(r.canvas.cols)*2 - 1
	y := 1 - (float64(row)+0.5)/float64(r.canvas.rows)*2
	return x, y
}

func (r *terminalRenderer) View() string {
	return r.canvas.String()
}
