package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/olivier-w/patterns/internal/analysis"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/track"
)

// TrackView is what the renderer needs to draw one track.
type TrackView struct {
	Index   int
	Color   colorful.Color
	Shape   track.Shape
	Row     int
	Channel int
	Node    *track.Node
}

// Snapshot is the state of one frame as seen by the renderer.
type Snapshot struct {
	State    State
	Frame    int
	Progress float64

	Points   curve.Points
	Guides   [2][2]mgl64.Vec3
	Editable bool
	Playhead mgl64.Vec3
	Frenet   curve.Frame

	Eye        mgl64.Vec3
	Target     mgl64.Vec3
	View       mgl64.Mat4
	Projection mgl64.Mat4

	Tracks []TrackView
	Buffer *analysis.Buffer
}

// Snapshot captures the current frame.
func (c *Controller) Snapshot() *Snapshot {
	points := c.curve.ControlPoints()
	p := c.Progress()
	s := &Snapshot{
		State:      c.state,
		Frame:      c.frame,
		Progress:   p,
		Points:     points,
		Guides:     c.curve.Guides(),
		Editable:   c.curve.Editable(),
		Playhead:   points.Sample(p),
		Frenet:     points.Frame(p),
		Eye:        c.camera.SmoothedEye(),
		Target:     c.camera.SmoothedTarget(),
		View:       c.camera.View(),
		Projection: c.camera.Projection(),
		Buffer:     c.buffer,
		Tracks:     make([]TrackView, len(c.tracks)),
	}
	for i, tr := range c.tracks {
		s.Tracks[i] = TrackView{
			Index:   tr.Index,
			Color:   tr.Color,
			Shape:   tr.Shape,
			Row:     c.buffer.Row(tr.VerticalOffset),
			Channel: tr.Channel,
			Node:    tr.Node(),
		}
	}
	return s
}

// Project maps a world point to normalized device coordinates. ok is false
// for points behind the camera.
func (s *Snapshot) Project(p mgl64.Vec3) (ndc mgl64.Vec3, ok bool) {
	clip := s.Projection.Mul4(s.View).Mul4x1(p.Vec4(1))
	if clip.W() <= 1e-9 {
		return mgl64.Vec3{}, false
	}
	return clip.Vec3().Mul(1 / clip.W()), true
}

// Unproject maps normalized device x,y onto the plane through anchor that
// faces the camera.
func (s *Snapshot) Unproject(x, y float64, anchor mgl64.Vec3) (mgl64.Vec3, bool) {
	inv := s.Projection.Mul4(s.View).Inv()
	near := mgl64.TransformCoordinate(mgl64.Vec3{x, y, -1}, inv)
	far := mgl64.TransformCoordinate(mgl64.Vec3{x, y, 1}, inv)
	dir := far.Sub(near)

	normal := s.Target.Sub(s.Eye)
	denom := dir.Dot(normal)
	if normal.Len() == 0 || denom == 0 {
		return mgl64.Vec3{}, false
	}
	k := anchor.Sub(near).Dot(normal) / denom
	return near.Add(dir.Mul(k)), true
}
