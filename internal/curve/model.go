package curve

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownPoint = errors.New("unknown control point")
	ErrLocked       = errors.New("curve is locked")
)

// PointID names one of the four control points.
type PointID int

const (
	StartPoint PointID = iota
	StartHandle
	EndHandle
	EndPoint
)

// String returns a short label for the point.
func (id PointID) String() string {
	switch id {
	case StartPoint:
		return "start"
	case StartHandle:
		return "start handle"
	case EndHandle:
		return "end handle"
	case EndPoint:
		return "end"
	default:
		return "unknown"
	}
}

// IsHandle reports whether the point is one of the two draggable handles.
func (id PointID) IsHandle() bool {
	return id == StartHandle || id == EndHandle
}

func (id PointID) valid() bool {
	return id >= StartPoint && id <= EndPoint
}

// Points is a snapshot of the four control points in curve order.
type Points [4]mgl64.Vec3

// Sample evaluates the curve defined by the snapshot.
func (p Points) Sample(t float64) mgl64.Vec3 {
	return Sample(p[0], p[1], p[2], p[3], t)
}

// Frame derives the frame at t for the snapshot.
func (p Points) Frame(t float64) Frame {
	return CalculateFrame(p[0], p[1], p[2], p[3], t)
}

// FrameFrom derives the frame at t, falling back to prev on degeneracy.
func (p Points) FrameFrom(prev Frame, t float64) Frame {
	return CalculateFrameFrom(prev, p[0], p[1], p[2], p[3], t)
}

// Bounds returns the axis-aligned bounding box of the control points.
func (p Points) Bounds() (lo, hi mgl64.Vec3) {
	lo, hi = p[0], p[0]
	for _, v := range p[1:] {
		for i := range 3 {
			lo[i] = min(lo[i], v[i])
			hi[i] = max(hi[i], v[i])
		}
	}
	return lo, hi
}

// Center returns the center of the bounding box.
func (p Points) Center() mgl64.Vec3 {
	lo, hi := p.Bounds()
	return lo.Add(hi).Mul(0.5)
}

// DefaultPoints returns the fixed anchors at (±1,0,0) with the handles
// lifted above them.
func DefaultPoints() Points {
	return Points{
		{-1, 0, 0},
		{-0.5, 1, 0.75},
		{0.5, 1, -0.5},
		{1, 0, 0},
	}
}

// RandomPoints keeps the default anchors and places the handles randomly
// above the curve.
func RandomPoints(rng *rand.Rand) Points {
	p := DefaultPoints()
	p[StartHandle] = mgl64.Vec3{
		-1 + rng.Float64(),
		0.5 + rng.Float64(),
		rng.Float64()*2 - 1,
	}
	p[EndHandle] = mgl64.Vec3{
		rng.Float64(),
		0.5 + rng.Float64(),
		rng.Float64()*2 - 1,
	}
	return p
}

// Model owns the control points. Every read re-derives from the current
// positions, so a drag is visible on the next frame without a commit step.
type Model struct {
	mu       sync.RWMutex
	points   Points
	editable bool
}

// NewModel creates a locked model with the given points.
func NewModel(points Points) *Model {
	return &Model{points: points}
}

// SetControlPoint replaces one point. It is not gated by the editable flag.
func (m *Model) SetControlPoint(id PointID, pos mgl64.Vec3) error {
	if !id.valid() {
		return ErrUnknownPoint
	}
	m.mu.Lock()
	m.points[id] = pos
	m.mu.Unlock()
	return nil
}

// Drag moves a handle to pos. Only handles move, and only while the model
// is editable; anchors stay fixed.
func (m *Model) Drag(id PointID, pos mgl64.Vec3) error {
	if !id.valid() {
		return ErrUnknownPoint
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.editable || !id.IsHandle() {
		return ErrLocked
	}
	m.points[id] = pos
	return nil
}

// ControlPoints returns a snapshot of the four points.
func (m *Model) ControlPoints() Points {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points
}

// ControlPoint returns a single point.
func (m *Model) ControlPoint(id PointID) mgl64.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !id.valid() {
		return mgl64.Vec3{}
	}
	return m.points[id]
}

// SetEditable enables or disables handle dragging.
func (m *Model) SetEditable(editable bool) {
	m.mu.Lock()
	m.editable = editable
	m.mu.Unlock()
}

// Editable reports whether handles can be dragged.
func (m *Model) Editable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.editable
}

// Sample evaluates the curve at t using the current points.
func (m *Model) Sample(t float64) mgl64.Vec3 {
	return m.ControlPoints().Sample(t)
}

// Frame derives the frame at t using the current points.
func (m *Model) Frame(t float64) Frame {
	return m.ControlPoints().Frame(t)
}

// Guides returns the anchor-to-handle segments, start first.
func (m *Model) Guides() [2][2]mgl64.Vec3 {
	p := m.ControlPoints()
	return [2][2]mgl64.Vec3{
		{p[StartPoint], p[StartHandle]},
		{p[EndPoint], p[EndHandle]},
	}
}
