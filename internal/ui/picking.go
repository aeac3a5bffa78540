package ui

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/scene"
)

const (
	pickRadius = 1 // cells
	nudgeStep  = 0.05
)

var handles = []curve.PointID{curve.StartHandle, curve.EndHandle}

// picker turns pointer and key input into curve drags.
type picker struct {
	renderer *terminalRenderer
	dragging bool
}

// hit returns the handle under the cell, if any.
func (p *picker) hit(points curve.Points, col, row int) (curve.PointID, bool) {
	for _, id := range handles {
		c, r, ok := p.renderer.cellOf(points[id])
		if !ok {
			continue
		}
		if abs(c-col) <= pickRadius && abs(r-row) <= pickRadius {
			return id, true
		}
	}
	return 0, false
}

// press starts a drag when the cell hits a handle.
func (p *picker) press(c *scene.Controller, col, row int) bool {
	if !c.Curve().Editable() {
		return false
	}
	id, ok := p.hit(c.Curve().ControlPoints(), col, row)
	if !ok {
		return false
	}
	p.renderer.selected = id
	p.dragging = true
	return true
}

// move drags the selected handle across the camera-facing plane through it.
func (p *picker) move(c *scene.Controller, col, row int) error {
	if !p.dragging || p.renderer.last == nil {
		return nil
	}
	id := p.renderer.selected
	x, y := p.renderer.ndcOfCell(col, row)
	pos, ok := p.renderer.last.Unproject(x, y, c.Curve().ControlPoint(id))
	if !ok {
		return nil
	}
	return c.Drag(id, pos)
}

func (p *picker) release() {
	p.dragging = false
}

// cycle selects the next handle.
func (p *picker) cycle() {
	if p.renderer.selected == curve.StartHandle {
		p.renderer.selected = curve.EndHandle
	} else {
		p.renderer.selected = curve.StartHandle
	}
}

// nudge moves the selected handle by a fixed step.
func (p *picker) nudge(c *scene.Controller, delta mgl64.Vec3) error {
	id := p.renderer.selected
	return c.Drag(id, c.Curve().ControlPoint(id).Add(delta.Mul(nudgeStep)))
}
