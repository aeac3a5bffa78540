package curve

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDragRequiresEditableModel(t *testing.T) {
	m := NewModel(DefaultPoints())
	target := mgl64.Vec3{0, 2, 0}

	if err := m.Drag(StartHandle, target); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked on locked model, got %v", err)
	}

	m.SetEditable(true)
	if err := m.Drag(StartHandle, target); err != nil {
		t.Fatalf("Drag returned error: %v", err)
	}
	if got := m.ControlPoint(StartHandle); got != target {
		t.Fatalf("expected handle at %v, got %v", target, got)
	}
}

func TestDragKeepsAnchorsFixed(t *testing.T) {
	m := NewModel(DefaultPoints())
	m.SetEditable(true)

	for _, id := range []PointID{StartPoint, EndPoint} {
		if err := m.Drag(id, mgl64.Vec3{5, 5, 5}); !errors.Is(err, ErrLocked) {
			t.Fatalf("expected anchor %v to reject drag, got %v", id, err)
		}
	}
	p := m.ControlPoints()
	if p[StartPoint] != (mgl64.Vec3{-1, 0, 0}) || p[EndPoint] != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("anchors moved: %v", p)
	}
}

func TestDragIsVisibleOnNextSample(t *testing.T) {
	m := NewModel(DefaultPoints())
	m.SetEditable(true)
	before := m.Sample(0.5)

	if err := m.Drag(EndHandle, mgl64.Vec3{0.5, -1, 0}); err != nil {
		t.Fatalf("Drag returned error: %v", err)
	}
	if after := m.Sample(0.5); after == before {
		t.Fatal("expected sample to change after drag")
	}
	g := m.Guides()
	if g[1][1] != (mgl64.Vec3{0.5, -1, 0}) {
		t.Fatalf("expected guide to follow dragged handle, got %v", g[1][1])
	}
}

func TestSetControlPointRejectsUnknownID(t *testing.T) {
	m := NewModel(DefaultPoints())
	if err := m.SetControlPoint(PointID(9), mgl64.Vec3{}); !errors.Is(err, ErrUnknownPoint) {
		t.Fatalf("expected ErrUnknownPoint, got %v", err)
	}
	if err := m.SetControlPoint(EndPoint, mgl64.Vec3{2, 0, 0}); err != nil {
		t.Fatalf("SetControlPoint returned error: %v", err)
	}
	if got := m.ControlPoint(EndPoint); got != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("expected end point moved, got %v", got)
	}
}

func TestBoundsCenter(t *testing.T) {
	c := DefaultPoints().Center()
	want := mgl64.Vec3{0, 0.5, 0.125}
	if !c.ApproxEqualThreshold(want, 1e-12) {
		t.Fatalf("expected center %v, got %v", want, c)
	}
}

func TestRandomPointsKeepAnchors(t *testing.T) {
	p := RandomPoints(rand.New(rand.NewSource(7)))
	d := DefaultPoints()
	if p[StartPoint] != d[StartPoint] || p[EndPoint] != d[EndPoint] {
		t.Fatalf("expected default anchors, got %v", p)
	}
	if p[StartHandle] == d[StartHandle] {
		t.Fatal("expected randomised start handle")
	}
}
