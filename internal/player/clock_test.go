package player

import (
	"testing"
	"time"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time            { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestClockAdvancesWhileRunning(t *testing.T) {
	ft := &fakeTime{t: time.Unix(100, 0)}
	c := newClock(ft.now)
	ft.advance(1500 * time.Millisecond)
	if got := c.Now(); got != 1.5 {
		t.Fatalf("expected 1.5s, got %v", got)
	}
}

func TestClockHoldsWhileSuspended(t *testing.T) {
	ft := &fakeTime{t: time.Unix(100, 0)}
	c := newClock(ft.now)
	ft.advance(2 * time.Second)
	c.Suspend()
	ft.advance(10 * time.Second)
	if got := c.Now(); got != 2 {
		t.Fatalf("expected clock held at 2s, got %v", got)
	}
	if c.Running() {
		t.Fatal("expected suspended clock")
	}

	c.Resume()
	ft.advance(500 * time.Millisecond)
	if got := c.Now(); got != 2.5 {
		t.Fatalf("expected 2.5s after resume, got %v", got)
	}
}

func TestClockSuspendResumeAreIdempotent(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	c := newClock(ft.now)
	ft.advance(time.Second)
	c.Suspend()
	c.Suspend()
	c.Resume()
	c.Resume()
	ft.advance(time.Second)
	if got := c.Now(); got != 2 {
		t.Fatalf("expected 2s, got %v", got)
	}
}
