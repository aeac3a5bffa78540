// Package loader loads stems off the UI goroutine and tracks when the whole
// set is ready.
package loader

import "sync"

// TrackState is the load state of one stem.
type TrackState int

const (
	Pending TrackState = iota
	Loading
	Ready
	Failed
)

func (s TrackState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Barrier is an AND over per-track load completion. Completion order does
// not matter.
type Barrier struct {
	mu     sync.Mutex
	states []TrackState
	errs   []error
}

// NewBarrier creates a barrier for n tracks, all Pending.
func NewBarrier(n int) *Barrier {
	return &Barrier{
		states: make([]TrackState, n),
		errs:   make([]error, n),
	}
}

// Len returns the number of tracks.
func (b *Barrier) Len() int { return len(b.states) }

// Start marks track i as loading. A Ready track stays Ready.
func (b *Barrier) Start(i int) {
	b.set(i, Loading, nil)
}

// Done marks track i as ready and reports whether that completed the
// barrier.
func (b *Barrier) Done(i int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.states) {
		return false
	}
	was := b.completeLocked()
	b.states[i] = Ready
	b.errs[i] = nil
	return !was && b.completeLocked()
}

// Fail marks track i as failed with err.
func (b *Barrier) Fail(i int, err error) {
	b.set(i, Failed, err)
}

func (b *Barrier) set(i int, s TrackState, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.states) || b.states[i] == Ready {
		return
	}
	b.states[i] = s
	b.errs[i] = err
}

// State returns the state of track i.
func (b *Barrier) State(i int) TrackState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.states) {
		return Pending
	}
	return b.states[i]
}

// Ratio returns the fraction of ready tracks.
func (b *Barrier) Ratio() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		return 1
	}
	return float64(b.readyLocked()) / float64(len(b.states))
}

// Complete reports whether every track is ready.
func (b *Barrier) Complete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completeLocked()
}

// Failed returns the indices of failed tracks.
func (b *Barrier) Failed() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []int
	for i, s := range b.states {
		if s == Failed {
			out = append(out, i)
		}
	}
	return out
}

// Errors returns the load error of every failed track, keyed by index.
func (b *Barrier) Errors() map[int]error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int]error)
	for i, s := range b.states {
		if s == Failed {
			out[i] = b.errs[i]
		}
	}
	return out
}

func (b *Barrier) readyLocked() int {
	n := 0
	for _, s := range b.states {
		if s == Ready {
			n++
		}
	}
	return n
}

func (b *Barrier) completeLocked() bool {
	return b.readyLocked() == len(b.states)
}
