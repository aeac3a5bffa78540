package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for a transition the state machine
	// does not allow from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrLoadFailed blocks leaving Init while a stem failed to load.
	ErrLoadFailed = errors.New("stem failed to load")
	// ErrNotReady is returned for commands issued before the scene allows
	// them.
	ErrNotReady = errors.New("scene not ready")
)

// State is the playback state of the scene.
type State int

const (
	Init State = iota
	BezierSetup
	Prepare
	Patterns
	Finish
	Overview
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case BezierSetup:
		return "bezier-setup"
	case Prepare:
		return "prepare"
	case Patterns:
		return "patterns"
	case Finish:
		return "finish"
	case Overview:
		return "overview"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Overview }

// next returns the only state reachable from s.
func (s State) next() (State, bool) {
	if s < Init || s >= Overview {
		return s, false
	}
	return s + 1, true
}

// userTriggered reports whether the transition out of s is requested by the
// user rather than raised by playback.
func (s State) userTriggered() bool {
	switch s {
	case Init, BezierSetup, Finish:
		return true
	default:
		return false
	}
}

// CanRequest reports whether the user may move from s to to.
func CanRequest(from, to State) bool {
	next, ok := from.next()
	return ok && next == to && from.userTriggered()
}
