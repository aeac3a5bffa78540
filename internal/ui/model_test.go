package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/patterns/internal/analysis"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/loader"
	"github.com/olivier-w/patterns/internal/scene"
	"github.com/olivier-w/patterns/internal/track"
)

type stubSource struct {
	playing bool
	volume  float64
	closed  bool
	done    chan struct{}
}

func (s *stubSource) Play()                     { s.playing = true }
func (s *stubSource) Pause()                    { s.playing = false }
func (s *stubSource) Playing() bool             { return s.playing }
func (s *stubSource) SetVolume(v float64)       { s.volume = v }
func (s *stubSource) Volume() float64           { return s.volume }
func (s *stubSource) Duration() time.Duration   { return 3 * time.Second }
func (s *stubSource) Done() <-chan struct{}     { return s.done }
func (s *stubSource) Samples(dst []float32) int { return 0 }
func (s *stubSource) Close()                    { s.closed = true }

type stubClock struct{ t float64 }

func (c *stubClock) Now() float64 { return c.t }
func (c *stubClock) Suspend()     {}
func (c *stubClock) Resume()      {}

func newTestModel(t *testing.T) (Model, []*stubSource) {
	t.Helper()
	tracks := make([]*track.Track, 5)
	srcs := make([]*stubSource, 5)
	stems := make([]string, 5)
	for i := range tracks {
		tracks[i] = track.New(i, 5, track.Options{Name: "stem", Density: 2})
		srcs[i] = &stubSource{done: make(chan struct{})}
		stems[i] = "stem.wav"
	}
	ctrl := scene.New(scene.Options{
		Curve:  curve.NewModel(curve.DefaultPoints()),
		Tracks: tracks,
		Buffer: analysis.New(16, 16),
		Clock:  &stubClock{},
		FPS:    30,
	})
	m := New(Options{
		Controller: ctrl,
		Stems:      stems,
		Load:       loader.Options{Attempts: 1},
		FPS:        30,
		Open: func(string) (track.Source, error) {
			return nil, errors.New("not used")
		},
	})
	m, _ = m.handleMsg(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, srcs
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadAll(m Model, srcs []*stubSource) Model {
	for i, s := range srcs {
		m, _ = m.handleMsg(stemLoadedMsg{index: i, source: s})
	}
	return m
}

// runBatch executes a command tree and returns its messages.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runBatch(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestLoadedStemsCompleteBarrier(t *testing.T) {
	m, srcs := newTestModel(t)
	if m.ctrl.Loaded() {
		t.Fatal("expected stems pending before load messages")
	}
	m = loadAll(m, srcs)
	if !m.ctrl.Loaded() || m.ctrl.LoadRatio() != 1 {
		t.Fatalf("expected all stems loaded, ratio %v", m.ctrl.LoadRatio())
	}
}

func TestFailedStemBlocksStart(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = m.handleMsg(stemFailedMsg{index: 3, err: errors.New("corrupt")})
	m, _ = m.handleMsg(key("s"))
	if m.ctrl.State() != scene.Init {
		t.Fatalf("expected Init, got %v", m.ctrl.State())
	}
	if !strings.Contains(m.status, "retry") {
		t.Fatalf("expected retry hint, got %q", m.status)
	}

	_, cmd := m.handleMsg(key("r"))
	if cmd == nil {
		t.Fatal("expected reload command")
	}
	if m.ctrl.Tracks()[3].Load != loader.Loading {
		t.Fatalf("expected track 3 reloading, got %v", m.ctrl.Tracks()[3].Load)
	}
}

func TestKeysDriveStateMachineToPatterns(t *testing.T) {
	m, srcs := newTestModel(t)
	m = loadAll(m, srcs)

	m, _ = m.handleMsg(key("s"))
	if m.ctrl.State() != scene.BezierSetup {
		t.Fatalf("expected BezierSetup, got %v", m.ctrl.State())
	}
	before := m.ctrl.Curve().ControlPoint(curve.StartHandle)
	m, _ = m.handleMsg(key("right"))
	if after := m.ctrl.Curve().ControlPoint(curve.StartHandle); after.X() <= before.X() {
		t.Fatalf("expected handle nudged right, %v -> %v", before, after)
	}

	m, cmd := m.handleMsg(key("enter"))
	if m.ctrl.State() != scene.Prepare {
		t.Fatalf("expected Prepare, got %v", m.ctrl.State())
	}
	for _, msg := range runBatch(cmd) {
		m, _ = m.handleMsg(msg)
	}
	if m.ctrl.State() != scene.Patterns {
		t.Fatalf("expected Patterns after builds, got %v", m.ctrl.State())
	}
	for i, s := range srcs {
		if !s.playing {
			t.Fatalf("expected track %d playing", i)
		}
	}
}

func TestFailedBuildRetriesOnKey(t *testing.T) {
	m, srcs := newTestModel(t)
	m = loadAll(m, srcs)
	m, _ = m.handleMsg(key("s"))
	m, cmd := m.handleMsg(key("enter"))

	for _, msg := range runBatch(cmd) {
		if built, ok := msg.(batchBuiltMsg); ok && built.job.Index == 2 {
			msg = batchBuiltMsg{job: built.job, err: errors.New("out of memory")}
		}
		m, _ = m.handleMsg(msg)
	}
	if m.ctrl.State() != scene.Prepare || m.ctrl.PendingBuildCount() != 1 {
		t.Fatalf("expected Prepare with one build left, got %v/%d", m.ctrl.State(), m.ctrl.PendingBuildCount())
	}
	if !strings.Contains(m.status, "retry") {
		t.Fatalf("expected retry hint, got %q", m.status)
	}

	m, cmd = m.handleMsg(key("r"))
	for _, msg := range runBatch(cmd) {
		m, _ = m.handleMsg(msg)
	}
	if m.ctrl.State() != scene.Patterns {
		t.Fatalf("expected Patterns after retry, got %v", m.ctrl.State())
	}
	if len(m.failedBuilds) != 0 {
		t.Fatal("expected failed builds cleared")
	}
}

func TestPauseStopsFrameTicks(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = m.handleMsg(key(" "))
	if !m.ctrl.Paused() {
		t.Fatal("expected paused")
	}
	m, cmd := m.handleMsg(frameMsg(time.Now()))
	if cmd != nil || m.ticking {
		t.Fatal("expected frame scheduling to stop while paused")
	}
	m, cmd = m.handleMsg(key(" "))
	if m.ctrl.Paused() || cmd == nil || !m.ticking {
		t.Fatal("expected resume to re-register frame ticks")
	}
}

func TestFrameTickRendersAndReschedules(t *testing.T) {
	m, _ := newTestModel(t)
	frame := m.ctrl.Frame()
	m, cmd := m.handleMsg(frameMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected next frame scheduled")
	}
	if m.ctrl.Frame() != frame+1 {
		t.Fatalf("expected frame %d, got %d", frame+1, m.ctrl.Frame())
	}
	if strings.TrimSpace(stripANSI(m.renderer.View())) == "" {
		t.Fatal("expected the curve drawn on the canvas")
	}
}

func TestMuteKeyTogglesTrack(t *testing.T) {
	m, srcs := newTestModel(t)
	m = loadAll(m, srcs)
	m, _ = m.handleMsg(key("2"))
	if !m.ctrl.Tracks()[1].Muted || srcs[1].volume != 0 {
		t.Fatal("expected track 2 muted")
	}
}

func TestQuitClosesSources(t *testing.T) {
	m, srcs := newTestModel(t)
	m = loadAll(m, srcs)
	m, cmd := m.handleMsg(key("q"))
	if cmd == nil || !m.quitting {
		t.Fatal("expected quit command")
	}
	for i, s := range srcs {
		if !s.closed {
			t.Fatalf("expected source %d closed", i)
		}
	}
	if m.View() != "" {
		t.Fatal("expected empty view after quit")
	}
}

func TestViewShowsStateAndTracks(t *testing.T) {
	m, srcs := newTestModel(t)
	m = loadAll(m, srcs)
	view := stripANSI(m.View())
	if !strings.Contains(view, "patterns") || !strings.Contains(view, "init") {
		t.Fatalf("expected header with state, got %q", view)
	}
	if strings.Count(view, "stem") < 5 {
		t.Fatalf("expected five track lines, got %q", view)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
