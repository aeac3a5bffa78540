package scene

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/olivier-w/patterns/internal/analysis"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/track"
)

type stubClock struct {
	t         float64
	suspended bool
}

func (c *stubClock) Now() float64 { return c.t }
func (c *stubClock) Suspend()     { c.suspended = true }
func (c *stubClock) Resume()      { c.suspended = false }

func (c *stubClock) advance(d float64) {
	if !c.suspended {
		c.t += d
	}
}

type stubSource struct {
	playing  bool
	volume   float64
	duration time.Duration
	done     chan struct{}
	tone     float64 // sine amplitude returned by Samples
}

func (s *stubSource) Play()                     { s.playing = true }
func (s *stubSource) Pause()                    { s.playing = false }
func (s *stubSource) Playing() bool             { return s.playing }
func (s *stubSource) SetVolume(v float64)       { s.volume = v }
func (s *stubSource) Volume() float64           { return s.volume }
func (s *stubSource) Duration() time.Duration   { return s.duration }
func (s *stubSource) Done() <-chan struct{}     { return s.done }

func (s *stubSource) Samples(dst []float32) int {
	for i := range dst {
		dst[i] = float32(s.tone * math.Sin(2*math.Pi*8*float64(i)/float64(len(dst))))
	}
	return len(dst)
}

type recorder struct {
	calls     []string
	snapshots []*Snapshot
}

func (r *recorder) RenderBackground() { r.calls = append(r.calls, "background") }
func (r *recorder) RenderScene(s *Snapshot) {
	r.calls = append(r.calls, "scene")
	r.snapshots = append(r.snapshots, s)
}

func newController(clock *stubClock) (*Controller, []*stubSource) {
	tracks := make([]*track.Track, 5)
	srcs := make([]*stubSource, 5)
	for i := range tracks {
		tracks[i] = track.New(i, 5, track.Options{Density: 2})
		srcs[i] = &stubSource{duration: 10 * time.Second, done: make(chan struct{})}
	}
	c := New(Options{
		Tracks: tracks,
		Buffer: analysis.New(8, 8),
		Clock:  clock,
		FPS:    60,
	})
	return c, srcs
}

func loadAll(c *Controller, srcs []*stubSource) {
	for i, s := range srcs {
		c.OnTrackLoading(i)
		c.OnTrackLoaded(i, s)
	}
}

func buildAll(t *testing.T, c *Controller) {
	t.Helper()
	jobs := c.PendingBuilds()
	if len(jobs) != 5 {
		t.Fatalf("expected 5 build jobs, got %d", len(jobs))
	}
	for _, j := range jobs {
		b, err := j.Run()
		if err != nil {
			t.Fatalf("build %d: %v", j.Index, err)
		}
		if err := c.CompleteBuild(j.Index, b); err != nil {
			t.Fatalf("CompleteBuild %d: %v", j.Index, err)
		}
	}
}

func TestInitOnlyReachesBezierSetup(t *testing.T) {
	for to := Init; to <= Overview; to++ {
		if to == BezierSetup {
			continue
		}
		c, _ := newController(&stubClock{})
		if err := c.Request(to); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Init -> %v: expected ErrInvalidTransition, got %v", to, err)
		}
	}
	c, _ := newController(&stubClock{})
	if err := c.Request(BezierSetup); err != nil {
		t.Fatalf("Init -> BezierSetup: %v", err)
	}
	if !c.Curve().Editable() {
		t.Fatal("expected drag enabled in BezierSetup")
	}
}

func TestOverviewIsTerminal(t *testing.T) {
	if !Overview.Terminal() {
		t.Fatal("expected Overview to be terminal")
	}
	for to := Init; to <= Overview; to++ {
		if CanRequest(Overview, to) {
			t.Fatalf("Overview -> %v should not be allowed", to)
		}
	}
}

func TestInternalTransitionsNotRequestable(t *testing.T) {
	if CanRequest(Prepare, Patterns) || CanRequest(Patterns, Finish) {
		t.Fatal("playback-driven transitions must not be user requestable")
	}
}

func TestLoadFailureBlocksInit(t *testing.T) {
	c, srcs := newController(&stubClock{})
	c.OnTrackFailed(2, errors.New("corrupt"))
	if err := c.Request(BezierSetup); !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
	if len(c.LoadErrors()) != 1 {
		t.Fatalf("expected one load error, got %v", c.LoadErrors())
	}

	c.OnTrackLoading(2)
	c.OnTrackLoaded(2, srcs[2])
	if err := c.Request(BezierSetup); err != nil {
		t.Fatalf("expected retry to unblock Init, got %v", err)
	}
}

func TestFullRun(t *testing.T) {
	clock := &stubClock{t: 3}
	c, srcs := newController(clock)
	r := &recorder{}

	if err := c.Request(BezierSetup); err != nil {
		t.Fatal(err)
	}
	if err := c.Drag(curve.StartHandle, mgl64.Vec3{0, 2, 0}); err != nil {
		t.Fatalf("Drag in BezierSetup: %v", err)
	}
	if err := c.Request(Prepare); err != nil {
		t.Fatal(err)
	}
	if err := c.Drag(curve.StartHandle, mgl64.Vec3{0, 3, 0}); !errors.Is(err, curve.ErrLocked) {
		t.Fatalf("expected drag locked in Prepare, got %v", err)
	}
	if jobs := c.PendingBuilds(); len(jobs) != 0 {
		t.Fatalf("expected no builds before loading, got %d", len(jobs))
	}

	loadAll(c, srcs)
	if c.LoadRatio() != 1 {
		t.Fatalf("expected load ratio 1, got %v", c.LoadRatio())
	}
	jobs := c.PendingBuilds()
	for _, j := range jobs[:4] {
		b, _ := j.Run()
		if err := c.CompleteBuild(j.Index, b); err != nil {
			t.Fatal(err)
		}
		if c.State() != Prepare {
			t.Fatalf("expected Prepare until last build, got %v", c.State())
		}
	}
	for _, s := range srcs {
		if s.playing {
			t.Fatal("expected no playback before the last build")
		}
	}
	b, _ := jobs[4].Run()
	if err := c.CompleteBuild(4, b); err != nil {
		t.Fatal(err)
	}
	if c.State() != Patterns {
		t.Fatalf("expected Patterns, got %v", c.State())
	}
	for i, s := range srcs {
		if !s.playing {
			t.Fatalf("expected track %d playing", i)
		}
	}
	if jobs[0].Points[curve.StartHandle] != (mgl64.Vec3{0, 2, 0}) {
		t.Fatal("expected build jobs to carry the dragged curve")
	}

	clock.advance(5)
	c.Tick(r, time.Second/60)
	if got := c.Progress(); got != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", got)
	}

	c.OnTrackEnded(3)
	if c.State() != Patterns {
		t.Fatal("expected only track 0 to end the pattern phase")
	}
	c.OnTrackEnded(0)
	if c.State() != Finish {
		t.Fatalf("expected Finish, got %v", c.State())
	}
	if err := c.Request(Overview); err != nil {
		t.Fatal(err)
	}
}

func TestBuildsEmittedWhenLoadsFinishFirst(t *testing.T) {
	c, srcs := newController(&stubClock{})
	loadAll(c, srcs)
	c.Request(BezierSetup)
	c.Request(Prepare)
	buildAll(t, c)
	if c.State() != Patterns {
		t.Fatalf("expected Patterns, got %v", c.State())
	}
	if err := c.CompleteBuild(0, nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected late build rejected, got %v", err)
	}
}

func TestTickOrder(t *testing.T) {
	c, _ := newController(&stubClock{})
	r := &recorder{}
	c.Tick(r, time.Second/60)
	c.Tick(r, time.Second/60)
	want := []string{"background", "scene", "background", "scene"}
	for i, call := range want {
		if r.calls[i] != call {
			t.Fatalf("call %d: expected %s, got %v", i, call, r.calls)
		}
	}
	if r.snapshots[0].Frame != 0 || r.snapshots[1].Frame != 1 {
		t.Fatalf("expected frame counter to advance after rendering, got %d %d",
			r.snapshots[0].Frame, r.snapshots[1].Frame)
	}
}

func TestAnalysisSwappedBeforeSceneRender(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	loadAll(c, srcs)
	c.Request(BezierSetup)
	c.Request(Prepare)
	buildAll(t, c)

	r := &recorder{}
	frame := c.Frame()
	c.Tick(r, time.Second/60)
	snap := r.snapshots[0]
	if snap.Buffer.Frame() != frame {
		t.Fatalf("expected buffer written for frame %d before render, got %d", frame, snap.Buffer.Frame())
	}
}

func TestFrameCounterStopsPastEnd(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	loadAll(c, srcs)
	c.Request(BezierSetup)
	c.Request(Prepare)
	buildAll(t, c)

	r := &recorder{}
	clock.advance(11)
	c.Tick(r, time.Second/60)
	frame := c.Frame()
	c.Tick(r, time.Second/60)
	if c.Frame() != frame {
		t.Fatalf("expected frame counter held past progress 1, got %d -> %d", frame, c.Frame())
	}
	if c.Progress() != 1 {
		t.Fatalf("expected progress clamped to 1, got %v", c.Progress())
	}
}

func TestPauseResumeKeepsProgressContinuous(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	loadAll(c, srcs)
	c.Request(BezierSetup)
	c.Request(Prepare)
	buildAll(t, c)
	r := &recorder{}

	clock.advance(2)
	c.Tick(r, time.Second/60)
	before := c.Progress()

	c.Pause()
	if srcs[0].playing {
		t.Fatal("expected tracks paused")
	}
	clock.advance(30)
	c.Resume()
	if !srcs[0].playing {
		t.Fatal("expected tracks resumed")
	}
	clock.advance(1.0 / 60)
	c.Tick(r, time.Second/60)
	after := c.Progress()
	if delta := after - before; delta < 0 || delta > 1.0/60/10+1e-9 {
		t.Fatalf("expected continuous progress, jumped from %v to %v", before, after)
	}
}

func TestCameraFollowsPlayhead(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	loadAll(c, srcs)
	c.Request(BezierSetup)
	c.Request(Prepare)
	buildAll(t, c)

	r := &recorder{}
	clock.advance(4)
	c.Tick(r, time.Second/60)
	c.Tick(r, time.Second/60)
	want := c.Curve().Sample(0.4 - LookBehind)
	if !c.Camera().Target.ApproxEqual(want) {
		t.Fatalf("expected target %v, got %v", want, c.Camera().Target)
	}
}

func TestOverviewTween(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	loadAll(c, srcs)
	c.Request(BezierSetup)
	c.Request(Prepare)
	buildAll(t, c)
	c.OnTrackEnded(0)
	if err := c.Request(Overview); err != nil {
		t.Fatal(err)
	}
	r := &recorder{}
	start := c.Camera().Eye

	if err := c.Orbit(0.1, 0); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected orbit blocked during tween, got %v", err)
	}
	c.Tick(r, time.Second)
	if c.Camera().Eye != start {
		t.Fatal("expected camera held during the delay")
	}
	c.Tick(r, 4*time.Second)
	if !c.Camera().Eye.ApproxEqual(OverviewEye) {
		t.Fatalf("expected eye at %v, got %v", OverviewEye, c.Camera().Eye)
	}
	center := c.Curve().ControlPoints().Center()
	lo, hi := c.Curve().ControlPoints().Bounds()
	box := lo.Add(hi).Mul(0.5)
	if !c.Camera().Target.ApproxEqual(box) {
		t.Fatalf("expected target at bounding box center %v (centroid %v), got %v", box, center, c.Camera().Target)
	}
	if err := c.Orbit(0.1, 0); err != nil {
		t.Fatalf("expected orbit after the tween, got %v", err)
	}
}

func TestMuteCommands(t *testing.T) {
	c, srcs := newController(&stubClock{})
	loadAll(c, srcs)
	c.ToggleMute(1)
	if !c.Tracks()[1].Muted || srcs[1].volume != 0 {
		t.Fatal("expected track 1 muted")
	}
	c.SetVolume(1, 0.6)
	if info := c.Tracks()[1]; info.Muted || info.Volume != 0.6 {
		t.Fatalf("expected volume 0.6, got %+v", info)
	}
}

func TestEaseInOutQuad(t *testing.T) {
	cases := map[float64]float64{0: 0, 0.25: 0.125, 0.5: 0.5, 0.75: 0.875, 1: 1}
	for k, want := range cases {
		if got := EaseInOutQuad(k); math.Abs(got-want) > 1e-12 {
			t.Fatalf("ease(%v) = %v, want %v", k, got, want)
		}
	}
}

func TestProjectUnprojectRoundTrip(t *testing.T) {
	c, _ := newController(&stubClock{})
	c.Resize(80, 40)
	c.Camera().Snap()
	s := c.Snapshot()
	p := mgl64.Vec3{0.3, 0.4, 0.1}
	ndc, ok := s.Project(p)
	if !ok {
		t.Fatal("expected point in front of camera")
	}
	back, ok := s.Unproject(ndc.X(), ndc.Y(), p)
	if !ok || !back.ApproxEqualThreshold(p, 1e-6) {
		t.Fatalf("expected %v, got %v", p, back)
	}
}

func startPatterns(t *testing.T, c *Controller, srcs []*stubSource) {
	t.Helper()
	loadAll(c, srcs)
	if err := c.Request(BezierSetup); err != nil {
		t.Fatal(err)
	}
	if err := c.Request(Prepare); err != nil {
		t.Fatal(err)
	}
	buildAll(t, c)
	if c.State() != Patterns {
		t.Fatalf("expected Patterns, got %v", c.State())
	}
}

func cellOf(c *Controller, i int) float32 {
	tr := c.tracks[i]
	return c.Buffer().At(c.Buffer().Row(tr.VerticalOffset), c.Buffer().Column(), tr.Channel)
}

func TestAnalysisWritesGatedEnergy(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	startPatterns(t, c, srcs)

	c.tracks[1].Threshold = 0.999
	srcs[0].tone = 1
	srcs[1].tone = 1

	r := &recorder{}
	clock.advance(0.02)
	c.Tick(r, time.Second/60)

	avg := c.tracks[0].AverageEnergy()
	want := float32(math.Log(avg) / analysis.MaxLog)
	if want <= 0 {
		t.Fatalf("expected audible energy from the tone, avg %v", avg)
	}
	if got := cellOf(c, 0); got != want {
		t.Fatalf("track 0: expected %v, got %v", want, got)
	}

	gated := c.tracks[1].AverageEnergy()
	if math.Log(gated)/analysis.MaxLog <= 0 {
		t.Fatalf("expected track 1 to carry energy below its threshold, avg %v", gated)
	}
	if got := cellOf(c, 1); got != 0 {
		t.Fatalf("track 1: expected gated 0, got %v", got)
	}
	if got := c.Tracks()[1].Energy; got != 0 {
		t.Fatalf("track 1: expected energy 0, got %v", got)
	}
}

func TestStoppedTrackWritesNothing(t *testing.T) {
	clock := &stubClock{}
	c, srcs := newController(clock)
	startPatterns(t, c, srcs)

	// track 3 has ended but still hands out a loud window
	srcs[3].tone = 1
	srcs[3].playing = false

	r := &recorder{}
	for range 30 {
		clock.advance(0.02)
		c.Tick(r, time.Second/60)
		if got := cellOf(c, 3); got != 0 {
			t.Fatalf("frame %d: stopped track wrote %v", c.Buffer().Frame(), got)
		}
	}
	if avg := c.tracks[3].AverageEnergy(); avg != 0 {
		t.Fatalf("expected stopped track left unanalysed, avg %v", avg)
	}
	if got := c.Tracks()[3].Energy; got != 0 {
		t.Fatalf("expected zero energy for stopped track, got %v", got)
	}
	if n := c.tracks[3].Batch().Revealed(); n != 0 {
		t.Fatalf("expected no instances revealed for stopped track, got %d", n)
	}
}

func TestCompleteBuildRejectsNilBatch(t *testing.T) {
	c, srcs := newController(&stubClock{})
	loadAll(c, srcs)
	if err := c.Request(BezierSetup); err != nil {
		t.Fatal(err)
	}
	if err := c.Request(Prepare); err != nil {
		t.Fatal(err)
	}
	jobs := c.PendingBuilds()
	if err := c.CompleteBuild(2, nil); err == nil {
		t.Fatal("expected nil batch rejected")
	}
	if c.PendingBuildCount() != len(jobs) {
		t.Fatalf("expected %d builds outstanding, got %d", len(jobs), c.PendingBuildCount())
	}
	for _, j := range jobs {
		b, err := j.Run()
		if err != nil {
			t.Fatal(err)
		}
		if err := c.CompleteBuild(j.Index, b); err != nil {
			t.Fatalf("CompleteBuild %d: %v", j.Index, err)
		}
	}
	if c.State() != Patterns {
		t.Fatalf("expected Patterns after every real batch, got %v", c.State())
	}
}
