// Package scene drives the playback state machine: it gates playback on
// stem loading, schedules geometry builds, keeps the camera on the play head
// and runs the fixed per-frame update order.
package scene

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/olivier-w/patterns/internal/analysis"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/loader"
	"github.com/olivier-w/patterns/internal/track"
)

const (
	// LookBehind offsets the camera target behind the play head.
	LookBehind = 0.02

	OverviewDelay    = 1500 * time.Millisecond
	OverviewDuration = 3000 * time.Millisecond
)

// Renderer draws one frame in two passes.
type Renderer interface {
	RenderBackground()
	RenderScene(s *Snapshot)
}

// Clock is the audio clock progress is derived from.
type Clock interface {
	Now() float64
	Suspend()
	Resume()
}

// BuildJob asks for one track's geometry batch.
type BuildJob struct {
	Index    int
	Track    *track.Track
	Points   curve.Points
	Duration time.Duration
}

// Run builds the batch. It is safe to call off the controller goroutine.
func (j BuildJob) Run() (*track.GeometryBatch, error) {
	return j.Track.BuildInstanceGeometry(j.Points, j.Duration)
}

// TrackInfo is the per-track view exposed to the UI.
type TrackInfo struct {
	Index     int
	Name      string
	Color     colorful.Color
	Shape     track.Shape
	Volume    float64
	Muted     bool
	Load      loader.TrackState
	Energy    float64
	Row       int
	Channel   int
	Revealed  int
	Instances int
}

// Options configures a Controller.
type Options struct {
	Curve  *curve.Model
	Tracks []*track.Track
	Buffer *analysis.Buffer
	Clock  Clock
	FPS    int
}

// Controller is the application context: it owns the curve, the tracks, the
// analysis buffer and the camera, and is driven from a single goroutine.
type Controller struct {
	state   State
	curve   *curve.Model
	tracks  []*track.Track
	barrier *loader.Barrier
	buffer  *analysis.Buffer
	clock   Clock
	camera  *Camera

	energy []float64

	jobs          []BuildJob
	buildsEmitted bool
	remaining     int

	started  bool
	ended    bool
	paused   bool
	start    float64
	progress float64
	frame    int

	overviewTarget *Tween
	overviewEye    *Tween

	width, height int
}

// New creates a controller in Init.
func New(opts Options) *Controller {
	if opts.Curve == nil {
		opts.Curve = curve.NewModel(curve.DefaultPoints())
	}
	if opts.Buffer == nil {
		opts.Buffer = analysis.New(analysis.DefaultSize, analysis.DefaultSize)
	}
	opts.Curve.SetEditable(false)
	return &Controller{
		state:   Init,
		curve:   opts.Curve,
		tracks:  opts.Tracks,
		barrier: loader.NewBarrier(len(opts.Tracks)),
		buffer:  opts.Buffer,
		clock:   opts.Clock,
		camera:  NewCamera(opts.FPS),
		energy:  make([]float64, len(opts.Tracks)),
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Frame returns the frame counter.
func (c *Controller) Frame() int { return c.frame }

// Progress returns the play progress clamped to [0,1].
func (c *Controller) Progress() float64 {
	return math.Max(0, math.Min(c.progress, 1))
}

// Paused reports whether playback is paused.
func (c *Controller) Paused() bool { return c.paused }

// Curve returns the curve model.
func (c *Controller) Curve() *curve.Model { return c.curve }

// Camera returns the camera.
func (c *Controller) Camera() *Camera { return c.camera }

// Buffer returns the analysis buffer.
func (c *Controller) Buffer() *analysis.Buffer { return c.buffer }

// Request performs a user-triggered transition.
func (c *Controller) Request(to State) error {
	if !CanRequest(c.state, to) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, c.state, to)
	}
	if c.state == Init && len(c.barrier.Failed()) > 0 {
		return fmt.Errorf("%w: tracks %v", ErrLoadFailed, c.barrier.Failed())
	}
	c.enter(to)
	return nil
}

func (c *Controller) enter(to State) {
	log.Printf("state %v -> %v", c.state, to)
	c.state = to
	switch to {
	case BezierSetup:
		c.curve.SetEditable(true)
	case Prepare:
		c.curve.SetEditable(false)
		if c.barrier.Complete() {
			c.emitBuilds()
		}
	case Overview:
		c.startOverview()
	}
}

// OnTrackLoading marks track i as loading, clearing an earlier failure.
func (c *Controller) OnTrackLoading(i int) {
	c.barrier.Start(i)
}

// OnTrackLoaded binds a decoded stem to track i.
func (c *Controller) OnTrackLoaded(i int, src track.Source) {
	if i < 0 || i >= len(c.tracks) {
		return
	}
	c.tracks[i].Load(src)
	if c.barrier.Done(i) {
		log.Printf("all %d stems loaded", len(c.tracks))
		if c.state == Prepare {
			c.emitBuilds()
		}
	}
}

// OnTrackFailed records a load failure for track i.
func (c *Controller) OnTrackFailed(i int, err error) {
	log.Printf("track %d failed to load: %v", i, err)
	c.barrier.Fail(i, err)
}

// LoadRatio returns the fraction of loaded stems.
func (c *Controller) LoadRatio() float64 { return c.barrier.Ratio() }

// Loaded reports whether every stem is loaded.
func (c *Controller) Loaded() bool { return c.barrier.Complete() }

// LoadErrors returns the load error per failed track.
func (c *Controller) LoadErrors() map[int]error { return c.barrier.Errors() }

func (c *Controller) emitBuilds() {
	if c.buildsEmitted {
		return
	}
	c.buildsEmitted = true
	points := c.curve.ControlPoints()
	c.remaining = len(c.tracks)
	for i, tr := range c.tracks {
		c.jobs = append(c.jobs, BuildJob{
			Index:    i,
			Track:    tr,
			Points:   points,
			Duration: tr.Duration(),
		})
	}
	if c.remaining == 0 {
		c.startPlayback()
	}
}

// PendingBuilds hands out the build jobs emitted since the last call.
func (c *Controller) PendingBuilds() []BuildJob {
	jobs := c.jobs
	c.jobs = nil
	return jobs
}

// CompleteBuild attaches track i's batch. The last completion starts
// playback and moves the scene to Patterns.
func (c *Controller) CompleteBuild(i int, batch *track.GeometryBatch) error {
	if c.state != Prepare || c.remaining == 0 {
		return fmt.Errorf("%w: build completed in %v", ErrNotReady, c.state)
	}
	if i < 0 || i >= len(c.tracks) {
		return fmt.Errorf("track %d out of range", i)
	}
	if batch == nil {
		return fmt.Errorf("track %d: nil geometry batch", i)
	}
	if c.tracks[i].Batch() != nil {
		return nil
	}
	c.tracks[i].Attach(batch)
	c.remaining--
	log.Printf("track %d geometry built: %d instances", i, batch.Len())
	if c.remaining == 0 {
		c.startPlayback()
	}
	return nil
}

// PendingBuildCount returns how many builds are outstanding.
func (c *Controller) PendingBuildCount() int { return c.remaining }

func (c *Controller) startPlayback() {
	if !c.paused {
		for _, tr := range c.tracks {
			tr.Play()
		}
	}
	c.started = true
	c.start = c.now()
	log.Printf("playback started at %.3fs", c.start)
	c.enter(Patterns)
}

// OnTrackEnded handles a stem reaching its end. Only the first track ends
// the pattern phase.
func (c *Controller) OnTrackEnded(i int) {
	if i != 0 || c.state != Patterns {
		return
	}
	c.ended = true
	log.Printf("track %d ended", i)
	c.enter(Finish)
}

// Duration returns the duration progress is measured against.
func (c *Controller) Duration() time.Duration {
	if len(c.tracks) == 0 {
		return 0
	}
	return c.tracks[0].Duration()
}

func (c *Controller) now() float64 {
	if c.clock == nil {
		return 0
	}
	return c.clock.Now()
}

// Pause halts every track and suspends the audio clock.
func (c *Controller) Pause() {
	if c.paused {
		return
	}
	c.paused = true
	if c.clock != nil {
		c.clock.Suspend()
	}
	for _, tr := range c.tracks {
		tr.Pause()
	}
}

// Resume restarts the tracks and the clock. Progress continues from where
// it was paused.
func (c *Controller) Resume() {
	if !c.paused {
		return
	}
	c.paused = false
	if c.clock != nil {
		c.clock.Resume()
	}
	if c.started && !c.ended {
		for _, tr := range c.tracks {
			tr.Play()
		}
	}
}

// Tick runs one frame in a fixed order.
func (c *Controller) Tick(r Renderer, dt time.Duration) {
	// 1. animation timers
	c.advanceAnimations(dt)

	// 2. background
	r.RenderBackground()

	// 3. camera follow
	if c.state == Prepare || c.state == Patterns {
		c.camera.Target = c.curve.Sample(c.progress - LookBehind)
	}

	// 4. analysis buffer
	if c.state == Patterns && !c.paused {
		c.writeAnalysis()
	}

	// 5. scene
	r.RenderScene(c.Snapshot())

	// 6. progress
	c.updateProgress()

	// 7. frame counter
	if c.progress <= 1 && !c.paused {
		c.frame++
	}
}

func (c *Controller) advanceAnimations(dt time.Duration) {
	if c.overviewTarget != nil && !c.overviewTarget.Done() {
		c.camera.Target = c.overviewTarget.Advance(dt)
		c.camera.Eye = c.overviewEye.Advance(dt)
	}
	c.camera.Step()
}

func (c *Controller) writeAnalysis() {
	if c.buffer.Begin(c.frame) {
		log.Printf("analysis buffer wrapped at frame %d", c.frame)
	}
	for i, tr := range c.tracks {
		// An ended or stopped stem keeps its last window; never sample it.
		if !tr.Playing() {
			c.energy[i] = 0
			continue
		}
		tr.Analyse()
		e := analysis.Energy(tr.AverageEnergy(), tr.Threshold)
		c.energy[i] = e
		c.buffer.Write(analysis.Slot{
			VerticalOffset: tr.VerticalOffset,
			Channel:        tr.Channel,
			Key:            tr.Index,
		}, float32(e))
		tr.Batch().Reveal(c.progress, e)
	}
	c.buffer.Commit()
}

func (c *Controller) updateProgress() {
	if !c.started {
		return
	}
	d := c.Duration().Seconds()
	if d <= 0 {
		return
	}
	c.progress = (c.now() - c.start) / d
}

func (c *Controller) startOverview() {
	lo, hi := c.curve.ControlPoints().Bounds()
	center := lo.Add(hi).Mul(0.5)
	c.overviewTarget = &Tween{
		From:     c.camera.Target,
		To:       center,
		Delay:    OverviewDelay,
		Duration: OverviewDuration,
		Ease:     EaseInOutQuad,
	}
	c.overviewEye = &Tween{
		From:     c.camera.Eye,
		To:       OverviewEye,
		Delay:    OverviewDelay,
		Duration: OverviewDuration,
		Ease:     EaseInOutQuad,
	}
}

// OverviewSettled reports whether the overview tween has finished.
func (c *Controller) OverviewSettled() bool {
	return c.state == Overview && c.overviewTarget != nil && c.overviewTarget.Done()
}

// Orbit rotates the camera around its target. Only allowed once the
// overview has settled.
func (c *Controller) Orbit(dAzimuth, dElevation float64) error {
	if !c.OverviewSettled() {
		return fmt.Errorf("%w: orbit in %v", ErrNotReady, c.state)
	}
	c.camera.Orbit(dAzimuth, dElevation)
	return nil
}

// Drag moves a handle while the curve is editable.
func (c *Controller) Drag(id curve.PointID, pos mgl64.Vec3) error {
	return c.curve.Drag(id, pos)
}

// Resize updates the viewport aspect ratio.
func (c *Controller) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.width, c.height = width, height
	c.camera.Aspect = float64(width) / float64(height)
}

// SetVolume sets track i's volume.
func (c *Controller) SetVolume(i int, v float64) {
	if i >= 0 && i < len(c.tracks) {
		c.tracks[i].SetVolume(v)
	}
}

// ToggleMute toggles track i between silent and audible.
func (c *Controller) ToggleMute(i int) {
	if i >= 0 && i < len(c.tracks) {
		c.tracks[i].ToggleMute()
	}
}

// Tracks returns the per-track view.
func (c *Controller) Tracks() []TrackInfo {
	out := make([]TrackInfo, len(c.tracks))
	for i, tr := range c.tracks {
		b := tr.Batch()
		out[i] = TrackInfo{
			Index:     tr.Index,
			Name:      tr.Name,
			Color:     tr.Color,
			Shape:     tr.Shape,
			Volume:    tr.Volume(),
			Muted:     tr.Muted(),
			Load:      c.barrier.State(i),
			Energy:    c.energy[i],
			Row:       c.buffer.Row(tr.VerticalOffset),
			Channel:   tr.Channel,
			Revealed:  b.Revealed(),
			Instances: b.Len(),
		}
	}
	return out
}
