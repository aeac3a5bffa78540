package track

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/olivier-w/patterns/internal/analyser"
	"github.com/olivier-w/patterns/internal/curve"
)

// Channels is the number of color channels in the analysis grid.
const Channels = 3

// Source is a playable, analysable stem.
type Source interface {
	Play()
	Pause()
	Playing() bool
	SetVolume(v float64)
	Volume() float64
	Duration() time.Duration
	Samples(dst []float32) int
	Done() <-chan struct{}
}

// DefaultVolume is the initial volume when Options.Volume is unset.
const DefaultVolume = 1.0

// Options configures a track.
type Options struct {
	Name      string
	Threshold float64
	Density   int
	Bins      int
	Volume    *float64 // initial volume in [0,1]; nil means DefaultVolume
}

// Node is the track's handle into the rendered scene: whether it is drawn,
// its angular offset around the curve and the geometry it draws.
type Node struct {
	Visible bool
	Angle   float64
	Batch   *GeometryBatch
}

// Track is one musical stem with its analyser, color, shape family and
// geometry batch.
type Track struct {
	Index          int
	Count          int
	Name           string
	Color          colorful.Color
	Shape          Shape
	Channel        int
	VerticalOffset float64
	Threshold      float64

	density int

	mu       sync.Mutex
	volume   float64
	restore  float64
	source   Source
	analyser *analyser.Analyser
	window   []float32
	node     *Node
}

// New creates an unloaded track. Index picks the color, the shape family,
// the grid channel and the angular offset.
func New(index, count int, opts Options) *Track {
	if count <= 0 {
		count = 1
	}
	if opts.Density <= 0 {
		opts.Density = DefaultDensity
	}
	volume := DefaultVolume
	if opts.Volume != nil {
		volume = math.Max(0, math.Min(*opts.Volume, 1))
	}
	restore := volume
	if restore < 0.5 {
		restore = DefaultVolume
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("track %d", index+1)
	}
	a := analyser.New(opts.Bins)
	return &Track{
		Index:          index,
		Count:          count,
		Name:           name,
		Color:          ColorForIndex(index),
		Shape:          ShapeForIndex(index),
		Channel:        index % Channels,
		VerticalOffset: float64(index) / float64(count),
		Threshold:      opts.Threshold,
		density:        opts.Density,
		volume:         volume,
		restore:        restore,
		analyser:       a,
		window:         make([]float32, a.FFTSize()),
		node:           &Node{Angle: float64(index) * 2 * math.Pi / float64(count)},
	}
}

// Load binds a decoded stem. Playback does not start.
func (t *Track) Load(src Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = src
	src.SetVolume(t.volume)
}

// Loaded reports whether a stem is bound.
func (t *Track) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.source != nil
}

// Duration returns the stem duration, or 0 before Load.
func (t *Track) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.source == nil {
		return 0
	}
	return t.source.Duration()
}

// Play starts or resumes the stem.
func (t *Track) Play() {
	if src := t.src(); src != nil {
		src.Play()
	}
}

// Pause halts the stem without rewinding.
func (t *Track) Pause() {
	if src := t.src(); src != nil {
		src.Pause()
	}
}

// Playing reports whether the stem is audible right now.
func (t *Track) Playing() bool {
	src := t.src()
	return src != nil && src.Playing()
}

// Done returns the stem's end channel, or nil before Load.
func (t *Track) Done() <-chan struct{} {
	if src := t.src(); src != nil {
		return src.Done()
	}
	return nil
}

func (t *Track) src() Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.source
}

// SetVolume sets the playback volume, clamped to [0,1].
func (t *Track) SetVolume(v float64) {
	v = math.Max(0, math.Min(v, 1))
	t.mu.Lock()
	t.volume = v
	if v >= 0.5 {
		t.restore = v
	}
	src := t.source
	t.mu.Unlock()
	if src != nil {
		src.SetVolume(v)
	}
}

// Volume returns the playback volume.
func (t *Track) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Muted reports whether the volume is below one half.
func (t *Track) Muted() bool {
	return t.Volume() < 0.5
}

// ToggleMute switches between silence and the last audible volume.
func (t *Track) ToggleMute() {
	t.mu.Lock()
	next := 0.0
	if t.volume < 0.5 {
		next = t.restore
	}
	t.mu.Unlock()
	t.SetVolume(next)
}

// Analyse feeds the current play head window into the analyser.
func (t *Track) Analyse() {
	src := t.src()
	if src == nil {
		return
	}
	src.Samples(t.window)
	t.analyser.Process(t.window)
}

// InstantEnergy returns one bin of the current spectrum.
func (t *Track) InstantEnergy(bin int) float64 {
	return t.analyser.Frequency(bin)
}

// AverageEnergy returns the mean of the current spectrum.
func (t *Track) AverageEnergy() float64 {
	return t.analyser.AverageFrequency()
}

// Spectrum returns the current byte spectrum.
func (t *Track) Spectrum() []uint8 {
	return t.analyser.FrequencyData()
}

// BuildInstanceGeometry places ceil(duration)*density instances of the
// track's shape along the curve. It reads only fields fixed at New, so it
// may run off the render goroutine.
func (t *Track) BuildInstanceGeometry(points curve.Points, duration time.Duration) (*GeometryBatch, error) {
	if duration <= 0 {
		return nil, ErrDurationUnknown
	}
	count := InstanceCount(duration, t.density)
	rng := rand.New(rand.NewSource(int64(t.Index) + 1))
	return &GeometryBatch{
		Track:     t.Index,
		Shape:     t.Shape,
		Instances: buildBatch(points, count, t.node.Angle, rng),
	}, nil
}

// Attach installs a built batch into the track's scene node.
func (t *Track) Attach(b *GeometryBatch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.node.Batch = b
	t.node.Visible = b != nil
}

// Node returns the track's scene node.
func (t *Track) Node() *Node {
	return t.node
}

// Batch returns the attached geometry, or nil before the build.
func (t *Track) Batch() *GeometryBatch {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.node.Batch
}
