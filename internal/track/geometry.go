package track

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/olivier-w/patterns/internal/curve"
)

// DefaultDensity is the number of instances per second of audio.
const DefaultDensity = 10

const (
	lift          = 0.05
	waveFrequency = 20 * math.Pi
	waveAmplitude = 0.2
	jitterAngle   = 0.15
	jitterSize    = 0.15
	jitterOffset  = 0.02
)

// ErrDurationUnknown is returned when a batch is requested before the
// stem duration is known.
var ErrDurationUnknown = errors.New("audio duration unknown")

// Instance is one placed shape. Index, Translation, Rotation and Scale are
// the attributes the shading stage consumes; Visible and Energy change as
// playback reveals the instance.
type Instance struct {
	Index       int
	T           float64
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       float64
	Size        float64

	Visible bool
	Energy  float64
}

// Transform maps a point of the shape outline into world space.
func (in Instance) Transform(v mgl64.Vec3) mgl64.Vec3 {
	return in.Translation.Add(in.Rotation.Rotate(v.Mul(in.Size * in.Scale)))
}

// GeometryBatch holds every instance of one track, built once.
type GeometryBatch struct {
	Track     int
	Shape     Shape
	Instances []Instance
	revealed  int
}

// Len returns the number of instances.
func (b *GeometryBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Instances)
}

// Revealed returns how many instances are visible.
func (b *GeometryBatch) Revealed() int {
	if b == nil {
		return 0
	}
	return b.revealed
}

// Reveal makes every instance whose parameter is at or before progress
// visible and stamps it with the energy of the current frame. It returns
// the number of newly revealed instances.
func (b *GeometryBatch) Reveal(progress, energy float64) int {
	if b == nil {
		return 0
	}
	n := 0
	for b.revealed < len(b.Instances) && b.Instances[b.revealed].T <= progress {
		in := &b.Instances[b.revealed]
		in.Visible = true
		in.Energy = energy
		b.revealed++
		n++
	}
	return n
}

// InstanceCount returns ceil(seconds) * density.
func InstanceCount(duration time.Duration, density int) int {
	return int(math.Ceil(duration.Seconds())) * density
}

// buildBatch places count instances along the curve. All randomness comes
// from rng so equal inputs give equal batches.
func buildBatch(points curve.Points, count int, angle float64, rng *rand.Rand) []Instance {
	instances := make([]Instance, count)
	prev := curve.DefaultFrame
	for i := range count {
		t := float64(i) / float64(count)
		pos := points.Sample(t)
		frame := points.FrameFrom(prev, t)
		prev = frame

		around := mgl64.QuatRotate(angle, frame.Tangent)
		wave := math.Sin(t*waveFrequency) * waveAmplitude
		spin := wave + (rng.Float64()*2-1)*jitterAngle
		local := mgl64.QuatRotate(spin, mgl64.Vec3{1, 0, 0})
		rotation := around.Mul(frame.Quat()).Mul(local).Normalize()

		offset := around.Rotate(frame.Normal).Mul((rng.Float64()*2 - 1) * jitterOffset)
		size := 1 + (rng.Float64()*2-1)*jitterSize

		instances[i] = Instance{
			Index:       i,
			T:           t,
			Translation: pos.Add(mgl64.Vec3{0, lift, 0}).Add(offset),
			Rotation:    rotation,
			Scale:       1,
			Size:        size,
		}
	}
	return instances
}
