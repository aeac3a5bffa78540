package scene

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// EaseInOutQuad is the quadratic ease-in-out curve on [0,1].
func EaseInOutQuad(k float64) float64 {
	switch {
	case k <= 0:
		return 0
	case k >= 1:
		return 1
	case k < 0.5:
		return 2 * k * k
	default:
		k = k*2 - 1
		return -0.5 * (k*(k-2) - 1)
	}
}

// Tween interpolates a vector after an initial delay.
type Tween struct {
	From, To mgl64.Vec3
	Delay    time.Duration
	Duration time.Duration
	Ease     func(float64) float64

	elapsed time.Duration
}

// Advance moves the tween forward by dt and returns the current value.
func (t *Tween) Advance(dt time.Duration) mgl64.Vec3 {
	t.elapsed += dt
	return t.Value()
}

// Value returns the interpolated vector at the current time.
func (t *Tween) Value() mgl64.Vec3 {
	k := t.fraction()
	if t.Ease != nil {
		k = t.Ease(k)
	}
	return t.From.Add(t.To.Sub(t.From).Mul(k))
}

// Started reports whether the delay has passed.
func (t *Tween) Started() bool { return t.elapsed > t.Delay }

// Done reports whether the tween reached its end value.
func (t *Tween) Done() bool { return t.elapsed >= t.Delay+t.Duration }

func (t *Tween) fraction() float64 {
	run := t.elapsed - t.Delay
	if run <= 0 {
		return 0
	}
	if t.Duration <= 0 || run >= t.Duration {
		return 1
	}
	return float64(run) / float64(t.Duration)
}
