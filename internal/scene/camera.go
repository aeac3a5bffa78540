package scene

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	fieldOfView = 60.0
	nearPlane   = 0.01
	farPlane    = 100.0

	springFrequency = 6.0
	springDamping   = 1.0
	maxElevation    = math.Pi/2 - 0.05
)

var (
	up = mgl64.Vec3{0, 1, 0}

	// InitialEye and InitialTarget frame the curve at startup.
	InitialEye    = mgl64.Vec3{0, 3, -2}
	InitialTarget = mgl64.Vec3{0, 0.5, 0}
	// OverviewEye is where the camera settles after the overview tween.
	OverviewEye = mgl64.Vec3{0, 2.5, -3.5}
)

// vecSpring damps a vector toward its goal, one harmonica spring per axis.
type vecSpring struct {
	spring harmonica.Spring
	pos    mgl64.Vec3
	vel    mgl64.Vec3
}

func newVecSpring(fps int, at mgl64.Vec3) vecSpring {
	return vecSpring{
		spring: harmonica.NewSpring(harmonica.FPS(fps), springFrequency, springDamping),
		pos:    at,
	}
}

func (s *vecSpring) step(goal mgl64.Vec3) mgl64.Vec3 {
	for i := range 3 {
		s.pos[i], s.vel[i] = s.spring.Update(s.pos[i], s.vel[i], goal[i])
	}
	return s.pos
}

func (s *vecSpring) snap(at mgl64.Vec3) {
	s.pos = at
	s.vel = mgl64.Vec3{}
}

// Camera is a perspective orbit camera. Eye and Target are the goals set by
// the controller; the smoothed values trail them through springs.
type Camera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Aspect float64

	eye    vecSpring
	target vecSpring
}

// NewCamera places the camera at its startup pose.
func NewCamera(fps int) *Camera {
	if fps <= 0 {
		fps = 60
	}
	return &Camera{
		Eye:    InitialEye,
		Target: InitialTarget,
		Aspect: 1,
		eye:    newVecSpring(fps, InitialEye),
		target: newVecSpring(fps, InitialTarget),
	}
}

// Step moves the smoothed pose one frame toward the goals.
func (c *Camera) Step() {
	c.eye.step(c.Eye)
	c.target.step(c.Target)
}

// Snap places the smoothed pose exactly on the goals.
func (c *Camera) Snap() {
	c.eye.snap(c.Eye)
	c.target.snap(c.Target)
}

// SmoothedEye returns the eye position used for rendering.
func (c *Camera) SmoothedEye() mgl64.Vec3 { return c.eye.pos }

// SmoothedTarget returns the look-at point used for rendering.
func (c *Camera) SmoothedTarget() mgl64.Vec3 { return c.target.pos }

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.eye.pos, c.target.pos, up)
}

// Projection returns the perspective matrix for the current aspect.
func (c *Camera) Projection() mgl64.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(fieldOfView), aspect, nearPlane, farPlane)
}

// Orbit rotates the eye goal around the target goal.
func (c *Camera) Orbit(dAzimuth, dElevation float64) {
	offset := c.Eye.Sub(c.Target)
	r := offset.Len()
	if r == 0 {
		return
	}
	azimuth := math.Atan2(offset.X(), offset.Z()) + dAzimuth
	elevation := math.Asin(mgl64.Clamp(offset.Y()/r, -1, 1)) + dElevation
	elevation = mgl64.Clamp(elevation, -maxElevation, maxElevation)

	cosE := math.Cos(elevation)
	c.Eye = c.Target.Add(mgl64.Vec3{
		r * cosE * math.Sin(azimuth),
		r * math.Sin(elevation),
		r * cosE * math.Cos(azimuth),
	})
}
