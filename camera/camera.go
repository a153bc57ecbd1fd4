// Package camera provides a 3D orbit camera for viewing point clouds.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/pourover/config"
)

// Pitch limits keep the eye off the poles where the up vector degenerates.
const (
	MinPitch = -1.4
	MaxPitch = 1.4
)

// Camera orbits a target point at a fixed distance.
// Yaw and pitch are in radians.
type Camera struct {
	// Orbit target in world coordinates
	Target mgl32.Vec3

	// Spherical position of the eye around the target
	Yaw, Pitch float32
	Distance   float32

	// Projection
	FovY      float32 // radians
	Near, Far float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Idle rotation
	AutoRotate  bool
	RotateSpeed float32 // radians per second

	// Zoom constraints
	MinDistance, MaxDistance float32

	home struct {
		yaw, pitch, distance float32
	}
}

// New creates a camera from config, looking at the brewer.
func New(viewportW, viewportH float32, cfg config.CameraConfig) *Camera {
	c := &Camera{
		Target:      mgl32.Vec3{0, float32(cfg.TargetY), 0},
		Yaw:         mgl32.DegToRad(float32(cfg.Yaw)),
		Pitch:       clamp(mgl32.DegToRad(float32(cfg.Pitch)), MinPitch, MaxPitch),
		Distance:    float32(cfg.Distance),
		FovY:        mgl32.DegToRad(float32(cfg.FovY)),
		Near:        float32(cfg.Near),
		Far:         float32(cfg.Far),
		AutoRotate:  cfg.AutoRotate,
		RotateSpeed: float32(cfg.RotateSpeed),
		MinDistance: float32(cfg.Distance) * 0.3,
		MaxDistance: float32(cfg.Distance) * 3,
	}
	c.home.yaw, c.home.pitch, c.home.distance = c.Yaw, c.Pitch, c.Distance
	c.Resize(viewportW, viewportH)
	return c
}

// Resize updates viewport dimensions. Degenerate sizes are raised to one pixel.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW < 1 {
		viewportW = 1
	}
	if viewportH < 1 {
		viewportH = 1
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Aspect returns the viewport aspect ratio.
func (c *Camera) Aspect() float32 {
	return c.ViewportW / c.ViewportH
}

// Update advances auto-rotation by dt seconds.
func (c *Camera) Update(dt float32) {
	if !c.AutoRotate {
		return
	}
	c.Yaw = mod(c.Yaw+c.RotateSpeed*dt, 2*math.Pi)
}

// Orbit rotates the eye around the target by the given angles.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw = mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, MinPitch, MaxPitch)
}

// SetDistance sets the eye distance, clamped to min/max.
func (c *Camera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the eye distance by factor (factor > 1 moves closer).
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Reset returns the camera to its configured orbit.
func (c *Camera) Reset() {
	c.Yaw, c.Pitch, c.Distance = c.home.yaw, c.home.pitch, c.home.distance
}

// Eye returns the eye position in world coordinates.
func (c *Camera) Eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	offset := mgl32.Vec3{
		c.Distance * cp * float32(math.Sin(float64(c.Yaw))),
		c.Distance * float32(math.Sin(float64(c.Pitch))),
		c.Distance * cp * float32(math.Cos(float64(c.Yaw))),
	}
	return c.Target.Add(offset)
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect(), c.Near, c.Far)
}

// WorldToScreen projects a world point to screen pixels.
// ok is false when the point is behind the eye or outside the clip volume.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (sx, sy, depth float32, ok bool) {
	clip := c.Projection().Mul4(c.View()).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	if absf(ndc.X()) > 1 || absf(ndc.Y()) > 1 || ndc.Z() < -1 || ndc.Z() > 1 {
		return 0, 0, 0, false
	}
	sx = (ndc.X() + 1) / 2 * c.ViewportW
	sy = (1 - ndc.Y()) / 2 * c.ViewportH
	return sx, sy, clip.W(), true
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
