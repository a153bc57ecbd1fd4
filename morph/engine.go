// Package morph animates a fixed-capacity pool of instances toward the most
// recently requested point cloud.
package morph

import (
	"errors"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/pourover/camera"
	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/field"
)

// ErrClosed is returned by Tick and Cleanup once the engine has been cleaned up.
var ErrClosed = errors.New("morph: engine closed")

// Surface receives the committed instance buffer. Implementations own the
// render resources behind it.
type Surface interface {
	// Rebuild reallocates the instance buffer for the given capacity.
	Rebuild(capacity int)
	// Commit uploads one matrix and colour per slot. The slices are owned by
	// the engine and only valid until the next tick.
	Commit(matrices []mgl32.Mat4, colors []uint32)
	// Release frees render resources.
	Release()
}

// Options configures an Engine.
type Options struct {
	Morph     config.MorphConfig
	Camera    config.CameraConfig
	ViewportW float32
	ViewportH float32

	// Rand seeds per-slot sparkle. Defaults to a fixed seed.
	Rand *rand.Rand

	// Surface may be nil for headless use.
	Surface Surface

	OnStateChange func(EngineState)
	OnCountChange func(int)
	OnRebuild     func(oldCapacity, newCapacity int)
}

// Engine owns the instance pool, the transition state machine and the
// per-tick interpolation. It is single-threaded: every method must be called
// from the host loop.
type Engine struct {
	cfg     config.MorphConfig
	policy  RetargetPolicy
	rng     *rand.Rand
	surface Surface
	cam     *camera.Camera

	onState   func(EngineState)
	onCount   func(int)
	onRebuild func(int, int)

	state       EngineState
	steps       int // progress = steps / settleTicks
	settleTicks int
	target      field.Cloud
	pool        pool

	frame  uint64
	closed bool
}

// New creates an engine in the Stable state with an empty pool.
func New(opts Options) (*Engine, error) {
	policy, err := ParsePolicy(opts.Morph.Policy)
	if err != nil {
		return nil, err
	}
	if opts.Morph.ProgressIncrement <= 0 || opts.Morph.ProgressIncrement > 1 {
		return nil, errors.New("morph: progress increment must be in (0, 1]")
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	growth := opts.Morph.GrowthFactor
	if growth < 1 {
		growth = 1
	}
	cfg := opts.Morph
	cfg.GrowthFactor = growth

	return &Engine{
		cfg:         cfg,
		policy:      policy,
		rng:         rng,
		surface:     opts.Surface,
		cam:         camera.New(opts.ViewportW, opts.ViewportH, opts.Camera),
		onState:     opts.OnStateChange,
		onCount:     opts.OnCountChange,
		onRebuild:   opts.OnRebuild,
		state:       Stable,
		settleTicks: int(math.Ceil(1 / cfg.ProgressIncrement)),
	}, nil
}

// TransitionTo sets a new target cloud and reports whether it was accepted.
//
// From Stable the progress resets and the engine enters Rebuilding. While
// Rebuilding, PolicyRetarget swaps the target without resetting progress and
// PolicyReject ignores the call entirely. immediate snaps every slot to the
// new target and leaves the engine Stable; it is always accepted.
func (e *Engine) TransitionTo(cloud field.Cloud, immediate bool) bool {
	if e.closed {
		return false
	}
	if !immediate && e.state == Rebuilding && e.policy == PolicyReject {
		return false
	}

	e.ensureCapacity(len(cloud))
	e.target = append(e.target[:0], cloud...)
	e.notifyCount(len(cloud))

	if immediate {
		e.snap()
		e.steps = e.settleTicks
		e.commit()
		if e.state != Stable {
			e.setState(Stable)
		}
		return true
	}

	if e.state == Stable {
		e.steps = 0
		e.setState(Rebuilding)
	}
	return true
}

// Tick advances the morph by one frame and commits the pool to the surface.
func (e *Engine) Tick() error {
	if e.closed {
		return ErrClosed
	}
	e.frame++
	t := float32(float64(e.frame) * e.cfg.DT)

	settled := false
	if e.state == Rebuilding {
		e.steps++
		if e.steps >= e.settleTicks {
			e.steps = e.settleTicks
			settled = true
		}
	}

	ratio := float32(e.cfg.StableLerp)
	if e.state == Rebuilding {
		ratio = float32(e.cfg.RebuildLerp)
	}
	adoptColor := e.Progress() >= e.cfg.CrossfadeThreshold

	live := len(e.target)
	for i := range e.pool.slots {
		s := &e.pool.slots[i]
		if i < live {
			e.stepLive(i, s, ratio, adoptColor, t)
		} else {
			e.stepOrphan(s, ratio)
			e.pool.matrices[i] = instanceMatrix(s.Position, s.Rotation, s.Scale)
		}
		e.pool.colors[i] = s.Color
	}

	e.cam.Update(float32(e.cfg.DT))
	e.commit()

	if settled {
		e.setState(Stable)
	}
	return nil
}

// stepLive moves a live slot toward its target and writes its matrix.
func (e *Engine) stepLive(i int, s *Slot, ratio float32, adoptColor bool, t float32) {
	p := e.target[i]
	goal := mgl32.Vec3{p.X, p.Y, p.Z}

	s.Position = s.Position.Add(goal.Sub(s.Position).Mul(ratio))
	s.Scale += (1 - s.Scale) * ratio
	if adoptColor {
		s.Color = p.Color
	}

	if e.cfg.Sparkle {
		sp := e.pool.spins[i]
		want := mgl32.QuatRotate(sp.phase+t*float32(e.cfg.SpinRate), sp.axis)
		s.Rotation = mgl32.QuatSlerp(s.Rotation, want, float32(e.cfg.SpinLerp)).Normalize()
	}

	// Breathing only touches the displayed position.
	shown := s.Position
	if e.cfg.BreathAmplitude != 0 {
		phase := p.X*3.1 + p.Z*1.7
		shown[1] += float32(e.cfg.BreathAmplitude) *
			float32(math.Sin(float64(t)*e.cfg.BreathFrequency+float64(phase)))
	}
	e.pool.matrices[i] = instanceMatrix(shown, s.Rotation, s.Scale)
}

// stepOrphan shrinks a slot with no target toward zero scale.
func (e *Engine) stepOrphan(s *Slot, ratio float32) {
	if s.Scale == 0 {
		return
	}
	s.Scale -= s.Scale * ratio
	if s.Scale < float32(e.cfg.OrphanEpsilon) {
		s.Scale = 0
		return
	}
	if e.cfg.OrphanFall > 0 {
		s.Position[1] -= float32(e.cfg.OrphanFall)
	}
}

// snap places every slot on its final state.
func (e *Engine) snap() {
	live := len(e.target)
	for i := range e.pool.slots {
		s := &e.pool.slots[i]
		if i < live {
			p := e.target[i]
			s.Position = mgl32.Vec3{p.X, p.Y, p.Z}
			s.Scale = 1
			s.Color = p.Color
		} else {
			s.Scale = 0
		}
		e.pool.matrices[i] = instanceMatrix(s.Position, s.Rotation, s.Scale)
		e.pool.colors[i] = s.Color
	}
}

// ensureCapacity grows the pool when n exceeds it.
func (e *Engine) ensureCapacity(n int) {
	old := e.pool.capacity()
	if n <= old {
		return
	}
	capacity := growCapacity(n, e.cfg.GrowthFactor, e.cfg.MinCapacity)
	e.pool.grow(capacity, e.rng)
	for i, s := range e.pool.slots {
		e.pool.matrices[i] = instanceMatrix(s.Position, s.Rotation, s.Scale)
		e.pool.colors[i] = s.Color
	}
	if e.surface != nil {
		e.surface.Rebuild(capacity)
	}
	if e.onRebuild != nil {
		e.onRebuild(old, capacity)
	}
}

func (e *Engine) commit() {
	if e.surface != nil {
		e.surface.Commit(e.pool.matrices, e.pool.colors)
	}
}

func (e *Engine) setState(s EngineState) {
	e.state = s
	if e.onState != nil {
		e.onState(s)
	}
}

func (e *Engine) notifyCount(n int) {
	if e.onCount != nil {
		e.onCount(n)
	}
}

// SetAutoRotate toggles idle camera rotation.
func (e *Engine) SetAutoRotate(enabled bool) {
	e.cam.AutoRotate = enabled
}

// HandleResize updates the camera viewport.
func (e *Engine) HandleResize(width, height float32) {
	e.cam.Resize(width, height)
}

// Cleanup releases the surface and the pool. The engine cannot be reused.
func (e *Engine) Cleanup() error {
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	if e.surface != nil {
		e.surface.Release()
		e.surface = nil
	}
	e.pool.release()
	e.target = nil
	return nil
}

// State returns the current engine state.
func (e *Engine) State() EngineState { return e.state }

// Policy returns the retarget policy.
func (e *Engine) Policy() RetargetPolicy { return e.policy }

// Progress returns morph progress in [0, 1].
func (e *Engine) Progress() float64 {
	if e.steps >= e.settleTicks {
		return 1
	}
	return float64(e.steps) / float64(e.settleTicks)
}

// SettleTicks returns the number of ticks a fresh transition takes to settle.
func (e *Engine) SettleTicks() int { return e.settleTicks }

// Capacity returns the pool capacity.
func (e *Engine) Capacity() int { return e.pool.capacity() }

// Live returns the target particle count.
func (e *Engine) Live() int { return len(e.target) }

// Frame returns the number of ticks run.
func (e *Engine) Frame() uint64 { return e.frame }

// Closed reports whether Cleanup has run.
func (e *Engine) Closed() bool { return e.closed }

// Slot returns a copy of slot i.
func (e *Engine) Slot(i int) (Slot, bool) {
	if i < 0 || i >= len(e.pool.slots) {
		return Slot{}, false
	}
	return e.pool.slots[i], true
}

// Target returns particle i of the current target.
func (e *Engine) Target(i int) (field.Particle, bool) {
	if i < 0 || i >= len(e.target) {
		return field.Particle{}, false
	}
	return e.target[i], true
}

// Matrices returns the committed instance matrices. Read-only.
func (e *Engine) Matrices() []mgl32.Mat4 { return e.pool.matrices }

// Colors returns the committed instance colours. Read-only.
func (e *Engine) Colors() []uint32 { return e.pool.colors }

// Camera returns the engine's orbit camera.
func (e *Engine) Camera() *camera.Camera { return e.cam }

// instanceMatrix composes translate * rotate * scale.
func instanceMatrix(pos mgl32.Vec3, rot mgl32.Quat, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(pos[0], pos[1], pos[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}
