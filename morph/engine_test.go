package morph

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/field"
)

// recorder captures listener notifications in order.
type recorder struct {
	states []EngineState
	counts []int
}

// fakeSurface counts surface calls.
type fakeSurface struct {
	rebuilds   []int
	commits    int
	lastCommit int
	released   int
}

func (f *fakeSurface) Rebuild(capacity int) { f.rebuilds = append(f.rebuilds, capacity) }
func (f *fakeSurface) Commit(m []mgl32.Mat4, c []uint32) {
	f.commits++
	f.lastCommit = len(m)
}
func (f *fakeSurface) Release() { f.released++ }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*config.MorphConfig)) (*Engine, *recorder, *fakeSurface) {
	t.Helper()
	cfg := testConfig(t)
	m := cfg.Morph
	if mutate != nil {
		mutate(&m)
	}
	rec := &recorder{}
	surf := &fakeSurface{}
	e, err := New(Options{
		Morph:         m,
		Camera:        cfg.Camera,
		ViewportW:     800,
		ViewportH:     600,
		Rand:          rand.New(rand.NewSource(3)),
		Surface:       surf,
		OnStateChange: func(s EngineState) { rec.states = append(rec.states, s) },
		OnCountChange: func(n int) { rec.counts = append(rec.counts, n) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, rec, surf
}

// lineCloud builds n particles along x, shifted by dx, in one colour.
func lineCloud(n int, dx float32, color uint32) field.Cloud {
	c := make(field.Cloud, n)
	for i := range c {
		c[i] = field.Particle{X: float32(i)*0.01 + dx, Y: 0.5, Z: float32(i%7) * 0.02, Color: color}
	}
	return c
}

func tickN(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
}

func near(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestNewEngine(t *testing.T) {
	e, rec, _ := newTestEngine(t, nil)

	if e.State() != Stable {
		t.Errorf("expected STABLE, got %s", e.State())
	}
	if e.Capacity() != 0 || e.Live() != 0 {
		t.Errorf("expected empty pool, got capacity=%d live=%d", e.Capacity(), e.Live())
	}
	if len(rec.states) != 0 || len(rec.counts) != 0 {
		t.Error("construction should not notify listeners")
	}
	if e.SettleTicks() != 100 {
		t.Errorf("expected 100 settle ticks at increment 0.01, got %d", e.SettleTicks())
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	cfg := testConfig(t)

	m := cfg.Morph
	m.Policy = "sometimes"
	if _, err := New(Options{Morph: m, Camera: cfg.Camera}); err == nil {
		t.Error("expected error for unknown policy")
	}

	m = cfg.Morph
	m.ProgressIncrement = 0
	if _, err := New(Options{Morph: m, Camera: cfg.Camera}); err == nil {
		t.Error("expected error for zero progress increment")
	}
}

func TestConvergenceWithinSettleTicks(t *testing.T) {
	e, rec, _ := newTestEngine(t, nil)

	if !e.TransitionTo(lineCloud(50, 0, 0xff0000), false) {
		t.Fatal("transition from STABLE should be accepted")
	}
	if e.State() != Rebuilding {
		t.Fatalf("expected REBUILDING, got %s", e.State())
	}

	tickN(t, e, e.SettleTicks()-1)
	if e.State() != Rebuilding {
		t.Errorf("should still be REBUILDING one tick before settling, progress=%f", e.Progress())
	}

	tickN(t, e, 1)
	if e.State() != Stable {
		t.Errorf("expected STABLE after %d ticks, got %s", e.SettleTicks(), e.State())
	}
	if e.Progress() != 1 {
		t.Errorf("expected progress 1, got %f", e.Progress())
	}
	want := []EngineState{Rebuilding, Stable}
	if len(rec.states) != len(want) || rec.states[0] != want[0] || rec.states[1] != want[1] {
		t.Errorf("expected state notifications %v, got %v", want, rec.states)
	}
}

func TestProgressMonotonic(t *testing.T) {
	e, _, _ := newTestEngine(t, func(m *config.MorphConfig) { m.ProgressIncrement = 0.03 })

	e.TransitionTo(lineCloud(10, 0, 0xffffff), false)
	prev := e.Progress()
	for e.State() == Rebuilding {
		tickN(t, e, 1)
		p := e.Progress()
		if p < prev || p > 1 {
			t.Fatalf("progress went from %f to %f", prev, p)
		}
		prev = p
	}
	if e.Frame() != 34 {
		t.Errorf("expected 34 ticks at increment 0.03, got %d", e.Frame())
	}
}

func TestCapacityMonotonic(t *testing.T) {
	e, _, surf := newTestEngine(t, nil)

	sizes := []int{10, 2000, 50, 3000, 0, 2999, 4500}
	largest, prevCap := 0, 0
	for _, n := range sizes {
		e.TransitionTo(lineCloud(n, 0, 0x112233), true)
		if n > largest {
			largest = n
		}
		if e.Capacity() < largest {
			t.Errorf("after |cloud|=%d capacity %d is below largest %d", n, e.Capacity(), largest)
		}
		if e.Capacity() < prevCap {
			t.Errorf("capacity shrank from %d to %d", prevCap, e.Capacity())
		}
		prevCap = e.Capacity()
	}

	// 10 -> floor 1000, 2000 -> 3000, 4500 -> 6750
	want := []int{1000, 3000, 6750}
	if len(surf.rebuilds) != len(want) {
		t.Fatalf("expected rebuilds %v, got %v", want, surf.rebuilds)
	}
	for i := range want {
		if surf.rebuilds[i] != want[i] {
			t.Errorf("rebuild %d: expected %d, got %d", i, want[i], surf.rebuilds[i])
		}
	}
}

func TestGrowCapacity(t *testing.T) {
	tests := []struct {
		n      int
		growth float64
		floor  int
		want   int
	}{
		{10, 1.5, 1000, 1000},
		{2000, 1.5, 1000, 3000},
		{2001, 1.5, 0, 3002},
		{500, 1, 0, 500},
		{0, 2, 0, 0},
	}
	for _, tt := range tests {
		if got := growCapacity(tt.n, tt.growth, tt.floor); got != tt.want {
			t.Errorf("growCapacity(%d, %v, %d) = %d, want %d", tt.n, tt.growth, tt.floor, got, tt.want)
		}
	}
}

func TestOrphanShrink(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	e.TransitionTo(lineCloud(100, 0, 0xff0000), true)
	e.TransitionTo(lineCloud(10, 0, 0xff0000), false)
	tickN(t, e, 2*e.SettleTicks())

	eps := float32(testConfig(t).Morph.OrphanEpsilon)
	for i := 10; i < e.Capacity(); i++ {
		s, _ := e.Slot(i)
		if s.Scale > eps {
			t.Fatalf("orphan slot %d has scale %f", i, s.Scale)
		}
	}
	for i := 0; i < 10; i++ {
		s, _ := e.Slot(i)
		if !near(s.Scale, 1, 1e-3) {
			t.Errorf("live slot %d has scale %f", i, s.Scale)
		}
	}
}

func TestOrphanFall(t *testing.T) {
	e, _, _ := newTestEngine(t, func(m *config.MorphConfig) { m.OrphanFall = 0.01 })

	e.TransitionTo(lineCloud(20, 0, 0xff0000), true)
	e.TransitionTo(lineCloud(5, 0, 0xff0000), false)
	tickN(t, e, 5)

	s, _ := e.Slot(15)
	if s.Position.Y() >= 0.5 {
		t.Errorf("orphan should fall below its start height 0.5, got %f", s.Position.Y())
	}
	live, _ := e.Slot(2)
	if live.Position.Y() < 0.49 {
		t.Errorf("live slot should not fall, got y=%f", live.Position.Y())
	}
}

func TestIndexPairingDeterminism(t *testing.T) {
	a, _, _ := newTestEngine(t, nil)
	b, _, _ := newTestEngine(t, nil)

	clouds := []field.Cloud{
		lineCloud(300, 0, 0xff0000),
		lineCloud(1200, 0.3, 0x00ff00),
		lineCloud(40, -0.2, 0x0000ff),
	}
	for _, c := range clouds {
		a.TransitionTo(c, false)
		b.TransitionTo(c, false)
		for i := 0; i < 37; i++ {
			tickN(t, a, 1)
			tickN(t, b, 1)
		}
	}

	ma, mb := a.Matrices(), b.Matrices()
	if len(ma) != len(mb) {
		t.Fatalf("capacity differs: %d vs %d", len(ma), len(mb))
	}
	for i := range ma {
		if ma[i] != mb[i] {
			t.Fatalf("slot %d matrices differ", i)
		}
		if a.Colors()[i] != b.Colors()[i] {
			t.Fatalf("slot %d colours differ", i)
		}
	}
}

func TestSceneSwap(t *testing.T) {
	cfg := testConfig(t)
	gen := field.NewGenerator(cfg, 11)

	// Pick the smallest and largest scenes so N_B > N_A.
	var small, large field.Cloud
	for _, id := range field.Scenes() {
		c := gen.Scene(id)
		if small == nil || len(c) < len(small) {
			small = c
		}
		if large == nil || len(c) > len(large) {
			large = c
		}
	}
	if len(large) <= len(small) {
		t.Fatalf("scene catalog needs distinct sizes, got %d and %d", len(small), len(large))
	}

	e, rec, _ := newTestEngine(t, nil)
	e.TransitionTo(small, true)
	tickN(t, e, 5)
	rec.states, rec.counts = nil, nil

	e.TransitionTo(large, false)
	if len(rec.counts) != 1 || rec.counts[0] != len(large) {
		t.Errorf("expected count notification %d, got %v", len(large), rec.counts)
	}
	if len(rec.states) != 1 || rec.states[0] != Rebuilding {
		t.Errorf("expected REBUILDING notification, got %v", rec.states)
	}
	if e.Capacity() < len(large) {
		t.Errorf("capacity %d below target %d", e.Capacity(), len(large))
	}

	tickN(t, e, e.SettleTicks())
	if len(rec.states) != 2 || rec.states[1] != Stable {
		t.Fatalf("expected STABLE notification after settling, got %v", rec.states)
	}

	for i, p := range large {
		s, _ := e.Slot(i)
		if !near(s.Scale, 1, 0.01) {
			t.Fatalf("slot %d scale %f", i, s.Scale)
		}
		goal := mgl32.Vec3{p.X, p.Y, p.Z}
		if d := s.Position.Sub(goal).Len(); d > 0.01 {
			t.Fatalf("slot %d is %f from its target", i, d)
		}
		if s.Color != p.Color {
			t.Fatalf("slot %d colour %06x, want %06x", i, s.Color, p.Color)
		}
	}
}

func TestContinuousDragDoesNotThrash(t *testing.T) {
	e, rec, _ := newTestEngine(t, nil)
	e.TransitionTo(lineCloud(200, 0, 0xff0000), true)

	const drags = 150
	prevProgress := 0.0
	for i := 0; i < drags; i++ {
		before := len(rec.states)
		e.TransitionTo(lineCloud(200, float32(i)*0.01, 0xff0000), false)
		restarted := len(rec.states) > before

		p := e.Progress()
		if !restarted && p < prevProgress {
			t.Fatalf("drag %d: progress reset from %f to %f mid-flight", i, prevProgress, p)
		}
		tickN(t, e, 1)
		prevProgress = e.Progress()
	}

	// REBUILDING, STABLE at tick 100, REBUILDING on the next drag.
	want := []EngineState{Rebuilding, Stable, Rebuilding}
	if len(rec.states) != len(want) {
		t.Fatalf("expected %v, got %v", want, rec.states)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("notification %d: expected %s, got %s", i, want[i], rec.states[i])
		}
	}
	if len(rec.counts) != drags+1 {
		t.Errorf("every accepted transition should notify count, got %d", len(rec.counts))
	}

	// Positions flow toward the moving target without snapping onto it.
	s, _ := e.Slot(0)
	goal, _ := e.Target(0)
	if near(s.Position.X(), goal.X, 1e-4) {
		t.Error("slot snapped onto a moving target")
	}
	if s.Position.X() <= 0 {
		t.Error("slot did not follow the dragged target")
	}
}

func TestShrinkTransition(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	e.TransitionTo(lineCloud(100, 0, 0xff0000), true)
	b := lineCloud(40, 1, 0x0000ff)
	e.TransitionTo(b, false)
	tickN(t, e, 2*e.SettleTicks())

	if e.Live() != 40 {
		t.Errorf("expected 40 live, got %d", e.Live())
	}
	for i := 0; i < 40; i++ {
		s, _ := e.Slot(i)
		if s.Color != 0x0000ff {
			t.Errorf("slot %d colour %06x, want 0000ff", i, s.Color)
		}
		if d := s.Position.Sub(mgl32.Vec3{b[i].X, b[i].Y, b[i].Z}).Len(); d > 1e-3 {
			t.Errorf("slot %d is %f from its target", i, d)
		}
	}
	for i := 40; i < 100; i++ {
		if s, _ := e.Slot(i); s.Scale != 0 {
			t.Errorf("orphan %d has scale %f", i, s.Scale)
		}
	}
}

func TestRejectPolicy(t *testing.T) {
	e, rec, _ := newTestEngine(t, func(m *config.MorphConfig) { m.Policy = "reject" })
	if e.Policy() != PolicyReject {
		t.Fatalf("expected reject policy, got %s", e.Policy())
	}

	a := lineCloud(30, 0, 0xff0000)
	b := lineCloud(60, 0, 0x00ff00)
	e.TransitionTo(a, false)
	tickN(t, e, 10)

	if e.TransitionTo(b, false) {
		t.Error("transition mid-flight should be rejected")
	}
	if e.Live() != 30 {
		t.Errorf("rejected transition changed the target to %d", e.Live())
	}
	if len(rec.counts) != 1 || len(rec.states) != 1 {
		t.Errorf("rejected transition should not notify, got counts=%v states=%v", rec.counts, rec.states)
	}
	if e.Progress() != 0.1 {
		t.Errorf("rejected transition changed progress to %f", e.Progress())
	}

	tickN(t, e, e.SettleTicks()-10)
	if e.State() != Stable {
		t.Fatalf("expected STABLE, got %s", e.State())
	}
	if !e.TransitionTo(b, false) {
		t.Error("transition from STABLE should be accepted")
	}
	if e.Progress() != 0 {
		t.Errorf("fresh transition should reset progress, got %f", e.Progress())
	}
}

func TestRetargetKeepsProgress(t *testing.T) {
	e, rec, _ := newTestEngine(t, nil)

	e.TransitionTo(lineCloud(30, 0, 0xff0000), false)
	tickN(t, e, 30)
	if !e.TransitionTo(lineCloud(45, 0.5, 0x00ff00), false) {
		t.Fatal("retarget should be accepted")
	}
	if e.Progress() != 0.3 {
		t.Errorf("retarget should keep progress 0.3, got %f", e.Progress())
	}
	if e.Live() != 45 {
		t.Errorf("expected 45 live, got %d", e.Live())
	}
	if len(rec.states) != 1 {
		t.Errorf("retarget mid-flight should not notify state, got %v", rec.states)
	}
	if len(rec.counts) != 2 || rec.counts[1] != 45 {
		t.Errorf("expected count notifications [30 45], got %v", rec.counts)
	}
}

func TestImmediateTransition(t *testing.T) {
	e, rec, surf := newTestEngine(t, func(m *config.MorphConfig) { m.Policy = "reject" })

	a := lineCloud(25, 0.2, 0xabcdef)
	if !e.TransitionTo(a, true) {
		t.Fatal("immediate transition should be accepted")
	}
	if len(rec.states) != 0 {
		t.Errorf("immediate from STABLE should not notify state, got %v", rec.states)
	}
	if e.Progress() != 1 || e.State() != Stable {
		t.Errorf("expected settled STABLE, got %s at %f", e.State(), e.Progress())
	}
	for i, p := range a {
		s, _ := e.Slot(i)
		if s.Position != (mgl32.Vec3{p.X, p.Y, p.Z}) || s.Scale != 1 || s.Color != p.Color {
			t.Fatalf("slot %d not snapped: %+v", i, s)
		}
	}
	if surf.commits != 1 {
		t.Errorf("immediate transition should commit once, got %d", surf.commits)
	}

	// Immediate overrides an in-flight transition even under the reject policy.
	e.TransitionTo(lineCloud(10, 0, 0x111111), false)
	tickN(t, e, 3)
	if !e.TransitionTo(lineCloud(12, 0, 0x222222), true) {
		t.Fatal("immediate should be accepted while REBUILDING")
	}
	want := []EngineState{Rebuilding, Stable}
	if len(rec.states) != 2 || rec.states[0] != want[0] || rec.states[1] != want[1] {
		t.Errorf("expected %v, got %v", want, rec.states)
	}
}

func TestCrossfadeThreshold(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	e.TransitionTo(lineCloud(10, 0, 0xff0000), true)
	e.TransitionTo(lineCloud(10, 0.5, 0x0000ff), false)

	tickN(t, e, 49)
	if s, _ := e.Slot(3); s.Color != 0xff0000 {
		t.Errorf("colour should hold before the threshold, got %06x at %f", s.Color, e.Progress())
	}
	tickN(t, e, 1)
	if s, _ := e.Slot(3); s.Color != 0x0000ff {
		t.Errorf("colour should switch at the threshold, got %06x at %f", s.Color, e.Progress())
	}
	if e.Colors()[3] != 0x0000ff {
		t.Error("committed colour should follow the slot")
	}
}

func TestBreathingOnlyAffectsDisplay(t *testing.T) {
	e, _, _ := newTestEngine(t, func(m *config.MorphConfig) { m.BreathAmplitude = 0.3 })

	a := lineCloud(20, 0, 0xffffff)
	e.TransitionTo(a, false)
	tickN(t, e, e.SettleTicks()+50)

	if e.State() != Stable {
		t.Fatalf("breathing should not prevent settling, got %s", e.State())
	}
	moved := false
	for i, p := range a {
		s, _ := e.Slot(i)
		if !near(s.Position.Y(), p.Y, 1e-3) {
			t.Fatalf("slot %d interpolated y %f drifted from %f", i, s.Position.Y(), p.Y)
		}
		if !near(e.Matrices()[i].Col(3).Y(), p.Y, 1e-3) {
			moved = true
		}
	}
	if !moved {
		t.Error("breathing should offset displayed positions")
	}
}

func TestSurfaceCommits(t *testing.T) {
	e, _, surf := newTestEngine(t, nil)

	e.TransitionTo(lineCloud(10, 0, 0xffffff), false)
	tickN(t, e, 4)

	if surf.commits != 4 {
		t.Errorf("expected 4 commits, got %d", surf.commits)
	}
	if surf.lastCommit != e.Capacity() {
		t.Errorf("commit should cover the full capacity %d, got %d", e.Capacity(), surf.lastCommit)
	}
}

func TestCleanup(t *testing.T) {
	e, _, surf := newTestEngine(t, nil)
	e.TransitionTo(lineCloud(10, 0, 0xffffff), false)
	tickN(t, e, 2)

	if err := e.Cleanup(); err != nil {
		t.Fatalf("first Cleanup: %v", err)
	}
	if err := e.Cleanup(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Cleanup should return ErrClosed, got %v", err)
	}
	if err := e.Tick(); !errors.Is(err, ErrClosed) {
		t.Errorf("Tick after Cleanup should return ErrClosed, got %v", err)
	}
	if e.TransitionTo(lineCloud(5, 0, 0), false) {
		t.Error("TransitionTo after Cleanup should be rejected")
	}
	if surf.released != 1 {
		t.Errorf("surface should be released once, got %d", surf.released)
	}
	if surf.commits != 2 {
		t.Errorf("no commits should follow Cleanup, got %d", surf.commits)
	}
}

func TestCameraControls(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	e.SetAutoRotate(false)
	yaw := e.Camera().Yaw
	tickN(t, e, 10)
	if e.Camera().Yaw != yaw {
		t.Error("camera should not rotate with auto-rotate off")
	}

	e.SetAutoRotate(true)
	tickN(t, e, 10)
	if e.Camera().Yaw == yaw {
		t.Error("camera should rotate with auto-rotate on")
	}

	e.HandleResize(1920, 1080)
	if e.Camera().ViewportW != 1920 || e.Camera().ViewportH != 1080 {
		t.Errorf("resize not applied: %fx%f", e.Camera().ViewportW, e.Camera().ViewportH)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		want    RetargetPolicy
		wantErr bool
	}{
		{"", PolicyRetarget, false},
		{"retarget", PolicyRetarget, false},
		{"reject", PolicyReject, false},
		{"bounce", PolicyRetarget, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if Stable.String() != "STABLE" || Rebuilding.String() != "REBUILDING" || Dismantling.String() != "DISMANTLING" {
		t.Error("unexpected state names")
	}
}
