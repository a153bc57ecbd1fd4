// Package viewer drives the generator and the morph engine from a host loop.
// It holds no window state, so it runs identically in headless mode and
// behind the raylib front end in package ui.
package viewer

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/field"
	"github.com/pthm-cable/pourover/morph"
	"github.com/pthm-cable/pourover/payload"
	"github.com/pthm-cable/pourover/telemetry"
)

// Mode identifies where the current target cloud came from.
type Mode uint8

const (
	ModeScene Mode = iota
	ModePhysics
	ModePayload
	ModeReplay
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeScene:
		return "scene"
	case ModePhysics:
		return "physics"
	case ModePayload:
		return "payload"
	case ModeReplay:
		return "replay"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Options configures a Viewer.
type Options struct {
	Config       *config.Config // nil uses config.Cfg()
	Seed         int64
	Headless     bool
	LogStats     bool
	OutputDir    string
	SnapshotDir  string
	TourInterval int    // ticks per tour chapter; 0 uses config
	InitialScene string // empty uses config

	// Surface receives the committed instance buffer; nil when headless.
	Surface   morph.Surface
	ViewportW float32
	ViewportH float32
}

// request is a pending target change, applied at the start of the next frame.
// Later requests in the same frame replace earlier ones.
type request struct {
	mode      Mode
	scene     field.SceneID
	params    field.Params
	cloud     field.Cloud // payload and replay only
	text      string      // payload only
	source    string
	immediate bool
}

// Viewer holds the complete viewing session state.
type Viewer struct {
	cfg    *config.Config
	gen    *field.Generator
	engine *morph.Engine
	seed   int64

	// Current target
	mode        Mode
	scene       field.SceneID
	params      field.Params
	source      string
	target      field.Cloud
	yield       float64
	payloadText string
	currentID   uuid.UUID
	pending     *request

	// Headless tour
	tourInterval int
	tourStart    int

	// State
	tick      int32
	headless  bool
	frameOpen bool
	snapping  bool

	// Telemetry
	perfCollector    *telemetry.PerfCollector
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsInterval    int
	snapshotDir      string
}

// New creates a viewer and queues the initial scene.
func New(opts Options) (*Viewer, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	v := &Viewer{
		cfg:              cfg,
		gen:              field.NewGenerator(cfg, opts.Seed),
		seed:             opts.Seed,
		params:           field.DefaultParams(),
		tourInterval:     opts.TourInterval,
		headless:         opts.Headless,
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:        telemetry.NewCollector(int32(cfg.Telemetry.StatsInterval)),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		logStats:         opts.LogStats,
		statsInterval:    cfg.Telemetry.StatsInterval,
		snapshotDir:      opts.SnapshotDir,
	}
	if v.tourInterval == 0 {
		v.tourInterval = cfg.Viewer.TourInterval
	}

	vw, vh := opts.ViewportW, opts.ViewportH
	if vw == 0 || vh == 0 {
		vw, vh = float32(cfg.Screen.Width), float32(cfg.Screen.Height)
	}

	engine, err := morph.New(morph.Options{
		Morph:         cfg.Morph,
		Camera:        cfg.Camera,
		ViewportW:     vw,
		ViewportH:     vh,
		Rand:          rand.New(rand.NewSource(opts.Seed)),
		Surface:       opts.Surface,
		OnStateChange: v.onStateChange,
		OnRebuild:     v.onRebuild,
	})
	if err != nil {
		return nil, fmt.Errorf("creating morph engine: %w", err)
	}
	v.engine = engine

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	v.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	initial := opts.InitialScene
	if initial == "" {
		initial = cfg.Viewer.InitialScene
	}
	v.scene = field.ParseScene(initial)
	for i, id := range field.Scenes() {
		if id == v.scene {
			v.tourStart = i
		}
	}
	v.ShowScene(v.scene)

	return v, nil
}

// ShowScene requests a discrete scene.
func (v *Viewer) ShowScene(id field.SceneID) {
	v.pending = &request{mode: ModeScene, scene: id, source: id.String()}
}

// NextScene requests the next scene in the catalog.
func (v *Viewer) NextScene() {
	v.ShowScene(v.currentScene().Next())
}

// PrevScene requests the previous scene in the catalog.
func (v *Viewer) PrevScene() {
	v.ShowScene(v.currentScene().Prev())
}

// currentScene returns the pending scene if one is queued.
func (v *Viewer) currentScene() field.SceneID {
	if v.pending != nil && v.pending.mode == ModeScene {
		return v.pending.scene
	}
	return v.scene
}

// SetParams requests a physics cloud for p.
func (v *Viewer) SetParams(p field.Params) {
	v.pending = &request{mode: ModePhysics, params: p.Clamp(), source: "physics"}
}

// SetViewMode requests a physics cloud with a different view mode.
func (v *Viewer) SetViewMode(m field.ViewMode) {
	p := v.Params()
	p.ViewMode = m
	v.SetParams(p)
}

// SetShape requests a physics cloud with a different brewer shape.
func (v *Viewer) SetShape(s field.Shape) {
	p := v.Params()
	p.Shape = s
	v.SetParams(p)
}

// TogglePhysics switches between scene mode and physics mode.
func (v *Viewer) TogglePhysics() {
	if v.mode == ModePhysics {
		v.ShowScene(v.scene)
		return
	}
	v.SetParams(v.params)
}

// ApplyPayload adapts a generative-service response and requests its cloud.
// A failed adaptation is reported and leaves the current target untouched.
func (v *Viewer) ApplyPayload(data []byte) error {
	res, err := payload.Adapt(data, payload.Options{
		Scale:        v.cfg.Payload.Scale,
		MaxParticles: v.cfg.Field.MaxParticles,
		Fallback:     v.cfg.Derived.FallbackColor,
	})
	if err != nil {
		slog.Warn("payload rejected", "error", err)
		return err
	}
	if res.Dropped > 0 {
		slog.Warn("payload entries dropped", "dropped", res.Dropped, "kept", len(res.Cloud))
	}
	v.pending = &request{mode: ModePayload, cloud: res.Cloud, text: res.Text, source: "payload"}
	return nil
}

// LoadSnapshot requests the cloud stored in a snapshot file. A replay snaps
// straight to the saved cloud.
func (v *Viewer) LoadSnapshot(path string) error {
	s, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	if s.Params != nil {
		v.params = s.Params.Clamp()
	}
	v.pending = &request{mode: ModeReplay, cloud: s.Cloud(), source: "snapshot", immediate: true}
	return nil
}

// SaveSnapshot writes the current target cloud. bookmark may be nil.
func (v *Viewer) SaveSnapshot(bookmark *telemetry.Bookmark) (string, error) {
	var params *field.Params
	if v.mode == ModePhysics {
		p := v.params
		params = &p
	}
	s := telemetry.NewSnapshot(v.seed, v.tick, v.source, params, v.target)
	s.Bookmark = bookmark

	var (
		path string
		err  error
	)
	switch {
	case v.snapshotDir != "":
		path, err = telemetry.SaveSnapshot(s, v.snapshotDir)
	case v.outputManager != nil:
		path, err = v.outputManager.WriteSnapshot(s)
	default:
		return "", fmt.Errorf("no snapshot directory configured")
	}
	if err != nil {
		return "", err
	}
	slog.Info("snapshot saved", "path", path, "tick", v.tick)
	return path, nil
}

// SetAutoRotate toggles idle camera rotation.
func (v *Viewer) SetAutoRotate(enabled bool) {
	v.engine.SetAutoRotate(enabled)
}

// HandleResize propagates new viewport dimensions.
func (v *Viewer) HandleResize(width, height float32) {
	v.engine.HandleResize(width, height)
}

// Update applies any pending request and advances one frame.
func (v *Viewer) Update() {
	v.step()
}

// UpdateHeadless advances the chapter tour, then one frame.
func (v *Viewer) UpdateHeadless() {
	v.advanceTour()
	v.step()
}

// step runs one frame: generate, transition, tick, telemetry. In graphics
// mode the perf sample stays open until Draw.
func (v *Viewer) step() {
	if v.frameOpen {
		v.endFrame()
	}
	v.perfCollector.BeginFrame()

	if req := v.pending; req != nil {
		v.pending = nil
		v.apply(req)
	}

	v.perfCollector.Enter(telemetry.PhaseTick)
	if err := v.engine.Tick(); err != nil {
		slog.Error("engine tick failed", "error", err)
	}
	v.tick++

	v.perfCollector.Enter(telemetry.PhaseTelemetry)
	v.flushTelemetry()

	if v.headless {
		v.endFrame()
		return
	}
	v.frameOpen = true
}

// Draw runs fn as the draw phase of the current frame.
func (v *Viewer) Draw(fn func()) {
	if v.frameOpen {
		v.perfCollector.Enter(telemetry.PhaseDraw)
	}
	fn()
	if v.frameOpen {
		v.endFrame()
		v.frameOpen = false
	}
	v.perfCollector.RecordFrame()
}

func (v *Viewer) endFrame() {
	v.perfCollector.EndFrame(v.engine.State() == morph.Rebuilding)
}

// apply generates the requested cloud and hands it to the engine.
func (v *Viewer) apply(req *request) {
	v.perfCollector.Enter(telemetry.PhaseGenerate)
	cloud := req.cloud
	switch req.mode {
	case ModeScene:
		cloud = v.gen.Scene(req.scene)
	case ModePhysics:
		cloud = v.gen.Simulate(req.params)
	}

	v.perfCollector.Enter(telemetry.PhaseTransition)
	if !v.transition(cloud, req.source, req.immediate) {
		return
	}

	v.mode = req.mode
	switch req.mode {
	case ModePayload:
		v.payloadText = req.text
	case ModeScene:
		v.scene = req.scene
	case ModePhysics:
		v.params = req.params
		v.yield = v.gen.ExtractionYield(req.params)
	}
}

// transition hands cloud to the engine and records the outcome.
func (v *Viewer) transition(cloud field.Cloud, source string, immediate bool) bool {
	fresh := immediate || v.engine.State() == morph.Stable
	progress := v.engine.Progress()

	// A snap settles the new target, not the one it interrupts.
	v.snapping = immediate
	accepted := v.engine.TransitionTo(cloud, immediate)
	v.snapping = false
	if !accepted {
		v.record(telemetry.NewRejectedEvent(v.tick, source, len(cloud), progress))
		return false
	}

	v.currentID = uuid.New()
	v.source = source
	v.target = cloud
	if fresh {
		v.record(telemetry.NewAcceptedEvent(v.tick, v.currentID, source, len(cloud), v.engine.Capacity(), immediate))
		if immediate {
			v.perfCollector.CancelTransition()
			v.record(telemetry.NewSettledEvent(v.tick, v.currentID, len(cloud)))
		} else {
			v.perfCollector.BeginTransition(v.currentID)
		}
		if v.logStats {
			slog.Info("cloud", "source", source, "stats", telemetry.ComputeCloudStats(cloud))
		}
	} else {
		v.perfCollector.RetargetTransition(v.currentID)
		v.record(telemetry.NewRetargetedEvent(v.tick, v.currentID, source, len(cloud), v.engine.Capacity(), progress))
	}
	return true
}

// advanceTour requests the chapter for the current tick. Scene chapters show
// one scene; physics chapters sweep brew time in one view mode, retargeting
// every few ticks the way a dragged slider does.
func (v *Viewer) advanceTour() {
	if v.tourInterval <= 0 {
		return
	}
	scenes := field.Scenes()
	modes := field.ViewModes()
	chapters := len(scenes) + len(modes)

	chapter := (v.tourStart + int(v.tick)/v.tourInterval) % chapters
	within := int(v.tick) % v.tourInterval

	if chapter < len(scenes) {
		if within == 0 && v.tick > 0 {
			v.ShowScene(scenes[chapter])
		}
		return
	}
	if within%tourSweepStride == 0 {
		p := v.params
		p.ViewMode = modes[chapter-len(scenes)]
		p.Time = float64(within) / float64(v.tourInterval)
		v.SetParams(p)
	}
}

// tourSweepStride is the number of ticks between physics retargets in the tour.
const tourSweepStride = 4

func (v *Viewer) onStateChange(s morph.EngineState) {
	if s == morph.Stable && !v.snapping {
		cost, _ := v.perfCollector.FinishTransition()
		v.record(telemetry.NewSettledEvent(v.tick, v.currentID, v.engine.Live()).WithCost(cost))
	}
}

func (v *Viewer) onRebuild(oldCapacity, newCapacity int) {
	v.record(telemetry.NewRebuildEvent(v.tick, oldCapacity, newCapacity))
}

// record feeds an event to the collector, the log and the CSV output.
func (v *Viewer) record(e telemetry.Event) {
	v.collector.Record(e)
	if v.logStats {
		e.LogEvent()
	}
	if err := v.outputManager.WriteEvent(e); err != nil {
		slog.Error("failed to write event", "error", err)
	}
}

// Unload releases engine and output resources.
func (v *Viewer) Unload() {
	if !v.engine.Closed() {
		if err := v.engine.Cleanup(); err != nil {
			slog.Error("engine cleanup failed", "error", err)
		}
	}
	if err := v.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the number of frames run.
func (v *Viewer) Tick() int32 { return v.tick }

// Engine returns the morph engine.
func (v *Viewer) Engine() *morph.Engine { return v.engine }

// Mode returns where the current target came from.
func (v *Viewer) Mode() Mode { return v.mode }

// Scene returns the last shown scene.
func (v *Viewer) Scene() field.SceneID { return v.scene }

// Params returns the physics parameters, including any pending change.
func (v *Viewer) Params() field.Params {
	if v.pending != nil && v.pending.mode == ModePhysics {
		return v.pending.params
	}
	return v.params
}

// Source returns the label of the current target.
func (v *Viewer) Source() string { return v.source }

// Yield returns the mean extraction of the last physics cloud.
func (v *Viewer) Yield() float64 { return v.yield }

// PayloadText returns the text of the last adapted payload.
func (v *Viewer) PayloadText() string { return v.payloadText }

// Perf returns the rolling perf stats.
func (v *Viewer) Perf() telemetry.PerfStats { return v.perfCollector.Stats() }

// Palette returns the generator palette.
func (v *Viewer) Palette() *field.Palette { return v.gen.Palette() }
