package viewer

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/field"
	"github.com/pthm-cable/pourover/morph"
	"github.com/pthm-cable/pourover/payload"
	"github.com/pthm-cable/pourover/telemetry"
)

const testSeed = 11

const samplePayload = `{"text": "three beans", "voxels": [
	{"x": 0, "y": 0, "z": 0, "color": "#ff0000"},
	{"x": 10, "y": 0, "z": 0, "color": "00ff00"},
	{"x": 0, "y": 10, "z": 0, "color": "#00f"}
]}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func newTestViewer(t *testing.T, cfg *config.Config, mutate func(*Options)) *Viewer {
	t.Helper()
	opts := Options{
		Config:       cfg,
		Seed:         testSeed,
		Headless:     true,
		TourInterval: -1,
		ViewportW:    800,
		ViewportH:    600,
	}
	if mutate != nil {
		mutate(&opts)
	}
	v, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(v.Unload)
	return v
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestNew_QueuesInitialScene(t *testing.T) {
	cfg := testConfig(t)
	v := newTestViewer(t, cfg, func(o *Options) { o.InitialScene = "bloom" })

	if got := v.Engine().Live(); got != 0 {
		t.Fatalf("live before first update = %d, want 0", got)
	}

	v.Update()

	want := field.NewGenerator(cfg, testSeed).Scene(field.SceneBloom)
	if got := v.Engine().Live(); got != len(want) {
		t.Errorf("live = %d, want %d", got, len(want))
	}
	if v.Source() != "bloom" {
		t.Errorf("source = %q, want bloom", v.Source())
	}
	if v.Mode() != ModeScene {
		t.Errorf("mode = %v, want scene", v.Mode())
	}
	if v.Engine().State() != morph.Rebuilding {
		t.Errorf("state = %v, want REBUILDING", v.Engine().State())
	}
	if v.Tick() != 1 {
		t.Errorf("tick = %d, want 1", v.Tick())
	}
}

func TestNextPrevScene(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()

	v.NextScene()
	v.NextScene() // queued requests chain from the pending scene
	v.Update()
	if v.Scene() != field.SceneBloom {
		t.Errorf("scene = %v, want bloom", v.Scene())
	}

	v.PrevScene()
	v.Update()
	if v.Scene() != field.SceneGrind {
		t.Errorf("scene = %v, want grind", v.Scene())
	}
}

func TestSetParams_LatestRequestWins(t *testing.T) {
	cfg := testConfig(t)
	v := newTestViewer(t, cfg, nil)
	v.Update()

	first := field.DefaultParams()
	first.Time = 0.2
	second := field.DefaultParams()
	second.Time = 0.7

	v.SetParams(first)
	v.SetParams(second)
	if got := v.Params().Time; got != 0.7 {
		t.Fatalf("pending params time = %v, want 0.7", got)
	}
	v.Update()

	if v.Mode() != ModePhysics {
		t.Errorf("mode = %v, want physics", v.Mode())
	}
	gen := field.NewGenerator(cfg, testSeed)
	if got, want := v.Engine().Live(), len(gen.Simulate(second.Clamp())); got != want {
		t.Errorf("live = %d, want %d", got, want)
	}
	if got, want := v.Yield(), gen.ExtractionYield(second.Clamp()); got != want {
		t.Errorf("yield = %v, want %v", got, want)
	}
}

func TestSetViewModeAndShape(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()

	v.SetViewMode(field.ViewFlowVelocity)
	v.SetShape(field.ShapeFlat)
	v.Update()

	p := v.Params()
	if p.ViewMode != field.ViewFlowVelocity {
		t.Errorf("view mode = %v, want velocity", p.ViewMode)
	}
	if p.Shape != field.ShapeFlat {
		t.Errorf("shape = %v, want flat", p.Shape)
	}
}

func TestTogglePhysics(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()

	v.TogglePhysics()
	v.Update()
	if v.Mode() != ModePhysics {
		t.Fatalf("mode = %v, want physics", v.Mode())
	}

	v.TogglePhysics()
	v.Update()
	if v.Mode() != ModeScene {
		t.Errorf("mode = %v, want scene", v.Mode())
	}
}

func TestApplyPayload(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()

	if err := v.ApplyPayload([]byte(samplePayload)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	v.Update()

	if v.Mode() != ModePayload {
		t.Errorf("mode = %v, want payload", v.Mode())
	}
	if got := v.Engine().Live(); got != 3 {
		t.Errorf("live = %d, want 3", got)
	}
	if v.PayloadText() != "three beans" {
		t.Errorf("text = %q", v.PayloadText())
	}
	p, ok := v.Engine().Target(1)
	if !ok || p.Color != 0x00ff00 {
		t.Errorf("target[1] = %+v, want green", p)
	}
}

func TestApplyPayload_OutOfRangeCoordinateKeepsSlotsFinite(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()

	data := `{"voxels": [{"x": 1e39, "y": 0, "z": 0}, {"x": 1, "y": 0, "z": 0}]}`
	if err := v.ApplyPayload([]byte(data)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	for i := 0; i < 3; i++ {
		v.Update()
	}
	v.ShowScene(field.SceneGrind)
	for i := 0; i < 300; i++ {
		v.Update()
	}

	e := v.Engine()
	for i := 0; i < e.Capacity(); i++ {
		s, _ := e.Slot(i)
		for _, c := range s.Position {
			if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
				t.Fatalf("slot %d position %v is not finite", i, s.Position)
			}
		}
	}
}

func TestApplyPayload_ErrorKeepsTarget(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()
	live := v.Engine().Live()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"malformed", `{`, payload.ErrMalformed},
		{"empty", `{"voxels": []}`, payload.ErrNoVoxels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ApplyPayload([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			v.Update()
			if v.Engine().Live() != live {
				t.Errorf("live = %d, want %d", v.Engine().Live(), live)
			}
			if v.Source() != "equipment" {
				t.Errorf("source = %q, want equipment", v.Source())
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	v := newTestViewer(t, cfg, func(o *Options) { o.SnapshotDir = dir })
	if err := v.ApplyPayload([]byte(samplePayload)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	v.Update()

	path, err := v.SaveSnapshot(nil)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("snapshot dir = %s, want %s", filepath.Dir(path), dir)
	}

	replay := newTestViewer(t, cfg, nil)
	if err := replay.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	replay.Update()

	if replay.Mode() != ModeReplay {
		t.Errorf("mode = %v, want replay", replay.Mode())
	}
	if replay.Engine().Live() != 3 {
		t.Fatalf("live = %d, want 3", replay.Engine().Live())
	}
	for i := 0; i < 3; i++ {
		a, _ := v.Engine().Target(i)
		b, _ := replay.Engine().Target(i)
		if a != b {
			t.Errorf("target[%d] = %+v, want %+v", i, b, a)
		}
	}
}

func TestSaveSnapshot_NoDirectory(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()
	if _, err := v.SaveSnapshot(nil); err == nil {
		t.Error("expected error without a snapshot directory")
	}
}

func TestHeadlessTour_VisitsEveryChapter(t *testing.T) {
	const interval = 5
	v := newTestViewer(t, testConfig(t), func(o *Options) { o.TourInterval = interval })

	chapters := len(field.Scenes()) + len(field.ViewModes())
	seen := map[string]bool{}
	modes := map[field.ViewMode]bool{}
	for i := 0; i < interval*chapters; i++ {
		v.UpdateHeadless()
		seen[v.Source()] = true
		if v.Mode() == ModePhysics {
			modes[v.Params().ViewMode] = true
		}
	}

	for _, id := range field.Scenes() {
		if !seen[id.String()] {
			t.Errorf("scene %s never shown", id)
		}
	}
	if !seen["physics"] {
		t.Error("physics chapter never shown")
	}
	if len(modes) != len(field.ViewModes()) {
		t.Errorf("visited %d view modes, want %d", len(modes), len(field.ViewModes()))
	}
}

func TestOutput_RecordsTransitionEvents(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Morph.Policy = "reject"
	cfg.Morph.ProgressIncrement = 0.25
	cfg.Telemetry.StatsInterval = 5

	v, err := New(Options{Config: cfg, Seed: testSeed, Headless: true, TourInterval: -1, OutputDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v.Update()    // accepted, rebuild
	v.NextScene() // rejected while rebuilding
	v.Update()
	for i := 0; i < 8; i++ {
		v.Update() // settles after four ticks
	}
	v.Unload()

	transitions := readFile(t, filepath.Join(dir, "transitions.csv"))
	for _, want := range []string{"accepted", "rejected", "settled", "rebuild"} {
		if !strings.Contains(transitions, want) {
			t.Errorf("transitions.csv missing %q:\n%s", want, transitions)
		}
	}
	if v.Scene() != field.SceneEquipment {
		t.Errorf("rejected scene was applied: %v", v.Scene())
	}

	var rows []*telemetry.EventCSV
	if err := gocsv.UnmarshalFile(mustOpen(t, filepath.Join(dir, "transitions.csv")), &rows); err != nil {
		t.Fatalf("parsing transitions.csv: %v", err)
	}
	for _, r := range rows {
		if r.Type == "settled" && r.Frames != 3 {
			t.Errorf("settled after four ticks charged %d frames, want 3", r.Frames)
		}
	}

	perfCSV := readFile(t, filepath.Join(dir, "perf.csv"))
	if !strings.HasPrefix(perfCSV, "window_end,frames") {
		t.Errorf("perf.csv header = %q", strings.SplitN(perfCSV, "\n", 2)[0])
	}

	telemetryCSV := readFile(t, filepath.Join(dir, "telemetry.csv"))
	if !strings.HasPrefix(telemetryCSV, "window_end") {
		t.Errorf("telemetry.csv header = %q", strings.SplitN(telemetryCSV, "\n", 2)[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not written: %v", err)
	}
}

func TestOutput_ReplaySettlesUnderItsOwnID(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	snapshot := newTestViewer(t, cfg, func(o *Options) { o.SnapshotDir = dir })
	if err := snapshot.ApplyPayload([]byte(samplePayload)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	snapshot.Update()
	path, err := snapshot.SaveSnapshot(nil)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	outDir := t.TempDir()
	v, err := New(Options{Config: cfg, Seed: testSeed, Headless: true, TourInterval: -1, OutputDir: outDir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v.Update() // scene still in flight
	if v.Engine().State() != morph.Rebuilding {
		t.Fatalf("state = %v, want rebuilding", v.Engine().State())
	}
	if err := v.LoadSnapshot(path); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	v.Update()
	if v.Engine().State() != morph.Stable {
		t.Errorf("state after replay = %v, want stable", v.Engine().State())
	}
	v.Unload()

	var rows []*telemetry.EventCSV
	if err := gocsv.UnmarshalFile(mustOpen(t, filepath.Join(outDir, "transitions.csv")), &rows); err != nil {
		t.Fatalf("parsing transitions.csv: %v", err)
	}
	var replayID string
	settled := map[string]bool{}
	for _, r := range rows {
		switch r.Type {
		case "accepted":
			if r.Source == "snapshot" {
				replayID = r.TransitionID
			}
		case "settled":
			settled[r.TransitionID] = true
		}
	}
	if replayID == "" {
		t.Fatal("no accepted replay event")
	}
	if !settled[replayID] {
		t.Errorf("replay %s never settled", replayID)
	}
	if len(settled) != 1 {
		t.Errorf("settled ids = %v, want only the replay", settled)
	}
}

func TestApplyPayload_TextFollowsAcceptedCloud(t *testing.T) {
	cfg := testConfig(t)
	cfg.Morph.Policy = "reject"
	v := newTestViewer(t, cfg, nil)
	v.Update() // rebuilding

	if err := v.ApplyPayload([]byte(samplePayload)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	v.Update()
	if v.PayloadText() != "" {
		t.Errorf("rejected payload text = %q, want empty", v.PayloadText())
	}

	if err := v.ApplyPayload([]byte(samplePayload)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	v.ShowScene(field.SceneBloom)
	v.Update()
	if v.PayloadText() != "" {
		t.Errorf("replaced payload text = %q, want empty", v.PayloadText())
	}
}

func TestUnload_Idempotent(t *testing.T) {
	v := newTestViewer(t, testConfig(t), nil)
	v.Update()
	v.Unload()
	if !v.Engine().Closed() {
		t.Error("engine should be closed")
	}
	v.Unload()
	v.Update() // ticking a closed engine logs and continues
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeScene, "scene"},
		{ModePhysics, "physics"},
		{ModePayload, "payload"},
		{ModeReplay, "replay"},
		{Mode(9), "mode(9)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestPick(t *testing.T) {
	cfg := testConfig(t)
	cfg.Camera.AutoRotate = false
	v := newTestViewer(t, cfg, nil)
	data := `{"voxels": [
		{"x": -5, "y": 9, "z": 0, "color": "#ff0000"},
		{"x": 5, "y": 9, "z": 0, "color": "#00ff00"}
	]}`
	if err := v.ApplyPayload([]byte(data)); err != nil {
		t.Fatalf("ApplyPayload: %v", err)
	}
	for i := 0; i < 200; i++ {
		v.Update()
	}

	s, _ := v.Engine().Slot(1)
	sx, sy, _, ok := v.Engine().Camera().WorldToScreen(s.Position)
	if !ok {
		t.Fatal("slot 1 not on screen")
	}

	got, ok := v.Pick(sx+1, sy-1, 8)
	if !ok || got != 1 {
		t.Errorf("Pick near slot 1 = %d, %v; want 1, true", got, ok)
	}
	if _, ok := v.Pick(-100, -100, 8); ok {
		t.Error("Pick off screen should miss")
	}
}
