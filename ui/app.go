package ui

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pourover/field"
	"github.com/pthm-cable/pourover/viewer"
)

const controlsHelp = "<-/-> chapter | M physics | 1-4 view | C shape | WASD/RMB orbit | wheel zoom | R rotate | Home reset | P snapshot | Ctrl+V paste payload"

// Panel widths
const (
	controlsWidth  = 240
	inspectorWidth = 260
)

// App is the windowed front end around a Viewer.
type App struct {
	viewer  *viewer.Viewer
	surface *Surface

	overlays  *OverlayRegistry
	hud       *HUD
	perfPanel *PerfPanel
	controls  *ControlsPanel
	inspector *Inspector
	legend    *Legend
	theme     Theme

	screenWidth  float32
	screenHeight float32

	picked  int
	hasPick bool
}

// NewApp creates the front end. The window must already be open and surface
// must be the one passed to the viewer.
func NewApp(v *viewer.Viewer, surface *Surface) *App {
	a := &App{
		viewer:       v,
		surface:      surface,
		overlays:     NewOverlayRegistry(),
		hud:          NewHUD(),
		perfPanel:    NewPerfPanel(0, 0),
		controls:     NewControlsPanel(0, 0, controlsWidth),
		inspector:    NewInspector(0, 0, inspectorWidth),
		legend:       NewLegend(),
		theme:        DefaultTheme(),
		screenWidth:  float32(rl.GetScreenWidth()),
		screenHeight: float32(rl.GetScreenHeight()),
	}
	a.layout()
	return a
}

// layout positions the anchored panels for the current screen size.
func (a *App) layout() {
	a.controls.SetPosition(a.screenWidth-controlsWidth-10, 10)
	a.perfPanel.SetPosition(int32(a.screenWidth)-controlsWidth-inspectorWidth-10, 20)
	a.inspector.SetPosition(int32(a.screenWidth)-controlsWidth-inspectorWidth-20, 10)
}

// Update processes input and advances the viewer one frame.
func (a *App) Update() {
	a.handleInput()
	a.viewer.Update()
	a.updatePick()
}

// Draw renders one frame.
func (a *App) Draw() {
	a.viewer.Draw(a.draw)
}

func (a *App) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(a.theme.Background)

	rl.BeginMode3D(a.camera3D())
	if a.overlays.IsEnabled(OverlayGrid) {
		rl.DrawGrid(24, 0.25)
	}
	a.surface.Draw()
	if a.hasPick && a.overlays.IsEnabled(OverlayInspector) {
		if s, ok := a.viewer.Engine().Slot(a.picked); ok {
			p := s.Position
			rl.DrawCubeWiresV(rl.Vector3{X: p.X(), Y: p.Y(), Z: p.Z()}, rl.Vector3{X: 0.08, Y: 0.08, Z: 0.08}, rl.Yellow)
		}
	}
	rl.EndMode3D()

	a.drawOverlays()

	rl.EndDrawing()
}

// camera3D mirrors the engine's orbit camera for raylib.
func (a *App) camera3D() rl.Camera3D {
	cam := a.viewer.Engine().Camera()
	eye := cam.Eye()
	return rl.Camera3D{
		Position:   rl.Vector3{X: eye.X(), Y: eye.Y(), Z: eye.Z()},
		Target:     rl.Vector3{X: cam.Target.X(), Y: cam.Target.Y(), Z: cam.Target.Z()},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       cam.FovY * 180 / 3.14159265,
		Projection: rl.CameraPerspective,
	}
}

func (a *App) drawOverlays() {
	v := a.viewer
	e := v.Engine()
	sw, sh := int32(a.screenWidth), int32(a.screenHeight)

	if a.overlays.IsEnabled(OverlayHUD) {
		a.hud.Draw(HUDData{
			Title:      "Pour Over",
			Source:     v.Source(),
			Mode:       v.Mode().String(),
			State:      e.State().String(),
			Progress:   e.Progress(),
			Live:       e.Live(),
			Capacity:   e.Capacity(),
			Tick:       v.Tick(),
			FPS:        rl.GetFPS(),
			Yield:      v.Yield(),
			ShowYield:  v.Mode() == viewer.ModePhysics,
			AutoRotate: e.Camera().AutoRotate,
			Caption:    v.PayloadText(),
		})
		a.hud.DrawControls(sw, sh, controlsHelp)
	}

	if a.overlays.IsEnabled(OverlayLegend) && v.Mode() == viewer.ModePhysics {
		a.legend.Draw(v.Palette(), v.Params().ViewMode, sh)
	}

	if a.overlays.IsEnabled(OverlayInspector) && a.hasPick {
		data := InspectorData{Index: a.picked}
		data.Slot, _ = e.Slot(a.picked)
		data.Target, data.HasTarget = e.Target(a.picked)
		a.inspector.Draw(data)
	}

	if a.overlays.IsEnabled(OverlayPerf) {
		a.perfPanel.Draw(v.Perf())
	}

	if a.overlays.IsEnabled(OverlayControls) {
		act := a.controls.Draw(v.Params(), v.Mode() == viewer.ModePhysics, e.Camera().AutoRotate)
		a.applyControls(act)
	}
}

// applyControls queues the panel's requests; they take effect next Update.
func (a *App) applyControls(act ControlsAction) {
	v := a.viewer
	switch {
	case act.ParamsChanged:
		v.SetParams(act.Params)
	case act.TogglePhysics:
		v.TogglePhysics()
	case act.NextScene:
		v.NextScene()
	case act.PrevScene:
		v.PrevScene()
	}
	if act.AutoRotate != v.Engine().Camera().AutoRotate {
		v.SetAutoRotate(act.AutoRotate)
	}
	if act.Snapshot {
		a.saveSnapshot()
	}
}

func (a *App) saveSnapshot() {
	if _, err := a.viewer.SaveSnapshot(nil); err != nil {
		slog.Warn("snapshot not saved", "error", err)
	}
}

// updatePick finds the slot under the mouse while the inspector is open.
func (a *App) updatePick() {
	if !a.overlays.IsEnabled(OverlayInspector) {
		a.hasPick = false
		return
	}
	m := rl.GetMousePosition()
	if a.controls.Contains(m) {
		return
	}
	a.picked, a.hasPick = a.viewer.Pick(m.X, m.Y, 12)
}

// viewKeys maps number keys to view modes.
var viewKeys = map[int32]field.ViewMode{
	rl.KeyOne:   field.ViewReality,
	rl.KeyTwo:   field.ViewSaturation,
	rl.KeyThree: field.ViewExtraction,
	rl.KeyFour:  field.ViewFlowVelocity,
}
