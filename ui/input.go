package ui

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pourover/field"
)

// Camera input rates
const (
	orbitKeySpeed   = 1.6   // radians per second
	orbitMouseScale = 0.006 // radians per pixel
	zoomStep        = 0.1
)

// handleInput processes keyboard and mouse input.
func (a *App) handleInput() {
	// Window resize propagation
	a.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	a.overlays.HandleKeys()

	v := a.viewer
	if rl.IsKeyPressed(rl.KeyRight) {
		v.NextScene()
	}
	if rl.IsKeyPressed(rl.KeyLeft) {
		v.PrevScene()
	}
	if rl.IsKeyPressed(rl.KeyM) {
		v.TogglePhysics()
	}
	for key, mode := range viewKeys {
		if rl.IsKeyPressed(key) {
			v.SetViewMode(mode)
		}
	}
	if rl.IsKeyPressed(rl.KeyC) {
		shape := field.ShapeFlat
		if v.Params().Shape == field.ShapeFlat {
			shape = field.ShapeCone
		}
		v.SetShape(shape)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.SetAutoRotate(!v.Engine().Camera().AutoRotate)
	}
	if rl.IsKeyPressed(rl.KeyP) {
		a.saveSnapshot()
	}
	ctrl := rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl)
	if ctrl && rl.IsKeyPressed(rl.KeyV) {
		a.pastePayload()
	}

	// Camera controls
	a.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == a.screenWidth && h == a.screenHeight {
		return
	}
	a.screenWidth = w
	a.screenHeight = h

	a.viewer.HandleResize(w, h)
	a.layout()
}

// handleCameraInput processes orbit and zoom controls.
func (a *App) handleCameraInput() {
	cam := a.viewer.Engine().Camera()
	dt := rl.GetFrameTime()

	var dYaw, dPitch float32
	if rl.IsKeyDown(rl.KeyA) {
		dYaw -= orbitKeySpeed * dt
	}
	if rl.IsKeyDown(rl.KeyD) {
		dYaw += orbitKeySpeed * dt
	}
	if rl.IsKeyDown(rl.KeyW) {
		dPitch += orbitKeySpeed * dt
	}
	if rl.IsKeyDown(rl.KeyS) {
		dPitch -= orbitKeySpeed * dt
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		dYaw -= d.X * orbitMouseScale
		dPitch += d.Y * orbitMouseScale
	}
	if dYaw != 0 || dPitch != 0 {
		cam.Orbit(dYaw, dPitch)
	}

	mouse := rl.GetMousePosition()
	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !a.controls.Contains(mouse) {
		cam.ZoomBy(1 + wheel*zoomStep)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		cam.Reset()
	}
}

// pastePayload adapts a generative-service response from the clipboard.
func (a *App) pastePayload() {
	text := rl.GetClipboardText()
	if text == "" {
		return
	}
	if err := a.viewer.ApplyPayload([]byte(text)); err != nil {
		slog.Debug("clipboard payload ignored", "bytes", len(text))
	}
}
