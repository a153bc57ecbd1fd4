package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pourover/field"
)

// ControlsAction is what the user asked for through the controls panel
// during one frame.
type ControlsAction struct {
	Params        field.Params
	ParamsChanged bool
	NextScene     bool
	PrevScene     bool
	TogglePhysics bool
	AutoRotate    bool
	Snapshot      bool
}

// ControlsPanel renders the right-side brewing controls.
type ControlsPanel struct {
	renderer *Renderer
	x, y     float32
	width    float32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width float32) *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y float32) {
	c.x = x
	c.y = y
}

// Contains reports whether the screen point is over the panel.
func (c *ControlsPanel) Contains(p rl.Vector2) bool {
	return rl.CheckCollisionPointRec(p, c.bounds())
}

func (c *ControlsPanel) bounds() rl.Rectangle {
	return rl.Rectangle{X: c.x, Y: c.y, Width: c.width, Height: 430}
}

// Draw renders the panel and returns the user's actions. physics selects
// whether the sliders are live.
func (c *ControlsPanel) Draw(p field.Params, physics, autoRotate bool) ControlsAction {
	r := c.renderer
	b := c.bounds()
	r.DrawPanel(int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height))

	act := ControlsAction{Params: p, AutoRotate: autoRotate}
	pad := float32(r.Theme.Padding)
	x := c.x + pad
	y := c.y + pad
	w := c.width - pad*2

	rl.DrawText("Brew", int32(x), int32(y), 18, rl.RayWhite)
	y += 26

	sliders := []struct {
		label string
		value *float64
	}{
		{"Grind size", &act.Params.GrindSize},
		{"Temperature", &act.Params.Temperature},
		{"Ratio", &act.Params.Ratio},
		{"Agitation", &act.Params.Agitation},
		{"Time", &act.Params.Time},
	}
	for _, s := range sliders {
		rl.DrawText(s.label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		rl.DrawText(fmt.Sprintf("%.2f", *s.value), int32(x+w-30), int32(y), r.Theme.FontSize, r.Theme.ValueColor)
		y += 14
		nv := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 16}, "", "", float32(*s.value), 0, 1)
		if nv != float32(*s.value) {
			*s.value = float64(nv)
			act.ParamsChanged = true
		}
		y += 26
	}

	half := (w - 8) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, act.Params.Shape.String()) {
		if act.Params.Shape == field.ShapeCone {
			act.Params.Shape = field.ShapeFlat
		} else {
			act.Params.Shape = field.ShapeCone
		}
		act.ParamsChanged = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 8, Y: y, Width: half, Height: 24}, act.Params.ViewMode.String()) {
		modes := field.ViewModes()
		act.Params.ViewMode = modes[(int(act.Params.ViewMode)+1)%len(modes)]
		act.ParamsChanged = true
	}
	y += 34

	rl.DrawText("Chapters", int32(x), int32(y), r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	y += 20
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, "< Prev") {
		act.PrevScene = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 8, Y: y, Width: half, Height: 24}, "Next >") {
		act.NextScene = true
	}
	y += 32

	modeLabel := "Physics mode"
	if physics {
		modeLabel = "Scene mode"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 24}, modeLabel) {
		act.TogglePhysics = true
	}
	y += 32

	act.AutoRotate = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 16, Height: 16}, "Auto-rotate", autoRotate)
	y += 26

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 24}, "Save snapshot") {
		act.Snapshot = true
	}

	return act
}
