package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pourover/field"
	"github.com/pthm-cable/pourover/morph"
)

// InspectorData holds the picked slot and its target.
type InspectorData struct {
	Index     int
	Slot      morph.Slot
	Target    field.Particle
	HasTarget bool
}

// Inspector renders the slot inspection panel.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the inspector panel for the given data.
func (ins *Inspector) Draw(data InspectorData) {
	r := ins.renderer
	padding := r.Theme.Padding
	r.DrawPanel(ins.x, ins.y, ins.width, 150)

	x := ins.x + padding
	y := ins.y + padding
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Slot %d", data.Index))

	p := data.Slot.Position
	y = r.DrawLabelValue(x, y, "Position", fmt.Sprintf("%.3f %.3f %.3f", p.X(), p.Y(), p.Z()))
	y = r.DrawBar(x, y, "Scale", data.Slot.Scale, ins.width-padding*2)
	y = r.DrawColorSwatch(x, y, "Colour", data.Slot.Color)

	if data.HasTarget {
		t := data.Target
		y = r.DrawLabelValue(x, y, "Target", fmt.Sprintf("%.3f %.3f %.3f", t.X, t.Y, t.Z))
		r.DrawColorSwatch(x, y, "Target col", t.Color)
	}
}

// Legend explains the colour encoding of the current view mode.
type Legend struct {
	renderer *Renderer
}

// NewLegend creates a legend renderer.
func NewLegend() *Legend {
	return &Legend{renderer: NewRenderer()}
}

// Draw renders the legend for mode in the bottom-left corner. Nothing is
// drawn for REALITY, whose colours are literal.
func (l *Legend) Draw(pal *field.Palette, mode field.ViewMode, screenHeight int32) {
	var (
		ramp      func(float64) uint32
		low, high string
	)
	switch mode {
	case field.ViewSaturation:
		ramp, low, high = pal.Saturation, "dry", "saturated"
	case field.ViewExtraction:
		ramp, low, high = pal.Extraction, "under", "over"
	case field.ViewFlowVelocity:
		ramp, low, high = pal.Velocity, "still", "fast"
	default:
		return
	}

	r := l.renderer
	x, y := int32(10), screenHeight-80
	r.DrawPanel(x, y, 240, 48)
	rl.DrawText(mode.String(), x+8, y+4, r.Theme.FontSize, r.Theme.SectionHeader)
	r.DrawRamp(x+8, y+20, 224, 10, ramp)
	rl.DrawText(low, x+8, y+32, 10, r.Theme.LabelColor)
	hw := rl.MeasureText(high, 10)
	rl.DrawText(high, x+232-hw, y+32, 10, r.Theme.LabelColor)
}
