package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pourover/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title      string
	Source     string
	Mode       string
	State      string
	Progress   float64
	Live       int
	Capacity   int
	Tick       int32
	FPS        int32
	Yield      float64
	ShowYield  bool
	AutoRotate bool
	Caption    string
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.RayWhite)

	rl.DrawText(
		fmt.Sprintf("%s | %s | %s", data.Source, data.Mode, data.State),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Particles: %d / %d | Tick: %d | FPS: %d", data.Live, data.Capacity, data.Tick, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	y := int32(75)
	if data.State != "STABLE" {
		y = h.renderer.DrawBar(10, y, "Morph", float32(data.Progress), 260)
	}
	if data.ShowYield {
		rl.DrawText(fmt.Sprintf("Extraction yield: %.1f%%", data.Yield*100), 10, y, 16, h.renderer.Theme.SectionHeader)
		y += 20
	}
	if data.Caption != "" {
		rl.DrawText(data.Caption, 10, y, 14, rl.Gray)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase frame timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y
	r := p.renderer
	r.DrawPanel(x-r.Theme.Padding, y-r.Theme.Padding, 260, 168)

	rl.DrawText("Frame Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  P90: %s",
		stats.AvgFrame.Round(time.Microsecond),
		stats.P90Frame.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 18
	rl.DrawText(fmt.Sprintf("Morphing %3.0f%%  %s vs %s idle",
		stats.RebuildShare()*100,
		stats.AvgRebuildFrame.Round(time.Microsecond),
		stats.AvgStableFrame.Round(time.Microsecond)), x, y, 12, rl.LightGray)
	y += 18

	for _, ph := range telemetry.Phases() {
		cost := stats.Phase(ph)
		color := rl.LightGray
		if cost.Pct > 50 {
			color = rl.Red
		} else if cost.Pct > 25 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", ph, cost.Avg.Round(time.Microsecond), cost.Pct),
			x, y, 12, color,
		)
		y += 14
	}
}
