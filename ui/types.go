// Package ui is the raylib front end for the viewer: the instance surface,
// the HUD and panels, and the raygui brewing controls.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	BarFillLow     rl.Color
	BarFillMedium  rl.Color
	BarFillHigh    rl.Color
	Background     rl.Color
	Grid           rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 18, B: 16, A: 230},
		PanelBorder:    rl.Color{R: 80, G: 66, B: 52, A: 255},
		SectionHeader:  rl.Color{R: 232, G: 154, B: 60, A: 255},
		LabelColor:     rl.LightGray,
		ValueColor:     rl.RayWhite,
		BarBg:          rl.Color{R: 40, G: 36, B: 32, A: 255},
		BarFill:        rl.Color{R: 159, G: 211, B: 255, A: 255},
		BarFillLow:     rl.Color{R: 200, G: 100, B: 100, A: 255},
		BarFillMedium:  rl.Color{R: 200, G: 180, B: 100, A: 255},
		BarFillHigh:    rl.Color{R: 100, G: 200, B: 100, A: 255},
		Background:     rl.Color{R: 12, G: 11, B: 10, A: 255},
		Grid:           rl.Color{R: 48, G: 44, B: 40, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     84,
		BarHeight:      12,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// PackedColor converts a packed 0xRRGGBB value to an opaque raylib colour.
func PackedColor(c uint32) rl.Color {
	return rl.Color{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
}
