// Package field synthesizes coloured point clouds for pour-over brewing scenes,
// either from a fixed scene catalog or from continuous brewing parameters.
package field

import (
	"math"
	"strings"
)

// Particle is a single coloured point. Color is packed 24-bit RGB (0xRRGGBB).
type Particle struct {
	X, Y, Z float32
	Color   uint32
}

// Cloud is an ordered point cloud. Order determines index-to-index morph pairing.
type Cloud []Particle

// Shape is the brewer silhouette used by physics mode.
type Shape uint8

const (
	ShapeCone Shape = iota
	ShapeFlat
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "FLAT"
	default:
		return "CONE"
	}
}

// ParseShape maps a name to a Shape, defaulting to ShapeCone.
func ParseShape(name string) Shape {
	if strings.EqualFold(strings.TrimSpace(name), "flat") {
		return ShapeFlat
	}
	return ShapeCone
}

// ViewMode selects how physics-mode cells are coloured.
type ViewMode uint8

const (
	ViewReality ViewMode = iota
	ViewSaturation
	ViewExtraction
	ViewFlowVelocity
)

var viewModeNames = [...]string{"REALITY", "SATURATION", "EXTRACTION", "FLOW_VELOCITY"}

// String returns the view mode name.
func (v ViewMode) String() string {
	if int(v) < len(viewModeNames) {
		return viewModeNames[v]
	}
	return viewModeNames[ViewReality]
}

// ViewModes returns all view modes in display order.
func ViewModes() []ViewMode {
	return []ViewMode{ViewReality, ViewSaturation, ViewExtraction, ViewFlowVelocity}
}

// ParseViewMode maps a name to a ViewMode, defaulting to ViewReality.
func ParseViewMode(name string) ViewMode {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	for i, n := range viewModeNames {
		if n == name {
			return ViewMode(i)
		}
	}
	return ViewReality
}

// Params are the continuous brewing controls. Scalars are normalized to [0,1].
type Params struct {
	GrindSize   float64 // 0 = fine, 1 = coarse
	Temperature float64
	Ratio       float64 // water to coffee
	Agitation   float64
	Time        float64 // elapsed brew time
	Shape       Shape
	ViewMode    ViewMode
}

// DefaultParams returns a mid-brew configuration.
func DefaultParams() Params {
	return Params{
		GrindSize:   0.5,
		Temperature: 0.7,
		Ratio:       0.5,
		Agitation:   0.3,
		Time:        0.4,
		Shape:       ShapeCone,
		ViewMode:    ViewReality,
	}
}

// Clamp returns a copy with every scalar in [0,1] (NaN becomes 0) and
// unknown enum values replaced by their defaults.
func (p Params) Clamp() Params {
	p.GrindSize = clamp01(p.GrindSize)
	p.Temperature = clamp01(p.Temperature)
	p.Ratio = clamp01(p.Ratio)
	p.Agitation = clamp01(p.Agitation)
	p.Time = clamp01(p.Time)
	if p.Shape > ShapeFlat {
		p.Shape = ShapeCone
	}
	if p.ViewMode > ViewFlowVelocity {
		p.ViewMode = ViewReality
	}
	return p
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Limit decimates c to at most max particles, preserving order.
func Limit(c Cloud, max int) Cloud {
	if max <= 0 || len(c) <= max {
		return c
	}
	out := make(Cloud, 0, max)
	// Bresenham-style stride so the kept points spread over the whole cloud.
	acc := 0
	for i := range c {
		acc += max
		if acc >= len(c) {
			acc -= len(c)
			out = append(out, c[i])
		}
	}
	return out
}
