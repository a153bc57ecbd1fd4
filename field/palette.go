package field

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/pourover/config"
)

// Extraction ramp band edges over normalized exposure.
const (
	ExtractionAcidEnd   = 0.25 // acid -> sugar
	ExtractionSugarEnd  = 0.55 // sugar -> tannin
	ExtractionTanninEnd = 0.85 // tannin -> over-extracted
)

// Palette holds every colour the generator emits.
type Palette struct {
	config.PaletteColors

	saturation rampStops
	extraction rampStops
	velocity   rampStops
}

type rampStop struct {
	at    float64
	color colorful.Color
}

// rampStops is a piecewise-linear colour ramp over [0,1].
type rampStops []rampStop

// NewPalette builds ramps from the parsed palette colours.
func NewPalette(c config.PaletteColors) *Palette {
	return &Palette{
		PaletteColors: c,
		saturation: rampStops{
			{0, unpack(c.Clear)},
			{1, unpack(c.Saturated)},
		},
		extraction: rampStops{
			{0, unpack(c.Acid)},
			{ExtractionAcidEnd, unpack(c.Acid)},
			{ExtractionSugarEnd, unpack(c.Sugar)},
			{ExtractionTanninEnd, unpack(c.Tannin)},
			{1, unpack(c.Over)},
		},
		velocity: rampStops{
			{0, unpack(c.VelocityLow)},
			{1, unpack(c.VelocityHigh)},
		},
	}
}

// Saturation colours a saturation fraction between clear and saturated.
func (p *Palette) Saturation(t float64) uint32 { return p.saturation.at(t) }

// Extraction colours an exposure value on the acid/sugar/tannin/over ramp.
func (p *Palette) Extraction(t float64) uint32 { return p.extraction.at(t) }

// Velocity colours a normalized velocity on the low/high ramp.
func (p *Palette) Velocity(t float64) uint32 { return p.velocity.at(t) }

// Blend mixes two packed colours in RGB space.
func Blend(a, b uint32, t float64) uint32 {
	return pack(unpack(a).BlendRgb(unpack(b), clamp01(t)))
}

func (r rampStops) at(t float64) uint32 {
	t = clamp01(t)
	if t <= r[0].at {
		return pack(r[0].color)
	}
	for i := 1; i < len(r); i++ {
		if t <= r[i].at {
			lo, hi := r[i-1], r[i]
			span := hi.at - lo.at
			if span <= 0 {
				return pack(hi.color)
			}
			return pack(lo.color.BlendRgb(hi.color, (t-lo.at)/span))
		}
	}
	return pack(r[len(r)-1].color)
}

func unpack(c uint32) colorful.Color {
	return colorful.Color{
		R: float64(c>>16&0xff) / 255,
		G: float64(c>>8&0xff) / 255,
		B: float64(c&0xff) / 255,
	}
}

func pack(c colorful.Color) uint32 {
	r, g, b := c.Clamped().RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
