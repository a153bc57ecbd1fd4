package field

import (
	"math"
	"math/rand"
)

// cellKind classifies a lattice cell inside the brewer.
type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellBed
	cellLiquid
)

// cell is one classified lattice site.
type cell struct {
	kind     cellKind
	x, y, z  float64
	radial   float64 // distance from axis / brewer radius at this height
	depth    float64 // bed cells: normalized depth below the local bed top
	sat      float64
	exposure float64
}

// radiusAt returns the brewer interior radius at height y.
func (g *Generator) radiusAt(shape Shape, y float64) float64 {
	bottom := g.field.ConeTip
	if shape == ShapeFlat {
		bottom = g.field.ConeRadius * g.field.FlatBottomRatio
	}
	t := clamp01(y / g.field.ConeHeight)
	return bottom + (g.field.ConeRadius-bottom)*t
}

// bedTop returns the local bed surface height, undulated by noise and
// dished in the centre by agitation once water is poured.
func (g *Generator) bedTop(p Params, d Derived, x, z, radial float64) float64 {
	top := d.BedHeight + g.noise.Eval2(x*g.field.NoiseScale, z*g.field.NoiseScale)*g.field.NoiseAmplitude
	if d.Poured {
		dish := 1 - radial
		top -= 0.08 * p.Agitation * dish * dish
	}
	return top
}

// walk visits every non-empty lattice cell in a fixed y, x, z order.
func (g *Generator) walk(p Params, d Derived, visit func(c cell)) {
	step := g.field.LatticeStep
	R := g.field.ConeRadius
	n := int(math.Floor(2*R/step)) + 1

	for y := step / 2; y < g.field.ConeHeight; y += step {
		r := g.radiusAt(p.Shape, y)
		for i := 0; i < n; i++ {
			x := -R + float64(i)*step
			for k := 0; k < n; k++ {
				z := -R + float64(k)*step
				rad := math.Hypot(x, z)
				if rad > r {
					continue
				}
				c := cell{x: x, y: y, z: z, radial: rad / r}

				top := g.bedTop(p, d, x, z, c.radial)
				switch {
				case y <= top:
					c.kind = cellBed
					if top > 0 {
						c.depth = clamp01((top - y) / top)
					}
					c.sat = d.saturation(p, c.depth)
					c.exposure = d.exposure(p, c.sat, g.physics.ExposureGain)
				case d.Poured && !d.FullyDrained() && y <= d.WaterLevel:
					c.kind = cellLiquid
				default:
					continue
				}
				visit(c)
			}
		}
	}
}

// Simulate builds a cloud for the continuous parameters. Out-of-range
// values are clamped; the result never exceeds the configured cap.
func (g *Generator) Simulate(p Params) Cloud {
	p = p.Clamp()
	d := Derive(p, g.field, g.physics)
	rng := g.rngFor(int64(p.ViewMode) + 1)
	pal := g.palette
	jitter := g.field.LatticeStep * g.field.Jitter

	out := make(Cloud, 0, 4096)
	emit := func(c cell, color uint32) {
		out = append(out, Particle{
			X:     float32(c.x + (rng.Float64()-0.5)*jitter),
			Y:     float32(c.y + (rng.Float64()-0.5)*jitter),
			Z:     float32(c.z + (rng.Float64()-0.5)*jitter),
			Color: color,
		})
	}
	thin := func() bool { return rng.Float64() >= g.field.LiquidKeep }

	g.walk(p, d, func(c cell) {
		switch p.ViewMode {
		case ViewSaturation:
			if c.kind == cellLiquid {
				if thin() {
					return
				}
				emit(c, pal.Saturation(0.5*d.Solubility*p.Time))
				return
			}
			emit(c, pal.Saturation(c.sat))

		case ViewExtraction:
			// Cutaway: only the x <= 0 half, bed only.
			if c.x > 0 || c.kind != cellBed {
				return
			}
			emit(c, pal.Extraction(c.exposure))

		case ViewFlowVelocity:
			if c.kind == cellLiquid && thin() {
				return
			}
			emit(c, g.velocityColor(p, d, c, rng))

		default:
			if c.kind == cellLiquid {
				if thin() {
					return
				}
				emit(c, pal.Water)
				return
			}
			emit(c, Blend(pal.DryGrounds, pal.WetGrounds, c.sat))
		}
	})

	return Limit(out, g.field.MaxParticles)
}

// velocityColor colours a cell by approximate flow speed, flagging a random
// fraction as channels under heavy agitation.
func (g *Generator) velocityColor(p Params, d Derived, c cell, rng *rand.Rand) uint32 {
	v := (1 - c.radial) * d.FlowRate * (1 + p.Agitation)
	if c.kind == cellBed {
		v *= g.physics.BedAttenuation
	}
	if th := g.physics.ChannelThreshold; p.Agitation > th && th < 1 {
		chance := g.physics.ChannelFraction * (p.Agitation - th) / (1 - th)
		if rng.Float64() < chance {
			return g.palette.Channel
		}
	}
	return g.palette.Velocity(v / 2)
}

// ExtractionYield returns the mean exposure over all bed cells, a
// deterministic summary of how far extraction has progressed.
func (g *Generator) ExtractionYield(p Params) float64 {
	p = p.Clamp()
	d := Derive(p, g.field, g.physics)
	var sum float64
	var n int
	g.walk(p, d, func(c cell) {
		if c.kind == cellBed {
			sum += c.exposure
			n++
		}
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
