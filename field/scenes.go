package field

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SceneID names an entry in the discrete scene catalog.
type SceneID uint8

const (
	SceneEquipment SceneID = iota // equipment laid out side by side
	SceneGrind                    // fine / medium / coarse comparison
	SceneBloom                    // bloom phase: wet bed under a CO2 dome
	SceneSpiral                   // spiral pour over the bed
	SceneSetup                    // everything stacked and pouring
)

var sceneNames = [...]string{"equipment", "grind", "bloom", "spiral", "setup"}

// Scene geometry.
const (
	sceneStep   = 0.05
	sceneJitter = 0.01

	dripperTip    = 0.12
	dripperRim    = 0.9
	dripperHeight = 1.0
	filterInset   = 0.06
	bedDepth      = 0.42
	carafeHeight  = 1.0
	carafeNeck    = 0.15
	scaleHeight   = 0.08
)

// Scenes returns the catalog in chapter order.
func Scenes() []SceneID {
	return []SceneID{SceneEquipment, SceneGrind, SceneBloom, SceneSpiral, SceneSetup}
}

// String returns the scene name.
func (s SceneID) String() string {
	if int(s) < len(sceneNames) {
		return sceneNames[s]
	}
	return sceneNames[SceneEquipment]
}

// Next returns the following chapter, wrapping around.
func (s SceneID) Next() SceneID {
	return SceneID((int(s.valid()) + 1) % len(sceneNames))
}

// Prev returns the preceding chapter, wrapping around.
func (s SceneID) Prev() SceneID {
	return SceneID((int(s.valid()) + len(sceneNames) - 1) % len(sceneNames))
}

func (s SceneID) valid() SceneID {
	if int(s) >= len(sceneNames) {
		return SceneEquipment
	}
	return s
}

// ParseScene maps a name to a SceneID, defaulting to SceneEquipment.
func ParseScene(name string) SceneID {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range sceneNames {
		if n == name {
			return SceneID(i)
		}
	}
	return SceneEquipment
}

// Scene builds the catalog entry for id. Unknown ids fall back to the
// equipment scene.
func (g *Generator) Scene(id SceneID) Cloud {
	id = id.valid()
	b := newBuilder(g.rngFor(100+int64(id)), sceneStep, sceneJitter, g.palette)
	pal := g.palette

	switch id {
	case SceneGrind:
		mounds := []struct {
			x, step, jitter float64
			color           uint32
		}{
			{-1.8, 0.045, 0.006, pal.Fine},
			{0, 0.08, 0.02, pal.Medium},
			{1.8, 0.13, 0.045, pal.Coarse},
		}
		for _, m := range mounds {
			b.step, b.jitter = m.step, m.jitter
			b.cone(r3.Vec{X: m.x}, 0.75, 0.05, 0.6, m.color, 1, false)
		}

	case SceneBloom:
		top := b.brewer(r3.Vec{}, pal.WetGrounds)
		b.dome(top, bedRadius(), 0.4, pal.Bloom, 0.8)
		for i := 0; i < 150; i++ {
			theta := b.rng.Float64() * 2 * math.Pi
			r := math.Sqrt(b.rng.Float64()) * bedRadius() * 0.9
			y := 0.05 + b.rng.Float64()*0.25
			b.point(r3.Add(top, r3.Vec{X: r * math.Cos(theta), Y: y, Z: r * math.Sin(theta)}), pal.Bubble, 1)
		}

	case SceneSpiral:
		top := b.brewer(r3.Vec{}, pal.WetGrounds)
		const turns, lift = 3.0, 0.35
		k := bedRadius() * 0.9 / (2 * math.Pi * turns)
		start := r3.Add(top, r3.Vec{Y: lift})
		b.spiral(start, k, turns, lift, pal.Stream, 1)
		b.tube(func(t float64) r3.Vec {
			return r3.Add(start, r3.Vec{Y: 1.2 * (1 - t)})
		}, 0.015, pal.Stream, 1)

	case SceneSetup:
		b.scale(r3.Vec{})
		b.carafe(r3.Vec{Y: scaleHeight})
		top := b.brewer(r3.Vec{Y: scaleHeight + carafeHeight + carafeNeck}, pal.WetGrounds)
		tip := b.kettle(r3.Vec{X: 2.0, Y: 2.0}, -1)
		b.tube(func(t float64) r3.Vec {
			return r3.Vec{X: tip.X * (1 - t), Y: tip.Y - (tip.Y-top.Y)*t*t, Z: tip.Z}
		}, 0.015, pal.Stream, 1)

	default:
		b.kettle(r3.Vec{X: -2.4}, 1)
		b.dripper(r3.Vec{})
		b.filter(r3.Vec{})
		b.carafe(r3.Vec{X: 2.3})
		b.scale(r3.Vec{Z: 1.9})
	}

	return Limit(b.cloud, g.field.MaxParticles)
}

// bedRadius is the filter radius at the bed surface.
func bedRadius() float64 {
	return filterRadiusAt(bedDepth)
}

func filterRadiusAt(h float64) float64 {
	lo, hi := dripperTip-0.02, dripperRim-filterInset
	return lo + (hi-lo)*h/(dripperHeight-0.08)
}

// scale is a flat brewing scale.
func (b *builder) scale(o r3.Vec) {
	b.cylinder(o, 1.1, scaleHeight, b.palette().Scale, 0.6, false)
}

// carafe is a glass server with a tapered neck.
func (b *builder) carafe(o r3.Vec) {
	glass := b.palette().Glass
	b.disk(o, 0.7, glass, 0.45)
	b.cylinder(o, 0.7, carafeHeight, glass, 0.45, true)
	b.cone(r3.Add(o, r3.Vec{Y: carafeHeight}), 0.7, 0.45, carafeNeck, glass, 0.6, true)
}

// dripper is the conical brewer shell with a rim.
func (b *builder) dripper(o r3.Vec) {
	steel := b.palette().Steel
	b.cone(o, dripperTip, dripperRim, dripperHeight, steel, 0.6, true)
	b.ring(r3.Add(o, r3.Vec{Y: dripperHeight}), dripperRim+0.08, steel, 1)
	b.ring(o, dripperTip+0.25, steel, 1)
}

// filter is the paper liner inside the dripper.
func (b *builder) filter(o r3.Vec) {
	b.cone(r3.Add(o, r3.Vec{Y: 0.04}), dripperTip-0.02, dripperRim-filterInset, dripperHeight-0.08, b.palette().Filter, 0.35, true)
}

// brewer stacks dripper, filter and a solid coffee bed at o and returns
// the centre of the bed surface.
func (b *builder) brewer(o r3.Vec, grounds uint32) r3.Vec {
	b.dripper(o)
	b.filter(o)
	base := r3.Add(o, r3.Vec{Y: 0.04})
	b.cone(base, dripperTip-0.02, bedRadius(), bedDepth, grounds, 0.9, false)
	return r3.Add(base, r3.Vec{Y: bedDepth})
}

// kettle draws a gooseneck kettle whose spout points along facing (+1/-1 on
// x) and returns the spout tip.
func (b *builder) kettle(o r3.Vec, facing float64) r3.Vec {
	black := b.palette().Kettle
	b.cylinder(o, 0.45, 0.7, black, 0.7, true)
	b.dome(r3.Add(o, r3.Vec{Y: 0.7}), 0.45, 0.35, black, 0.7)
	b.point(r3.Add(o, r3.Vec{Y: 0.9}), black, 1)

	// Spout: a sine-weighted arc rising away from the body.
	spout := func(t float64) r3.Vec {
		return r3.Add(o, r3.Vec{
			X: facing * (0.4 + 0.6*t),
			Y: 0.15 + 0.65*t + 0.2*math.Sin(math.Pi*t),
		})
	}
	b.tube(spout, 0.03, black, 1)

	// Handle on the opposite side.
	b.tube(func(t float64) r3.Vec {
		return r3.Add(o, r3.Vec{
			X: -facing * (0.45 + 0.3*math.Sin(math.Pi*t)),
			Y: 0.15 + 0.5*t,
		})
	}, 0.03, black, 1)

	return spout(1)
}
