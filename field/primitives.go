package field

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// builder accumulates particles from geometric primitives. Every primitive
// takes a density in [0,1]: each candidate point is kept with that probability.
type builder struct {
	rng    *rand.Rand
	step   float64 // candidate spacing
	jitter float64 // absolute position jitter
	pal    *Palette
	cloud  Cloud
}

func newBuilder(rng *rand.Rand, step, jitter float64, pal *Palette) *builder {
	return &builder{rng: rng, step: step, jitter: jitter, pal: pal, cloud: make(Cloud, 0, 4096)}
}

func (b *builder) palette() *Palette {
	return b.pal
}

func (b *builder) keep(density float64) bool {
	if density >= 1 {
		return true
	}
	return b.rng.Float64() < density
}

// point adds p subject to density, applying jitter.
func (b *builder) point(p r3.Vec, color uint32, density float64) {
	if !b.keep(density) {
		return
	}
	if b.jitter > 0 {
		p = r3.Add(p, r3.Vec{
			X: (b.rng.Float64() - 0.5) * b.jitter,
			Y: (b.rng.Float64() - 0.5) * b.jitter,
			Z: (b.rng.Float64() - 0.5) * b.jitter,
		})
	}
	b.cloud = append(b.cloud, Particle{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z), Color: color})
}

// ring adds points around a horizontal circle.
func (b *builder) ring(center r3.Vec, radius float64, color uint32, density float64) {
	if radius < b.step/2 {
		b.point(center, color, density)
		return
	}
	n := int(2 * math.Pi * radius / b.step)
	if n < 3 {
		n = 3
	}
	for j := 0; j < n; j++ {
		theta := 2 * math.Pi * float64(j) / float64(n)
		b.point(r3.Add(center, r3.Vec{X: radius * math.Cos(theta), Z: radius * math.Sin(theta)}), color, density)
	}
}

// disk fills a horizontal disk with concentric rings.
func (b *builder) disk(center r3.Vec, radius float64, color uint32, density float64) {
	for r := radius; r > b.step/2; r -= b.step {
		b.ring(center, r, color, density)
	}
	b.point(center, color, density)
}

// cone adds a tapered cone whose radius interpolates linearly from
// baseRadius at base to topRadius at base+height. Hollow cones are shells.
func (b *builder) cone(base r3.Vec, baseRadius, topRadius, height float64, color uint32, density float64, hollow bool) {
	layers := int(height / b.step)
	if layers < 1 {
		layers = 1
	}
	for i := 0; i <= layers; i++ {
		t := float64(i) / float64(layers)
		c := r3.Add(base, r3.Vec{Y: height * t})
		r := baseRadius + (topRadius-baseRadius)*t
		if hollow {
			b.ring(c, r, color, density)
		} else {
			b.disk(c, r, color, density)
		}
	}
}

// cylinder is a cone with equal radii.
func (b *builder) cylinder(base r3.Vec, radius, height float64, color uint32, density float64, hollow bool) {
	b.cone(base, radius, radius, height, color, density, hollow)
}

// dome adds a squashed hemispherical shell of the given radius.
func (b *builder) dome(center r3.Vec, radius, squash float64, color uint32, density float64) {
	rings := int(math.Pi / 2 * radius / b.step)
	if rings < 1 {
		rings = 1
	}
	for i := 0; i <= rings; i++ {
		phi := math.Pi / 2 * float64(i) / float64(rings)
		c := r3.Add(center, r3.Vec{Y: radius * math.Cos(phi) * squash})
		b.ring(c, radius*math.Sin(phi), color, density)
	}
}

// curve samples a parametric curve f over t in [0,1]; spacing follows the
// curve's chord length so the point density matches other primitives.
func (b *builder) curve(f func(t float64) r3.Vec, color uint32, density float64) {
	const probes = 64
	var length float64
	prev := f(0)
	for i := 1; i <= probes; i++ {
		p := f(float64(i) / probes)
		length += r3.Norm(r3.Sub(p, prev))
		prev = p
	}
	n := int(length / b.step)
	if n < 2 {
		n = 2
	}
	for i := 0; i <= n; i++ {
		b.point(f(float64(i)/float64(n)), color, density)
	}
}

// tube traces a curve with a small circular cross-section so thin features
// stay visible.
func (b *builder) tube(f func(t float64) r3.Vec, radius float64, color uint32, density float64) {
	b.curve(f, color, density)
	for _, a := range []float64{0, 2 * math.Pi / 3, 4 * math.Pi / 3} {
		off := r3.Vec{X: radius * math.Cos(a), Z: radius * math.Sin(a)}
		b.curve(func(t float64) r3.Vec { return r3.Add(f(t), off) }, color, density)
	}
}

// spiral traces an Archimedean spiral r = k*theta around center for the
// given number of turns, descending by drop over its length.
func (b *builder) spiral(center r3.Vec, k, turns, drop float64, color uint32, density float64) {
	end := 2 * math.Pi * turns
	b.curve(func(t float64) r3.Vec {
		theta := end * t
		r := k * theta
		return r3.Add(center, r3.Vec{X: r * math.Cos(theta), Y: -drop * t, Z: r * math.Sin(theta)})
	}, color, density)
}
