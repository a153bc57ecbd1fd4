package morph

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Slot is the interpolated state of one pooled instance.
// A slot is live while its index is below the target count, orphaned otherwise.
type Slot struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    float32
	Color    uint32
}

// spin is the per-slot precession used for the sparkle rotation.
type spin struct {
	axis  mgl32.Vec3
	phase float32
}

// pool is a fixed-capacity instance buffer. It grows by replacing its whole
// backing storage and never shrinks.
type pool struct {
	slots    []Slot
	spins    []spin
	matrices []mgl32.Mat4
	colors   []uint32
}

func (p *pool) capacity() int {
	return len(p.slots)
}

// grow replaces the backing buffers with ones of the given capacity.
// Existing slots keep their state; new slots start at the origin with zero
// scale. Spin parameters for new slots are drawn from rng in index order.
func (p *pool) grow(capacity int, rng *rand.Rand) {
	old := p.capacity()
	if capacity <= old {
		return
	}

	slots := make([]Slot, capacity)
	spins := make([]spin, capacity)
	copy(slots, p.slots)
	copy(spins, p.spins)

	for i := old; i < capacity; i++ {
		slots[i] = Slot{Rotation: mgl32.QuatIdent()}
		spins[i] = spin{
			axis:  randomAxis(rng),
			phase: rng.Float32() * 2 * math.Pi,
		}
	}

	p.slots = slots
	p.spins = spins
	p.matrices = make([]mgl32.Mat4, capacity)
	p.colors = make([]uint32, capacity)
}

// release drops the backing buffers.
func (p *pool) release() {
	p.slots = nil
	p.spins = nil
	p.matrices = nil
	p.colors = nil
}

// randomAxis returns a uniformly distributed unit vector.
func randomAxis(rng *rand.Rand) mgl32.Vec3 {
	z := rng.Float32()*2 - 1
	theta := rng.Float32() * 2 * math.Pi
	r := float32(math.Sqrt(float64(1 - z*z)))
	return mgl32.Vec3{
		r * float32(math.Cos(float64(theta))),
		r * float32(math.Sin(float64(theta))),
		z,
	}
}

// growCapacity returns the new capacity for a cloud of n particles.
func growCapacity(n int, growth float64, floor int) int {
	c := int(math.Ceil(float64(n) * growth))
	if c < n {
		c = n
	}
	if c < floor {
		c = floor
	}
	return c
}
