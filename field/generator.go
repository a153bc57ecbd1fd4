package field

import (
	"math/rand"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/pourover/config"
)

// Generator produces point clouds. Each call draws its randomness from a
// source reseeded from the generator seed, so identical inputs produce
// identical clouds and slider drags move a coherent cloud.
type Generator struct {
	field   config.FieldConfig
	physics config.PhysicsConfig
	palette *Palette
	seed    int64
	noise   opensimplex.Noise
}

// NewGenerator creates a generator from the loaded config.
func NewGenerator(cfg *config.Config, seed int64) *Generator {
	return &Generator{
		field:   cfg.Field,
		physics: cfg.Physics,
		palette: NewPalette(cfg.Derived.Colors),
		seed:    seed,
		noise:   opensimplex.New(seed),
	}
}

// Palette returns the generator's palette.
func (g *Generator) Palette() *Palette {
	return g.palette
}

// MaxParticles returns the hard cap on cloud size.
func (g *Generator) MaxParticles() int {
	return g.field.MaxParticles
}

func (g *Generator) rngFor(salt int64) *rand.Rand {
	return rand.New(rand.NewSource(g.seed*7919 + salt))
}
