package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/field"
)

// boundsPenalty weights how far the optimizer strays outside [0,1].
const boundsPenalty = 10.0

// FitnessEvaluator scores recipes by how close their extraction yield lands
// to the target.
type FitnessEvaluator struct {
	params *ParamVector
	target float64
	gens   []*field.Generator

	mu        sync.Mutex
	lastYield float64
}

// NewFitnessEvaluator creates one generator per seed.
func NewFitnessEvaluator(params *ParamVector, target float64, seeds []int64, cfg *config.Config) *FitnessEvaluator {
	fe := &FitnessEvaluator{params: params, target: target}
	for _, s := range seeds {
		fe.gens = append(fe.gens, field.NewGenerator(cfg, s))
	}
	return fe
}

// LastYield returns the mean yield from the most recent evaluation.
func (fe *FitnessEvaluator) LastYield() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastYield
}

// Yield returns the mean extraction yield of p across all seeds.
func (fe *FitnessEvaluator) Yield(p field.Params) float64 {
	yields := make([]float64, len(fe.gens))
	var wg sync.WaitGroup
	for i, g := range fe.gens {
		wg.Add(1)
		go func(idx int, g *field.Generator) {
			defer wg.Done()
			yields[idx] = g.ExtractionYield(p)
		}(i, g)
	}
	wg.Wait()

	var sum float64
	for _, y := range yields {
		sum += y
	}
	return sum / float64(len(yields))
}

// Evaluate computes fitness for raw parameter values (lower = better):
// squared yield error plus a penalty for leaving the parameter box.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	clamped := fe.params.Clamp(raw)
	var outside float64
	for i := range raw {
		d := raw[i] - clamped[i]
		outside += d * d
	}

	y := fe.Yield(fe.params.Params(clamped))
	fe.mu.Lock()
	fe.lastYield = y
	fe.mu.Unlock()

	if math.IsNaN(y) {
		return math.Inf(1)
	}
	e := y - fe.target
	return e*e + boundsPenalty*outside
}
