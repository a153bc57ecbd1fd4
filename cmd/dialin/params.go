package main

import "github.com/pthm-cable/pourover/field"

// ParamSpec defines a single tunable brewing parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// ParamVector holds the tuned parameters and the fixed rest of the recipe.
type ParamVector struct {
	Specs []ParamSpec
	Base  field.Params
}

// NewParamVector tunes grind size and temperature around base.
func NewParamVector(base field.Params) *ParamVector {
	base = base.Clamp()
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "grind_size", Min: 0, Max: 1, Default: base.GrindSize},
			{Name: "temperature", Min: 0, Max: 1, Default: base.Temperature},
		},
		Base: base,
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// Params returns the full recipe for raw values. Order matches Specs.
func (pv *ParamVector) Params(raw []float64) field.Params {
	c := pv.Clamp(raw)
	p := pv.Base
	p.GrindSize = c[0]
	p.Temperature = c[1]
	return p
}
