package field

import (
	"math"

	"github.com/pthm-cable/pourover/config"
)

// Derived holds the intermediate quantities of the stylized brewing model.
type Derived struct {
	Resistance  float64 // Flow resistance, 1 (coarse) to 5 (fine)
	FlowRate    float64 // Gravity-driven flow in [0,1]
	Solubility  float64 // Increasing in temperature
	SurfaceArea float64 // Grind surface-area proxy, finer is larger
	BedHeight   float64 // Mean bed top above the brewer base
	PourHeight  float64 // Water column poured above the bed
	Drained     float64 // Fraction of the pour that has drained through
	WaterLevel  float64 // Current water surface height
	WetDepth    float64 // Fraction of bed depth reached by the wetting front
	Poured      bool    // False for an all-dry bed
}

// Derive computes the physical quantities for p.
func Derive(p Params, f config.FieldConfig, ph config.PhysicsConfig) Derived {
	p = p.Clamp()

	var d Derived
	d.Resistance = 1 / (0.2 + 0.8*p.GrindSize)
	flow := ph.Gravity / d.Resistance
	if p.Shape == ShapeFlat {
		flow *= ph.FlatDrainFactor
	}
	d.FlowRate = clamp01(flow * (1 + 0.25*p.Agitation))
	d.Solubility = 0.15 + 0.85*math.Pow(p.Temperature, 1.5)
	d.SurfaceArea = 1.5 - p.GrindSize

	// More water per gram of coffee means a shallower bed.
	d.BedHeight = f.ConeHeight * f.BedFraction * (1.2 - 0.4*p.Ratio)
	d.PourHeight = (f.ConeHeight - d.BedHeight) * (0.5 + 0.5*p.Ratio)

	d.Poured = p.Time > 0 && p.Temperature > 0
	d.WaterLevel = d.BedHeight
	if !d.Poured {
		return d
	}

	d.Drained = clamp01(p.Time * d.FlowRate * ph.DrainRate)
	d.WaterLevel = d.BedHeight + d.PourHeight*(1-d.Drained)
	d.WetDepth = clamp01(p.Time * ph.WettingRate * (0.5 + 0.5*d.FlowRate))
	return d
}

// FullyDrained reports whether no free water remains above the bed.
func (d Derived) FullyDrained() bool {
	return d.Poured && d.Drained >= 1
}

// saturation is the wet fraction of a bed cell at normalized depth (0 = top).
func (d Derived) saturation(p Params, depth float64) float64 {
	if !d.Poured || depth > d.WetDepth {
		return 0
	}
	return clamp01(p.Time*(1+p.Agitation)*1.5 - depth)
}

// exposure approximates cumulative extraction: wetness x time x solubility x surface area.
func (d Derived) exposure(p Params, sat, gain float64) float64 {
	return clamp01(sat * p.Time * d.Solubility * d.SurfaceArea * gain)
}
