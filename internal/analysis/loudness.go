// SPDX-License-Identifier: MIT
package analysis

import "math"

// Normalizer maps bar magnitudes to clamped, perceptually scaled
// intensities with a per-bar high-frequency boost.
type Normalizer struct {
	floor       float64
	rangeDB     float64
	sensitivity float64
	ceiling     float64
	boost       []float64 // Precomputed compensation per bar.
	out         []float64
}

// NewNormalizer precomputes the compensation curve for cfg.BarCount bars:
// boost(i) = 1 + (i/B)^BoostExponent * BoostGain, which with the defaults
// rises from 1x at the lowest bar towards 4x at the highest to offset the
// usual roll-off of high-frequency energy.
func NewNormalizer(cfg Config) *Normalizer {
	boost := make([]float64, cfg.BarCount)
	for i := range boost {
		boost[i] = 1 + math.Pow(float64(i)/float64(cfg.BarCount), cfg.BoostExponent)*cfg.BoostGain
	}
	return &Normalizer{
		floor:       cfg.MagnitudeFloor,
		rangeDB:     cfg.DynamicRangeDB,
		sensitivity: cfg.Sensitivity,
		ceiling:     cfg.Ceiling,
		boost:       boost,
		out:         make([]float64, cfg.BarCount),
	}
}

// Boost returns the compensation factor of bar i.
func (n *Normalizer) Boost(i int) float64 {
	return n.boost[i]
}

// Level maps a magnitude to [0,1]: 0 dB full scale maps to 1 and anything
// at or below -rangeDB maps to 0. Magnitudes below the floor are raised to
// it so silence never reaches log10(0).
func (n *Normalizer) Level(m float64) float64 {
	db := 20 * math.Log10(math.Max(m, n.floor))
	return clamp((db+n.rangeDB)/n.rangeDB, 0, 1)
}

// Intensity returns the raw intensity of bar i for magnitude m, capped at
// the ceiling. The ceiling sits above 1 to allow some visual overshoot.
func (n *Normalizer) Intensity(i int, m float64) float64 {
	return math.Min(n.Level(m)*n.sensitivity*n.boost[i], n.ceiling)
}

// Apply converts one aggregate per bar. The returned slice is reused by
// the next call.
func (n *Normalizer) Apply(aggregates []float64) []float64 {
	for i, m := range aggregates {
		n.out[i] = n.Intensity(i, m)
	}
	return n.out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
