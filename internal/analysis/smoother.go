// SPDX-License-Identifier: MIT
package analysis

// Smoother is an asymmetric one-pole low-pass filter with one state value
// per bar: rising targets are approached quickly, falling ones slowly.
// State starts at zero and lives as long as the smoother.
type Smoother struct {
	rise   float64
	fall   float64
	values []float64
}

// NewSmoother returns a smoother for bars bars. rise is the fraction of
// the gap closed per frame on attack; fall is the fraction of the gap kept
// per frame on release, so the default 0.85 closes only 15% per frame.
func NewSmoother(bars int, rise, fall float64) *Smoother {
	return &Smoother{
		rise:   rise,
		fall:   fall,
		values: make([]float64, bars),
	}
}

// Update moves every bar towards its target and returns the new state.
// The returned slice is the smoother's own state; copy it before handing
// it to anything that outlives the call.
func (s *Smoother) Update(targets []float64) []float64 {
	for i, target := range targets {
		prev := s.values[i]
		if target > prev {
			s.values[i] = prev + (target-prev)*s.rise
		} else {
			s.values[i] = prev + (target-prev)*(1-s.fall)
		}
	}
	return s.values
}

// Values returns a copy of the current state.
func (s *Smoother) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}
