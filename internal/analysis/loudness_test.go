// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestNormalizerBoostCurve(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	if got := n.Boost(0); got != 1 {
		t.Errorf("Boost(0) = %g, want 1", got)
	}
	// Half-way up the bars the boost is 1 + 0.5^1.5 * 3.
	if got, want := n.Boost(32), 1+math.Pow(0.5, 1.5)*3; math.Abs(got-want) > 1e-12 {
		t.Errorf("Boost(32) = %g, want %g", got, want)
	}
	top := n.Boost(DefaultBarCount - 1)
	if top <= 3.5 || top >= 4 {
		t.Errorf("Boost(top) = %g, want just under 4", top)
	}
	for i := 1; i < DefaultBarCount; i++ {
		if n.Boost(i) <= n.Boost(i-1) {
			t.Fatalf("boost curve not increasing at bar %d", i)
		}
	}
}

func TestNormalizerLevel(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	tests := []struct {
		name string
		m    float64
		want float64
	}{
		{"silence", 0, 0},
		{"below floor", 1e-20, 0},
		{"-60 dB", 1e-3, 0},
		{"-80 dB clamps", 1e-4, 0},
		{"-30 dB", math.Pow(10, -30.0/20), 0.5},
		{"-6 dB", math.Pow(10, -6.0/20), 0.9},
		{"0 dB", 1, 1},
		{"+6 dB clamps", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Level(tt.m); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Level(%g) = %g, want %g", tt.m, got, tt.want)
			}
		})
	}
}

func TestNormalizerIntensity(t *testing.T) {
	n := NewNormalizer(DefaultConfig())

	if got := n.Intensity(0, 0); got != 0 {
		t.Errorf("silence on bar 0 = %g, want 0", got)
	}
	// -30 dB on bar 0: 0.5 * 1.5 * 1.0.
	if got := n.Intensity(0, math.Pow(10, -30.0/20)); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Intensity(0, -30 dB) = %g, want 0.75", got)
	}
	// Full scale anywhere hits the ceiling.
	if got := n.Intensity(0, 1); got != DefaultCeiling {
		t.Errorf("Intensity(0, 0 dB) = %g, want ceiling %g", got, DefaultCeiling)
	}
}

func TestNormalizerOutputBounded(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	magnitudes := []float64{0, 1e-300, 1e-10, 1e-6, 1e-3, 0.01, 0.1, 0.5, 1, 10, 1e6, math.MaxFloat64}

	for bar := range DefaultBarCount {
		for _, m := range magnitudes {
			v := n.Intensity(bar, m)
			if math.IsNaN(v) || v < 0 || v > DefaultCeiling {
				t.Fatalf("Intensity(%d, %g) = %g, outside [0, %g]", bar, m, v, DefaultCeiling)
			}
		}
	}
}

func TestNormalizerAlternateDynamicRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DynamicRangeDB = 90
	cfg.Sensitivity = 1
	cfg.BoostGain = 0
	n := NewNormalizer(cfg)

	// -60 dB is silent with a 60 dB range but a third of the way up with 90 dB.
	if got, want := n.Intensity(5, 1e-3), 1.0/3; math.Abs(got-want) > 1e-12 {
		t.Errorf("Intensity with 90 dB range = %g, want %g", got, want)
	}
	if got := n.Boost(DefaultBarCount - 1); got != 1 {
		t.Errorf("zero boost gain should give a flat curve, got %g", got)
	}
}

func TestNormalizerHotPath(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	aggregates := make([]float64, DefaultBarCount)
	for i := range aggregates {
		aggregates[i] = float64(i) / DefaultBarCount
	}

	allocs := testing.AllocsPerRun(100, func() {
		n.Apply(aggregates)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Normalizer.Apply, got %.1f", allocs)
	}
}
