// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"testing"
)

const freqTolerance = 1e-9

func TestNewBandMapProperties(t *testing.T) {
	tests := []struct {
		count    int
		min, max float64
	}{
		{1, 20, 20000},
		{8, 20, 20000},
		{64, 20, 20000},
		{64, 50, 16000},
		{128, 1, 24000},
		{3, 100, 101},
		{256, 30, 22050},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d bars %g-%g Hz", tt.count, tt.min, tt.max), func(t *testing.T) {
			bands := NewBandMap(tt.count, tt.min, tt.max)

			if len(bands) != tt.count {
				t.Fatalf("len(bands) = %d, want %d", len(bands), tt.count)
			}
			if math.Abs(bands[0].Low-tt.min) > freqTolerance*tt.min {
				t.Errorf("first edge = %g, want %g", bands[0].Low, tt.min)
			}
			if math.Abs(bands[tt.count-1].High-tt.max) > freqTolerance*tt.max {
				t.Errorf("last edge = %g, want %g", bands[tt.count-1].High, tt.max)
			}
			for i, b := range bands {
				if !(b.Low < b.High) {
					t.Errorf("band %d not increasing: %+v", i, b)
				}
				if i > 0 && bands[i-1].High != b.Low {
					t.Errorf("bands %d and %d not contiguous: %g != %g", i-1, i, bands[i-1].High, b.Low)
				}
			}
		})
	}
}

func TestNewBandMapEdgesFollowLogScale(t *testing.T) {
	const count = 64
	bands := NewBandMap(count, DefaultMinFreq, DefaultMaxFreq)
	ratio := DefaultMaxFreq / DefaultMinFreq

	for i, b := range bands {
		want := DefaultMinFreq * math.Pow(ratio, float64(i)/count)
		if math.Abs(b.Low-want) > 1e-9*want {
			t.Errorf("edge %d = %.12g, want %.12g", i, b.Low, want)
		}
	}

	// Every band spans the same ratio on a log scale.
	step := math.Pow(ratio, 1.0/count)
	for i, b := range bands {
		if got := b.High / b.Low; math.Abs(got-step) > 1e-9 {
			t.Errorf("band %d ratio = %g, want %g", i, got, step)
		}
	}
}

func TestNewBandMapClampsMinFrequency(t *testing.T) {
	bands := NewBandMap(16, 0.25, 1000)
	if bands[0].Low != 1 {
		t.Errorf("min frequency should clamp to 1 Hz, got %g", bands[0].Low)
	}
	for i, b := range bands {
		if math.IsNaN(b.Low) || math.IsInf(b.Low, 0) || math.IsNaN(b.High) {
			t.Errorf("band %d has non-finite edge: %+v", i, b)
		}
	}
}

func TestBandMapIndex(t *testing.T) {
	bands := NewBandMap(DefaultBarCount, DefaultMinFreq, DefaultMaxFreq)

	tests := []struct {
		freq float64
		want int
	}{
		{10, -1},
		{DefaultMinFreq, 0},
		{bands[10].Low, 10},
		{bands[10].Center(), 10},
		{bands[10].High, 11},
		{DefaultMaxFreq, DefaultBarCount - 1},
		{DefaultMaxFreq + 1, -1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.3fHz", tt.freq), func(t *testing.T) {
			if got := bands.Index(tt.freq); got != tt.want {
				t.Errorf("Index(%g) = %d, want %d", tt.freq, got, tt.want)
			}
		})
	}
}

func TestBandMapPosition(t *testing.T) {
	bands := NewBandMap(DefaultBarCount, DefaultMinFreq, DefaultMaxFreq)

	if got := bands.Position(DefaultMinFreq); math.Abs(got) > 1e-12 {
		t.Errorf("Position(min) = %g, want 0", got)
	}
	if got := bands.Position(DefaultMaxFreq); math.Abs(got-1) > 1e-12 {
		t.Errorf("Position(max) = %g, want 1", got)
	}
	// 632.455 Hz is the geometric middle of 20 Hz - 20 kHz.
	if got := bands.Position(math.Sqrt(DefaultMinFreq * DefaultMaxFreq)); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Position(geometric mean) = %g, want 0.5", got)
	}
	if got := bands.Position(0); got >= 0 {
		t.Errorf("Position(0) should fall below the map, got %g", got)
	}
}
