// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"

	"visualizer/pkg/bitint"
)

// ErrInvalidConfig is wrapped by every construction-time validation failure.
var ErrInvalidConfig = errors.New("invalid analysis configuration")

// Default analysis constants. The loudness mapping and frequency
// compensation values are empirical, not physical.
const (
	DefaultFrameLength    = 2048
	DefaultBarCount       = 64
	DefaultMinFreq        = 20.0
	DefaultMaxFreq        = 20000.0
	DefaultRiseRate       = 0.5
	DefaultFallRate       = 0.85
	DefaultSensitivity    = 1.5
	DefaultMagnitudeFloor = 1e-10
	DefaultDynamicRangeDB = 60.0
	DefaultBoostGain      = 3.0
	DefaultBoostExponent  = 1.5
	DefaultCeiling        = 1.5

	// minFrameLength is the shortest frame whose spectrum has a bin
	// besides DC.
	minFrameLength = 4
)

// Config is the fixed configuration set a Pipeline is built from. It is
// not mutable once the pipeline exists; changing it means building a new
// pipeline.
type Config struct {
	FrameLength int        // Samples per analysis frame, power of two.
	BarCount    int        // Number of output bars.
	MinFreq     float64    // Lower edge of the first bar (Hz).
	MaxFreq     float64    // Upper edge of the last bar (Hz).
	RiseRate    float64    // Fraction of the gap closed per frame when rising.
	FallRate    float64    // Fraction of the gap kept per frame when falling.
	Sensitivity float64    // Gain applied after dB normalisation.
	Window      WindowFunc // Taper applied before the transform.

	MagnitudeFloor float64 // Smallest magnitude fed to log10.
	DynamicRangeDB float64 // dB span mapped onto [0,1], ending at 0 dB.
	BoostGain      float64 // Extra gain reached at the top bar.
	BoostExponent  float64 // Curve of the high-frequency compensation.
	Ceiling        float64 // Upper bound of a raw bar intensity.
}

// DefaultConfig returns the stock 64-bar, 20 Hz–20 kHz configuration.
func DefaultConfig() Config {
	return Config{
		FrameLength:    DefaultFrameLength,
		BarCount:       DefaultBarCount,
		MinFreq:        DefaultMinFreq,
		MaxFreq:        DefaultMaxFreq,
		RiseRate:       DefaultRiseRate,
		FallRate:       DefaultFallRate,
		Sensitivity:    DefaultSensitivity,
		Window:         Hann,
		MagnitudeFloor: DefaultMagnitudeFloor,
		DynamicRangeDB: DefaultDynamicRangeDB,
		BoostGain:      DefaultBoostGain,
		BoostExponent:  DefaultBoostExponent,
		Ceiling:        DefaultCeiling,
	}
}

// Validate reports the first contract violation in c. Every returned
// error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.FrameLength < minFrameLength:
		return fmt.Errorf("%w: frame length must be at least %d, got %d",
			ErrInvalidConfig, minFrameLength, c.FrameLength)
	case !bitint.IsPowerOfTwo(c.FrameLength):
		return fmt.Errorf("%w: frame length %d is not a power of two (try %d)",
			ErrInvalidConfig, c.FrameLength, bitint.NextPowerOfTwo(c.FrameLength))
	case c.BarCount <= 0:
		return fmt.Errorf("%w: bar count must be positive, got %d", ErrInvalidConfig, c.BarCount)
	case c.MinFreq <= 0:
		return fmt.Errorf("%w: min frequency must be positive, got %g", ErrInvalidConfig, c.MinFreq)
	case c.MinFreq >= c.MaxFreq:
		return fmt.Errorf("%w: min frequency %g must be below max frequency %g",
			ErrInvalidConfig, c.MinFreq, c.MaxFreq)
	case c.RiseRate <= 0 || c.RiseRate > 1:
		return fmt.Errorf("%w: rise rate must be in (0, 1], got %g", ErrInvalidConfig, c.RiseRate)
	case c.FallRate < 0 || c.FallRate >= 1:
		return fmt.Errorf("%w: fall rate must be in [0, 1), got %g", ErrInvalidConfig, c.FallRate)
	case c.Sensitivity <= 0:
		return fmt.Errorf("%w: sensitivity must be positive, got %g", ErrInvalidConfig, c.Sensitivity)
	case c.MagnitudeFloor <= 0:
		return fmt.Errorf("%w: magnitude floor must be positive, got %g", ErrInvalidConfig, c.MagnitudeFloor)
	case c.DynamicRangeDB <= 0:
		return fmt.Errorf("%w: dynamic range must be positive, got %g dB", ErrInvalidConfig, c.DynamicRangeDB)
	case c.BoostGain < 0:
		return fmt.Errorf("%w: boost gain must not be negative, got %g", ErrInvalidConfig, c.BoostGain)
	case c.Ceiling <= 0:
		return fmt.Errorf("%w: ceiling must be positive, got %g", ErrInvalidConfig, c.Ceiling)
	case c.Window < Hann || c.Window > Nuttall:
		return fmt.Errorf("%w: unknown window function %d", ErrInvalidConfig, c.Window)
	}
	return nil
}
