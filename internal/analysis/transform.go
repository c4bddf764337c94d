// SPDX-License-Identifier: MIT
package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform is a forward FFT planned once for a fixed frame length and
// reused for every frame. It is not safe for concurrent use; the
// pipeline serialises access.
type Transform struct {
	size      int
	fft       *fourier.FFT // Reusable FFT plan.
	coeffs    []complex128 // N/2+1 non-negative frequency coefficients.
	magnitude []float64    // N/2 scaled magnitudes.
	scale     float64      // 2/N amplitude normalisation.
}

// NewTransform plans an FFT of the given size. size must be a power of
// two; Config.Validate enforces this before a pipeline builds one.
func NewTransform(size int) *Transform {
	return &Transform{
		size:      size,
		fft:       fourier.NewFFT(size),
		coeffs:    make([]complex128, size/2+1),
		magnitude: make([]float64, size/2),
		scale:     2 / float64(size),
	}
}

// Size returns the frame length the transform was planned for.
func (t *Transform) Size() int {
	return t.size
}

// Coefficients transforms a windowed frame of Size() samples. For real
// input the upper half of the spectrum mirrors the lower half as complex
// conjugates, so only the N/2+1 non-negative frequency terms are
// returned. The slice is reused by the next call.
func (t *Transform) Coefficients(frame []float64) []complex128 {
	return t.fft.Coefficients(t.coeffs, frame)
}

// Magnitudes transforms frame and returns |c|*2/N for the first N/2 bins,
// the Nyquist-limited spectrum. The slice is reused by the next call.
func (t *Transform) Magnitudes(frame []float64) []float64 {
	coeffs := t.Coefficients(frame)
	for i := range t.magnitude {
		t.magnitude[i] = cmplx.Abs(coeffs[i]) * t.scale
	}
	return t.magnitude
}

// BinFrequency returns the centre frequency (Hz) of bin i at sampleRate.
func (t *Transform) BinFrequency(i int, sampleRate float64) float64 {
	if i < 0 || i >= len(t.coeffs) {
		return 0
	}
	return t.fft.Freq(i) * sampleRate
}
