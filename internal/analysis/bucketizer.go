// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// BinRange is the half-open spectrum bin interval [Low, High) read by one bar.
type BinRange struct {
	Low  int
	High int
}

// Width returns the number of bins in the range.
func (r BinRange) Width() int {
	return r.High - r.Low
}

// Bucketizer averages spectrum magnitudes into one aggregate per bar.
// Bin ranges are resolved once, since the sample rate is fixed for the
// life of a pipeline.
type Bucketizer struct {
	ranges     []BinRange
	aggregates []float64
}

// NewBucketizer resolves every band of bands to a bin range of a
// spectrum with spectrumLen bins spaced sampleRate/frameLength Hz apart.
//
// The DC bin is never read, and every range holds at least one bin, so at
// low sample rates neighbouring bars may resolve to the same bin and
// read identical values.
func NewBucketizer(bands BandMap, sampleRate float64, frameLength int) *Bucketizer {
	spectrumLen := frameLength / 2
	resolution := sampleRate / float64(frameLength)

	ranges := make([]BinRange, len(bands))
	for i, band := range bands {
		low := clampBin(math.Floor(band.Low/resolution), 1, spectrumLen-1)
		high := clampBin(math.Ceil(band.High/resolution), low+1, spectrumLen)
		ranges[i] = BinRange{Low: low, High: high}
	}

	return &Bucketizer{
		ranges:     ranges,
		aggregates: make([]float64, len(bands)),
	}
}

// clampBin converts a float bin index to an int, raising it to lo and
// then capping it at hi.
func clampBin(bin float64, lo, hi int) int {
	if bin > float64(hi) {
		return hi
	}
	if bin < float64(lo) {
		return min(lo, hi)
	}
	return int(bin)
}

// Ranges returns the resolved bin range of every bar.
func (b *Bucketizer) Ranges() []BinRange {
	out := make([]BinRange, len(b.ranges))
	copy(out, b.ranges)
	return out
}

// Aggregate returns the mean magnitude over each bar's bin range. The
// returned slice is reused by the next call.
func (b *Bucketizer) Aggregate(magnitude []float64) []float64 {
	for i, r := range b.ranges {
		b.aggregates[i] = floats.Sum(magnitude[r.Low:r.High]) / float64(r.Width())
	}
	return b.aggregates
}
