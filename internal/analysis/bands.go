// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band is the frequency range covered by one bar, in Hz.
type Band struct {
	Low  float64
	High float64
}

// Center returns the geometric centre of the band.
func (b Band) Center() float64 {
	return math.Sqrt(b.Low * b.High)
}

// BandMap is the ordered list of bar ranges. Adjacent bands share an
// edge, so BandMap[i].High == BandMap[i+1].Low.
type BandMap []Band

// NewBandMap splits [minFreq, maxFreq] into count logarithmically spaced,
// contiguous bands. Edge i is minFreq*(maxFreq/minFreq)^(i/count), so
// band widths grow exponentially the way pitch perception does. minFreq is
// clamped to 1 Hz to keep the logarithm defined.
func NewBandMap(count int, minFreq, maxFreq float64) BandMap {
	if count <= 0 {
		return BandMap{}
	}
	minFreq = math.Max(minFreq, 1)
	logMin := math.Log(minFreq)
	logSpan := math.Log(maxFreq) - logMin

	edge := func(i int) float64 {
		switch i {
		case 0:
			return minFreq
		case count:
			return maxFreq
		}
		return math.Exp(logMin + logSpan*float64(i)/float64(count))
	}

	bands := make(BandMap, count)
	low := edge(0)
	for i := range count {
		high := edge(i + 1)
		bands[i] = Band{Low: low, High: high}
		low = high
	}
	return bands
}

// Position returns where freq falls on the map's log scale, 0 at the
// lowest edge and 1 at the highest. Values outside the map extend past
// [0,1]; frequencies below 1 Hz are treated as 1 Hz.
func (m BandMap) Position(freq float64) float64 {
	if len(m) == 0 {
		return 0
	}
	logMin := math.Log(math.Max(m[0].Low, 1))
	logMax := math.Log(m[len(m)-1].High)
	return (math.Log(math.Max(freq, 1)) - logMin) / (logMax - logMin)
}

// Index returns the bar whose range contains freq, or -1 when freq lies
// outside the map. Ranges are half-open except the last, which includes
// its upper edge.
func (m BandMap) Index(freq float64) int {
	if len(m) == 0 || freq < m[0].Low || freq > m[len(m)-1].High {
		return -1
	}
	lo, hi := 0, len(m)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if freq < m[mid].High {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
