// SPDX-License-Identifier: MIT

// Package utils holds signal generators and sink doubles shared by tests.
package utils

import (
	"math"
	"sync"
)

// RecordingSink stores a copy of every frame it is sent.
type RecordingSink struct {
	mu     sync.Mutex
	frames [][]float64
	Err    error // Returned from every Send call.
}

// Send stores a copy of bars and returns r.Err.
func (r *RecordingSink) Send(bars []float64) error {
	frame := make([]float64, len(bars))
	copy(frame, bars)

	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
	return r.Err
}

// Frames returns the recorded frames in arrival order.
func (r *RecordingSink) Frames() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]float64, len(r.frames))
	copy(out, r.frames)
	return out
}

// Last returns the most recent frame, or nil if none arrived.
func (r *RecordingSink) Last() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// Len returns the number of recorded frames.
func (r *RecordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics,
// peaking just below full scale.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = signal * 0.9
	}
	return buffer
}

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * amplitude
	}
	return buffer
}

// SplitChunks cuts samples into consecutive chunks whose lengths cycle
// through sizes. The final chunk may be shorter. Zero sizes yield empty
// chunks, which capture sources are allowed to deliver.
func SplitChunks(samples []float64, sizes []int) [][]float64 {
	if len(sizes) == 0 {
		return [][]float64{samples}
	}
	var chunks [][]float64
	for i, off := 0, 0; off < len(samples); i++ {
		n := min(sizes[i%len(sizes)], len(samples)-off)
		chunks = append(chunks, samples[off:off+n])
		off += n
		if i > 4*len(samples)+len(sizes) {
			break // all sizes are zero
		}
	}
	return chunks
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
