// SPDX-License-Identifier: MIT
package analysis

// Accumulator slices a stream of arbitrarily sized chunks into fixed-size
// frames, carrying leftover samples forward to the next push. Frames come
// out in the order their samples went in; nothing is dropped or reordered
// across chunk boundaries.
type Accumulator struct {
	size int
	tail []float64 // Residual samples, always fewer than size between pushes.
}

// NewAccumulator returns an accumulator producing frames of size samples.
func NewAccumulator(size int) *Accumulator {
	return &Accumulator{
		size: size,
		tail: make([]float64, 0, 2*size),
	}
}

// Push appends chunk to the residual tail and calls fn once for every
// complete frame, oldest first. The frame passed to fn aliases internal
// storage and is only valid until fn returns. Push returns the number of
// frames produced.
func (a *Accumulator) Push(chunk []float64, fn func(frame []float64)) int {
	a.tail = append(a.tail, chunk...)

	frames, off := 0, 0
	for len(a.tail)-off >= a.size {
		fn(a.tail[off : off+a.size])
		off += a.size
		frames++
	}

	if off > 0 {
		n := copy(a.tail, a.tail[off:])
		a.tail = a.tail[:n]
	}
	return frames
}

// Residual returns how many samples are waiting for the next frame.
func (a *Accumulator) Residual() int {
	return len(a.tail)
}

// Size returns the frame length.
func (a *Accumulator) Size() int {
	return a.size
}
