// SPDX-License-Identifier: MIT

/*
Package analysis turns a continuous mono sample stream into smoothed,
perceptually spaced bar values for a real-time spectrum display.

Per analysis frame the pipeline runs, strictly in order:

	Accumulator -> Window -> Transform -> Bucketizer -> Normalizer -> Smoother -> Sink

Only two pieces of state survive between frames: the accumulator's
residual tail and the smoother's bar values. Everything else is a
pre-allocated workspace reused frame over frame.
*/
package analysis

// Sink receives one vector of smoothed bar values per completed frame.
// The slice is owned by the sink. Errors are ignored by the pipeline;
// delivery is fire-and-forget.
type Sink interface {
	Send(bars []float64) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(bars []float64) error

// Send calls f(bars).
func (f SinkFunc) Send(bars []float64) error {
	return f(bars)
}

// Ingester is implemented by anything that consumes raw capture chunks.
// The capture engine depends on this rather than on *Pipeline.
type Ingester interface {
	Ingest(chunk []float64) int
}

// Compile-time checks for interface implementations.
var _ Ingester = (*Pipeline)(nil)
var _ Sink = SinkFunc(nil)
