// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"visualizer/internal/log"
)

// Pipeline owns every analysis stage and runs them, in order, on each
// complete frame of the incoming stream. It is safe for concurrent use:
// chunks may arrive from a capture thread while other goroutines read the
// bar state.
//
// Locking: mu guards all per-frame state for the duration of one Ingest
// call and is released before the sink is called. Sink delivery is then
// ordered by ticket, so frames reach the sink in the order their chunks
// were ingested even though no lock is held across Send.
type Pipeline struct {
	cfg        Config
	sampleRate float64
	bands      BandMap
	sink       Sink

	mu          sync.Mutex
	accumulator *Accumulator
	window      Window
	windowed    []float64
	transform   *Transform
	bucketizer  *Bucketizer
	normalizer  *Normalizer
	smoother    *Smoother
	pending     [][]float64 // Frames produced by the current Ingest call.
	nextTicket  uint64

	emitMu   sync.Mutex
	emitCond *sync.Cond
	serving  uint64 // Ticket whose frames may be delivered now.

	frames atomic.Uint64
}

// NewPipeline validates cfg and builds a pipeline for a stream at
// sampleRate Hz. The transform plan, window and bin mapping are computed
// here once. A stream whose sample rate changes needs a new pipeline.
// sink may be nil, in which case results are only available via Bars.
func NewPipeline(cfg Config, sampleRate float64, sink Sink) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidConfig, sampleRate)
	}

	bands := NewBandMap(cfg.BarCount, cfg.MinFreq, cfg.MaxFreq)
	p := &Pipeline{
		cfg:         cfg,
		sampleRate:  sampleRate,
		bands:       bands,
		sink:        sink,
		accumulator: NewAccumulator(cfg.FrameLength),
		window:      NewWindow(cfg.FrameLength, cfg.Window),
		windowed:    make([]float64, cfg.FrameLength),
		transform:   NewTransform(cfg.FrameLength),
		bucketizer:  NewBucketizer(bands, sampleRate, cfg.FrameLength),
		normalizer:  NewNormalizer(cfg),
		smoother:    NewSmoother(cfg.BarCount, cfg.RiseRate, cfg.FallRate),
	}
	p.emitCond = sync.NewCond(&p.emitMu)

	if cfg.MaxFreq > sampleRate/2 {
		log.L().Warn("analysis: max frequency above Nyquist, top bars will read the last bin",
			zap.Float64("max_freq", cfg.MaxFreq),
			zap.Float64("nyquist", sampleRate/2))
	}
	log.L().Info("analysis: pipeline ready",
		zap.Int("frame_length", cfg.FrameLength),
		zap.Int("bars", cfg.BarCount),
		zap.Float64("sample_rate", sampleRate),
		zap.Float64("resolution_hz", sampleRate/float64(cfg.FrameLength)),
		zap.Stringer("window", cfg.Window))

	return p, nil
}

// Ingest feeds one capture chunk through the pipeline and delivers one
// bar vector to the sink per completed frame. It returns the number of
// frames completed. The sink must not call Ingest.
func (p *Pipeline) Ingest(chunk []float64) int {
	p.mu.Lock()
	n := p.accumulator.Push(chunk, p.processFrame)
	out := p.pending
	p.pending = nil
	ticket := p.nextTicket
	if len(out) > 0 {
		p.nextTicket++
	}
	p.mu.Unlock()

	if len(out) > 0 {
		p.emit(ticket, out)
	}
	return n
}

// processFrame runs one frame through window, transform, bucketing,
// loudness and smoothing. Called with mu held.
func (p *Pipeline) processFrame(frame []float64) {
	p.window.Apply(p.windowed, frame)
	magnitude := p.transform.Magnitudes(p.windowed)
	aggregates := p.bucketizer.Aggregate(magnitude)
	intensities := p.normalizer.Apply(aggregates)
	bars := p.smoother.Update(intensities)
	p.frames.Add(1)

	if p.sink != nil {
		out := make([]float64, len(bars))
		copy(out, bars)
		p.pending = append(p.pending, out)
	}
}

// emit waits for ticket's turn and hands frames to the sink without
// holding any lock during Send.
func (p *Pipeline) emit(ticket uint64, frames [][]float64) {
	p.emitMu.Lock()
	for p.serving != ticket {
		p.emitCond.Wait()
	}
	p.emitMu.Unlock()

	// Pass the turn on even if Send panics.
	defer func() {
		p.emitMu.Lock()
		p.serving++
		p.emitCond.Broadcast()
		p.emitMu.Unlock()
	}()

	for _, bars := range frames {
		if err := p.sink.Send(bars); err != nil {
			log.L().Debug("analysis: sink dropped frame", zap.Error(err))
		}
	}
}

// Bars returns a copy of the current smoothed bar values.
func (p *Pipeline) Bars() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.smoother.Values()
}

// Frames returns how many frames have been processed.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// Bands returns a copy of the pipeline's band map.
func (p *Pipeline) Bands() BandMap {
	return slices.Clone(p.bands)
}

// BinRanges returns the spectrum bins each bar averages.
func (p *Pipeline) BinRanges() []BinRange {
	return p.bucketizer.Ranges()
}

// SampleRate returns the stream sample rate the pipeline was built for.
func (p *Pipeline) SampleRate() float64 {
	return p.sampleRate
}

// Config returns the configuration the pipeline was built from.
func (p *Pipeline) Config() Config {
	return p.cfg
}
