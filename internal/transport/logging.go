// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"visualizer/internal/log"
)

// LoggingTransport writes a one-line summary of every frame at debug level.
type LoggingTransport struct {
	frames atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the loudest bar of the frame.
func (lt *LoggingTransport) Send(bars []float64) error {
	n := lt.frames.Add(1)
	if len(bars) == 0 {
		log.L().Debug("transport: empty frame", zap.Uint64("frame", n))
		return nil
	}

	peak := floats.MaxIdx(bars)
	log.L().Debug("transport: frame",
		zap.Uint64("frame", n),
		zap.Int("bars", len(bars)),
		zap.Int("peak_bar", peak),
		zap.Float64("peak", bars[peak]),
		zap.Float64("mean", floats.Sum(bars)/float64(len(bars))),
	)
	return nil
}

// Frames reports how many frames have been logged.
func (lt *LoggingTransport) Frames() uint64 {
	return lt.frames.Load()
}

func (lt *LoggingTransport) Close() error {
	log.Infof("transport: LoggingTransport closed after %d frames", lt.frames.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
