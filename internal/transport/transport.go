// SPDX-License-Identifier: MIT

// Package transport delivers bar frames to displays outside the analyzer.
package transport

import (
	"errors"

	"visualizer/internal/analysis"
)

// Transport is a display sink. Send receives each emitted bar frame in
// order; implementations must not retain bars past the call unless they
// copy it. Implementations should be thread-safe.
type Transport interface {
	Send(bars []float64) error
	Close() error
}

var _ analysis.Sink = Transport(nil)

type multi []Transport

// Multi fans every frame out to each transport. Nil entries are skipped.
func Multi(transports ...Transport) Transport {
	m := make(multi, 0, len(transports))
	for _, t := range transports {
		if t == nil {
			continue
		}
		if inner, ok := t.(multi); ok {
			m = append(m, inner...)
			continue
		}
		m = append(m, t)
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) Send(bars []float64) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(bars); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
