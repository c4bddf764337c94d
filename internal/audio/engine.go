// SPDX-License-Identifier: MIT
/*
Package audio captures live input through PortAudio and replays WAV files,
feeding mono sample chunks to an analysis.Ingester.

Thread Safety:
- The PortAudio callback only copies into pre-allocated buffers
- A single worker goroutine ingests chunks in arrival order
- Recording state is toggled atomically and written by the worker
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"visualizer/internal/analysis"
	"visualizer/internal/config"
	"visualizer/internal/log"
)

type Engine struct {
	// Core configuration and the downstream pipeline.
	config   *config.Config
	ingester analysis.Ingester

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Buffer pool shared by the callback and the worker. Every buffer is
	// either in free, in work, or held by the worker.
	free    chan []float32
	work    chan []float32
	done    chan struct{}
	wg      sync.WaitGroup
	mono    []float64 // Channel 0 of the chunk being ingested
	dropped atomic.Uint64
	running bool

	// Recording state and buffers.
	recMu       sync.Mutex
	isRecording atomic.Bool
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine resolves the configured input device and prepares an engine
// that delivers captured audio to ingester.
func NewEngine(cfg *config.Config, ingester analysis.Ingester) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Audio.InputChannels {
		return nil, fmt.Errorf("device %s supports %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Audio.InputChannels)
	}

	engine := newEngine(cfg, ingester)
	engine.inputDevice = inputDevice

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// newEngine allocates the buffer pool without touching PortAudio.
func newEngine(cfg *config.Config, ingester analysis.Ingester) *Engine {
	depth := cfg.Audio.QueueDepth
	size := cfg.Audio.FramesPerBuffer * cfg.Audio.InputChannels

	e := &Engine{
		config:   cfg,
		ingester: ingester,
		free:     make(chan []float32, depth),
		work:     make(chan []float32, depth),
		mono:     make([]float64, cfg.Audio.FramesPerBuffer),
	}
	for range depth {
		e.free <- make([]float32, size)
	}
	return e
}

// StartInputStream starts the worker and opens the PortAudio input stream.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	e.startWorker()

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		e.stopWorker()
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		e.stopWorker()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	log.L().Info("audio: input stream started",
		zap.String("device", e.inputDevice.Name),
		zap.Float64("sample_rate", e.config.Audio.SampleRate),
		zap.Int("frames_per_buffer", e.config.Audio.FramesPerBuffer),
		zap.Int("channels", e.config.Audio.InputChannels),
		zap.Duration("latency", e.inputLatency),
	)
	return nil
}

// StopInputStream stops the stream, then lets the worker drain what was
// already queued.
func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	e.stopWorker()
	return nil
}

// Dropped reports how many input buffers were discarded because the worker
// had fallen behind.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

func (e *Engine) startWorker() {
	if e.running {
		return
	}
	e.running = true
	e.done = make(chan struct{})
	e.wg.Add(1)
	go e.run(e.done)
}

func (e *Engine) stopWorker() {
	if !e.running {
		return
	}
	close(e.done)
	e.wg.Wait()
	e.running = false
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Never blocks and never allocates
// - Drops the chunk when the pool is exhausted
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	select {
	case buf := <-e.free:
		n := copy(buf[:cap(buf)], in)
		// work has room for every pooled buffer, so this never blocks.
		e.work <- buf[:n]
	default:
		e.dropped.Add(1)
	}
}

func (e *Engine) run(done <-chan struct{}) {
	defer e.wg.Done()

	var reported uint64
	for {
		select {
		case buf := <-e.work:
			e.process(buf)
			reported = e.reportDrops(reported)
		case <-done:
			for {
				select {
				case buf := <-e.work:
					e.process(buf)
				default:
					e.reportDrops(reported)
					return
				}
			}
		}
	}
}

// process records the raw interleaved chunk, extracts channel 0 and
// ingests it, then returns the buffer to the pool.
func (e *Engine) process(buf []float32) {
	e.record(buf)

	channels := e.config.Audio.InputChannels
	frames := len(buf) / channels
	mono := e.mono[:frames]
	for i := range mono {
		mono[i] = float64(buf[i*channels])
	}

	if e.ingester != nil {
		e.ingester.Ingest(mono)
	}

	e.free <- buf
}

func (e *Engine) reportDrops(reported uint64) uint64 {
	if d := e.dropped.Load(); d != reported {
		log.Warnf("audio: dropped %d input buffers (total %d)", d-reported, d)
		return d
	}
	return reported
}
