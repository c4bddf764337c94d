// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"visualizer/cmd"
	"visualizer/internal/analysis"
	"visualizer/internal/audio"
	"visualizer/internal/config"
	"visualizer/internal/log"
	"visualizer/internal/transport"
	"visualizer/internal/transport/udp"
	"visualizer/internal/tui"
	"visualizer/pkg/build"
)

// main is the entry point for the spectrum analyzer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Build the display sinks and the analysis pipeline
//
// 2. Concurrent Phase (Hot Path):
//   - Capture audio (or replay a file) into the pipeline
//   - Emit bar frames to every sink
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or the terminal UI quitting
//   - Stop recording if active
//   - Close the engine and sinks
func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("build: %v, using development build info", err)
	}

	cfg, err := cmd.ParseArgs()
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil // help or version
	}

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	defer log.Sync()

	switch cfg.Command {
	case cmd.CommandList:
		return withPortAudio(audio.ListDevices)
	case cmd.CommandAnalyze:
		return analyzeFile(cfg)
	default:
		return withPortAudio(func() error { return capture(cfg) })
	}
}

func withPortAudio(fn func() error) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			log.Warnf("%v", err)
		}
	}()
	return fn()
}

// sinks bundles the configured display transports.
type sinks struct {
	transport.Transport
	display *tui.Display
	started bool
	logFile *os.File
}

func buildSinks(cfg *config.Config, pc analysis.Config) (*sinks, error) {
	var (
		all []transport.Transport
		s   = &sinks{}
	)
	fail := func(err error) (*sinks, error) {
		transport.Multi(all...).Close()
		return nil, err
	}

	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WSAddress)
		all = append(all, ws)
		if err := ws.Start(); err != nil {
			return fail(err)
		}
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return fail(err)
		}
		pub, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, pc.BarCount)
		if err != nil {
			sender.Close()
			return fail(err)
		}
		pub.Start()
		all = append(all, pub)
	}

	if cfg.Transport.LogFrames {
		all = append(all, transport.NewLoggingTransport())
	}

	if cfg.Transport.TUI {
		// The terminal belongs to the UI; keep logs out of it.
		f, err := os.Create("visualizer.log")
		if err != nil {
			return fail(fmt.Errorf("failed to create log file: %w", err))
		}
		log.SetOutput(f)
		s.logFile = f

		title := fmt.Sprintf("%s %s", build.GetBuildFlags().Name, build.GetBuildFlags().Version)
		s.display = tui.NewDisplay(title, analysis.NewBandMap(pc.BarCount, pc.MinFreq, pc.MaxFreq), pc.Ceiling)
		all = append(all, s.display)
	}

	s.Transport = transport.Multi(all...)
	return s, nil
}

// start runs the terminal UI, if any. The returned channel is closed when
// the user quits it and never closed otherwise.
func (s *sinks) start() <-chan struct{} {
	if s.display == nil {
		return nil
	}
	s.started = true
	go func() {
		if err := s.display.Run(); err != nil {
			log.Errorf("tui: %v", err)
		}
	}()
	return s.display.Done()
}

func (s *sinks) Close() error {
	err := s.Transport.Close()
	if s.started {
		<-s.display.Done()
	}
	if s.logFile != nil {
		log.SetOutput(os.Stderr)
		err = errors.Join(err, s.logFile.Close())
	}
	return err
}

func capture(cfg *config.Config) error {
	if cfg.PickDevice {
		id, ok, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = id
	}

	pc, err := cfg.Analysis.Pipeline()
	if err != nil {
		return err
	}

	out, err := buildSinks(cfg, pc)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warnf("closing sinks: %v", err)
		}
	}()

	pipeline, err := analysis.NewPipeline(pc, cfg.Audio.SampleRate, out)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(cfg, pipeline)
	if err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	quit := out.start()

	// The first call to StartInputStream triggers PortAudio to begin
	// calling the callback function, marking the start of the hot path.
	if err := engine.StartInputStream(); err != nil {
		return err
	}

	var recording string
	if cfg.Recording.Enabled {
		recording = audio.RecordingPath(cfg.Recording, time.Now())
		if err := engine.StartRecording(recording); err != nil {
			engine.Close()
			return err
		}
	}

	// Block until termination signal is received or the UI quits.
	select {
	case <-done:
	case <-quit:
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := engine.Close(); err != nil {
		log.Errorf("closing audio engine: %v", err)
	}
	if recording != "" {
		fmt.Printf("\nRecording saved to: %s\n", recording)
	}

	log.L().Info("capture stopped",
		zap.Uint64("frames", pipeline.Frames()),
		zap.Uint64("dropped_buffers", engine.Dropped()))
	return nil
}

func analyzeFile(cfg *config.Config) error {
	src, err := audio.OpenFile(cfg.InputFile)
	if err != nil {
		return err
	}
	defer src.Close()
	src.Realtime = cfg.Realtime

	pc, err := cfg.Analysis.Pipeline()
	if err != nil {
		return err
	}

	out, err := buildSinks(cfg, pc)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warnf("closing sinks: %v", err)
		}
	}()

	pipeline, err := analysis.NewPipeline(pc, src.SampleRate(), out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if quit := out.start(); quit != nil {
		go func() {
			select {
			case <-quit:
				stop()
			case <-ctx.Done():
			}
		}()
	}

	started := time.Now()
	err = src.Stream(ctx, cfg.Audio.FramesPerBuffer, func(chunk []float64) {
		pipeline.Ingest(chunk)
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}

	duration, _ := src.Duration()
	log.L().Info("analysis finished",
		zap.String("file", cfg.InputFile),
		zap.Duration("audio", duration),
		zap.Duration("elapsed", time.Since(started)),
		zap.Uint64("frames", pipeline.Frames()))
	return nil
}
