// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"visualizer/internal/config"
	"visualizer/internal/log"
)

// RecordingPath resolves where a recording starting at now is written.
func RecordingPath(cfg config.RecordingConfig, now time.Time) string {
	name := cfg.OutputFile
	if name == "" {
		name = "recording-" + now.Format("20060102-150405") + ".wav"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.OutputDir, name)
}

// StartRecording begins writing every captured input channel to a PCM WAV
// file at the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	bitDepth := e.config.Recording.BitDepth
	if bitDepth == 0 {
		bitDepth = config.DefaultRecordingBitDepth
	}
	channels := e.config.Audio.InputChannels
	sampleRate := int(e.config.Audio.SampleRate)

	e.wavEncoder = wav.NewEncoder(file, sampleRate, bitDepth, channels, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*channels),
		SourceBitDepth: bitDepth,
	}

	e.isRecording.Store(true)
	log.Infof("audio: recording to %s (%d-bit, %d ch)", filename, bitDepth, channels)

	return nil
}

func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

// IsRecording reports whether captured audio is being written to disk.
func (e *Engine) IsRecording() bool {
	return e.isRecording.Load()
}

// record converts float samples to integer PCM and appends them to the
// open WAV file.
func (e *Engine) record(buf []float32) {
	if !e.isRecording.Load() {
		return
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	scale := float64(int(1)<<(e.sampleBuf.SourceBitDepth-1) - 1)
	data := e.sampleBuf.Data[:len(buf)]
	for i, sample := range buf {
		s := float64(sample)
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * scale)
	}
	e.sampleBuf.Data = data

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		log.Errorf("audio: error writing to WAV file: %v", err)
	}
}

func (e *Engine) Close() error {
	if err := e.StopInputStream(); err != nil {
		return err
	}

	return e.StopRecording()
}
