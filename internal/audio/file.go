// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for WAV files that are not integer PCM
// at 16, 24 or 32 bits.
var ErrUnsupportedFormat = errors.New("unsupported WAV format")

// FileSource replays a PCM WAV file as mono chunks in [-1, 1].
type FileSource struct {
	file       *os.File
	decoder    *wav.Decoder
	sampleRate float64
	channels   int
	bitDepth   int

	// Realtime paces Stream at the file's own sample rate.
	Realtime bool
}

// OpenFile opens path and reads its WAV header.
func OpenFile(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}

	if decoder.WavAudioFormat != 1 {
		file.Close()
		return nil, fmt.Errorf("%w: %s uses audio format %d, want PCM", ErrUnsupportedFormat, path, decoder.WavAudioFormat)
	}
	switch decoder.BitDepth {
	case 16, 24, 32:
	default:
		file.Close()
		return nil, fmt.Errorf("%w: %s is %d-bit", ErrUnsupportedFormat, path, decoder.BitDepth)
	}
	if decoder.NumChans == 0 || decoder.SampleRate == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s has an empty format header", ErrUnsupportedFormat, path)
	}

	return &FileSource{
		file:       file,
		decoder:    decoder,
		sampleRate: float64(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		bitDepth:   int(decoder.BitDepth),
	}, nil
}

func (s *FileSource) SampleRate() float64 { return s.sampleRate }

func (s *FileSource) Channels() int { return s.channels }

// Duration reports the playing time of the file.
func (s *FileSource) Duration() (time.Duration, error) {
	return s.decoder.Duration()
}

// Stream decodes the file chunkFrames at a time and calls fn with channel 0
// of each chunk. The slice passed to fn is reused between calls. Stream
// returns nil at end of file and ctx.Err() if cancelled.
func (s *FileSource) Stream(ctx context.Context, chunkFrames int, fn func(chunk []float64)) error {
	if chunkFrames <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkFrames)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.channels,
			SampleRate:  int(s.sampleRate),
		},
		Data:           make([]int, chunkFrames*s.channels),
		SourceBitDepth: s.bitDepth,
	}
	mono := make([]float64, chunkFrames)
	scale := 1 / float64(int(1)<<(s.bitDepth-1))

	var ticker *time.Ticker
	if s.Realtime {
		period := time.Duration(float64(chunkFrames) / s.sampleRate * float64(time.Second))
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := s.decoder.PCMBuffer(buf)
		eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !eof {
			return fmt.Errorf("failed to decode PCM data: %w", err)
		}
		if n == 0 {
			return nil
		}

		frames := n / s.channels
		for i := range frames {
			mono[i] = float64(buf.Data[i*s.channels]) * scale
		}
		fn(mono[:frames])
		if eof {
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

func (s *FileSource) Close() error {
	return s.file.Close()
}
