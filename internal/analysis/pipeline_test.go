// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"visualizer/pkg/utils"
)

func newTestPipeline(t *testing.T, sampleRate float64, sink Sink) *Pipeline {
	t.Helper()
	p, err := NewPipeline(DefaultConfig(), sampleRate, sink)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestNewPipelineRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		rate   float64
	}{
		{"frame length not power of two", func(c *Config) { c.FrameLength = 2000 }, testSampleRate},
		{"frame length too short", func(c *Config) { c.FrameLength = 2 }, testSampleRate},
		{"frame length zero", func(c *Config) { c.FrameLength = 0 }, testSampleRate},
		{"zero bars", func(c *Config) { c.BarCount = 0 }, testSampleRate},
		{"min equals max", func(c *Config) { c.MinFreq = 1000; c.MaxFreq = 1000 }, testSampleRate},
		{"min above max", func(c *Config) { c.MinFreq = 5000; c.MaxFreq = 100 }, testSampleRate},
		{"non-positive min", func(c *Config) { c.MinFreq = 0 }, testSampleRate},
		{"zero rise rate", func(c *Config) { c.RiseRate = 0 }, testSampleRate},
		{"rise rate above one", func(c *Config) { c.RiseRate = 1.2 }, testSampleRate},
		{"fall rate of one", func(c *Config) { c.FallRate = 1 }, testSampleRate},
		{"negative fall rate", func(c *Config) { c.FallRate = -0.1 }, testSampleRate},
		{"zero sensitivity", func(c *Config) { c.Sensitivity = 0 }, testSampleRate},
		{"zero floor", func(c *Config) { c.MagnitudeFloor = 0 }, testSampleRate},
		{"zero dynamic range", func(c *Config) { c.DynamicRangeDB = 0 }, testSampleRate},
		{"negative boost", func(c *Config) { c.BoostGain = -1 }, testSampleRate},
		{"zero ceiling", func(c *Config) { c.Ceiling = 0 }, testSampleRate},
		{"unknown window", func(c *Config) { c.Window = WindowFunc(99) }, testSampleRate},
		{"zero sample rate", func(c *Config) {}, 0},
		{"negative sample rate", func(c *Config) {}, -44100},
		{"NaN sample rate", func(c *Config) {}, math.NaN()},
		{"infinite sample rate", func(c *Config) {}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			p, err := NewPipeline(cfg, tt.rate, nil)
			if err == nil {
				t.Fatal("expected a configuration error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %q does not wrap ErrInvalidConfig", err)
			}
			if p != nil {
				t.Error("expected nil pipeline on error")
			}
		})
	}
}

func TestPipelineEmitsOneVectorPerFrame(t *testing.T) {
	sink := &utils.RecordingSink{}
	p := newTestPipeline(t, testSampleRate, sink)

	if n := p.Ingest(make([]float64, testFrameLength-1)); n != 0 {
		t.Fatalf("partial frame produced %d frames", n)
	}
	if n := p.Ingest(make([]float64, 2*testFrameLength+1)); n != 2 {
		t.Fatalf("expected 2 frames, got %d", n)
	}
	if sink.Len() != 2 || p.Frames() != 2 {
		t.Fatalf("sink saw %d frames, pipeline counted %d, want 2", sink.Len(), p.Frames())
	}
	for i, bars := range sink.Frames() {
		if len(bars) != DefaultBarCount {
			t.Errorf("frame %d has %d bars, want %d", i, len(bars), DefaultBarCount)
		}
	}
}

func TestPipelineSilenceStaysAtZero(t *testing.T) {
	for _, rate := range []float64{8000, 22050, 44100, 48000, 96000} {
		t.Run(fmt.Sprintf("%gHz", rate), func(t *testing.T) {
			sink := &utils.RecordingSink{}
			p := newTestPipeline(t, rate, sink)

			silence := make([]float64, 1000)
			for range 50 {
				p.Ingest(silence)
			}

			if sink.Len() == 0 {
				t.Fatal("no frames emitted")
			}
			for i, v := range sink.Last() {
				if v != 0 {
					t.Errorf("bar %d = %g after silence, want 0", i, v)
				}
			}
		})
	}
}

func TestPipelineDecaysToZeroAfterSignal(t *testing.T) {
	p := newTestPipeline(t, testSampleRate, nil)

	p.Ingest(utils.GenerateComplexWave(testFrameLength*10, testSampleRate))
	if peak := slices.Max(p.Bars()); peak <= 0.5 {
		t.Fatalf("expected a loud signal to raise the bars, peak = %g", peak)
	}

	silence := make([]float64, testFrameLength)
	for range 300 {
		p.Ingest(silence)
	}
	for i, v := range p.Bars() {
		if v < 0 || v > 1e-6 {
			t.Errorf("bar %d = %g after long silence, want ~0", i, v)
		}
	}
}

func TestPipelinePureToneLightsItsBar(t *testing.T) {
	const toneHz = 1000.0
	p := newTestPipeline(t, testSampleRate, nil)

	tone := utils.GenerateSineWave(testFrameLength*60, testSampleRate, toneHz, 0.5)
	for _, chunk := range utils.SplitChunks(tone, []int{512}) {
		p.Ingest(chunk)
	}

	bars := p.Bars()
	target := p.Bands().Index(toneHz)
	if target < 0 {
		t.Fatalf("no bar covers %g Hz", toneHz)
	}

	peak := utils.FindPeakBin(bars, 0, len(bars)-1)
	if d := peak - target; d < -1 || d > 1 {
		t.Errorf("loudest bar = %d, want %d±1 (bars %v)", peak, target, bars)
	}
	if bars[target] < 1 {
		t.Errorf("bar %d covering %g Hz only reached %g", target, toneHz, bars[target])
	}
	for i, v := range bars {
		if (i < target-4 || i > target+4) && v > 0.1 {
			t.Errorf("bar %d far from the tone reads %g, want near 0", i, v)
		}
	}
}

func TestPipelineIsDeterministic(t *testing.T) {
	signal := utils.GenerateComplexWave(testFrameLength*8+123, testSampleRate)
	chunks := utils.SplitChunks(signal, []int{441, 1, 2048, 3000})

	run := func() [][]float64 {
		sink := &utils.RecordingSink{}
		p := newTestPipeline(t, testSampleRate, sink)
		for _, c := range chunks {
			p.Ingest(c)
		}
		return sink.Frames()
	}

	first, second := run(), run()
	if len(first) != len(second) || len(first) != 8 {
		t.Fatalf("runs produced %d and %d frames, want 8", len(first), len(second))
	}
	for i := range first {
		if !slices.Equal(first[i], second[i]) {
			t.Fatalf("frame %d differs between identical runs", i)
		}
	}
}

func TestPipelineChunkingDoesNotChangeOutput(t *testing.T) {
	signal := utils.GenerateComplexWave(testFrameLength*6, testSampleRate)

	run := func(sizes []int) [][]float64 {
		sink := &utils.RecordingSink{}
		p := newTestPipeline(t, testSampleRate, sink)
		for _, c := range utils.SplitChunks(signal, sizes) {
			p.Ingest(c)
		}
		return sink.Frames()
	}

	want := run([]int{len(signal)})
	for _, sizes := range [][]int{{1}, {256}, {4096}, {7, 3001, 0, 100}} {
		got := run(sizes)
		if len(got) != len(want) {
			t.Fatalf("chunks %v: %d frames, want %d", sizes, len(got), len(want))
		}
		for i := range want {
			if !slices.Equal(got[i], want[i]) {
				t.Fatalf("chunks %v: frame %d differs", sizes, i)
			}
		}
	}
}

func TestPipelineIgnoresSinkErrors(t *testing.T) {
	sink := &utils.RecordingSink{Err: errors.New("display gone")}
	p := newTestPipeline(t, testSampleRate, sink)

	if n := p.Ingest(make([]float64, 3*testFrameLength)); n != 3 {
		t.Fatalf("expected 3 frames despite sink errors, got %d", n)
	}
	if sink.Len() != 3 {
		t.Errorf("sink received %d frames, want 3", sink.Len())
	}
}

func TestPipelineEmitsIndependentCopies(t *testing.T) {
	sink := &utils.RecordingSink{}
	var held [][]float64
	p := newTestPipeline(t, testSampleRate, SinkFunc(func(bars []float64) error {
		held = append(held, bars)
		return sink.Send(bars)
	}))

	p.Ingest(utils.GenerateComplexWave(testFrameLength*3, testSampleRate))
	if len(held) != 3 {
		t.Fatalf("received %d frames, want 3", len(held))
	}
	held[0][0] = -1
	if held[1][0] == -1 || p.Bars()[0] == -1 {
		t.Error("emitted frames share storage with each other or with pipeline state")
	}
}

func TestPipelineSinkMayReadStateDuringSend(t *testing.T) {
	var p *Pipeline
	reads := 0
	p = newTestPipeline(t, testSampleRate, SinkFunc(func(bars []float64) error {
		// Would deadlock if the pipeline held its state lock across Send.
		_ = p.Bars()
		reads++
		return nil
	}))

	done := make(chan struct{})
	go func() {
		p.Ingest(make([]float64, 2*testFrameLength))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Ingest blocked while the sink read pipeline state")
	}
	if reads != 2 {
		t.Errorf("sink ran %d times, want 2", reads)
	}
}

func TestPipelineConcurrentIngest(t *testing.T) {
	const (
		producers = 4
		chunks    = 64
		chunkLen  = 512
	)

	var mu sync.Mutex
	emitted := 0
	p := newTestPipeline(t, testSampleRate, SinkFunc(func(bars []float64) error {
		mu.Lock()
		emitted++
		mu.Unlock()
		if len(bars) != DefaultBarCount {
			return fmt.Errorf("bad frame length %d", len(bars))
		}
		return nil
	}))

	signal := utils.GenerateComplexWave(chunkLen, testSampleRate)
	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range chunks {
				p.Ingest(signal)
				_ = p.Bars()
			}
		}()
	}
	wg.Wait()

	wantFrames := producers * chunks * chunkLen / testFrameLength
	if int(p.Frames()) != wantFrames {
		t.Errorf("processed %d frames, want %d", p.Frames(), wantFrames)
	}
	if emitted != wantFrames {
		t.Errorf("emitted %d frames, want %d", emitted, wantFrames)
	}
}

func TestPipelineAccessors(t *testing.T) {
	p := newTestPipeline(t, 48000, nil)

	if p.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %g", p.SampleRate())
	}
	if p.Config() != DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults", p.Config())
	}
	if len(p.Bands()) != DefaultBarCount || len(p.BinRanges()) != DefaultBarCount {
		t.Errorf("expected %d bands and bin ranges", DefaultBarCount)
	}
	bands := p.Bands()
	bands[0].Low = -1
	if p.Bands()[0].Low == -1 {
		t.Error("Bands() exposes internal storage")
	}
}

func BenchmarkPipelineIngest(b *testing.B) {
	p, err := NewPipeline(DefaultConfig(), testSampleRate, nil)
	if err != nil {
		b.Fatal(err)
	}
	chunk := utils.GenerateComplexWave(testFrameLength, testSampleRate)

	b.ReportAllocs()
	for b.Loop() {
		p.Ingest(chunk)
	}
}

func TestPipelineConcurrentIngestKeepsOrder(t *testing.T) {
	const (
		producers = 8
		rounds    = 32
		chunkLen  = 3000
	)
	chunk := utils.GenerateComplexWave(chunkLen, testSampleRate)

	record := func(frames *[][]float64) Sink {
		return SinkFunc(func(bars []float64) error {
			*frames = append(*frames, slices.Clone(bars))
			return nil
		})
	}

	var serial [][]float64
	ref := newTestPipeline(t, testSampleRate, record(&serial))
	for range producers * rounds {
		ref.Ingest(chunk)
	}

	// Sends are serialised by the pipeline, so the sink needs no lock.
	var concurrent [][]float64
	p := newTestPipeline(t, testSampleRate, record(&concurrent))
	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				p.Ingest(chunk)
			}
		}()
	}
	wg.Wait()

	if len(concurrent) != len(serial) {
		t.Fatalf("emitted %d frames, want %d", len(concurrent), len(serial))
	}
	for i := range serial {
		if !slices.Equal(concurrent[i], serial[i]) {
			t.Fatalf("frame %d differs from serial run:\n got %v\nwant %v", i, concurrent[i], serial[i])
		}
	}
}

func TestPipelineRecoversFromPanickingSink(t *testing.T) {
	calls := 0
	p := newTestPipeline(t, testSampleRate, SinkFunc(func([]float64) error {
		calls++
		if calls == 1 {
			panic("sink failure")
		}
		return nil
	}))
	chunk := make([]float64, testFrameLength)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the sink panic to reach the caller")
			}
		}()
		p.Ingest(chunk)
	}()

	done := make(chan int)
	go func() { done <- p.Ingest(chunk) }()

	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("Ingest completed %d frames, want 1", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Ingest blocked after a sink panic")
	}
	if calls != 2 {
		t.Errorf("sink ran %d times, want 2", calls)
	}
}
