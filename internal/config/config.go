// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the capture engine and the outer surfaces.
const (
	// Default values for the capture configuration
	DefaultInputChannels   = 1           // Mono audio
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultQueueDepth      = 32          // Capture buffers in flight to the worker
	DefaultLogLevel        = "info"

	// Default values for the display sinks
	DefaultWSAddress        = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	// Default values for recording
	DefaultRecordingDir      = "./recordings"
	DefaultRecordingBitDepth = 16

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
)

// Config represents the main application configuration structure, loaded
// from YAML and refined by environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectrum pipeline settings.
	Recording RecordingConfig `yaml:"recording"` // Raw input recording settings.
	Transport TransportConfig `yaml:"transport"` // Display sink settings.

	// Runtime-only options set by the command line.
	Command    string `yaml:"-"` // One-off command ("list", "analyze").
	InputFile  string `yaml:"-"` // WAV file replayed by "analyze".
	Realtime   bool   `yaml:"-"` // Pace "analyze" at the file's sample rate.
	PickDevice bool   `yaml:"-"` // Choose the input device interactively.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback (affects latency only).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	InputChannels   int     `yaml:"input_channels"`    // Channels to open; channel 0 feeds the analyzer.
	QueueDepth      int     `yaml:"queue_depth"`       // Pre-allocated capture buffers between callback and worker.
}

// AnalysisConfig mirrors analysis.Config in YAML form.
type AnalysisConfig struct {
	FrameLength    int     `yaml:"frame_length"`     // Samples per FFT frame (power of 2).
	Bars           int     `yaml:"bars"`             // Number of output bars.
	MinFreq        float64 `yaml:"min_freq"`         // Lowest bar edge (Hz).
	MaxFreq        float64 `yaml:"max_freq"`         // Highest bar edge (Hz).
	RiseRate       float64 `yaml:"rise_rate"`        // Attack smoothing, fraction of gap closed per frame.
	FallRate       float64 `yaml:"fall_rate"`        // Release smoothing, fraction of gap kept per frame.
	Sensitivity    float64 `yaml:"sensitivity"`      // Gain after dB normalisation.
	Window         string  `yaml:"window"`           // Window function name (e.g., "hann", "hamming").
	MagnitudeFloor float64 `yaml:"magnitude_floor"`  // Silence floor fed to log10.
	DynamicRangeDB float64 `yaml:"dynamic_range_db"` // dB span mapped onto [0,1].
	BoostGain      float64 `yaml:"boost_gain"`       // High-frequency compensation reached at the top bar.
	BoostExponent  float64 `yaml:"boost_exponent"`   // Curve of the compensation.
	Ceiling        float64 `yaml:"ceiling"`          // Maximum raw bar intensity.
}

// RecordingConfig holds settings related to raw input recording.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the raw input to a WAV file.
	OutputDir  string `yaml:"output_dir"`  // Directory for generated file names.
	OutputFile string `yaml:"output_file"` // Explicit output path; generated when empty.
	BitDepth   int    `yaml:"bit_depth"`   // PCM bit depth (16, 24 or 32).
}

// TransportConfig holds settings for the display sinks.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Broadcast frames over WebSocket.
	WSAddress        string        `yaml:"ws_address"`         // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send frames as binary UDP packets.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target "host:port" for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum interval between UDP packets.
	LogFrames        bool          `yaml:"log_frames"`         // Log a summary of each frame at debug level.
	TUI              bool          `yaml:"tui"`                // Draw the bars in the terminal.
}
