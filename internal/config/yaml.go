// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"visualizer/internal/analysis"
	"visualizer/internal/log"
)

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultInputChannels,
			QueueDepth:      DefaultQueueDepth,
		},
		Analysis: AnalysisConfig{
			FrameLength:    analysis.DefaultFrameLength,
			Bars:           analysis.DefaultBarCount,
			MinFreq:        analysis.DefaultMinFreq,
			MaxFreq:        analysis.DefaultMaxFreq,
			RiseRate:       analysis.DefaultRiseRate,
			FallRate:       analysis.DefaultFallRate,
			Sensitivity:    analysis.DefaultSensitivity,
			Window:         analysis.Hann.String(),
			MagnitudeFloor: analysis.DefaultMagnitudeFloor,
			DynamicRangeDB: analysis.DefaultDynamicRangeDB,
			BoostGain:      analysis.DefaultBoostGain,
			BoostExponent:  analysis.DefaultBoostExponent,
			Ceiling:        analysis.DefaultCeiling,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultRecordingBitDepth,
		},
		Transport: TransportConfig{
			WSEnabled:        true,
			WSAddress:        DefaultWSAddress,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		// Define potential locations for the config file.
		candidates := []string{
			"config.yaml",
			"visualizer.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the capture, recording and transport settings, then the
// analysis settings through analysis.Config.Validate.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	// Audio Validation
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be within [%d, %d] Hz, got %g",
			MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be within [1, %d], got %d",
			MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels <= 0 {
		return fmt.Errorf("audio.input_channels must be positive, got %d", c.Audio.InputChannels)
	}
	if c.Audio.QueueDepth <= 0 {
		return fmt.Errorf("audio.queue_depth must be positive, got %d", c.Audio.QueueDepth)
	}

	// Recording Validation
	if c.Recording.Enabled {
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
		}
	}

	// Transport Validation
	if c.Transport.WSEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.WSAddress); err != nil {
			return fmt.Errorf("transport.ws_address '%s' appears invalid: %w", c.Transport.WSAddress, err)
		}
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?): %w",
				c.Transport.UDPTargetAddress, err)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	// Analysis Validation
	if _, err := c.Analysis.Pipeline(); err != nil {
		return err
	}

	return nil
}

// Pipeline converts the YAML analysis settings into an analysis.Config
// and validates it.
func (a AnalysisConfig) Pipeline() (analysis.Config, error) {
	window, err := analysis.ParseWindowFunc(a.Window)
	if err != nil {
		return analysis.Config{}, fmt.Errorf("%w: %w", analysis.ErrInvalidConfig, err)
	}

	cfg := analysis.Config{
		FrameLength:    a.FrameLength,
		BarCount:       a.Bars,
		MinFreq:        a.MinFreq,
		MaxFreq:        a.MaxFreq,
		RiseRate:       a.RiseRate,
		FallRate:       a.FallRate,
		Sensitivity:    a.Sensitivity,
		Window:         window,
		MagnitudeFloor: a.MagnitudeFloor,
		DynamicRangeDB: a.DynamicRangeDB,
		BoostGain:      a.BoostGain,
		BoostExponent:  a.BoostExponent,
		Ceiling:        a.Ceiling,
	}
	if err := cfg.Validate(); err != nil {
		return analysis.Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides applies ENV_* variables on top of the loaded file.
// Malformed values are ignored and the file value kept.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Infof("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		if _, valid := log.ParseLevel(val); valid {
			cfg.LogLevel = val
			log.Infof("configuration: Overriding log_level from env: %s", val)
		}
	}

	// ENV_BAR_COUNT
	if val, ok := os.LookupEnv("ENV_BAR_COUNT"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Analysis.Bars = iVal
			log.Infof("configuration: Overriding analysis.bars from env: %d", iVal)
		}
	}

	// ENV_WS_{...}
	// These are specific to the WebSocket sink.

	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
		log.Infof("configuration: Overriding transport.ws_address from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the UDP sink.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Infof("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Infof("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Infof("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
