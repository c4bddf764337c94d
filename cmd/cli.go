// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"visualizer/internal/config"
	"visualizer/pkg/build"
)

// Commands recognised by main.
const (
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// options holds raw flag values. Only flags the user set are applied over
// the loaded configuration file.
type options struct {
	configPath string

	device          int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool
	pick            bool

	bars        int
	fftSize     int
	window      string
	sensitivity float64
	minFreq     float64
	maxFreq     float64

	ws          bool
	wsAddr      string
	udp         bool
	udpAddr     string
	udpInterval time.Duration
	tui         bool
	logFrames   bool

	record   bool
	output   string
	realtime bool

	verbose  bool
	logLevel string
}

// ParseArgs parses the process arguments into a validated configuration.
// A nil configuration with a nil error means help or version was printed.
func ParseArgs() (*config.Config, error) {
	return parseArgs(os.Args[1:])
}

func parseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	opts := &options{}
	var cfg *config.Config

	// load runs after cobra has parsed flags for the selected command.
	load := func(cmd *cobra.Command, command string) error {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		opts.apply(cmd.Flags(), loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		loaded.Command = command
		cfg = loaded
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.VersionString(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, "")
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   CommandAnalyze + " <file.wav>",
		Short: "Run the spectrum pipeline over a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd, CommandAnalyze); err != nil {
				return err
			}
			cfg.InputFile = args[0]
			return nil
		},
	}
	analyzeCmd.Flags().BoolVar(&opts.realtime, "realtime", false,
		"Replay the file at its own sample rate instead of as fast as possible")

	rootCmd.AddCommand(listCmd, analyzeCmd)

	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&opts.configPath, "config", "f", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")

	// Audio Device Configuration
	flags.IntVarP(&opts.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per capture buffer (affects latency)")
	flags.IntVarP(&opts.channels, "channels", "c", config.DefaultInputChannels,
		"Number of input channels to open; channel 0 is analyzed")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	flags.BoolVar(&opts.pick, "pick", false,
		"Choose the input device interactively")

	// Analysis Configuration
	flags.IntVar(&opts.bars, "bars", 0, "Number of frequency bars")
	flags.IntVar(&opts.fftSize, "fft-size", 0, "Samples per analysis frame (power of two)")
	flags.StringVar(&opts.window, "window", "", "Window function (hann, hamming, blackman, nuttall, ...)")
	flags.Float64Var(&opts.sensitivity, "sensitivity", 0, "Gain applied after dB normalisation")
	flags.Float64Var(&opts.minFreq, "min-freq", 0, "Lowest bar edge in Hz")
	flags.Float64Var(&opts.maxFreq, "max-freq", 0, "Highest bar edge in Hz")

	// Display Configuration
	flags.BoolVar(&opts.ws, "ws", true, "Broadcast frames over WebSocket")
	flags.StringVar(&opts.wsAddr, "ws-addr", config.DefaultWSAddress, "WebSocket listen address")
	flags.BoolVar(&opts.udp, "udp", false, "Send frames as UDP packets")
	flags.StringVar(&opts.udpAddr, "udp-addr", config.DefaultUDPTargetAddress, "UDP target host:port")
	flags.DurationVar(&opts.udpInterval, "udp-interval", config.DefaultUDPSendInterval, "Interval between UDP packets")
	flags.BoolVarP(&opts.tui, "tui", "t", false, "Draw the bars in the terminal")
	flags.BoolVar(&opts.logFrames, "log-frames", false, "Log a summary of every frame at debug level")

	// Recording Configuration
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record audio from the specified input device")
	flags.StringVarP(&opts.output, "output", "o", "",
		"Output file name. Default is recording-YYYYMMDD-HHMMSS.wav")

	// Debug Configuration
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	// cfg stays nil after --help or --version.
	return cfg, nil
}

// apply copies every flag that was set on the command line into cfg.
func (o *options) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := flags.Changed

	if set("device") {
		cfg.Audio.InputDevice = o.device
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = o.framesPerBuffer
	}
	if set("channels") {
		cfg.Audio.InputChannels = o.channels
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	cfg.PickDevice = o.pick

	if set("bars") {
		cfg.Analysis.Bars = o.bars
	}
	if set("fft-size") {
		cfg.Analysis.FrameLength = o.fftSize
	}
	if set("window") {
		cfg.Analysis.Window = o.window
	}
	if set("sensitivity") {
		cfg.Analysis.Sensitivity = o.sensitivity
	}
	if set("min-freq") {
		cfg.Analysis.MinFreq = o.minFreq
	}
	if set("max-freq") {
		cfg.Analysis.MaxFreq = o.maxFreq
	}

	if set("ws") {
		cfg.Transport.WSEnabled = o.ws
	}
	if set("ws-addr") {
		cfg.Transport.WSAddress = o.wsAddr
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = o.udp
	}
	if set("udp-addr") {
		cfg.Transport.UDPTargetAddress = o.udpAddr
	}
	if set("udp-interval") {
		cfg.Transport.UDPSendInterval = o.udpInterval
	}
	if set("tui") {
		cfg.Transport.TUI = o.tui
	}
	if set("log-frames") {
		cfg.Transport.LogFrames = o.logFrames
	}

	if set("record") {
		cfg.Recording.Enabled = o.record
	}
	if set("output") {
		cfg.Recording.OutputFile = o.output
	}
	cfg.Realtime = o.realtime

	if set("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if o.verbose {
		cfg.Debug = true
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
}
