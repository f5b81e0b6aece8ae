// Package main is the production entry point for VoiceViz.
//
// VoiceViz renders an audio-reactive visualization of a voice conversation:
// - A Fyne window with style and conversation state controls (default)
// - A headless frame loop with an optional Prometheus endpoint
// - An offline renderer writing PNG frames
//
// Build:
//
//	go build -o build/voiceviz ./cmd/voiceviz
//
// Run:
//
//	./build/voiceviz
//	./build/voiceviz render -o frames --user-speaking -n 240
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/integrii/flaggy"

	"github.com/wealthwise/voiceviz/internal/adapter/capture/microphone"
	"github.com/wealthwise/voiceviz/internal/app"
	"github.com/wealthwise/voiceviz/internal/config"
	"github.com/wealthwise/voiceviz/internal/domain"
)

// AppName is the app name
const AppName = "voiceviz"

// AppDesc is the app description
const AppDesc = "Audio-reactive visualization for voice assistants"

// options are the command line values that override the config file.
type options struct {
	configPath string
	style      string
	strict     bool
	source     string
	device     string
	file       string
	logLevel   string
	seed       uint64

	// headless
	metricsAddr string

	// render
	frames     int
	every      int
	outDir     string
	width      float64
	height     float64
	active     bool
	user       bool
	assistant  bool
	processing bool
}

func main() {
	log.SetFlags(0)

	var opts options

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.Version = app.GetVersionInfo().Display()

	parser.String(&opts.configPath, "c", "config", "YAML config file")
	parser.String(&opts.style, "s", "style", "visualization style (waveform, circular, particle, bars)")
	parser.Bool(&opts.strict, "", "strict", "fail on an unknown style instead of falling back")
	parser.String(&opts.source, "src", "source", "capture source (microphone, file, synthetic)")
	parser.String(&opts.device, "d", "device", "microphone device name or ID")
	parser.String(&opts.file, "f", "file", "WAV file replayed by the file source")
	parser.String(&opts.logLevel, "l", "log-level", "log level (debug, info, warn, error)")
	parser.UInt64(&opts.seed, "", "seed", "particle seed")

	headlessCmd := flaggy.NewSubcommand("headless")
	headlessCmd.Description = "run the frame loop without a window"
	headlessCmd.String(&opts.metricsAddr, "m", "metrics", "serve Prometheus metrics on this address")
	parser.AttachSubcommand(headlessCmd, 1)

	renderCmd := flaggy.NewSubcommand("render")
	renderCmd.Description = "render frames to PNG files"
	renderCmd.Int(&opts.frames, "n", "frames", "number of frames")
	renderCmd.Int(&opts.every, "e", "every", "write one frame in this many")
	renderCmd.String(&opts.outDir, "o", "out", "output directory")
	renderCmd.Float64(&opts.width, "W", "width", "width in layout units")
	renderCmd.Float64(&opts.height, "H", "height", "height in layout units")
	renderCmd.Bool(&opts.active, "a", "active", "conversation is active")
	renderCmd.Bool(&opts.user, "u", "user-speaking", "user is speaking")
	renderCmd.Bool(&opts.assistant, "ai", "ai-speaking", "assistant is speaking")
	renderCmd.Bool(&opts.processing, "p", "processing", "assistant is processing")
	parser.AttachSubcommand(renderCmd, 1)

	listStylesCmd := flaggy.NewSubcommand("list-styles")
	listStylesCmd.ShortName = "ls"
	listStylesCmd.Description = "list visualization styles"
	parser.AttachSubcommand(listStylesCmd, 1)

	listDevicesCmd := flaggy.NewSubcommand("list-devices")
	listDevicesCmd.ShortName = "ld"
	listDevicesCmd.Description = "list microphone devices"
	parser.AttachSubcommand(listDevicesCmd, 1)

	opts.frames = 120
	opts.outDir = "frames"
	chk(parser.Parse(), "failed to parse arguments")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case listStylesCmd.Used:
		for _, s := range domain.Styles {
			marker := ' '
			if s == domain.DefaultStyle {
				marker = '*'
			}
			fmt.Printf("- %-10s %s %c\n", s, s.Label(), marker)
		}
		return

	case listDevicesCmd.Used:
		devices, err := microphone.New(nil).Devices(ctx)
		chk(err, "failed to list devices")
		fmt.Println("capture devices. '*' marks default")
		for _, d := range devices {
			marker := ' '
			if d.Default {
				marker = '*'
			}
			fmt.Printf("- %s %c\n", d.Name, marker)
		}
		return
	}

	settings, err := loadSettings(opts)
	chk(err, "invalid config")

	cfg := app.DefaultConfig()
	cfg.Settings = settings
	cfg.RestoreStyle = opts.style == ""

	mode := modeWindow
	switch {
	case headlessCmd.Used:
		mode = modeHeadless
	case renderCmd.Used:
		mode = modeRender
	}

	if err := run(ctx, cfg, mode, opts); err != nil {
		cancel()
		log.Fatalln(err)
	}
}

// runMode selects what run does with the application.
type runMode int

const (
	modeWindow runMode = iota
	modeHeadless
	modeRender
)

// run builds the application, runs it in mode and shuts it down.
// Shutdown failures are joined into the returned error.
func run(ctx context.Context, cfg app.Config, mode runMode, opts options) (err error) {
	if mode != modeWindow {
		cfg.Headless = true
		cfg.Manual = mode == modeRender
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if serr := application.Shutdown(); serr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown: %w", serr))
		}
	}()

	switch mode {
	case modeHeadless:
		if err := application.RunHeadless(ctx); err != nil {
			return fmt.Errorf("headless run failed: %w", err)
		}

	case modeRender:
		written, err := application.RenderFrames(ctx, app.RenderOptions{
			Frames: opts.frames,
			Every:  opts.every,
			Dir:    opts.outDir,
			Flags: domain.Flags{
				Active:       opts.active,
				UserSpeaking: opts.user,
				AISpeaking:   opts.assistant,
				Processing:   opts.processing,
			},
		})
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Printf("wrote %d frames to %s\n", written, opts.outDir)

	default:
		// Run blocks until the window is closed
		if err := application.Run(); err != nil {
			return fmt.Errorf("application error: %w", err)
		}
	}
	return nil
}

// loadSettings reads the config file, if any, and applies command line overrides.
func loadSettings(opts options) (*config.Config, error) {
	settings := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	if opts.style != "" {
		settings.Visual.Style = opts.style
	}
	if opts.strict {
		settings.Visual.Strict = true
	}
	if opts.seed != 0 {
		settings.Visual.Seed = opts.seed
	}
	if opts.source != "" {
		settings.Capture.Source = opts.source
	}
	if opts.device != "" {
		settings.Capture.Device = opts.device
	}
	if opts.file != "" {
		settings.Capture.File = opts.file
		if opts.source == "" {
			settings.Capture.Source = config.SourceFile
		}
	}
	if opts.logLevel != "" {
		settings.Log.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		settings.Metrics.Enabled = true
		settings.Metrics.Addr = opts.metricsAddr
	}
	if opts.width > 0 {
		settings.Visual.Width = opts.width
	}
	if opts.height > 0 {
		settings.Visual.Height = opts.height
	}

	return settings, config.Validate(settings)
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
