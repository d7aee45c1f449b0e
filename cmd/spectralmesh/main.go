package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"

	spectralmesh "github.com/ymlaine/spectral-mesh-go"
	"github.com/ymlaine/spectral-mesh-go/internal/audio"
	"github.com/ymlaine/spectral-mesh-go/internal/control"
)

type options struct {
	video        int
	midi         int
	audioPath    string
	listDevices  bool
	width        int
	height       int
	windowWidth  int
	windowHeight int
	headless     bool
	fps          int
	loopSteps    int
	noiseSeed    int64
	tremble      bool
	logLevel     string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("spectralmesh", flag.ContinueOnError)
	fs.IntVar(&o.video, "video", -1, "video input device index (-1 = none)")
	fs.IntVar(&o.midi, "midi", 0, "MIDI input port index (-1 = none)")
	fs.StringVar(&o.audioPath, "audio", "", "WAV file played and analysed as the audio source")
	fs.BoolVar(&o.listDevices, "list-devices", false, "list MIDI inputs and exit")
	fs.IntVar(&o.width, "width", 960, "frame width")
	fs.IntVar(&o.height, "height", 540, "frame height")
	fs.IntVar(&o.windowWidth, "window-width", 1280, "window width")
	fs.IntVar(&o.windowHeight, "window-height", 720, "window height")
	fs.BoolVar(&o.headless, "headless", false, "run without a window; keys are read from the terminal")
	fs.IntVar(&o.fps, "fps", 60, "frame rate in headless mode")
	fs.IntVar(&o.loopSteps, "loop-steps", spectralmesh.DefaultLoopLength, "automation loop length in frames")
	fs.Int64Var(&o.noiseSeed, "seed", 1, "noise field seed")
	fs.BoolVar(&o.tremble, "tremble", false, "make the mesh tremble with the bass")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: spectralmesh [flags]\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nAutomation: Enter records (or overdubs while playing) and stops, Backspace clears.\n")
		fmt.Fprintf(out, "During playback a recorded value wins over live input at its step.\n\nKeys:\n")
		for _, b := range control.Bindings() {
			fmt.Fprintf(out, "  %-13s %s\n", b.Key, b.Help)
		}
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.loopSteps < 1 {
		return o, fmt.Errorf("invalid -loop-steps %d (must be at least 1)", o.loopSteps)
	}
	if o.fps < 1 {
		return o, fmt.Errorf("invalid -fps %d", o.fps)
	}
	return o, nil
}

func resolveLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level, err := resolveLogLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if opts.listDevices {
		if err := listDevices(); err != nil {
			logger.Error("list devices", "err", err)
			os.Exit(1)
		}
		return
	}
	if err := run(opts, logger); err != nil {
		logger.Error("exit", "err", err)
		os.Exit(1)
	}
}

func listDevices() error {
	ports, err := control.ListPorts()
	if err != nil {
		return err
	}
	fmt.Println("MIDI inputs:")
	if len(ports) == 0 {
		fmt.Println("  (none)")
	}
	for i, name := range ports {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("Video inputs: capture is not supported, frames render blank")
	return nil
}

func run(opts options, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			logger.Info("caught signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.video >= 0 {
		logger.Warn("video capture unavailable, rendering blank frames", "device", opts.video)
	}

	clip := loadClip(opts.audioPath, logger)
	engineOpts := []spectralmesh.Option{
		spectralmesh.WithLogger(logger),
		spectralmesh.WithLoopLength(opts.loopSteps),
		spectralmesh.WithFrameSize(opts.width, opts.height),
		spectralmesh.WithWindowSize(opts.windowWidth, opts.windowHeight),
		spectralmesh.WithNoiseSeed(opts.noiseSeed),
	}
	if clip != nil {
		engineOpts = append(engineOpts, spectralmesh.WithAudioFormat(clip.SampleRate, 2))
	}
	if opts.tremble {
		engineOpts = append(engineOpts, spectralmesh.WithVibration(&audio.BassTremble{}))
	}
	engine, err := spectralmesh.New(engineOpts...)
	if err != nil {
		return err
	}

	if clip != nil {
		out, err := audio.NewOutput(clip.SampleRate, audio.NewClipSource(clip, true, func(buf []float32) {
			engine.FeedAudio(buf)
		}))
		if err != nil {
			logger.Warn("audio output unavailable, running without audio", "err", err)
		} else {
			defer out.Close()
			out.Play()
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if opts.midi >= 0 {
		router := control.NewRouter(engine, logger)
		g.Go(func() error {
			if err := control.Listen(ctx, opts.midi, router, logger); err != nil {
				logger.Warn("midi unavailable, continuing without it", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		watchAutomation(ctx, engine, logger)
		return nil
	})

	kb := control.NewKeyboard(engine, logger)
	if opts.headless {
		g.Go(func() error {
			return listenKeys(ctx, kb, cancel, logger)
		})
		g.Go(func() error {
			return engine.Run(ctx, opts.fps, func(f spectralmesh.Frame) {
				if f.Index%uint64(opts.fps) == 0 {
					logger.Debug("frame", "index", f.Index, "mode", f.Mode.String(), "step", f.Step,
						"x", f.Channels.X, "y", f.Channels.Y, "z", f.Channels.Z, "bass", f.Audio.Bass)
				}
			})
		})
		return g.Wait()
	}

	ebiten.SetWindowTitle("spectral mesh")
	ebiten.SetWindowSize(opts.windowWidth, opts.windowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	game := newGame(ctx, engine, kb, opts)
	uiErr := ebiten.RunGame(game)
	engine.Shutdown()
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return uiErr
}

func loadClip(path string, logger *slog.Logger) *audio.Clip {
	if path == "" {
		return nil
	}
	clip, err := audio.LoadWAV(path)
	if err != nil {
		logger.Warn("audio source unavailable, running without audio", "path", path, "err", err)
		return nil
	}
	logger.Info("audio source loaded", "path", path, "rate", clip.SampleRate, "channels", clip.Channels, "frames", clip.Frames())
	return clip
}

func watchAutomation(ctx context.Context, engine *spectralmesh.Engine, logger *slog.Logger) {
	events := engine.Watch()
	loops := 0
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Kind == spectralmesh.EventLoopCompleted {
				loops++
				logger.Debug("automation loop completed", "mode", ev.Mode.String(), "loops", loops)
			}
		}
	}
}
