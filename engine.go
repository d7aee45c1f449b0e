// Package spectralmesh is a real-time parameter engine for a modulated video
// mesh. Control threads write parameters and automation commands, an audio
// thread feeds samples, and a render thread calls Tick once per frame to get
// the frame's parameters, modulation channels and shader block.
//
// Automation priority: while the P-Lock engine is playing or overdubbing, a
// recorded value at the current step wins over live input for that parameter.
// Steps without a recorded value pass live input through.
package spectralmesh

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ymlaine/spectral-mesh-go/internal/audio"
	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/modulation"
	"github.com/ymlaine/spectral-mesh-go/internal/noise"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
	"github.com/ymlaine/spectral-mesh-go/internal/plock"
)

// EventKind identifies automation events delivered by Watch().
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventModeChanged
)

// AutomationEvent carries P-Lock events from Watch().
type AutomationEvent struct {
	Kind EventKind
	Mode plock.Mode
	Step int
}

// DefaultLoopLength is the P-Lock loop length in frames used by Record.
const DefaultLoopLength = plock.DefaultLoopLength

const commandQueueSize = 32

type Option func(*config)

type config struct {
	loopLength   int
	frameWidth   int
	frameHeight  int
	windowWidth  int
	windowHeight int
	noiseSeed    int64
	sampleRate   int
	channels     int
	logger       *slog.Logger
	vibration    audio.Vibration
	initial      params.Set
}

func defaultConfig() config {
	return config{
		loopLength:   DefaultLoopLength,
		frameWidth:   960,
		frameHeight:  540,
		windowWidth:  1280,
		windowHeight: 720,
		noiseSeed:    1,
		sampleRate:   48000,
		channels:     2,
		initial:      params.Defaults(),
	}
}

// WithLoopLength sets the loop length, in frames, that Record uses.
func WithLoopLength(frames int) Option {
	return func(cfg *config) {
		cfg.loopLength = frames
	}
}

// WithFrameSize sets the video frame size the mesh is built for.
func WithFrameSize(width, height int) Option {
	return func(cfg *config) {
		cfg.frameWidth, cfg.frameHeight = width, height
	}
}

func WithWindowSize(width, height int) Option {
	return func(cfg *config) {
		cfg.windowWidth, cfg.windowHeight = width, height
	}
}

// WithNoiseSeed seeds the three per-channel noise fields (seed, seed+1, seed+2).
func WithNoiseSeed(seed int64) Option {
	return func(cfg *config) {
		cfg.noiseSeed = seed
	}
}

// WithAudioFormat describes the interleaved samples passed to FeedAudio.
func WithAudioFormat(sampleRate, channels int) Option {
	return func(cfg *config) {
		cfg.sampleRate, cfg.channels = sampleRate, channels
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithVibration installs an audio-driven wave for the block's wave fields.
// The default leaves them at zero.
func WithVibration(v audio.Vibration) Option {
	return func(cfg *config) {
		cfg.vibration = v
	}
}

// WithInitialParams replaces the default starting parameter set.
func WithInitialParams(set params.Set) Option {
	return func(cfg *config) {
		cfg.initial = set
	}
}

type commandKind int

const (
	cmdRecord commandKind = iota
	cmdStop
	cmdClear
)

type command struct {
	kind commandKind
	loop int
}

// Engine owns the parameter store, automation, modulation chain and audio
// features. Set, Peek, Record, StopRecording, ClearAutomation, Recording and
// FeedAudio are safe from any goroutine. Tick, Track, ChannelsAt and Shutdown
// belong to the render goroutine.
type Engine struct {
	log       *slog.Logger
	surface   modulation.Surface
	loop      int
	store     *params.Store
	plock     *plock.Engine
	chain     *modulation.Chain
	extractor *audio.Extractor
	vibration audio.Vibration

	commands chan command
	mode     atomic.Int32
	frames   uint64

	eventCh   chan AutomationEvent
	eventChMu sync.Mutex
}

func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.loopLength < 1 {
		return nil, fmt.Errorf("loop length %d: %w", cfg.loopLength, plock.ErrInvalidLoopLength)
	}
	if cfg.frameWidth <= 0 || cfg.frameHeight <= 0 {
		return nil, errors.New("frame size must be positive")
	}
	if cfg.windowWidth <= 0 || cfg.windowHeight <= 0 {
		return nil, errors.New("window size must be positive")
	}
	if cfg.sampleRate <= 0 || cfg.channels <= 0 {
		return nil, errors.New("audio format must be positive")
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.vibration == nil {
		cfg.vibration = audio.NoVibration{}
	}

	banks := [3]*osc.Bank{}
	for i := range banks {
		seed := cfg.noiseSeed + int64(i)
		banks[i] = osc.NewBank(noise.NewField(noise.DefaultWidth, noise.DefaultHeight, noise.DefaultScale, seed))
	}
	acfg := audio.DefaultConfig(cfg.sampleRate, cfg.channels)
	acfg.Logger = cfg.logger

	surface := modulation.Surface{
		FrameWidth: cfg.frameWidth, FrameHeight: cfg.frameHeight,
		WindowWidth: cfg.windowWidth, WindowHeight: cfg.windowHeight,
	}
	e := &Engine{
		log:       cfg.logger,
		surface:   surface,
		loop:      cfg.loopLength,
		store:     params.NewStore(cfg.initial),
		chain:     modulation.NewChain(banks[0], banks[1], banks[2]),
		extractor: audio.NewExtractor(acfg),
		vibration: cfg.vibration,
		commands:  make(chan command, commandQueueSize),
	}
	e.plock = plock.New(plock.Options{OnEvent: e.onAutomation})
	return e, nil
}

// Set writes a live parameter value. It becomes visible at the next Tick.
func (e *Engine) Set(id params.ID, v float32) error {
	return e.store.Set(id, v)
}

// Peek returns the latest written value of id, published or not.
func (e *Engine) Peek(id params.ID) float32 {
	return e.store.Peek(id)
}

// Record starts recording with the configured loop length, or overdubs when
// the automation is playing.
func (e *Engine) Record() {
	e.queue(command{kind: cmdRecord, loop: e.loop})
}

// RecordLoop is Record with an explicit loop length in frames.
func (e *Engine) RecordLoop(frames int) error {
	if frames < 1 {
		return fmt.Errorf("loop length %d: %w", frames, plock.ErrInvalidLoopLength)
	}
	e.queue(command{kind: cmdRecord, loop: frames})
	return nil
}

func (e *Engine) StopRecording()  { e.queue(command{kind: cmdStop}) }
func (e *Engine) ClearAutomation() { e.queue(command{kind: cmdClear}) }

// Recording reports whether the automation was recording as of the last Tick.
func (e *Engine) Recording() bool {
	return plock.Mode(e.mode.Load()) == plock.Recording
}

// Mode returns the automation mode as of the last Tick.
func (e *Engine) Mode() plock.Mode {
	return plock.Mode(e.mode.Load())
}

// FeedAudio analyses one buffer of interleaved samples. Call it from the
// audio thread; the render thread sees the result on its next Tick.
func (e *Engine) FeedAudio(samples []float32) audio.Features {
	return e.extractor.Update(samples)
}

// Features returns the latest audio feature snapshot.
func (e *Engine) Features() audio.Features {
	return e.extractor.Latest()
}

func (e *Engine) queue(c command) {
	select {
	case e.commands <- c:
	default:
		e.log.Warn("automation command dropped", "queue", commandQueueSize)
	}
}

// Tick advances the engine by one frame of dt and returns the frame.
func (e *Engine) Tick(dt time.Duration) Frame {
	e.drain()

	set, dirty := e.store.Swap()
	e.plock.Step(&set, dirty)
	e.mode.Store(int32(e.plock.Mode()))

	secs := float32(dt.Seconds())
	e.chain.Advance(&set, secs)

	sens := set.Sensitivity()
	feat := e.extractor.Latest()
	mod := audio.Map(feat, sens)
	wave := e.vibration.Step(feat, sens, secs)
	disp, z := mod.Scaled()

	channels := e.chain.Evaluate(&set, z)
	phase := e.chain.Phase()
	block := modulation.BuildBlock(modulation.BlockInput{
		Set:               &set,
		Phase:             phase,
		Channels:          channels,
		Surface:           e.surface,
		AudioDisplacement: disp,
		AudioZ:            z,
		AudioLFO:          mod.LFO,
		WavePhase:         wave.Phase,
		WaveAmp:           wave.Amp,
		WaveFreq:          wave.Freq,
	})

	vis := set.Visual()
	f := Frame{
		Index:    e.frames,
		Params:   set,
		Phase:    phase,
		Channels: channels,
		Audio:    feat,
		Mod:      mod,
		Wave:     wave,
		Block:    block,
		Mesh:     mesh.Key{Kind: vis.MeshType, Density: mesh.ClampDensity(vis.GridDensity)},
		Mode:     e.plock.Mode(),
		Step:     e.plock.CurrentStep(),
		audioZ:   z,
	}
	e.frames++
	return f
}

func (e *Engine) drain() {
	for {
		select {
		case c := <-e.commands:
			e.apply(c)
		default:
			return
		}
	}
}

func (e *Engine) apply(c command) {
	switch c.kind {
	case cmdRecord:
		if err := e.plock.Record(c.loop); err != nil {
			e.log.Warn("record rejected", "err", err)
		}
	case cmdStop:
		e.plock.Stop()
	case cmdClear:
		e.plock.Clear()
	}
}

// ChannelsAt evaluates the chain for f at a mesh coordinate. It is only
// meaningful for the frame most recently returned by Tick.
func (e *Engine) ChannelsAt(f *Frame, at osc.Coord) modulation.Channels {
	return e.chain.EvaluateAt(&f.Params, f.audioZ, at)
}

// Track returns the recorded entries for id, ordered by step.
func (e *Engine) Track(id params.ID) []plock.Entry {
	return e.plock.Track(id)
}

// Shutdown applies pending commands and moves the automation to idle. Recorded
// entries are kept. When recording, writes made since the last Tick are
// captured at the in-progress step first.
func (e *Engine) Shutdown() {
	e.drain()
	if e.plock.Mode() == plock.Recording {
		set, dirty := e.store.Swap()
		e.plock.Capture(&set, dirty)
	}
	e.plock.Shutdown()
	e.mode.Store(int32(e.plock.Mode()))
}

func (e *Engine) onAutomation(ev plock.Event) {
	switch ev.Kind {
	case plock.EventModeChanged:
		e.log.Info("automation mode", "mode", ev.Mode.String(), "loop", e.plock.LoopLength())
		e.sendEvent(AutomationEvent{Kind: EventModeChanged, Mode: ev.Mode, Step: ev.Step})
	case plock.EventLoopCompleted:
		e.sendEvent(AutomationEvent{Kind: EventLoopCompleted, Mode: ev.Mode, Step: ev.Step})
	}
}

func (e *Engine) sendEvent(ev AutomationEvent) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// Watch returns a channel of automation events. Events are dropped when the
// channel is full.
func (e *Engine) Watch() <-chan AutomationEvent {
	ch := make(chan AutomationEvent, 8)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}
