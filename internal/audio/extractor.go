package audio

import (
	"log/slog"
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
)

// Features is one immutable analysis snapshot. Bass, RMS and Peak are
// smoothed and capped at 1.
type Features struct {
	Bass float32
	RMS  float32
	Peak float32
	Kick float32 // transient intensity, 0 when no kick
}

// Config describes the incoming sample stream.
type Config struct {
	SampleRate       int
	Channels         int
	BassCutoffHz     float64
	BassBoost        float64
	KickThreshold    float32
	MaxBufferSamples int // interleaved samples per Update; larger buffers are dropped
	Logger           *slog.Logger
}

func DefaultConfig(sampleRate, channels int) Config {
	return Config{
		SampleRate:       sampleRate,
		Channels:         channels,
		BassCutoffHz:     150,
		BassBoost:        4,
		KickThreshold:    0.15,
		MaxBufferSamples: 1 << 16,
	}
}

// follower is an attack/release envelope follower stepped once per buffer.
type follower struct {
	attack  float32
	release float32
	value   float32
}

func (f *follower) step(x float32) float32 {
	if x > f.value {
		f.value += f.attack * (x - f.value)
	} else {
		f.value += f.release * (x - f.value)
	}
	return f.value
}

// Extractor turns raw sample buffers into Features. Update is called from a
// single audio goroutine; Latest may be called from any goroutine and never
// blocks.
type Extractor struct {
	cfg    Config
	log    *slog.Logger
	latest atomic.Pointer[Features]

	rms  follower
	peak follower
	bass follower

	prevBass float32
	mono     []float64
	dropped  atomic.Uint64
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.Channels < 1 {
		cfg.Channels = 1
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.BassCutoffHz <= 0 {
		cfg.BassCutoffHz = 150
	}
	if cfg.BassBoost <= 0 {
		cfg.BassBoost = 1
	}
	if cfg.MaxBufferSamples <= 0 {
		cfg.MaxBufferSamples = 1 << 16
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		cfg:  cfg,
		log:  logger,
		rms:  follower{attack: 0.3, release: 0.2},
		peak: follower{attack: 0.5, release: 0.3},
		bass: follower{attack: 0.3, release: 0.15},
	}
	e.latest.Store(&Features{})
	return e
}

// Latest returns the most recent complete snapshot.
func (e *Extractor) Latest() Features {
	return *e.latest.Load()
}

// Dropped returns how many buffers were rejected.
func (e *Extractor) Dropped() uint64 { return e.dropped.Load() }

// Update analyses one interleaved buffer and publishes the new snapshot.
// Empty, oversized or non-finite buffers are dropped and the previous
// snapshot is returned unchanged.
func (e *Extractor) Update(samples []float32) Features {
	ch := e.cfg.Channels
	frames := len(samples) / ch
	switch {
	case frames == 0:
		return e.drop("audio underrun", len(samples))
	case len(samples) > e.cfg.MaxBufferSamples:
		return e.drop("audio overrun", len(samples))
	}

	if cap(e.mono) < frames {
		e.mono = make([]float64, frames)
	}
	mono := e.mono[:frames]
	var sumSq, peak float64
	for i := 0; i < frames; i++ {
		var s float64
		for c := 0; c < ch; c++ {
			s += float64(samples[i*ch+c])
		}
		s /= float64(ch)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return e.drop("audio buffer not finite", len(samples))
		}
		mono[i] = s
		sumSq += s * s
		peak = math.Max(peak, math.Abs(s))
	}

	rms := math.Sqrt(sumSq / float64(frames))
	bass := e.bassEnergy(mono) * e.cfg.BassBoost

	f := Features{
		RMS:  capUnit(e.rms.step(float32(rms))),
		Peak: capUnit(e.peak.step(float32(peak))),
		Bass: capUnit(e.bass.step(float32(bass))),
	}
	if delta := f.Bass - e.prevBass; delta > e.cfg.KickThreshold {
		f.Kick = 2 * delta
	}
	e.prevBass = f.Bass
	e.latest.Store(&f)
	return f
}

// bassEnergy returns the RMS of the signal content between DC and the bass
// cutoff, computed from the spectrum via Parseval's theorem.
func (e *Extractor) bassEnergy(mono []float64) float64 {
	n := len(mono)
	if n < 2 {
		return 0
	}
	spec := fft.FFTReal(mono)
	binHz := float64(e.cfg.SampleRate) / float64(n)
	top := int(e.cfg.BassCutoffHz / binHz)
	if top > n/2 {
		top = n / 2
	}
	var sum float64
	for k := 1; k <= top; k++ {
		m := cmplx.Abs(spec[k])
		w := 2.0
		if 2*k == n {
			w = 1 // Nyquist bin has no mirror
		}
		sum += w * m * m
	}
	return math.Sqrt(sum) / float64(n)
}

func (e *Extractor) drop(reason string, n int) Features {
	count := e.dropped.Add(1)
	if count == 1 || count%100 == 0 {
		e.log.Warn(reason, "samples", n, "dropped", count)
	}
	return e.Latest()
}

func capUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
