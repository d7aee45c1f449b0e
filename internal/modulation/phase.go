package modulation

import (
	"math"

	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

const twoPi = 2 * math.Pi

// Phase holds the accumulated oscillator phase of each channel in radians,
// always within [0, 2π).
type Phase struct {
	X, Y, Z float32
}

// Of returns the phase of channel c.
func (p Phase) Of(c params.Channel) float32 {
	switch c {
	case params.X:
		return p.X
	case params.Y:
		return p.Y
	case params.Z:
		return p.Z
	}
	return 0
}

func (p *Phase) ptr(c params.Channel) *float32 {
	switch c {
	case params.Y:
		return &p.Y
	case params.Z:
		return &p.Z
	}
	return &p.X
}

// Advance moves each phase forward by temporal_freq * dt and wraps it.
// Non-positive or non-finite dt leaves the phases untouched.
func (p *Phase) Advance(set *params.Set, dt float32) {
	if !(dt > 0) || math.IsInf(float64(dt), 0) {
		return
	}
	for _, c := range params.Channels {
		ph := p.ptr(c)
		*ph = wrapPhase(float64(*ph) + float64(set.Get(params.TemporalFreqID(c)))*float64(dt))
	}
}

// wrapPhase reduces x into [0, 2π).
func wrapPhase(x float64) float32 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
	}
	w := float32(x)
	// Rounding to float32 can land exactly on 2π.
	if w >= float32(twoPi) {
		w = 0
	}
	return w
}
