package modulation

import (
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

// Cross-modulation depths. Ring modulation into X is much deeper than into Y
// or Z; the render shader was tuned against these values.
const (
	ringXToY   = 0.5  // k1
	phaseIntoY = 10.0 // k2
	ringYToZ   = 0.5  // k3
	ringZToX   = 10.0 // k4
	phaseZToX  = 10.0 // k5
)

// Channels are the scalar outputs of one chain pass.
type Channels struct {
	X, Y, Z float32
}

// Chain owns the phase accumulators and evaluates the X→Y→Z→X→Y pipeline.
// It is driven by the render thread only.
type Chain struct {
	phase Phase
	banks [3]*osc.Bank
}

// NewChain returns a chain whose channels read noise from the given banks.
// A nil bank evaluates the Noise shape as silence.
func NewChain(x, y, z *osc.Bank) *Chain {
	c := &Chain{banks: [3]*osc.Bank{x, y, z}}
	for i, b := range c.banks {
		if b == nil {
			c.banks[i] = osc.NewBank(nil)
		}
	}
	return c
}

// Phase returns the current phase accumulators.
func (c *Chain) Phase() Phase { return c.phase }

// Reset zeroes the phase accumulators.
func (c *Chain) Reset() { c.phase = Phase{} }

// Advance moves the phases by temporal_freq * dt seconds.
func (c *Chain) Advance(set *params.Set, dt float32) {
	c.phase.Advance(set, dt)
}

// Evaluate returns the per-frame channel coefficients.
func (c *Chain) Evaluate(set *params.Set, audioZ float32) Channels {
	return c.EvaluateAt(set, audioZ, osc.Coord{})
}

// EvaluateAt runs the pipeline at a spatial coordinate, offsetting each
// channel's phase by spatial_freq times its coordinate axis. X follows V (rows
// move sideways), Y follows U, and Z follows U+V.
//
// Order matters: x0 seeds Y, Y seeds Z, Z recomputes X, and the final X
// recomputes Y. No stage reads its own in-progress value.
//
// Noise-shaped channels look up the field at a coordinate that scrolls along
// U by theta/2π, so at a fixed point, including the origin used by Evaluate,
// the noise value changes as the phase advances. The oscillator bank itself
// only ever sees that coordinate, never theta.
func (c *Chain) EvaluateAt(set *params.Set, audioZ float32, at osc.Coord) Channels {
	ox, oy, oz := set.Oscillator(params.X), set.Oscillator(params.Y), set.Oscillator(params.Z)
	sx, sy, sz := set.Switches(params.X), set.Switches(params.Y), set.Switches(params.Z)

	px := c.phase.X + ox.SpatialFreq*at.V
	py := c.phase.Y + oy.SpatialFreq*at.U
	pz := c.phase.Z + oz.SpatialFreq*(at.U+at.V)

	ex := func(theta float32) float32 {
		return c.banks[params.X].Evaluate(theta, ox.Shape, noiseCoord(theta, ox.SpatialFreq, at))
	}
	ey := func(theta float32) float32 {
		return c.banks[params.Y].Evaluate(theta, oy.Shape, noiseCoord(theta, oy.SpatialFreq, at))
	}
	ez := func(theta float32) float32 {
		return c.banks[params.Z].Evaluate(theta, oz.Shape, noiseCoord(theta, oz.SpatialFreq, at))
	}

	x0 := ox.Amplitude * ex(px)
	y := (oy.Amplitude + on(sy.RingMod)*ringXToY*x0) * ey(py+on(sy.PhaseMod)*phaseIntoY*x0)
	z := (oz.Amplitude + on(sz.RingMod)*ringYToZ*y + audioZ) * ez(pz+on(sz.PhaseMod)*y)
	x1 := (ox.Amplitude + on(sx.RingMod)*ringZToX*z) * ex(px+on(sx.PhaseMod)*phaseZToX*z)
	yFinal := (oy.Amplitude + on(sy.RingMod)*x1) * ey(py+on(sy.PhaseMod)*phaseIntoY*x1)

	return Channels{X: x1, Y: yFinal, Z: z}
}

// noiseCoord scrolls the noise lookup with the channel phase so noise-shaped
// channels animate at their temporal rate.
func noiseCoord(theta, spatial float32, at osc.Coord) osc.Coord {
	return osc.Coord{
		U: at.U*spatial + theta/twoPi,
		V: at.V * spatial,
	}
}

func on(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
