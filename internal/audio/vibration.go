package audio

import "math"

// Wave is the audio vibration term carried in the parameter block.
type Wave struct {
	Phase float32
	Amp   float32
	Freq  float32
}

// Vibration produces the per-frame vibration term. Implementations are
// stepped from the render goroutine only.
type Vibration interface {
	Step(f Features, sensitivity, dt float32) Wave
}

// NoVibration leaves the vibration term at zero.
type NoVibration struct{}

func (NoVibration) Step(Features, float32, float32) Wave { return Wave{} }

// BassTremble makes lines tremble with the bass: the phase speeds up with
// bass energy and the amplitude follows it with a fast attack and slow decay.
type BassTremble struct {
	wave Wave
}

const (
	trembleBaseSpeed = 30.0 // rad/s at zero bass
	trembleBassSpeed = 90.0 // extra rad/s at full bass
	trembleAmpScale  = 0.08
	trembleAttack    = 0.4
	trembleDecay     = 0.08
)

func (b *BassTremble) Step(f Features, sensitivity, dt float32) Wave {
	s := ClampSensitivity(sensitivity)
	bass := f.Bass * s
	if dt > 0 {
		phase := float64(b.wave.Phase) + float64((trembleBaseSpeed+trembleBassSpeed*bass)*dt)
		b.wave.Phase = float32(math.Mod(phase, 2*math.Pi))
	}
	target := bass * trembleAmpScale
	if target > b.wave.Amp {
		b.wave.Amp += trembleAttack * (target - b.wave.Amp)
	} else {
		b.wave.Amp += trembleDecay * (target - b.wave.Amp)
	}
	b.wave.Freq = 10 + f.RMS*s*20
	return b.wave
}
