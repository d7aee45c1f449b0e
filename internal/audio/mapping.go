package audio

import "math"

// MaxSensitivity bounds the operator audio sensitivity.
const MaxSensitivity = 5

// Block scale factors applied when the modulation terms reach the shader.
const (
	DisplacementGain = 0.1
	ZGain            = 0.05
)

// Mod is the sensitivity-scaled audio modulation for one frame.
type Mod struct {
	Displacement float32
	LFO          float32
	Z            float32
}

// ClampSensitivity bounds s to [0, MaxSensitivity]; NaN maps to 0.
func ClampSensitivity(s float32) float32 {
	if math.IsNaN(float64(s)) || s < 0 {
		return 0
	}
	if s > MaxSensitivity {
		return MaxSensitivity
	}
	return s
}

// Map scales features by sensitivity. Every term is monotonic non-decreasing
// in sensitivity and exactly zero at zero sensitivity.
func Map(f Features, sensitivity float32) Mod {
	s := ClampSensitivity(sensitivity)
	if s == 0 {
		return Mod{}
	}
	bass := f.Bass * s
	return Mod{
		Displacement: bass * 2,
		LFO:          f.RMS * s,
		Z:            bass * 0.02,
	}
}

// Scaled returns the audio_displacement and audio_z block terms.
func (m Mod) Scaled() (displacement, z float32) {
	return DisplacementGain * m.Displacement, ZGain * m.Z
}
