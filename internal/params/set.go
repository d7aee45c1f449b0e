package params

import (
	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
)

// Set is one complete copy of the mutable parameter values. It is a plain
// value: the render thread receives its own copy each frame.
type Set struct {
	values [Count]float32
}

// Defaults returns a Set holding every parameter's default.
func Defaults() Set {
	var s Set
	for id := ID(0); id < Count; id++ {
		s.values[id] = specs[id].Default
	}
	return s
}

// Get returns the stored value of id, or 0 for invalid IDs.
func (s *Set) Get(id ID) float32 {
	if !id.Valid() {
		return 0
	}
	return s.values[id]
}

// Bool reads a toggle.
func (s *Set) Bool(id ID) bool { return s.Get(id) != 0 }

// Put replaces the value of id after sanitising it. Invalid writes leave the
// Set unchanged.
func (s *Set) Put(id ID, v float32) error {
	clean, err := id.Sanitize(v)
	if err != nil {
		return err
	}
	s.values[id] = clean
	return nil
}

// OscillatorConfig is the per-channel oscillator view of a Set.
type OscillatorConfig struct {
	Shape        osc.Shape
	Amplitude    float32
	SpatialFreq  float32
	TemporalFreq float32
}

// Switches holds the cross-modulation switches of a channel. The source of
// each channel is fixed: X feeds Y, Y feeds Z, Z feeds X.
type Switches struct {
	RingMod  bool
	PhaseMod bool
}

// GlobalVisualParams is the non-oscillator view of a Set.
type GlobalVisualParams struct {
	XYDisplacement [2]float32
	CenterOffset   [2]float32
	LumaKeyLevel   float32
	Invert         bool
	BW             bool
	BrightInvert   bool
	LumaMode       KeyMode
	MeshType       mesh.Kind
	GridDensity    int
	Zoom           float32
	Rotation       [3]float32
}

func (s *Set) Oscillator(c Channel) OscillatorConfig {
	return OscillatorConfig{
		Shape:        osc.Shape(s.Get(ShapeID(c))),
		Amplitude:    s.Get(AmplitudeID(c)),
		SpatialFreq:  s.Get(SpatialFreqID(c)),
		TemporalFreq: s.Get(TemporalFreqID(c)),
	}
}

func (s *Set) Switches(c Channel) Switches {
	return Switches{
		RingMod:  s.Bool(RingModID(c)),
		PhaseMod: s.Bool(PhaseModID(c)),
	}
}

func (s *Set) Visual() GlobalVisualParams {
	return GlobalVisualParams{
		XYDisplacement: [2]float32{s.Get(DisplaceX), s.Get(DisplaceY)},
		CenterOffset:   [2]float32{s.Get(CenterX), s.Get(CenterY)},
		LumaKeyLevel:   s.Get(LumaKeyLevel),
		Invert:         s.Bool(Invert),
		BW:             s.Bool(BW),
		BrightInvert:   s.Bool(BrightInvert),
		LumaMode:       KeyMode(s.Get(LumaMode)),
		MeshType:       mesh.Kind(s.Get(MeshType)),
		GridDensity:    int(s.Get(GridDensity)),
		Zoom:           s.Get(Zoom),
		Rotation:       [3]float32{s.Get(RotateX), s.Get(RotateY), s.Get(RotateZ)},
	}
}

// Sensitivity returns the audio sensitivity in [0,5].
func (s *Set) Sensitivity() float32 { return s.Get(AudioSensitivity) }
