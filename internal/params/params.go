package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
)

// ErrInvalidValue is returned when a write is malformed for its parameter
// (non-finite, non-integral enum index, toggle other than 0/1).
var ErrInvalidValue = errors.New("invalid parameter value")

// ErrUnknownParam is returned for IDs outside the parameter table.
var ErrUnknownParam = errors.New("unknown parameter")

// ID addresses one mutable engine parameter.
type ID int

const (
	LumaKeyLevel ID = iota
	DisplaceX
	DisplaceY
	CenterX
	CenterY
	Zoom
	RotateX
	RotateY
	RotateZ
	GridDensity
	MeshType
	LumaMode
	Invert
	BW
	BrightInvert

	XShape
	XAmplitude
	XSpatialFreq
	XTemporalFreq
	XRingMod
	XPhaseMod

	YShape
	YAmplitude
	YSpatialFreq
	YTemporalFreq
	YRingMod
	YPhaseMod

	ZShape
	ZAmplitude
	ZSpatialFreq
	ZTemporalFreq
	ZRingMod
	ZPhaseMod

	AudioSensitivity

	Count
)

// Per-channel field offsets from the channel's Shape ID.
const (
	offShape = iota
	offAmplitude
	offSpatial
	offTemporal
	offRing
	offPhase
	channelStride
)

// Channel selects one of the three LFO channels.
type Channel int

const (
	X Channel = iota
	Y
	Z
)

// Channels lists X, Y, Z in evaluation-independent order.
var Channels = [3]Channel{X, Y, Z}

func (c Channel) String() string {
	switch c {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

func (c Channel) base() ID { return XShape + ID(c)*channelStride }

func ShapeID(c Channel) ID        { return c.base() + offShape }
func AmplitudeID(c Channel) ID    { return c.base() + offAmplitude }
func SpatialFreqID(c Channel) ID  { return c.base() + offSpatial }
func TemporalFreqID(c Channel) ID { return c.base() + offTemporal }
func RingModID(c Channel) ID      { return c.base() + offRing }
func PhaseModID(c Channel) ID     { return c.base() + offPhase }

// Kind describes how a parameter value is validated.
type Kind int

const (
	Continuous Kind = iota // clamped to [Min, Max]
	Integer                // rounded, then clamped
	Toggle                 // exactly 0 or 1
	Enum                   // integral index in [Min, Max]
)

// KeyMode selects which side of the luma key threshold is keyed out.
type KeyMode int32

const (
	KeyBelow KeyMode = iota
	KeyAbove
)

// Spec is the static description of one parameter.
type Spec struct {
	Name    string
	Kind    Kind
	Min     float32
	Max     float32
	Default float32
}

var specs = [Count]Spec{
	LumaKeyLevel: {"luma_key_level", Continuous, 0, 1, 0.5},
	DisplaceX:    {"displace_x", Continuous, -0.5, 0.5, 0.05},
	DisplaceY:    {"displace_y", Continuous, -0.5, 0.5, 0.05},
	CenterX:      {"center_x", Continuous, -1, 1, 0},
	CenterY:      {"center_y", Continuous, -1, 1, 0},
	Zoom:         {"zoom", Continuous, -100, 100, 0},
	RotateX:      {"rotate_x", Continuous, -math.Pi, math.Pi, 0},
	RotateY:      {"rotate_y", Continuous, -math.Pi, math.Pi, 0},
	RotateZ:      {"rotate_z", Continuous, -math.Pi, math.Pi, 0},
	GridDensity:  {"grid_density", Integer, mesh.MinDensity, mesh.MaxDensity, 64},
	MeshType:     {"mesh_type", Enum, 0, float32(mesh.KindCount - 1), float32(mesh.Triangles)},
	LumaMode:     {"luma_mode", Enum, 0, float32(KeyAbove), float32(KeyBelow)},
	Invert:       {"invert", Toggle, 0, 1, 0},
	BW:           {"bw", Toggle, 0, 1, 0},
	BrightInvert: {"bright_invert", Toggle, 0, 1, 0},

	XShape:        {"x_shape", Enum, 0, float32(osc.ShapeCount - 1), float32(osc.Sine)},
	XAmplitude:    {"x_amplitude", Continuous, -1, 1, 0.06},
	XSpatialFreq:  {"x_spatial_freq", Continuous, -10, 10, 3},
	XTemporalFreq: {"x_temporal_freq", Continuous, -6, 6, 0.9},
	XRingMod:      {"x_ring_mod", Toggle, 0, 1, 0},
	XPhaseMod:     {"x_phase_mod", Toggle, 0, 1, 0},

	YShape:        {"y_shape", Enum, 0, float32(osc.ShapeCount - 1), float32(osc.Sine)},
	YAmplitude:    {"y_amplitude", Continuous, -1, 1, 0.06},
	YSpatialFreq:  {"y_spatial_freq", Continuous, -10, 10, 3},
	YTemporalFreq: {"y_temporal_freq", Continuous, -6, 6, 1.08},
	YRingMod:      {"y_ring_mod", Toggle, 0, 1, 0},
	YPhaseMod:     {"y_phase_mod", Toggle, 0, 1, 0},

	ZShape:        {"z_shape", Enum, 0, float32(osc.ShapeCount - 1), float32(osc.Sine)},
	ZAmplitude:    {"z_amplitude", Continuous, -1, 1, 0.02},
	ZSpatialFreq:  {"z_spatial_freq", Continuous, -10, 10, 2},
	ZTemporalFreq: {"z_temporal_freq", Continuous, -6, 6, 1.2},
	ZRingMod:      {"z_ring_mod", Toggle, 0, 1, 0},
	ZPhaseMod:     {"z_phase_mod", Toggle, 0, 1, 0},

	AudioSensitivity: {"audio_sensitivity", Continuous, 0, 5, 1},
}

// Valid reports whether id names a parameter.
func (id ID) Valid() bool { return id >= 0 && id < Count }

// Spec returns the static description of id. Invalid IDs return a zero Spec.
func (id ID) Spec() Spec {
	if !id.Valid() {
		return Spec{}
	}
	return specs[id]
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("param(%d)", int(id))
	}
	return specs[id].Name
}

// Trackable reports whether the parameter can carry P-Lock automation.
// Only knob-like parameters are automated; switches and selections pass through.
func (id ID) Trackable() bool {
	if !id.Valid() {
		return false
	}
	k := specs[id].Kind
	return k == Continuous || k == Integer
}

// Normalize maps v from the parameter range onto [0,1].
func (id ID) Normalize(v float32) float32 {
	s := id.Spec()
	if s.Max == s.Min {
		return 0
	}
	n := (v - s.Min) / (s.Max - s.Min)
	return clamp(n, 0, 1)
}

// Denormalize maps n in [0,1] onto the parameter range. n is clamped first.
func (id ID) Denormalize(n float32) float32 {
	s := id.Spec()
	return s.Min + clamp(n, 0, 1)*(s.Max-s.Min)
}

// Sanitize validates v for id, returning the value that would be stored.
// Continuous and integer values are clamped into range; toggles and enum
// selections that do not name a legal state are rejected.
func (id ID) Sanitize(v float32) (float32, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownParam, int(id))
	}
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidValue, id, v)
	}
	s := specs[id]
	switch s.Kind {
	case Continuous:
		return clamp(v, s.Min, s.Max), nil
	case Integer:
		return clamp(float32(math.Round(float64(v))), s.Min, s.Max), nil
	case Toggle:
		if v != 0 && v != 1 {
			return 0, fmt.Errorf("%w: %s=%v", ErrInvalidValue, id, v)
		}
		return v, nil
	case Enum:
		if v != float32(math.Trunc(float64(v))) || v < s.Min || v > s.Max {
			return 0, fmt.Errorf("%w: %s=%v", ErrInvalidValue, id, v)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownParam, id)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BoolValue converts a switch state into a stored toggle value.
func BoolValue(on bool) float32 {
	if on {
		return 1
	}
	return 0
}
