package control

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

// Key names follow ebiten's key naming ("A", "Digit1", "Comma", "ArrowUp").

type keyAction struct {
	help string
	run  func(t Target) error
}

func step(id params.ID, delta float32) keyAction {
	return keyAction{help: fmt.Sprintf("%s %+g", id, delta), run: func(t Target) error { return nudge(t, id, delta) }}
}

func toggle(id params.ID) keyAction {
	return keyAction{help: "toggle " + id.String(), run: func(t Target) error { return flip(t, id) }}
}

func cycleShape(ch params.Channel) keyAction {
	id := params.ShapeID(ch)
	return keyAction{help: "cycle " + id.String(), run: func(t Target) error {
		return t.Set(id, float32(osc.Shape(t.Peek(id)).Next()))
	}}
}

func selectMesh(k mesh.Kind) keyAction {
	return keyAction{help: "mesh " + k.String(), run: func(t Target) error {
		return t.Set(params.MeshType, float32(k))
	}}
}

var keyTable = map[string]keyAction{
	"A": step(params.LumaKeyLevel, 0.01),
	"Z": step(params.LumaKeyLevel, -0.01),

	"S": step(params.ZSpatialFreq, 0.05),
	"X": step(params.ZSpatialFreq, -0.05),
	"D": step(params.ZTemporalFreq, 0.06),
	"C": step(params.ZTemporalFreq, -0.06),
	"F": step(params.ZAmplitude, 0.005),
	"V": step(params.ZAmplitude, -0.005),

	"G": step(params.XSpatialFreq, 0.05),
	"B": step(params.XSpatialFreq, -0.05),
	"H": step(params.XTemporalFreq, 0.06),
	"N": step(params.XTemporalFreq, -0.06),
	"J": step(params.XAmplitude, 0.005),
	"M": step(params.XAmplitude, -0.005),

	"K":         step(params.YSpatialFreq, 0.05),
	"Comma":     step(params.YSpatialFreq, -0.05),
	"L":         step(params.YTemporalFreq, 0.06),
	"Period":    step(params.YTemporalFreq, -0.06),
	"Semicolon": step(params.YAmplitude, 0.005),
	"Slash":     step(params.YAmplitude, -0.005),

	"T": step(params.CenterX, 0.02),
	"Y": step(params.CenterX, -0.02),
	"U": step(params.CenterY, 0.02),
	"I": step(params.CenterY, -0.02),

	"O": step(params.Zoom, 5),
	"P": step(params.Zoom, -5),

	"Q": step(params.DisplaceX, 0.005),
	"W": step(params.DisplaceX, -0.005),
	"E": step(params.DisplaceY, 0.005),
	"R": step(params.DisplaceY, -0.005),

	"BracketRight": step(params.GridDensity, 1),
	"BracketLeft":  step(params.GridDensity, -1),

	"Digit1": toggle(params.LumaMode),
	"Digit2": toggle(params.BrightInvert),
	"Digit3": toggle(params.Invert),
	"Digit5": toggle(params.BW),

	"Digit6": cycleShape(params.Z),
	"Digit7": cycleShape(params.X),
	"Digit8": cycleShape(params.Y),

	"Digit9": selectMesh(mesh.VLines),
	"Digit0": selectMesh(mesh.HLines),
	"Minus":  selectMesh(mesh.Triangles),
	"Equal":  selectMesh(mesh.Grid),

	"ArrowUp":   step(params.AudioSensitivity, 0.1),
	"ArrowDown": step(params.AudioSensitivity, -0.1),

	"Enter": {help: "record / stop recording", run: func(t Target) error {
		if t.Recording() {
			t.StopRecording()
		} else {
			t.Record()
		}
		return nil
	}},
	"Backspace": {help: "clear automation", run: func(t Target) error {
		t.ClearAutomation()
		return nil
	}},
}

// Keyboard applies key presses to a Target.
type Keyboard struct {
	target Target
	log    *slog.Logger
}

func NewKeyboard(target Target, logger *slog.Logger) *Keyboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyboard{target: target, log: logger}
}

// Press handles one key press and reports whether the key is bound.
func (k *Keyboard) Press(key string) bool {
	a, ok := keyTable[key]
	if !ok {
		return false
	}
	if err := a.run(k.target); err != nil {
		k.log.Debug("key write rejected", "key", key, "err", err)
	}
	return true
}

// Binding is one row of the key help table.
type Binding struct {
	Key  string
	Help string
}

// Bindings lists the key table sorted by key name.
func Bindings() []Binding {
	out := make([]Binding, 0, len(keyTable))
	for key, a := range keyTable {
		out = append(out, Binding{Key: key, Help: a.help})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
