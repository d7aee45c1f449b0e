package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

// ErrNoMIDIPort is returned when the requested MIDI input does not exist.
var ErrNoMIDIPort = errors.New("midi input port not found")

// TakeoverThreshold is how close, in normalized units, a knob must come to
// the current value before it starts writing.
const TakeoverThreshold = 0.04

type ccKind int

const (
	ccContinuous ccKind = iota
	ccInverted          // continuous, 127 maps to the range minimum
	ccToggle            // 127 on, anything else off
	ccSelect            // 127 writes value, anything else writes fallback
	ccPress             // 127 writes value, anything else ignored
	ccRecord            // 127 starts recording, anything else stops
	ccClear             // 127 clears automation
)

type ccBinding struct {
	kind     ccKind
	id       params.ID
	value    float32
	fallback float32
}

func shapeCC(ch params.Channel, s osc.Shape) ccBinding {
	return ccBinding{kind: ccSelect, id: params.ShapeID(ch), value: float32(s), fallback: float32(osc.Sine)}
}

func meshCC(k mesh.Kind) ccBinding {
	return ccBinding{kind: ccPress, id: params.MeshType, value: float32(k)}
}

var ccTable = map[uint8]ccBinding{
	16: {kind: ccContinuous, id: params.LumaKeyLevel},
	17: {kind: ccContinuous, id: params.DisplaceX},
	18: {kind: ccContinuous, id: params.DisplaceY},
	19: {kind: ccContinuous, id: params.ZSpatialFreq},
	20: {kind: ccContinuous, id: params.XSpatialFreq},
	21: {kind: ccContinuous, id: params.YSpatialFreq},
	22: {kind: ccContinuous, id: params.Zoom},
	23: {kind: ccInverted, id: params.GridDensity},

	120: {kind: ccContinuous, id: params.CenterX},
	121: {kind: ccContinuous, id: params.CenterY},
	122: {kind: ccContinuous, id: params.ZTemporalFreq},
	123: {kind: ccContinuous, id: params.ZAmplitude},
	124: {kind: ccContinuous, id: params.XTemporalFreq},
	125: {kind: ccContinuous, id: params.XAmplitude},
	126: {kind: ccContinuous, id: params.YTemporalFreq},
	127: {kind: ccContinuous, id: params.YAmplitude},

	60: {kind: ccRecord},
	58: {kind: ccClear},

	35: shapeCC(params.Z, osc.Square),
	51: shapeCC(params.Z, osc.Triangle),
	67: shapeCC(params.Z, osc.Noise),
	37: shapeCC(params.X, osc.Square),
	53: shapeCC(params.X, osc.Triangle),
	69: shapeCC(params.X, osc.Noise),
	39: shapeCC(params.Y, osc.Square),
	55: shapeCC(params.Y, osc.Triangle),
	71: shapeCC(params.Y, osc.Noise),

	50: {kind: ccToggle, id: params.ZRingMod},
	66: {kind: ccToggle, id: params.ZPhaseMod},
	52: {kind: ccToggle, id: params.XRingMod},
	68: {kind: ccToggle, id: params.XPhaseMod},
	54: {kind: ccToggle, id: params.YRingMod},
	70: {kind: ccToggle, id: params.YPhaseMod},

	41: meshCC(mesh.Grid),
	42: meshCC(mesh.VLines),
	43: meshCC(mesh.Triangles),
	44: meshCC(mesh.HLines),

	46: {kind: ccToggle, id: params.BW},
	59: {kind: ccToggle, id: params.Invert},
	61: {kind: ccToggle, id: params.BrightInvert},
}

// Router turns control changes into Target calls. Continuous controls use
// soft takeover: a knob is ignored until it comes within TakeoverThreshold of
// the live value, and it lets go again when another source changes the value.
type Router struct {
	target Target
	log    *slog.Logger

	mu      sync.Mutex
	latched [params.Count]bool
	last    [params.Count]float32 // live value right after our last write
}

func NewRouter(target Target, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{target: target, log: logger}
}

// HandleCC applies one control change. Unmapped controllers are ignored.
func (r *Router) HandleCC(cc, value uint8) {
	b, ok := ccTable[cc]
	if !ok {
		return
	}
	on := value == 127
	var err error
	switch b.kind {
	case ccContinuous:
		r.soft(b.id, float32(value)/127)
	case ccInverted:
		r.soft(b.id, 1-float32(value)/127)
	case ccToggle:
		err = r.target.Set(b.id, params.BoolValue(on))
	case ccSelect:
		v := b.fallback
		if on {
			v = b.value
		}
		err = r.target.Set(b.id, v)
	case ccPress:
		if on {
			err = r.target.Set(b.id, b.value)
		}
	case ccRecord:
		if on {
			r.target.Record()
		} else {
			r.target.StopRecording()
		}
	case ccClear:
		if on {
			r.target.ClearAutomation()
			r.Release()
		}
	}
	if err != nil {
		r.log.Debug("midi write rejected", "cc", cc, "value", value, "err", err)
	}
}

// Release drops every takeover latch.
func (r *Router) Release() {
	r.mu.Lock()
	r.latched = [params.Count]bool{}
	r.mu.Unlock()
}

func (r *Router) soft(id params.ID, n float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.target.Peek(id)
	if r.latched[id] && live != r.last[id] {
		// Another source moved the value; the knob has to pick it up again.
		r.latched[id] = false
	}
	if !r.latched[id] {
		if float32(math.Abs(float64(n-id.Normalize(live)))) >= TakeoverThreshold {
			return
		}
		r.latched[id] = true
	}
	if err := r.target.Set(id, id.Denormalize(n)); err != nil {
		r.log.Debug("midi write rejected", "param", id, "err", err)
		return
	}
	r.last[id] = r.target.Peek(id)
}

// ListPorts returns the names of the available MIDI inputs.
func ListPorts() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// Listen feeds control changes from MIDI input port into r until ctx is
// done. A missing port returns ErrNoMIDIPort immediately.
func Listen(ctx context.Context, port int, r *Router, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("midi driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("list midi inputs: %w", err)
	}
	if port < 0 || port >= len(ins) {
		return fmt.Errorf("%w: index %d of %d", ErrNoMIDIPort, port, len(ins))
	}
	in := ins[port]
	if err := in.Open(); err != nil {
		return fmt.Errorf("open midi input %q: %w", in.String(), err)
	}
	defer in.Close()

	stop, err := listen(in, r, logger)
	if err != nil {
		return err
	}
	defer stop()
	logger.Info("midi input connected", "device", in.String())

	<-ctx.Done()
	logger.Info("midi input closed", "device", in.String())
	return nil
}

func listen(in drivers.In, r *Router, logger *slog.Logger) (func(), error) {
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		var ch, cc, val uint8
		if msg.GetControlChange(&ch, &cc, &val) {
			r.HandleCC(cc, val)
		}
	}, midi.HandleError(func(err error) {
		logger.Warn("midi listener error", "device", in.String(), "err", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", in.String(), err)
	}
	return stop, nil
}
