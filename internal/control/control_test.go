package control

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

type fakeTarget struct {
	store     *params.Store
	recording bool
	records   int
	stops     int
	clears    int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{store: params.NewStore(params.Defaults())}
}

func (f *fakeTarget) Set(id params.ID, v float32) error { return f.store.Set(id, v) }
func (f *fakeTarget) Peek(id params.ID) float32         { return f.store.Peek(id) }
func (f *fakeTarget) Record()                           { f.records++; f.recording = true }
func (f *fakeTarget) StopRecording()                    { f.stops++; f.recording = false }
func (f *fakeTarget) ClearAutomation()                  { f.clears++; f.recording = false }
func (f *fakeTarget) Recording() bool                   { return f.recording }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func TestContinuousCCNeedsTakeover(t *testing.T) {
	tgt := newFakeTarget()
	r := NewRouter(tgt, quiet())

	// Luma defaults to 0.5; a knob at 0 is far away and must be ignored.
	r.HandleCC(16, 0)
	if got := tgt.Peek(params.LumaKeyLevel); got != 0.5 {
		t.Fatalf("far knob wrote: got %v, want 0.5", got)
	}
	// Knob reaches the live value: picks it up, then tracks freely.
	r.HandleCC(16, 64)
	if got := tgt.Peek(params.LumaKeyLevel); !near(got, 64.0/127) {
		t.Fatalf("takeover: got %v, want %v", got, 64.0/127)
	}
	r.HandleCC(16, 0)
	if got := tgt.Peek(params.LumaKeyLevel); got != 0 {
		t.Fatalf("latched knob: got %v, want 0", got)
	}
}

func TestTakeoverReleasedByOtherSource(t *testing.T) {
	tgt := newFakeTarget()
	r := NewRouter(tgt, quiet())
	r.HandleCC(16, 64)
	_ = tgt.Set(params.LumaKeyLevel, 1) // keyboard moved it
	r.HandleCC(16, 10)
	if got := tgt.Peek(params.LumaKeyLevel); got != 1 {
		t.Fatalf("knob kept control after external change: got %v", got)
	}
}

func TestContinuousCCMapsRange(t *testing.T) {
	tgt := newFakeTarget()
	r := NewRouter(tgt, quiet())
	// Zoom defaults to 0 (middle of -100..100); sweep from the middle up.
	for v := uint8(64); v < 128; v++ {
		r.HandleCC(22, v)
	}
	if got := tgt.Peek(params.Zoom); got != 100 {
		t.Fatalf("zoom at 127: got %v, want 100", got)
	}
}

func TestInvertedDensityCC(t *testing.T) {
	tgt := newFakeTarget()
	r := NewRouter(tgt, quiet())
	// Density 64 normalizes to 0.5; inverted CC 63/64 sits there.
	for v := 64; v >= 0; v-- {
		r.HandleCC(23, uint8(v))
	}
	if got := tgt.Peek(params.GridDensity); got != mesh.MaxDensity {
		t.Fatalf("density at CC 0: got %v, want %d", got, mesh.MaxDensity)
	}
}

func TestSwitchCCs(t *testing.T) {
	tgt := newFakeTarget()
	r := NewRouter(tgt, quiet())

	r.HandleCC(51, 127)
	if got := osc.Shape(tgt.Peek(params.ZShape)); got != osc.Triangle {
		t.Fatalf("z shape: got %s, want triangle", got)
	}
	r.HandleCC(51, 0)
	if got := osc.Shape(tgt.Peek(params.ZShape)); got != osc.Sine {
		t.Fatalf("z shape release: got %s, want sine", got)
	}

	r.HandleCC(52, 127)
	if tgt.Peek(params.XRingMod) != 1 {
		t.Fatal("x ring mod not enabled")
	}
	r.HandleCC(42, 127)
	if got := mesh.Kind(tgt.Peek(params.MeshType)); got != mesh.VLines {
		t.Fatalf("mesh: got %s, want vlines", got)
	}
	r.HandleCC(42, 0)
	if got := mesh.Kind(tgt.Peek(params.MeshType)); got != mesh.VLines {
		t.Fatalf("mesh release changed selection: got %s", got)
	}
	r.HandleCC(99, 127) // unmapped
}

func TestAutomationCCs(t *testing.T) {
	tgt := newFakeTarget()
	r := NewRouter(tgt, quiet())
	r.HandleCC(60, 127)
	r.HandleCC(60, 0)
	r.HandleCC(58, 0)
	r.HandleCC(58, 127)
	if tgt.records != 1 || tgt.stops != 1 || tgt.clears != 1 {
		t.Fatalf("records %d stops %d clears %d", tgt.records, tgt.stops, tgt.clears)
	}
}

func TestKeyboardSteps(t *testing.T) {
	tgt := newFakeTarget()
	kb := NewKeyboard(tgt, quiet())

	kb.Press("A")
	if got := tgt.Peek(params.LumaKeyLevel); !near(got, 0.51) {
		t.Fatalf("luma after A: got %v, want 0.51", got)
	}
	for i := 0; i < 100; i++ {
		kb.Press("ArrowUp")
	}
	if got := tgt.Peek(params.AudioSensitivity); got != 5 {
		t.Fatalf("sensitivity clamp: got %v, want 5", got)
	}
	kb.Press("Digit6")
	if got := osc.Shape(tgt.Peek(params.ZShape)); got != osc.Square {
		t.Fatalf("z shape after cycle: got %s", got)
	}
	kb.Press("Digit3")
	kb.Press("Digit3")
	if tgt.Peek(params.Invert) != 0 {
		t.Fatal("double toggle should restore invert")
	}
	kb.Press("Equal")
	if got := mesh.Kind(tgt.Peek(params.MeshType)); got != mesh.Grid {
		t.Fatalf("mesh: got %s, want grid", got)
	}
	kb.Press("BracketLeft")
	if got := tgt.Peek(params.GridDensity); got != 63 {
		t.Fatalf("density: got %v, want 63", got)
	}
	if kb.Press("F12") {
		t.Fatal("unbound key reported as handled")
	}
}

func TestKeyboardRecordToggle(t *testing.T) {
	tgt := newFakeTarget()
	kb := NewKeyboard(tgt, quiet())
	kb.Press("Enter")
	kb.Press("Enter")
	kb.Press("Backspace")
	if tgt.records != 1 || tgt.stops != 1 || tgt.clears != 1 {
		t.Fatalf("records %d stops %d clears %d", tgt.records, tgt.stops, tgt.clears)
	}
}

func TestBindingsSorted(t *testing.T) {
	b := Bindings()
	if len(b) != len(keyTable) {
		t.Fatalf("got %d bindings, want %d", len(b), len(keyTable))
	}
	for i := 1; i < len(b); i++ {
		if b[i-1].Key > b[i].Key {
			t.Fatalf("bindings not sorted at %d", i)
		}
	}
}
