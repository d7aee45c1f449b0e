package params

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestDefaultsMatchTable(t *testing.T) {
	s := Defaults()
	if got := s.Get(XTemporalFreq); got != 0.9 {
		t.Fatalf("x temporal default: got %v, want 0.9", got)
	}
	if got := s.Get(GridDensity); got != 64 {
		t.Fatalf("grid density default: got %v, want 64", got)
	}
	if got := s.Sensitivity(); got != 1 {
		t.Fatalf("sensitivity default: got %v, want 1", got)
	}
	for id := ID(0); id < Count; id++ {
		if id.String() == "" {
			t.Fatalf("param %d has no name", int(id))
		}
		if _, err := id.Sanitize(s.Get(id)); err != nil {
			t.Fatalf("default for %s rejected: %v", id, err)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		id      ID
		in      float32
		want    float32
		wantErr bool
	}{
		{LumaKeyLevel, 1.5, 1, false},
		{LumaKeyLevel, -0.2, 0, false},
		{GridDensity, 10.6, 11, false},
		{GridDensity, 500, 127, false},
		{GridDensity, 0, 1, false},
		{Invert, 1, 1, false},
		{Invert, 0.5, 0, true},
		{XShape, 3, 3, false},
		{XShape, 1.5, 0, true},
		{XShape, 4, 0, true},
		{MeshType, -1, 0, true},
		{AudioSensitivity, 7, 5, false},
		{Zoom, float32(math.NaN()), 0, true},
		{Zoom, float32(math.Inf(1)), 0, true},
		{Count, 0, 0, true},
	}
	for _, c := range cases {
		got, err := c.id.Sanitize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s(%v): expected error", c.id, c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s(%v): unexpected error %v", c.id, c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s(%v): got %v, want %v", c.id, c.in, got, c.want)
		}
	}
}

func TestTrackable(t *testing.T) {
	if !ZAmplitude.Trackable() || !GridDensity.Trackable() {
		t.Fatal("continuous and integer params must be trackable")
	}
	if Invert.Trackable() || ZShape.Trackable() || MeshType.Trackable() {
		t.Fatal("toggles and enums must not be trackable")
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	for _, v := range []float32{-6, -1.5, 0, 2.25, 6} {
		n := ZTemporalFreq.Normalize(v)
		if back := ZTemporalFreq.Denormalize(n); math.Abs(float64(back-v)) > 1e-5 {
			t.Fatalf("round trip %v: got %v", v, back)
		}
	}
}

func TestChannelIDs(t *testing.T) {
	if ShapeID(Y) != YShape || PhaseModID(Z) != ZPhaseMod || AmplitudeID(X) != XAmplitude {
		t.Fatal("channel ID arithmetic does not match the table order")
	}
}

func TestStoreWriteVisibleAfterSwap(t *testing.T) {
	s := NewStore(Defaults())
	if err := s.Set(ZAmplitude, 0.3); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Peek(ZAmplitude); got != 0.3 {
		t.Fatalf("Peek: got %v, want 0.3", got)
	}
	set, dirty := s.Swap()
	if got := set.Get(ZAmplitude); got != 0.3 {
		t.Fatalf("published value: got %v, want 0.3", got)
	}
	if len(dirty) != 1 || dirty[0] != ZAmplitude {
		t.Fatalf("dirty: got %v, want [z_amplitude]", dirty)
	}

	// Nothing written since: empty dirty list, values persist.
	set, dirty = s.Swap()
	if len(dirty) != 0 {
		t.Fatalf("dirty after idle frame: got %v", dirty)
	}
	if got := set.Get(ZAmplitude); got != 0.3 {
		t.Fatalf("value lost across swap: got %v", got)
	}
}

func TestStoreWriteAfterSwapNotInPublishedCopy(t *testing.T) {
	s := NewStore(Defaults())
	set, _ := s.Swap()
	if err := s.Set(LumaKeyLevel, 0.9); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := set.Get(LumaKeyLevel); got != 0.5 {
		t.Fatalf("published copy changed: got %v, want 0.5", got)
	}
	next, _ := s.Swap()
	if got := next.Get(LumaKeyLevel); got != 0.9 {
		t.Fatalf("next frame: got %v, want 0.9", got)
	}
}

func TestStoreRejectsInvalid(t *testing.T) {
	s := NewStore(Defaults())
	err := s.Set(XShape, 2.5)
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue", err)
	}
	if _, dirty := s.Swap(); len(dirty) != 0 {
		t.Fatalf("rejected write marked dirty: %v", dirty)
	}
	if err := s.Set(ID(-1), 0); !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("got %v, want ErrUnknownParam", err)
	}
}

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore(Defaults())
	_ = s.Set(Zoom, 10)
	_ = s.Set(Zoom, -20)
	set, dirty := s.Swap()
	if got := set.Get(Zoom); got != -20 {
		t.Fatalf("got %v, want -20", got)
	}
	if len(dirty) != 1 {
		t.Fatalf("dirty: got %v", dirty)
	}
}

// Each writer owns one field and writes a strictly increasing counter. The
// reader must never observe a field going backwards or exceeding what was
// written.
func TestStoreConcurrentWritersAndSwap(t *testing.T) {
	fields := []ID{Zoom, XSpatialFreq, YSpatialFreq, ZSpatialFreq}
	const writes = 2000
	s := NewStore(Defaults())
	for _, id := range fields {
		_ = s.Set(id, 0)
	}
	s.Swap()

	var wg sync.WaitGroup
	for i, id := range fields {
		wg.Add(1)
		go func(id ID, scale float32) {
			defer wg.Done()
			for n := 1; n <= writes; n++ {
				v := float32(n) * scale
				if err := s.Set(id, v); err != nil {
					t.Errorf("Set(%s): %v", id, err)
					return
				}
			}
		}(id, 0.001*float32(i+1))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	last := make(map[ID]float32)
	check := func(set Set) {
		for i, id := range fields {
			v := set.Get(id)
			if v < last[id] {
				t.Fatalf("%s went backwards: %v after %v", id, v, last[id])
			}
			if max := float32(writes) * 0.001 * float32(i+1); v > max+1e-3 {
				t.Fatalf("%s out of range: %v", id, v)
			}
			last[id] = v
		}
	}
	for {
		select {
		case <-done:
			set, _ := s.Swap()
			check(set)
			for i, id := range fields {
				want := float32(writes) * 0.001 * float32(i+1)
				if math.Abs(float64(set.Get(id)-want)) > 1e-4 {
					t.Fatalf("%s final: got %v, want %v", id, set.Get(id), want)
				}
			}
			return
		default:
			set, _ := s.Swap()
			check(set)
		}
	}
}
