package spectralmesh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ymlaine/spectral-mesh-go/internal/audio"
	"github.com/ymlaine/spectral-mesh-go/internal/modulation"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
	"github.com/ymlaine/spectral-mesh-go/internal/plock"
)

const frameDT = time.Second / 60

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func mustSet(t *testing.T, e *Engine, id params.ID, v float32) {
	t.Helper()
	if err := e.Set(id, v); err != nil {
		t.Fatalf("Set(%s, %v): %v", id, v, err)
	}
}

// bassTone returns an interleaved stereo 100 Hz sine.
func bassTone(frames int) []float32 {
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		s := float32(0.8 * math.Sin(2*math.Pi*100*float64(i)/48000))
		out[2*i], out[2*i+1] = s, s
	}
	return out
}

func TestNewRejectsZeroLoopLength(t *testing.T) {
	_, err := New(WithLoopLength(0))
	if !errors.Is(err, plock.ErrInvalidLoopLength) {
		t.Fatalf("got %v, want ErrInvalidLoopLength", err)
	}
	if _, err := New(WithFrameSize(0, 540)); err == nil {
		t.Fatal("zero frame width accepted")
	}
}

func TestRecordLoopRejectsZeroLength(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RecordLoop(0); !errors.Is(err, plock.ErrInvalidLoopLength) {
		t.Fatalf("got %v, want ErrInvalidLoopLength", err)
	}
	e.Tick(frameDT)
	if e.Mode() != plock.Idle {
		t.Fatalf("mode: got %s, want idle", e.Mode())
	}
}

func TestSetVisibleOnNextTick(t *testing.T) {
	e := newTestEngine(t)
	mustSet(t, e, params.Zoom, 42)
	if got := e.Peek(params.Zoom); got != 42 {
		t.Fatalf("peek: got %v, want 42", got)
	}
	f := e.Tick(frameDT)
	if got := f.Params.Get(params.Zoom); got != 42 {
		t.Fatalf("frame zoom: got %v, want 42", got)
	}
	if f.Index != 0 {
		t.Fatalf("first frame index: got %d", f.Index)
	}
	if e.Set(params.MeshType, 9) == nil {
		t.Fatal("out of range mesh type accepted")
	}
}

func TestZeroSensitivityRemovesAudioTerms(t *testing.T) {
	e := newTestEngine(t)
	mustSet(t, e, params.AudioSensitivity, 0)
	for i := 0; i < 8; i++ {
		e.FeedAudio(bassTone(2048))
	}
	f := e.Tick(frameDT)
	if f.Audio.Bass <= 0 {
		t.Fatalf("no bass extracted: %+v", f.Audio)
	}
	if f.Mod != (audio.Mod{}) {
		t.Fatalf("mod: got %+v, want zero", f.Mod)
	}
	if f.Block.AudioDisplacement != 0 || f.Block.AudioZ != 0 {
		t.Fatalf("block audio terms: %v %v", f.Block.AudioDisplacement, f.Block.AudioZ)
	}
	if f.Block.XAmp != f.Params.Get(params.XAmplitude) {
		t.Fatalf("x amp: got %v, want %v", f.Block.XAmp, f.Params.Get(params.XAmplitude))
	}
}

func TestAudioDrivesBlockWithSensitivity(t *testing.T) {
	e := newTestEngine(t)
	mustSet(t, e, params.AudioSensitivity, 2)
	for i := 0; i < 8; i++ {
		e.FeedAudio(bassTone(2048))
	}
	f := e.Tick(frameDT)
	if f.Block.AudioDisplacement <= 0 || f.Block.AudioZ <= 0 {
		t.Fatalf("block audio terms not driven: %v %v", f.Block.AudioDisplacement, f.Block.AudioZ)
	}
	if f.Block.XAmp <= f.Params.Get(params.XAmplitude) {
		t.Fatalf("x amp not raised by lfo: %v", f.Block.XAmp)
	}
}

func TestZeroAmplitudesGiveZeroChannels(t *testing.T) {
	e := newTestEngine(t)
	for _, c := range params.Channels {
		mustSet(t, e, params.AmplitudeID(c), 0)
		mustSet(t, e, params.RingModID(c), 1)
		mustSet(t, e, params.PhaseModID(c), 1)
		mustSet(t, e, params.ShapeID(c), float32(osc.Noise))
	}
	for i := 0; i < 30; i++ {
		f := e.Tick(frameDT)
		if f.Channels != (modulation.Channels{}) {
			t.Fatalf("frame %d channels: %+v", i, f.Channels)
		}
		at := e.ChannelsAt(&f, osc.Coord{U: 0.3, V: 0.7})
		if at.X != 0 || at.Y != 0 || at.Z != 0 {
			t.Fatalf("frame %d channels at coord: %+v", i, at)
		}
	}
}

func TestPhasesAdvanceOnlyOnTick(t *testing.T) {
	e := newTestEngine(t)
	a := e.Tick(frameDT)
	b := e.Tick(frameDT)
	if a.Phase == b.Phase {
		t.Fatal("phase did not advance")
	}
	c := e.Tick(0)
	if c.Phase != b.Phase {
		t.Fatalf("zero dt moved phase: %+v vs %+v", c.Phase, b.Phase)
	}
}

func TestAutomationRoundTrip(t *testing.T) {
	e := newTestEngine(t, WithLoopLength(4))
	e.Record()
	mustSet(t, e, params.ZAmplitude, 0.3)
	for i := 0; i < 4; i++ {
		e.Tick(frameDT)
	}
	if !e.Recording() {
		t.Fatal("not recording after Record and Tick")
	}
	e.StopRecording()
	mustSet(t, e, params.ZAmplitude, 0.9)

	f := e.Tick(frameDT)
	if f.Mode != plock.Playing {
		t.Fatalf("mode: got %s, want playing", f.Mode)
	}
	if got := f.Params.Get(params.ZAmplitude); got != 0.3 {
		t.Fatalf("step 0 playback: got %v, want 0.3", got)
	}
	f = e.Tick(frameDT)
	if got := f.Params.Get(params.ZAmplitude); got != 0.9 {
		t.Fatalf("step 1 live: got %v, want 0.9", got)
	}
	if got := e.Track(params.ZAmplitude); len(got) != 1 || got[0] != (plock.Entry{Step: 0, Value: 0.3}) {
		t.Fatalf("track: got %v", got)
	}

	e.ClearAutomation()
	f = e.Tick(frameDT)
	if f.Mode != plock.Idle || len(e.Track(params.ZAmplitude)) != 0 {
		t.Fatalf("clear: mode %s track %v", f.Mode, e.Track(params.ZAmplitude))
	}
}

func TestWatchReportsModeChanges(t *testing.T) {
	e := newTestEngine(t, WithLoopLength(2))
	events := e.Watch()
	e.Record()
	e.Tick(frameDT)
	e.Tick(frameDT)

	var sawRecording, sawLoop bool
	for len(events) > 0 {
		ev := <-events
		switch ev.Kind {
		case EventModeChanged:
			sawRecording = sawRecording || ev.Mode == plock.Recording
		case EventLoopCompleted:
			sawLoop = true
		}
	}
	if !sawRecording || !sawLoop {
		t.Fatalf("events: recording %v loop %v", sawRecording, sawLoop)
	}
}

func TestShutdownKeepsEntries(t *testing.T) {
	e := newTestEngine(t, WithLoopLength(8))
	e.Record()
	mustSet(t, e, params.CenterX, 0.25)
	e.Tick(frameDT)
	e.Shutdown()
	if e.Mode() != plock.Idle {
		t.Fatalf("mode after shutdown: got %s", e.Mode())
	}
	if len(e.Track(params.CenterX)) != 1 {
		t.Fatal("shutdown dropped recorded entries")
	}
}

func TestShutdownCapturesWritesSinceLastTick(t *testing.T) {
	e := newTestEngine(t, WithLoopLength(8))
	e.Record()
	e.Tick(frameDT)
	mustSet(t, e, params.ZAmplitude, 0.4)
	e.Shutdown()

	got := e.Track(params.ZAmplitude)
	if len(got) != 1 || got[0] != (plock.Entry{Step: 1, Value: 0.4}) {
		t.Fatalf("track after shutdown: got %v, want [{1 0.4}]", got)
	}
	if e.Mode() != plock.Idle {
		t.Fatalf("mode: got %s, want idle", e.Mode())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := newTestEngine(t)
	e.Record()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var frames int
	if err := e.Run(ctx, 100, func(Frame) { frames++ }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if frames == 0 {
		t.Fatal("no frames ticked")
	}
	if e.Mode() != plock.Idle {
		t.Fatalf("mode after run: got %s, want idle", e.Mode())
	}
	if err := e.Run(context.Background(), 0, nil); err == nil {
		t.Fatal("zero fps accepted")
	}
}

func TestConcurrentControlAndAudio(t *testing.T) {
	e := newTestEngine(t)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = e.Set(params.Zoom, float32(i%100))
			if i%50 == 0 {
				e.Record()
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			e.FeedAudio(bassTone(256))
		}
	}()
	for i := 0; i < 200; i++ {
		f := e.Tick(frameDT)
		if math.IsNaN(float64(f.Channels.X)) {
			t.Fatalf("frame %d: NaN channel", i)
		}
	}
	wg.Wait()
}
