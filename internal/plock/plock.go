// Package plock records per-step parameter writes ("parameter locks") and
// replays them in a fixed-length loop.
//
// Priority rule: while Playing, a field with a recorded entry at the current
// step always shows the recorded value, even if live control input wrote the
// field during that frame. Live input only shows through on steps without an
// entry. Clear the automation to regain full manual control.
package plock

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

// DefaultLoopLength is the loop length in frames used by the control surface.
const DefaultLoopLength = 240

// ErrInvalidLoopLength is returned when a session is started with a loop
// length below one step.
var ErrInvalidLoopLength = errors.New("invalid p-lock loop length")

// Mode is the automation state.
type Mode int

const (
	Idle Mode = iota
	Recording
	Playing
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// EventKind identifies automation lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventModeChanged
)

// Event is delivered through Options.OnEvent from the goroutine calling Step
// or the mode-changing method.
type Event struct {
	Kind EventKind
	Mode Mode
	Step int
}

type Options struct {
	OnEvent func(Event)
}

// Entry is one recorded value.
type Entry struct {
	Step  int
	Value float32
}

// track holds one parameter's entries densely indexed by step.
type track struct {
	values []float32
	has    []bool
	count  int
}

func newTrack(length int) *track {
	return &track{values: make([]float32, length), has: make([]bool, length)}
}

func (t *track) put(step int, v float32) {
	if !t.has[step] {
		t.has[step] = true
		t.count++
	}
	t.values[step] = v
}

// Engine is the P-Lock state machine. It is not safe for concurrent use; the
// render goroutine owns it.
type Engine struct {
	mode    Mode
	length  int
	step    int
	tracks  [params.Count]*track
	onEvent func(Event)
}

func New(opts Options) *Engine {
	return &Engine{onEvent: opts.OnEvent}
}

func (e *Engine) Mode() Mode { return e.mode }
func (e *Engine) CurrentStep() int { return e.step }
func (e *Engine) LoopLength() int { return e.length }

// Record starts or resumes recording.
//
// From Idle it starts a session of loopLength steps; tracks retained by a
// previous Shutdown are kept when the loop length matches and dropped
// otherwise. From Playing it enters overdub and keeps the running loop
// length. While already Recording it does nothing.
func (e *Engine) Record(loopLength int) error {
	switch e.mode {
	case Recording:
		return nil
	case Playing:
		e.setMode(Recording)
		return nil
	}
	if loopLength < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLoopLength, loopLength)
	}
	if loopLength != e.length {
		e.tracks = [params.Count]*track{}
		e.length = loopLength
	}
	e.step = 0
	e.setMode(Recording)
	return nil
}

// Stop ends recording and starts looped playback from the current step.
func (e *Engine) Stop() {
	if e.mode == Recording {
		e.setMode(Playing)
	}
}

// Clear drops every track and returns to Idle.
func (e *Engine) Clear() {
	e.tracks = [params.Count]*track{}
	e.step = 0
	e.setMode(Idle)
}

// Shutdown returns to Idle, keeping recorded entries.
func (e *Engine) Shutdown() {
	e.setMode(Idle)
}

// Step runs one frame of automation against set. dirty lists the fields
// written by control input since the previous frame.
//
// While Recording, dirty trackable fields are captured at the current step
// (the set already holds the last write of the frame) and fields not written
// this frame play back their existing entries. While Playing, every field
// with an entry at the current step is overridden. The step then advances
// modulo the loop length.
func (e *Engine) Step(set *params.Set, dirty []params.ID) {
	if e.mode == Idle || e.length == 0 {
		return
	}
	var written [params.Count]bool
	if e.mode == Recording {
		written = e.capture(set, dirty)
	}
	for id, t := range e.tracks {
		if t == nil || written[id] || !t.has[e.step] {
			continue
		}
		// Recorded values were sanitised on the way in.
		_ = set.Put(params.ID(id), t.values[e.step])
	}

	e.step++
	if e.step >= e.length {
		e.step = 0
		e.emit(Event{Kind: EventLoopCompleted, Mode: e.mode, Step: 0})
	}
}

// Capture records the dirty trackable fields of set at the current step
// without playing back or advancing. It does nothing unless Recording.
func (e *Engine) Capture(set *params.Set, dirty []params.ID) {
	if e.mode != Recording || e.length == 0 {
		return
	}
	e.capture(set, dirty)
}

func (e *Engine) capture(set *params.Set, dirty []params.ID) (written [params.Count]bool) {
	for _, id := range dirty {
		if !id.Trackable() {
			continue
		}
		t := e.tracks[id]
		if t == nil {
			t = newTrack(e.length)
			e.tracks[id] = t
		}
		t.put(e.step, set.Get(id))
		written[id] = true
	}
	return written
}

// Track returns a copy of the entries recorded for id, ordered by step.
func (e *Engine) Track(id params.ID) []Entry {
	if !id.Valid() {
		return nil
	}
	t := e.tracks[id]
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, t.count)
	for step, ok := range t.has {
		if ok {
			out = append(out, Entry{Step: step, Value: t.values[step]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out
}

// Tracked returns the IDs that carry at least one entry.
func (e *Engine) Tracked() []params.ID {
	var ids []params.ID
	for id, t := range e.tracks {
		if t != nil && t.count > 0 {
			ids = append(ids, params.ID(id))
		}
	}
	return ids
}

func (e *Engine) setMode(m Mode) {
	if e.mode == m {
		return
	}
	e.mode = m
	e.emit(Event{Kind: EventModeChanged, Mode: m, Step: e.step})
}

func (e *Engine) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}
