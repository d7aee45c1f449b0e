package spectralmesh

import (
	"errors"
	"sort"
	"time"

	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

// Action is a scripted control action for RenderFrames.
type Action int

const (
	ActionSet Action = iota
	ActionRecord
	ActionStop
	ActionClear
)

// Cue is one scripted action applied just before frame Frame is ticked.
type Cue struct {
	Frame  int
	Action Action
	Param  params.ID
	Value  float32
}

// RenderFrames ticks e frames times at a fixed dt, applying cues in frame
// order, and returns every frame. With the same options and cues the output
// is identical run to run.
func RenderFrames(e *Engine, frames int, dt time.Duration, cues []Cue) ([]Frame, error) {
	if frames < 0 {
		return nil, errors.New("frame count must not be negative")
	}
	sorted := append([]Cue(nil), cues...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Frame < sorted[j].Frame })

	out := make([]Frame, 0, frames)
	next := 0
	for n := 0; n < frames; n++ {
		for next < len(sorted) && sorted[next].Frame <= n {
			c := sorted[next]
			next++
			switch c.Action {
			case ActionSet:
				if err := e.Set(c.Param, c.Value); err != nil {
					return out, err
				}
			case ActionRecord:
				e.Record()
			case ActionStop:
				e.StopRecording()
			case ActionClear:
				e.ClearAutomation()
			}
		}
		out = append(out, e.Tick(dt))
	}
	return out, nil
}

// EncodeBlocks concatenates the marshalled shader blocks of frames.
func EncodeBlocks(frames []Frame) []byte {
	if len(frames) == 0 {
		return nil
	}
	out := make([]byte, 0, len(frames)*frames[0].Block.Size())
	for i := range frames {
		out = append(out, frames[i].Block.Marshal()...)
	}
	return out
}
