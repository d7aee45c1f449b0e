// Package control maps external input (MIDI control changes and key presses)
// onto engine parameter writes and automation commands.
package control

import "github.com/ymlaine/spectral-mesh-go/internal/params"

// Target receives parameter writes and automation commands. Implementations
// must be safe for use from input goroutines.
type Target interface {
	Set(id params.ID, v float32) error
	Peek(id params.ID) float32
	Record()
	StopRecording()
	ClearAutomation()
	Recording() bool
}

// nudge adds delta to the live value of id.
func nudge(t Target, id params.ID, delta float32) error {
	return t.Set(id, t.Peek(id)+delta)
}

// flip toggles a switch.
func flip(t Target, id params.ID) error {
	return t.Set(id, params.BoolValue(t.Peek(id) == 0))
}
