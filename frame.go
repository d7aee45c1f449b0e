package spectralmesh

import (
	"github.com/ymlaine/spectral-mesh-go/internal/audio"
	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/modulation"
	"github.com/ymlaine/spectral-mesh-go/internal/params"
	"github.com/ymlaine/spectral-mesh-go/internal/plock"
)

// Frame is everything the renderer needs for one frame. Params is the
// published set after automation, and it does not change once returned.
type Frame struct {
	Index    uint64
	Params   params.Set
	Phase    modulation.Phase
	Channels modulation.Channels
	Audio    audio.Features
	Mod      audio.Mod
	Wave     audio.Wave
	Block    modulation.Block
	Mesh     mesh.Key
	Mode     plock.Mode
	Step     int

	audioZ float32
}

// Visual returns the frame's global visual parameters.
func (f *Frame) Visual() params.GlobalVisualParams {
	return f.Params.Visual()
}
