package modulation

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ymlaine/spectral-mesh-go/internal/params"
)

// BlockSize is the byte size of a marshaled Block.
const BlockSize = 224

// Block is the per-frame parameter block in render-shader uniform layout.
// Field order and offsets are fixed; see Marshal.
type Block struct {
	MVP      [16]float32 // offset   0: column-major model-view-projection
	XY       [2]float32  // offset  64: brightness displacement amplitudes
	XYOffset [2]float32  // offset  72: center offset

	XArg, XAmp, XSpatial float32 // offset  80
	YArg, YAmp, YSpatial float32 // offset  92
	ZArg, ZAmp, ZSpatial float32 // offset 104

	LumaKeyLevel float32 // offset 116
	Invert       float32 // offset 120
	BW           float32 // offset 124
	BrightInvert int32   // offset 128

	XShape, YShape, ZShape          int32 // offset 132
	XRingMod, YRingMod, ZRingMod    int32 // offset 144
	XPhaseMod, YPhaseMod, ZPhaseMod int32 // offset 156
	LumaSwitch                      int32 // offset 168
	Width, Height                   int32 // offset 172

	AudioDisplacement float32 // offset 180
	AudioZ            float32 // offset 184
	WavePhase         float32 // offset 188
	WaveAmp           float32 // offset 192
	WaveFreq          float32 // offset 196

	XChannel, YChannel, ZChannel float32    // offset 200: chain outputs
	_                            [3]float32 // offset 212: reserved
}

// Size returns the in-memory size of the struct, equal to BlockSize.
func (b *Block) Size() int {
	return int(unsafe.Sizeof(*b))
}

// Marshal serializes the block little-endian at its fixed offsets.
func (b *Block) Marshal() []byte {
	buf := make([]byte, BlockSize)
	w := blockWriter{buf: buf}
	for _, v := range b.MVP {
		w.f32(v)
	}
	w.f32(b.XY[0])
	w.f32(b.XY[1])
	w.f32(b.XYOffset[0])
	w.f32(b.XYOffset[1])
	w.f32(b.XArg)
	w.f32(b.XAmp)
	w.f32(b.XSpatial)
	w.f32(b.YArg)
	w.f32(b.YAmp)
	w.f32(b.YSpatial)
	w.f32(b.ZArg)
	w.f32(b.ZAmp)
	w.f32(b.ZSpatial)
	w.f32(b.LumaKeyLevel)
	w.f32(b.Invert)
	w.f32(b.BW)
	w.i32(b.BrightInvert)
	w.i32(b.XShape)
	w.i32(b.YShape)
	w.i32(b.ZShape)
	w.i32(b.XRingMod)
	w.i32(b.YRingMod)
	w.i32(b.ZRingMod)
	w.i32(b.XPhaseMod)
	w.i32(b.YPhaseMod)
	w.i32(b.ZPhaseMod)
	w.i32(b.LumaSwitch)
	w.i32(b.Width)
	w.i32(b.Height)
	w.f32(b.AudioDisplacement)
	w.f32(b.AudioZ)
	w.f32(b.WavePhase)
	w.f32(b.WaveAmp)
	w.f32(b.WaveFreq)
	w.f32(b.XChannel)
	w.f32(b.YChannel)
	w.f32(b.ZChannel)
	// Remaining 12 bytes stay zero.
	return buf
}

type blockWriter struct {
	buf []byte
	off int
}

func (w *blockWriter) f32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:w.off+4], math.Float32bits(v))
	w.off += 4
}

func (w *blockWriter) i32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:w.off+4], uint32(v))
	w.off += 4
}

// Surface describes the frame and window the block is rendered into.
type Surface struct {
	FrameWidth, FrameHeight   int
	WindowWidth, WindowHeight int
}

// BlockInput gathers everything one frame's block is built from.
type BlockInput struct {
	Set      *params.Set
	Phase    Phase
	Channels Channels
	Surface  Surface

	AudioDisplacement float32
	AudioZ            float32
	AudioLFO          float32 // added to the X/Y amplitude fields
	WavePhase         float32
	WaveAmp           float32
	WaveFreq          float32
}

// BuildBlock assembles the shader parameter block for one frame.
func BuildBlock(in BlockInput) Block {
	s := in.Set
	vis := s.Visual()
	ox, oy, oz := s.Oscillator(params.X), s.Oscillator(params.Y), s.Oscillator(params.Z)
	sx, sy, sz := s.Switches(params.X), s.Switches(params.Y), s.Switches(params.Z)

	return Block{
		MVP:      MVP(in.Surface, vis.Zoom, vis.Rotation),
		XY:       vis.XYDisplacement,
		XYOffset: vis.CenterOffset,

		XArg: in.Phase.X, XAmp: ox.Amplitude + 0.1*in.AudioLFO, XSpatial: ox.SpatialFreq,
		YArg: in.Phase.Y, YAmp: oy.Amplitude + 0.1*in.AudioLFO, YSpatial: oy.SpatialFreq,
		ZArg: in.Phase.Z, ZAmp: oz.Amplitude, ZSpatial: oz.SpatialFreq,

		LumaKeyLevel: vis.LumaKeyLevel,
		Invert:       on(vis.Invert),
		BW:           on(vis.BW),
		BrightInvert: flag(vis.BrightInvert),

		XShape: int32(ox.Shape), YShape: int32(oy.Shape), ZShape: int32(oz.Shape),
		XRingMod: flag(sx.RingMod), YRingMod: flag(sy.RingMod), ZRingMod: flag(sz.RingMod),
		XPhaseMod: flag(sx.PhaseMod), YPhaseMod: flag(sy.PhaseMod), ZPhaseMod: flag(sz.PhaseMod),
		LumaSwitch: int32(vis.LumaMode),
		Width:      int32(in.Surface.FrameWidth),
		Height:     int32(in.Surface.FrameHeight),

		AudioDisplacement: in.AudioDisplacement,
		AudioZ:            in.AudioZ,
		WavePhase:         in.WavePhase,
		WaveAmp:           in.WaveAmp,
		WaveFreq:          in.WaveFreq,

		XChannel: in.Channels.X,
		YChannel: in.Channels.Y,
		ZChannel: in.Channels.Z,
	}
}

// MVP builds the model-view-projection for a frame-sized mesh: an
// orthographic projection letterboxed into the window, a view that zooms
// along Z and rotates X, Y, Z in that order, and a model transform that
// centres the mesh on the origin.
func MVP(sf Surface, zoom float32, rot [3]float32) [16]float32 {
	fw, fh := float32(max(sf.FrameWidth, 1)), float32(max(sf.FrameHeight, 1))
	ww, wh := float32(max(sf.WindowWidth, 1)), float32(max(sf.WindowHeight, 1))
	halfW, halfH := fw/2, fh/2

	projW, projH := halfW, halfW/(ww/wh)
	if ww/wh > fw/fh {
		projW, projH = halfH*(ww/wh), halfH
	}

	proj := mgl32.Ortho(-projW, projW, -projH, projH, -1000, 1000)
	view := mgl32.Translate3D(0, 0, zoom).
		Mul4(mgl32.HomogRotate3DX(rot[0])).
		Mul4(mgl32.HomogRotate3DY(rot[1])).
		Mul4(mgl32.HomogRotate3DZ(rot[2]))
	model := mgl32.Translate3D(-halfW, -halfH, 0)
	return [16]float32(proj.Mul4(view).Mul4(model))
}

func flag(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
