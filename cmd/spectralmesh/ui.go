package main

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	spectralmesh "github.com/ymlaine/spectral-mesh-go"
	"github.com/ymlaine/spectral-mesh-go/internal/control"
	"github.com/ymlaine/spectral-mesh-go/internal/mesh"
	"github.com/ymlaine/spectral-mesh-go/internal/osc"
)

// previewMaxDensity caps the wireframe density; the preview evaluates the
// chain per vertex on the CPU.
const previewMaxDensity = 48

// zDepth maps the Z channel onto mesh depth in frame pixels.
const zDepth = 200

var (
	bgColor   = color.RGBA{8, 8, 12, 255}
	lineColor = color.RGBA{120, 220, 255, 200}
)

type game struct {
	ctx    context.Context
	engine *spectralmesh.Engine
	kb     *control.Keyboard
	opts   options

	frame   spectralmesh.Frame
	last    time.Time
	keys    []ebiten.Key
	meshes  map[mesh.Key]*mesh.Mesh
	points  [][2]float32
	winW    int
	winH    int
	showKey bool
}

func newGame(ctx context.Context, engine *spectralmesh.Engine, kb *control.Keyboard, opts options) *game {
	return &game{
		ctx:    ctx,
		engine: engine,
		kb:     kb,
		opts:   opts,
		meshes: make(map[mesh.Key]*mesh.Mesh, 8),
		winW:   opts.windowWidth,
		winH:   opts.windowHeight,
	}
}

func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		switch k {
		case ebiten.KeyEscape:
			return ebiten.Termination
		case ebiten.KeyF1:
			g.showKey = !g.showKey
		default:
			g.kb.Press(k.String())
		}
	}

	now := time.Now()
	dt := time.Second / time.Duration(ebiten.TPS())
	if !g.last.IsZero() {
		dt = now.Sub(g.last)
	}
	g.last = now
	g.frame = g.engine.Tick(dt)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	m := g.mesh(g.frame.Mesh)
	g.project(m)

	switch m.Topology() {
	case mesh.TriangleList:
		for i := 0; i+2 < len(g.points); i += 3 {
			a, b, c := g.points[i], g.points[i+1], g.points[i+2]
			g.line(screen, a, b)
			g.line(screen, b, c)
			g.line(screen, c, a)
		}
	default:
		for i := 0; i+1 < len(g.points); i += 2 {
			g.line(screen, g.points[i], g.points[i+1])
		}
	}
	g.drawStatus(screen)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.winW, g.winH = outsideW, outsideH
	return outsideW, outsideH
}

func (g *game) mesh(key mesh.Key) *mesh.Mesh {
	key.Density = min(key.Density, previewMaxDensity)
	if m, ok := g.meshes[key]; ok {
		return m
	}
	m := mesh.Build(key.Kind, key.Density, float32(g.opts.width), float32(g.opts.height))
	g.meshes[key] = m
	return m
}

// project displaces every vertex by the frame's channels at its texture
// coordinate and maps it through the block's MVP into window pixels.
func (g *game) project(m *mesh.Mesh) {
	if cap(g.points) < len(m.Vertices) {
		g.points = make([][2]float32, len(m.Vertices))
	}
	g.points = g.points[:len(m.Vertices)]

	mvp := mgl32.Mat4(g.frame.Block.MVP)
	vis := g.frame.Visual()
	fw, fh := float32(g.opts.width), float32(g.opts.height)
	for i, v := range m.Vertices {
		ch := g.engine.ChannelsAt(&g.frame, osc.Coord{U: v.TexCoord[0], V: v.TexCoord[1]})
		x := v.Position[0] + (ch.X+vis.XYDisplacement[0]*g.frame.Block.AudioDisplacement)*fw
		y := v.Position[1] + (ch.Y+vis.XYDisplacement[1]*g.frame.Block.AudioDisplacement)*fh
		z := v.Position[2] + ch.Z*zDepth
		clip := mvp.Mul4x1(mgl32.Vec4{x, y, z, 1})
		w := clip.W()
		if w == 0 {
			w = 1
		}
		g.points[i] = [2]float32{
			(clip.X()/w + 1) / 2 * float32(g.winW),
			(1 - clip.Y()/w) / 2 * float32(g.winH),
		}
	}
}

func (g *game) line(dst *ebiten.Image, a, b [2]float32) {
	vector.StrokeLine(dst, a[0], a[1], b[0], b[1], 1, lineColor, false)
}

func (g *game) drawStatus(screen *ebiten.Image) {
	f := g.frame
	status := fmt.Sprintf("%s step %d | %s density %d | bass %.2f rms %.2f | %.0f fps | F1 keys",
		f.Mode, f.Step, f.Mesh.Kind, f.Mesh.Density, f.Audio.Bass, f.Audio.RMS, ebiten.ActualFPS())
	if g.showKey {
		for _, b := range control.Bindings() {
			status += fmt.Sprintf("\n%-13s %s", b.Key, b.Help)
		}
	}
	ebitenutil.DebugPrint(screen, status)
}
