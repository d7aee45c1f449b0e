package noise

import (
	"math"

	perlin "github.com/aquilax/go-perlin"
)

// Defaults for the per-channel noise fields.
const (
	DefaultWidth  = 180
	DefaultHeight = 120
	DefaultScale  = 0.05

	alpha   = 2.0
	beta    = 2.0
	octaves = 3
)

// Field is a precomputed, tileable grid of Perlin noise normalized to [0,1].
// It is immutable after construction and safe for concurrent reads.
type Field struct {
	width  int
	height int
	cells  []float32
}

// NewField fills a width×height grid from a Perlin generator seeded with
// seed, sampling at scale noise units per cell.
func NewField(width, height int, scale float64, seed int64) *Field {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	p := perlin.NewPerlin(alpha, beta, octaves, seed)
	raw := make([]float64, width*height)
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := p.Noise2D(float64(x)*scale, float64(y)*scale)
			raw[y*width+x] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	cells := make([]float32, len(raw))
	span := hi - lo
	for i, v := range raw {
		if span <= 0 {
			cells[i] = 0.5
			continue
		}
		cells[i] = float32((v - lo) / span)
	}
	return &Field{width: width, height: height, cells: cells}
}

// Size returns the grid dimensions.
func (f *Field) Size() (int, int) { return f.width, f.height }

// At returns the raw cell value with wrap-around indexing.
func (f *Field) At(x, y int) float32 {
	x %= f.width
	if x < 0 {
		x += f.width
	}
	y %= f.height
	if y < 0 {
		y += f.height
	}
	return f.cells[y*f.width+x]
}

// Sample reads the field at (u, v) where one unit spans the whole grid.
// Coordinates wrap, and values between cells are bilinearly interpolated.
func (f *Field) Sample(u, v float32) float32 {
	if !finite(u) || !finite(v) {
		return 0.5
	}
	fx := wrap(float64(u)) * float64(f.width)
	fy := wrap(float64(v)) * float64(f.height)
	x0, y0 := int(fx), int(fy)
	tx, ty := float32(fx-float64(x0)), float32(fy-float64(y0))

	a := f.At(x0, y0)
	b := f.At(x0+1, y0)
	c := f.At(x0, y0+1)
	d := f.At(x0+1, y0+1)
	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*ty
}

func wrap(x float64) float64 {
	return x - math.Floor(x)
}

func finite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
