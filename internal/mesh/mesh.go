// Package mesh builds the parametric grid geometry that the renderer deforms.
// Positions span [0,width]×[0,height] in frame pixels; texture coordinates
// span [0,1] and double as the spatial coordinate for per-vertex modulation.
package mesh

import "fmt"

// Density bounds for Build.
const (
	MinDensity = 1
	MaxDensity = 127
)

// Kind selects the mesh layout.
type Kind int32

const (
	Triangles Kind = iota
	HLines
	VLines
	Grid

	KindCount
)

func (k Kind) Valid() bool { return k >= 0 && k < KindCount }

func (k Kind) String() string {
	switch k {
	case Triangles:
		return "triangles"
	case HLines:
		return "hlines"
	case VLines:
		return "vlines"
	case Grid:
		return "grid"
	}
	return fmt.Sprintf("mesh(%d)", int32(k))
}

// Topology is the primitive assembly the vertices are meant for.
type Topology int

const (
	TriangleList Topology = iota
	LineList
)

// Topology reports the primitive type for kind.
func (k Kind) Topology() Topology {
	if k == Triangles {
		return TriangleList
	}
	return LineList
}

// Vertex is one mesh vertex. Z is always 0 at build time.
type Vertex struct {
	Position [3]float32
	TexCoord [2]float32
}

// Mesh is an immutable vertex list plus the parameters it was built from.
type Mesh struct {
	Kind     Kind
	Density  int
	Width    float32
	Height   float32
	Vertices []Vertex
}

// Key identifies a mesh by the inputs that change its geometry.
type Key struct {
	Kind    Kind
	Density int
}

func (m *Mesh) Key() Key { return Key{Kind: m.Kind, Density: m.Density} }

func (m *Mesh) Topology() Topology { return m.Kind.Topology() }

// ClampDensity bounds n to [MinDensity, MaxDensity].
func ClampDensity(n int) int {
	if n < MinDensity {
		return MinDensity
	}
	if n > MaxDensity {
		return MaxDensity
	}
	return n
}

// VertexCount returns the number of vertices Build produces.
func VertexCount(kind Kind, density int) int {
	n := ClampDensity(density)
	lines := 2 * (2 * n) * (2 * n)
	switch kind {
	case Triangles:
		return 6 * n * n
	case HLines, VLines:
		return lines
	case Grid:
		return 2 * lines
	}
	return 0
}

// Build generates the mesh for kind at the given density. Density is clamped;
// an unknown kind falls back to Triangles.
func Build(kind Kind, density int, width, height float32) *Mesh {
	if !kind.Valid() {
		kind = Triangles
	}
	n := ClampDensity(density)
	m := &Mesh{Kind: kind, Density: n, Width: width, Height: height}
	m.Vertices = make([]Vertex, 0, VertexCount(kind, n))
	switch kind {
	case Triangles:
		m.Vertices = appendTriangles(m.Vertices, n, width, height)
	case HLines:
		m.Vertices = appendHLines(m.Vertices, 2*n, width, height)
	case VLines:
		m.Vertices = appendVLines(m.Vertices, 2*n, width, height)
	case Grid:
		m.Vertices = appendHLines(m.Vertices, 2*n, width, height)
		m.Vertices = appendVLines(m.Vertices, 2*n, width, height)
	}
	return m
}

func vtx(x, y, u, v float32) Vertex {
	return Vertex{Position: [3]float32{x, y, 0}, TexCoord: [2]float32{u, v}}
}

func appendTriangles(dst []Vertex, n int, w, h float32) []Vertex {
	fn := float32(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0, x1 := float32(j)*w/fn, float32(j+1)*w/fn
			y0, y1 := float32(i)*h/fn, float32(i+1)*h/fn
			u0, u1 := float32(j)/fn, float32(j+1)/fn
			v0, v1 := float32(i)/fn, float32(i+1)/fn
			dst = append(dst,
				vtx(x0, y0, u0, v0), vtx(x1, y0, u1, v0), vtx(x1, y1, u1, v1),
				vtx(x1, y1, u1, v1), vtx(x0, y1, u0, v1), vtx(x0, y0, u0, v0),
			)
		}
	}
	return dst
}

func appendHLines(dst []Vertex, n int, w, h float32) []Vertex {
	fn := float32(n)
	for i := 0; i < n; i++ {
		y, v := float32(i)*h/fn, float32(i)/fn
		for j := 0; j < n; j++ {
			x0, x1 := float32(j)*w/fn, float32(j+1)*w/fn
			dst = append(dst, vtx(x0, y, float32(j)/fn, v), vtx(x1, y, float32(j+1)/fn, v))
		}
	}
	return dst
}

func appendVLines(dst []Vertex, n int, w, h float32) []Vertex {
	fn := float32(n)
	for i := 0; i < n; i++ {
		x, u := float32(i)*w/fn, float32(i)/fn
		for j := 0; j < n; j++ {
			y0, y1 := float32(j)*h/fn, float32(j+1)*h/fn
			dst = append(dst, vtx(x, y0, u, float32(j)/fn), vtx(x, y1, u, float32(j+1)/fn))
		}
	}
	return dst
}
