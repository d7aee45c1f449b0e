package mesh

import "testing"

func TestVertexCounts(t *testing.T) {
	cases := []struct {
		kind    Kind
		density int
		want    int
		topo    Topology
	}{
		{Triangles, 4, 6 * 16, TriangleList},
		{HLines, 4, 2 * 64, LineList},
		{VLines, 4, 2 * 64, LineList},
		{Grid, 4, 4 * 64, LineList},
		{Triangles, 0, 6, TriangleList},
		{Triangles, 1000, 6 * 127 * 127, TriangleList},
	}
	for _, c := range cases {
		m := Build(c.kind, c.density, 960, 540)
		if len(m.Vertices) != c.want {
			t.Errorf("%s density %d: got %d vertices, want %d", c.kind, c.density, len(m.Vertices), c.want)
		}
		if m.Topology() != c.topo {
			t.Errorf("%s: got topology %v, want %v", c.kind, m.Topology(), c.topo)
		}
		if len(m.Vertices) != VertexCount(c.kind, c.density) {
			t.Errorf("%s: VertexCount disagrees with Build", c.kind)
		}
	}
}

func TestBuildBounds(t *testing.T) {
	for k := Kind(0); k < KindCount; k++ {
		m := Build(k, 8, 320, 240)
		for _, v := range m.Vertices {
			if v.Position[0] < 0 || v.Position[0] > 320 || v.Position[1] < 0 || v.Position[1] > 240 {
				t.Fatalf("%s: position out of bounds: %v", k, v.Position)
			}
			if v.TexCoord[0] < 0 || v.TexCoord[0] > 1 || v.TexCoord[1] < 0 || v.TexCoord[1] > 1 {
				t.Fatalf("%s: tex coord out of bounds: %v", k, v.TexCoord)
			}
			if v.Position[2] != 0 {
				t.Fatalf("%s: z not zero", k)
			}
		}
	}
}

func TestBuildClampsDensity(t *testing.T) {
	m := Build(Grid, -3, 10, 10)
	if m.Density != MinDensity {
		t.Fatalf("density: got %d, want %d", m.Density, MinDensity)
	}
	if got := Build(Kind(42), 2, 10, 10).Kind; got != Triangles {
		t.Fatalf("unknown kind: got %s, want triangles", got)
	}
}
