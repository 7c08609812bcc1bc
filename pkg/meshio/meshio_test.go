package meshio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/dualmesh/pkg/mesh"
	"github.com/chazu/dualmesh/pkg/node"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

type fakeMesh struct {
	reg   *node.Registry
	polys []*mesh.Poly
}

func (f *fakeMesh) Registry() *node.Registry { return f.reg }

func (f *fakeMesh) Active() []*mesh.Poly {
	var out []*mesh.Poly
	for _, p := range f.polys {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeMesh) MaxPolySize() int {
	n := 0
	for _, p := range f.polys {
		n = max(n, p.Len())
	}
	return n
}

// smallMesh is a unit quad, a triangle on its east side, an inactive copy
// of the quad and an orphan node.
func smallMesh() *fakeMesh {
	reg := node.NewRegistry()
	for _, p := range [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {2, 0}, {9, 9}} {
		reg.Add(node.Pt(p[0], p[1], 0))
	}
	reg.Get(6).Active = false
	poly := func(id int, active bool, ids ...int) *mesh.Poly {
		p := &mesh.Poly{ID: id, Active: active}
		for _, i := range ids {
			p.Nodes = append(p.Nodes, reg.Get(i))
		}
		return p
	}
	return &fakeMesh{reg: reg, polys: []*mesh.Poly{
		poly(1, true, 4, 3, 2, 1),
		poly(2, true, 2, 3, 5),
		poly(3, false, 1, 2, 3, 4),
	}}
}

type fakeHex struct{ reg *node.Registry }

func (f fakeHex) Registry() *node.Registry { return f.reg }
func (f fakeHex) Hexes() [][8]int          { return [][8]int{{1, 2, 3, 4, 5, 6, 7, 8}} }

func unitCube() fakeHex {
	reg := node.NewRegistry()
	for _, z := range []float64{1, 0} {
		for _, p := range [][2]float64{{1, 1}, {0, 1}, {0, 0}, {1, 0}} {
			reg.Add(node.Pt(p[0], p[1], z))
		}
	}
	return fakeHex{reg}
}

func TestReadBoundary(t *testing.T) {
	in := "0 0\n4 0\n4 4\n0 4\nNaN NaN\n1 1\n1 2\t2 2\n2 1\n"
	c, err := ReadBoundary(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	loops := c.Loops()
	if len(loops) != 2 {
		t.Fatalf("loops = %d, want 2", len(loops))
	}
	if len(loops[0].Points) != 4 || len(loops[1].Points) != 4 {
		t.Errorf("loop sizes = %d, %d, want 4, 4", len(loops[0].Points), len(loops[1].Points))
	}
	if !loops[0].In || loops[1].In {
		t.Errorf("orientation: outer In = %t, hole In = %t", loops[0].In, loops[1].In)
	}
	if b := c.Bounds(); b.MinX != 0 || b.MaxX != 4 || b.MinY != 0 || b.MaxY != 4 {
		t.Errorf("bounds = %+v", b)
	}
}

func TestReadBoundaryMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"odd token count", "0 0\n1"},
		{"bad x", "0 0\nx 1\n"},
		{"bad y", "0 0\n1 y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBoundary(strings.NewReader(tt.in))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestLoadBoundaryMissingFile(t *testing.T) {
	_, err := LoadBoundary(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want a not-exist error", err)
	}
}

func TestWritePlain(t *testing.T) {
	var quads, nodes bytes.Buffer
	if err := WritePlain(&quads, &nodes, smallMesh()); err != nil {
		t.Fatal(err)
	}
	wantQuads := "4\t3\t2\t1\t\n2\t3\t5\t-1\n"
	if diff := cmp.Diff(wantQuads, quads.String()); diff != "" {
		t.Errorf("quads mismatch (-want +got):\n%s", diff)
	}
	wantNodes := "1\t0\t0\t0\t1\t0\n" +
		"2\t1\t0\t0\t1\t0\n" +
		"3\t1\t1\t0\t1\t0\n" +
		"4\t0\t1\t0\t1\t0\n" +
		"5\t2\t0\t0\t1\t0\n" +
		"6\t9\t9\t0\t0\t0\n"
	if diff := cmp.Diff(wantNodes, nodes.String()); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestWritePlainFiles(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "dual")
	if err := WritePlainFiles(prefix, smallMesh()); err != nil {
		t.Fatal(err)
	}
	for _, suffix := range []string{"quads", "nodes"} {
		if _, err := os.Stat(prefix + suffix); err != nil {
			t.Errorf("%s: %v", suffix, err)
		}
	}
}

func TestWriteInp(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInp(&buf, smallMesh()); err != nil {
		t.Fatal(err)
	}
	want := nodeBanner + "\n" +
		"*NODE, NSET=ALLNODES\n" +
		"1,\t0,\t0,\t0\n" +
		"2,\t1,\t0,\t0\n" +
		"3,\t1,\t1,\t0\n" +
		"4,\t0,\t1,\t0\n" +
		"5,\t2,\t0,\t0\n" +
		elementBanner + "\n" +
		"*ELEMENT, TYPE=CPE4, ELSET=EB1\n" +
		"1,    4,    3,    2,    1\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("inp mismatch (-want +got):\n%s", diff)
	}

	inp, err := ReadInp(&buf)
	if err != nil {
		t.Fatal(err)
	}
	wantInp := &Inp{
		Nodes: []InpNode{
			{ID: 1},
			{ID: 2, X: 1},
			{ID: 3, X: 1, Y: 1},
			{ID: 4, Y: 1},
			{ID: 5, X: 2},
		},
		Elements: []InpElement{{ID: 1, Type: TypeQuad, Nodes: []int{4, 3, 2, 1}}},
	}
	if diff := cmp.Diff(wantInp, inp); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestElementCounterAdvances(t *testing.T) {
	m := smallMesh()
	m.polys[1].Active = false
	m.polys[2].Active = true
	var buf bytes.Buffer
	if err := WriteInp(&buf, m); err != nil {
		t.Fatal(err)
	}
	inp, err := ReadInp(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int
	for _, e := range inp.Elements {
		ids = append(ids, e.ID)
	}
	if diff := cmp.Diff([]int{1, 2}, ids); diff != "" {
		t.Errorf("element ids mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteHexInp(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHexInp(&buf, unitCube()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1,\t1,2,3,4,5,6,7,8\n") {
		t.Errorf("element row missing:\n%s", buf.String())
	}
	inp, err := ReadInp(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(inp.Nodes) != 8 {
		t.Errorf("nodes = %d, want 8", len(inp.Nodes))
	}
	want := []InpElement{{ID: 1, Type: TypeHex, Nodes: []int{1, 2, 3, 4, 5, 6, 7, 8}}}
	if diff := cmp.Diff(want, inp.Elements); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestReadInpMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short node row", "*NODE\n1, 2\n"},
		{"bad coordinate", "*NODE\n1, 2, x, 0\n"},
		{"bad element id", "*ELEMENT, TYPE=S3\n1, 2, z\n"},
		{"element without nodes", "*ELEMENT, TYPE=S3\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadInp(strings.NewReader(tt.in)); !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestReadInpSkipsOtherBlocks(t *testing.T) {
	in := "*HEADING\nsome title\n*NODE\n1, 0, 0, 0\n*ELSET, ELSET=A\n1, 2, 3\n"
	inp, err := ReadInp(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(inp.Nodes) != 1 || len(inp.Elements) != 0 {
		t.Errorf("got %d nodes and %d elements, want 1 and 0", len(inp.Nodes), len(inp.Elements))
	}
}

func TestReadSurface(t *testing.T) {
	in := "*NODE\n" +
		"10, 0, 0, 0\n" +
		"11, 1, 0, 0\n" +
		"12, 0, 1, 0\n" +
		"13, 0, 0, 1\n" +
		"*ELEMENT, TYPE=S3\n" +
		"1, 10, 11, 12\n" +
		"2, 10, 13, 11\n"
	s, err := ReadSurface(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][3]int{{1, 2, 3}, {1, 4, 2}}, s.Triangles()); diff != "" {
		t.Errorf("triangles mismatch (-want +got):\n%s", diff)
	}
	if b := s.Bounds(); b.Max.X != 1 || b.Max.Y != 1 || b.Max.Z != 1 {
		t.Errorf("bounds = %+v", b)
	}

	_, err = ReadSurface(strings.NewReader("*NODE\n1, 0, 0, 0\n*ELEMENT, TYPE=S3\n1, 1, 2, 3\n"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("unknown node: err = %v, want ErrMalformed", err)
	}
}

func TestWriteVTK(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVTK(&buf, unitCube()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"DATASET UNSTRUCTURED_GRID\n",
		"POINTS 8 float\n1\t1\t1\n",
		"CELLS 1 9\n8\t0\t1\t2\t3\t4\t5\t6\t7\n",
		"CELL_TYPES 1\n12\n",
		"LOOKUP_TABLE default\n1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, smallMesh()); err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry = %T, want orb.Polygon", fc.Features[0].Geometry)
	}
	want := orb.Ring{{0, 1}, {1, 1}, {1, 0}, {0, 0}, {0, 1}}
	if diff := cmp.Diff(want, poly[0]); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
	if id := fc.Features[1].Properties.MustInt("id"); id != 2 {
		t.Errorf("id = %d, want 2", id)
	}
	if a := math.Abs(planar.Area(poly)); a != 1 {
		t.Errorf("area = %g, want 1", a)
	}
}
