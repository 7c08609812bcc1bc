package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/node"
	"github.com/chazu/dualmesh/pkg/tree"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func unitSquare() *curve.Curve {
	return curve.New([]float64{0, 1, 1, 0}, []float64{0, 0, 1, 1})
}

// splitTree builds a tree over the unit square and subdivides the cells
// named by codes in order; "" is the root.
func splitTree(t *testing.T, codes ...string) *tree.QuadTree {
	t.Helper()
	qt, err := tree.NewQuadTree(unitSquare(), node.NewRegistry(), 0.01)
	if err != nil {
		t.Fatalf("NewQuadTree: %v", err)
	}
	for _, c := range codes {
		i := qt.Root()
		if c != "" {
			var ok bool
			if i, ok = qt.Lookup(c); !ok {
				t.Fatalf("no cell %q", c)
			}
		}
		if err := qt.Subdivide(i); err != nil {
			t.Fatalf("Subdivide(%q): %v", c, err)
		}
	}
	qt.AssignSplitCode()
	return qt
}

func buildPrimal(t *testing.T, qt *tree.QuadTree) *Primal {
	t.Helper()
	p, err := NewPrimal(qt)
	if err != nil {
		t.Fatalf("NewPrimal: %v", err)
	}
	return p
}

var gridCodes = []string{"", "11", "01", "00", "10"}

func TestPrimalID(t *testing.T) {
	p := buildPrimal(t, splitTree(t, ""))
	tests := []struct {
		code       string
		transition bool
		want       int
	}{
		{"", false, 0b00000001_0000},
		{"11", false, 0b00000010_1100},
		{"01", false, 0b00000010_0100},
		{"00", false, 0b00000010_0000},
		{"10", false, 0b00000010_1000},
		{"11", true, 0b1_00000010_1100},
	}
	for _, tt := range tests {
		got, err := p.ID(tt.code, tt.transition)
		if err != nil {
			t.Fatalf("ID(%q, %t): %v", tt.code, tt.transition, err)
		}
		if got != tt.want {
			t.Errorf("ID(%q, %t) = %d, want %d", tt.code, tt.transition, got, tt.want)
		}
	}

	if _, err := p.ID("110011", false); !errors.Is(err, ErrRefinementLimit) {
		t.Errorf("code deeper than tree: err = %v, want ErrRefinementLimit", err)
	}
}

func TestPrimalScenarios(t *testing.T) {
	tests := []struct {
		name  string
		split []string
		ids   []int
		loops []Loop
	}{
		{
			name:  "single leaf",
			split: nil,
			ids:   []int{4},
		},
		{
			name:  "four leaves",
			split: []string{""},
			ids:   []int{36, 44, 32, 40},
			loops: []Loop{{32, 36, 40, 44}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := buildPrimal(t, splitTree(t, tt.split...))
			var ids []int
			for _, poly := range p.Polys() {
				if poly.Len() != 4 {
					t.Errorf("poly %d has %d corners", poly.ID, poly.Len())
				}
				ids = append(ids, poly.ID)
			}
			if diff := cmp.Diff(tt.ids, ids); diff != "" {
				t.Errorf("poly ids mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.loops, p.Loops(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("loops mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrimalUniformGrid(t *testing.T) {
	p := buildPrimal(t, splitTree(t, gridCodes...))
	if n := len(p.Polys()); n != 16 {
		t.Errorf("polys = %d, want 16", n)
	}
	// One loop per interior grid vertex.
	if n := len(p.Loops()); n != 9 {
		t.Errorf("loops = %d, want 9", n)
	}
	if p.MaxPolySize() != 4 {
		t.Errorf("MaxPolySize = %d, want 4", p.MaxPolySize())
	}
}

func TestPrimalTransitions(t *testing.T) {
	// Refining the south-west quadrant leaves the other three split
	// toward the root center.
	p := buildPrimal(t, splitTree(t, "", "00"))

	if n := len(p.Polys()); n != 10 {
		t.Fatalf("polys = %d, want 10", n)
	}
	if p.MaxPolySize() != 5 {
		t.Errorf("MaxPolySize = %d, want 5", p.MaxPolySize())
	}

	tri := p.Poly(16528)
	if tri == nil || tri.Len() != 3 {
		t.Fatalf("transition half of %q = %+v, want a triangle", "01", tri)
	}
	if c := tri.Nodes[2]; math.Abs(c.X-0.5) > 1e-12 || math.Abs(c.Y-0.5) > 1e-12 {
		t.Errorf("triangle corner %v is not the root center", c)
	}

	want := []Loop{
		{144, 176, 16528, 16560},
		{144, 196, 204, 16528},
		{160, 176, 16544, 16560},
		{160, 200, 204, 16544},
		{192, 196, 200, 204},
		{204, 16528, 16544, 16560},
	}
	got := p.Loops()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loops mismatch (-want +got):\n%s", diff)
	}
	for _, l := range got {
		for _, id := range l {
			if poly := p.Poly(id); poly == nil || !poly.Active {
				t.Errorf("loop %v names missing or inactive element %d", l, id)
			}
		}
	}
}

func TestPrimalRefinementLimit(t *testing.T) {
	c := curve.New([]float64{0, 1e9, 1e9, 0}, []float64{0, 0, 1e9, 1e9})
	qt, err := tree.NewQuadTree(c, node.NewRegistry(), 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	i := qt.Root()
	for d := 0; d < 27; d++ {
		if err := qt.Subdivide(i); err != nil {
			t.Fatalf("depth %d: %v", d, err)
		}
		i = qt.Cell(i).Child(tree.NE)
	}
	qt.AssignSplitCode()

	_, err = NewPrimal(qt)
	if !errors.Is(err, ErrRefinementLimit) || !errors.Is(err, tree.ErrRefinementLimit) {
		t.Fatalf("err = %v, want ErrRefinementLimit", err)
	}
}
