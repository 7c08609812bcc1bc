package mesher

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/surface"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func unitSquare() *curve.Curve {
	return curve.New([]float64{0, 1, 1, 0}, []float64{0, 0, 1, 1})
}

func unitTetra() *surface.Surface {
	a := surface.Point{X: 0, Y: 0, Z: 0}
	b := surface.Point{X: 1, Y: 0, Z: 0}
	c := surface.Point{X: 0, Y: 1, Z: 0}
	d := surface.Point{X: 0, Y: 0, Z: 1}
	return surface.FromTriangles([][3]surface.Point{{a, c, b}, {a, b, d}, {a, d, c}, {b, c, d}})
}

func TestMesh2DUnitSquare(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		leaves   int
		elements int
		nodes    int
	}{
		{"too coarse to split", Options{MinSize: 2}, 1, 0, 0},
		{"one loop", Options{MinSize: 1}, 4, 4, 9},
		{"one loop, no passes", Options{MinSize: 1, Passes: -1}, 4, 1, 4},
		{"uniform grid", Options{MinSize: 0.5}, 16, 36, 49},
		{"uniform grid, kd-tree trim", Options{MinSize: 0.5, Classifier: ClassifierKDTree}, 16, 36, 49},
		{"uniform grid, orb trim", Options{MinSize: 0.5, Classifier: ClassifierOrb}, 16, 36, 49},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Mesh2D(unitSquare(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := len(r.Tree.Leaves()); got != tt.leaves {
				t.Errorf("leaves = %d, want %d", got, tt.leaves)
			}
			if got := len(r.Dual.Active()); got != tt.elements {
				t.Errorf("elements = %d, want %d", got, tt.elements)
			}
			if r.Quality.Elements != tt.elements {
				t.Errorf("quality elements = %d, want %d", r.Quality.Elements, tt.elements)
			}
			if got := len(r.Dual.Registry().Active()); got != tt.nodes {
				t.Errorf("active nodes = %d, want %d", got, tt.nodes)
			}
			if len(r.Diagnostics) != 0 {
				t.Errorf("diagnostics = %v", r.Diagnostics)
			}
			if errs := r.Quality.Errors(); len(errs) != 0 {
				t.Errorf("quality errors = %v", errs)
			}
		})
	}
}

func TestMesh2DSecondPassRefines(t *testing.T) {
	one, err := Mesh2D(unitSquare(), Options{MinSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	two, err := Mesh2D(unitSquare(), Options{MinSize: 1, Passes: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(two.Dual.Active()) <= len(one.Dual.Active()) {
		t.Errorf("two passes gave %d elements, one pass %d", len(two.Dual.Active()), len(one.Dual.Active()))
	}
}

func TestMesh2DErrors(t *testing.T) {
	tests := []struct {
		name  string
		curve *curve.Curve
		opts  Options
		want  error
	}{
		{"zero size", unitSquare(), Options{}, ErrInvalidMinimumSize},
		{"negative size", unitSquare(), Options{MinSize: -1}, ErrInvalidMinimumSize},
		{"NaN size", unitSquare(), Options{MinSize: math.NaN()}, ErrInvalidMinimumSize},
		{"empty curve", curve.New(nil, nil), Options{MinSize: 1}, ErrEmptyBoundary},
		{"nil curve", nil, Options{MinSize: 1}, ErrEmptyBoundary},
		{"unknown classifier", unitSquare(), Options{MinSize: 1, Classifier: "ray"}, ErrUnknownClassifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Mesh2D(tt.curve, tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMesh2DRootBox(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want curve.Box
	}{
		{"curve", Options{MinSize: 2}, curve.Box{MinX: -0.01, MinY: -0.01, MaxX: 1.01, MaxY: 1.01}},
		{"unit", Options{MinSize: 4, Bounds: BoundsUnit}, curve.Box{MinX: -1.01, MinY: -1.01, MaxX: 1.01, MaxY: 1.01}},
		{
			"explicit",
			Options{MinSize: 8, Bounds: BoundsUnit, Box: &curve.Box{MinX: -2, MinY: -1, MaxX: 3, MaxY: 4}},
			curve.Box{MinX: -2.01, MinY: -1.01, MaxX: 3.01, MaxY: 4.01},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Mesh2D(unitSquare(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := r.Tree.Cell(r.Tree.Root()).Bounds()
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("root box mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMesh2DDeveloperOutput(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "sq")
	_, err := Mesh2D(unitSquare(), Options{MinSize: 1, DeveloperOutput: prefix, Plots: true})
	if err != nil {
		t.Fatal(err)
	}
	stages := []string{
		"_01_quad_tree_", "_02_primal_", "_03_dual_", "_04_d_trim_",
		"_05_dt_project_", "_06_dtp_snap_", "_07_dtps_subdivide_",
		"_08_dtpss_project_", "_09_dtpssp_snap_", "_10_mesh_",
	}
	for _, s := range stages {
		for _, suffix := range []string{"quads", "nodes", "plot.png"} {
			if _, err := os.Stat(prefix + s + suffix); err != nil {
				t.Errorf("missing %s%s: %v", s, suffix, err)
			}
		}
	}
	for _, name := range []string{"_00_curve_", "_00_curve_corners", "_00_curve_plot.png", "_00_curvature_plot.png"} {
		if _, err := os.Stat(prefix + name); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(prefix + "_10_mesh_quads")
	if err != nil {
		t.Fatal(err)
	}
	if rows := strings.Count(string(data), "\n"); rows != 4 {
		t.Errorf("final mesh rows = %d, want 4", rows)
	}
}

func TestMesh3D(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		leaves int
	}{
		{"unbalanced", Options{MinSize: 0.4, Unbalanced: true}, 4 + 4*8},
		{"balanced", Options{MinSize: 0.4}, 64},
		{"coarse", Options{MinSize: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Mesh3D(unitTetra(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := r.Tree.Size(); got != tt.leaves {
				t.Errorf("leaves = %d, want %d", got, tt.leaves)
			}
			if got := len(r.Tree.Hexes()); got != tt.leaves {
				t.Errorf("hexes = %d, want %d", got, tt.leaves)
			}
		})
	}
}

func TestMesh3DBoxAndOutput(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "tet")
	box := &surface.Box{Min: surface.Point{X: -1, Y: -1, Z: -1}, Max: surface.Point{X: 2, Y: 2, Z: 2}}
	r, err := Mesh3D(unitTetra(), Options{MinSize: 4, Box3D: box, DeveloperOutput: prefix})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Tree.Cell(r.Tree.Root()).Bounds(); got != *box {
		t.Errorf("root box = %+v, want %+v", got, *box)
	}
	if _, err := os.Stat(prefix + "_01_oct_tree.vtk"); err != nil {
		t.Error(err)
	}
}

func TestMesh3DErrors(t *testing.T) {
	if _, err := Mesh3D(surface.New(nil, nil), Options{MinSize: 1}); !errors.Is(err, ErrEmptyBoundary) {
		t.Errorf("empty surface: err = %v", err)
	}
	if _, err := Mesh3D(unitTetra(), Options{}); !errors.Is(err, ErrInvalidMinimumSize) {
		t.Errorf("zero size: err = %v", err)
	}
}
