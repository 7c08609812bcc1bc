// Package mesher runs the meshing pipelines. Mesh2D turns a boundary
// curve into a trimmed, boundary-fitted dual quad mesh; Mesh3D refines an
// octree against a triangulated surface.
package mesher

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/mesh"
	"github.com/chazu/dualmesh/pkg/meshio"
	"github.com/chazu/dualmesh/pkg/node"
	"github.com/chazu/dualmesh/pkg/polygon"
	"github.com/chazu/dualmesh/pkg/render"
	"github.com/chazu/dualmesh/pkg/surface"
	"github.com/chazu/dualmesh/pkg/tree"
	"gonum.org/v1/plot"
)

var (
	// ErrInvalidMinimumSize is returned for a minimum cell size that is
	// zero, negative or NaN.
	ErrInvalidMinimumSize = tree.ErrInvalidMinimumSize

	// ErrEmptyBoundary is returned when the input has no loops or no
	// vertices.
	ErrEmptyBoundary = errors.New("mesher: empty boundary")

	// ErrUnknownClassifier is returned for an Options.Classifier name that
	// is not one of the Classifier constants.
	ErrUnknownClassifier = errors.New("mesher: unknown classifier")
)

// Bounds selects the box the tree root covers when no explicit box is
// given.
type Bounds int

const (
	// BoundsCurve uses the input's own bounding box.
	BoundsCurve Bounds = iota
	// BoundsUnit uses (-1,-1)..(1,1).
	BoundsUnit
)

// Classifier names for Options.Classifier.
const (
	ClassifierWinding = "winding"
	ClassifierKDTree  = "kdtree"
	ClassifierOrb     = "orb"
)

// Options configures a pipeline run. Only MinSize is required.
type Options struct {
	// MinSize stops subdivision once a cell is this narrow.
	MinSize float64

	Bounds Bounds
	// Box, when set, is the 2D root box and overrides Bounds.
	Box *curve.Box
	// Box3D, when set, is the 3D root box.
	Box3D *surface.Box

	// FeatureRefine refines only where the boundary has curvature
	// features instead of everywhere it passes.
	FeatureRefine bool
	// Unbalanced skips neighbour balancing in 3D.
	Unbalanced bool

	// Classifier is the inside test used to trim the dual mesh. Empty
	// means ClassifierWinding.
	Classifier string

	// Passes is the number of subdivide, project and snap rounds after
	// the first projection. Zero means one; negative means none.
	Passes int

	// DeveloperOutput, when not empty, is the file prefix every stage is
	// dumped under.
	DeveloperOutput string
	// Plots adds PNG plots of each stage to the developer output.
	Plots bool
}

func (o Options) passes() int {
	switch {
	case o.Passes == 0:
		return 1
	case o.Passes < 0:
		return 0
	}
	return o.Passes
}

func (o Options) check() error {
	if !(o.MinSize > 0) {
		return fmt.Errorf("mesher: %w: %g", ErrInvalidMinimumSize, o.MinSize)
	}
	switch o.Classifier {
	case "", ClassifierWinding, ClassifierKDTree, ClassifierOrb:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownClassifier, o.Classifier)
}

// Result is the output of Mesh2D.
type Result struct {
	Curve  *curve.Curve
	Tree   *tree.QuadTree
	Primal *mesh.Primal
	Dual   *mesh.Dual

	// Diagnostics collects the recoverable anomalies of both meshes.
	Diagnostics []mesh.Diagnostic
	Quality     mesh.Quality
}

// Mesh2D meshes the region bounded by c. It may replace the bounds of c
// according to opts.
func Mesh2D(c *curve.Curve, opts Options) (*Result, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	if c == nil || c.Empty() {
		return nil, ErrEmptyBoundary
	}
	switch {
	case opts.Box != nil:
		c.SetBounds(*opts.Box)
	case opts.Bounds == BoundsUnit:
		c.SetBounds(curve.Box{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1})
	}
	log := logging.Logger()
	dev := devOutput{prefix: opts.DeveloperOutput, plots: opts.Plots}

	qt, err := tree.NewQuadTree(c, node.NewRegistry(), opts.MinSize)
	if err != nil {
		return nil, fmt.Errorf("mesher: %w", err)
	}
	if err := qt.Subdivide(qt.Root()); err != nil {
		return nil, fmt.Errorf("mesher: %w", err)
	}
	if err := qt.BalancedRefineCurve(qt.Root(), !opts.FeatureRefine); err != nil {
		return nil, fmt.Errorf("mesher: %w", err)
	}
	qt.AssignSplitCode()
	log.Debug("mesher: tree", "leaves", len(qt.Leaves()), "height", qt.MaxLevel(qt.Root()))
	if err := dev.tree(qt); err != nil {
		return nil, err
	}

	primal, err := mesh.NewPrimal(qt)
	if err != nil {
		return nil, fmt.Errorf("mesher: %w", err)
	}
	if err := dev.mesh("_02_primal_", primal, nil); err != nil {
		return nil, err
	}

	dual := mesh.NewDual(primal, c)
	dual.SetClassifier(classifier(opts.Classifier, c))
	stages := []stage{
		{"_03_dual_", func() {}},
		{"_04_d_trim_", dual.Trim},
		{"_05_dt_project_", dual.Project},
		{"_06_dtp_snap_", dual.Snap},
	}
	for range opts.passes() {
		stages = append(stages,
			stage{"_07_dtps_subdivide_", dual.Subdivide},
			stage{"_08_dtpss_project_", dual.Project},
			stage{"_09_dtpssp_snap_", dual.Snap},
		)
	}
	for _, s := range stages {
		s.fn()
		if err := dev.mesh(s.name, dual, c); err != nil {
			return nil, err
		}
	}
	dual.UpdateActiveNodes()
	if err := dev.mesh("_10_mesh_", dual, c); err != nil {
		return nil, err
	}

	r := &Result{
		Curve:   c,
		Tree:    qt,
		Primal:  primal,
		Dual:    dual,
		Quality: mesh.Measure(&dual.Mesh),
	}
	r.Diagnostics = append(r.Diagnostics, primal.Diagnostics()...)
	r.Diagnostics = append(r.Diagnostics, dual.Diagnostics()...)
	for _, d := range r.Diagnostics {
		log.Warn("mesher: diagnostic", "code", d.Code, "poly", d.PolyID, "message", d.Message)
	}
	log.Info("mesher: 2D mesh done",
		"elements", r.Quality.Elements,
		"nodes", len(dual.Registry().Active()),
		"diagnostics", len(r.Diagnostics))
	return r, nil
}

// stage is one named step of the dual repair sequence.
type stage struct {
	name string
	fn   func()
}

func classifier(name string, c *curve.Curve) mesh.Classifier {
	switch name {
	case ClassifierKDTree:
		x, y := c.XY()
		if g, ok := polygon.NewGeneralized(x, y); ok {
			return g
		}
	case ClassifierOrb:
		x, y := c.XY()
		return polygon.NewOrbClassifier(x, y)
	}
	return c
}

// Result3D is the output of Mesh3D.
type Result3D struct {
	Surface *surface.Surface
	Tree    *tree.OctTree
}

// Mesh3D refines an octree against s. It may replace the bounds of s
// according to opts.
func Mesh3D(s *surface.Surface, opts Options) (*Result3D, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	if s == nil || s.Empty() {
		return nil, ErrEmptyBoundary
	}
	switch {
	case opts.Box3D != nil:
		s.SetBounds(*opts.Box3D)
	case opts.Bounds == BoundsUnit:
		s.SetBounds(surface.Box{Min: surface.Point{X: -1, Y: -1, Z: -1}, Max: surface.Point{X: 1, Y: 1, Z: 1}})
	}

	ot, err := tree.NewOctTree(s, node.NewRegistry(), opts.MinSize)
	if err != nil {
		return nil, fmt.Errorf("mesher: %w", err)
	}
	if opts.Unbalanced {
		err = ot.RefineSurface(ot.Root())
	} else {
		err = ot.BalancedRefineSurface(ot.Root())
	}
	if err != nil {
		return nil, fmt.Errorf("mesher: %w", err)
	}
	if p := opts.DeveloperOutput; p != "" {
		if err := meshio.CreateFile(p+"_01_oct_tree.vtk", func(w io.Writer) error {
			return meshio.WriteVTK(w, ot)
		}); err != nil {
			return nil, err
		}
	}
	logging.Logger().Info("mesher: 3D mesh done", "leaves", ot.Size(), "height", ot.MaxLevel(ot.Root()))
	return &Result3D{Surface: s, Tree: ot}, nil
}

// devOutput dumps pipeline stages when a prefix is set.
type devOutput struct {
	prefix string
	plots  bool
}

func (d devOutput) tree(qt *tree.QuadTree) error {
	if d.prefix == "" {
		return nil
	}
	name := d.prefix + "_01_quad_tree_"
	if err := meshio.CreateFile(name+"quads", qt.WriteCells); err != nil {
		return err
	}
	if err := meshio.CreateFile(name+"nodes", qt.WriteNodes); err != nil {
		return err
	}
	if err := qt.Curve().Write(d.prefix + "_00_curve_"); err != nil {
		return err
	}
	if !d.plots {
		return nil
	}
	if err := d.plot(d.prefix+"_00_curve_", func() (*plot.Plot, error) { return render.Curve(qt.Curve()) }); err != nil {
		return err
	}
	if err := d.plot(d.prefix+"_00_curvature_", func() (*plot.Plot, error) { return render.Curvature(qt.Curve()) }); err != nil {
		return err
	}
	return d.plot(name, func() (*plot.Plot, error) { return render.Tree(qt) })
}

func (d devOutput) mesh(stage string, m meshio.PolyMesh, c *curve.Curve) error {
	if d.prefix == "" {
		return nil
	}
	name := d.prefix + stage
	if err := meshio.WritePlainFiles(name, m); err != nil {
		return err
	}
	if !d.plots {
		return nil
	}
	return d.plot(name, func() (*plot.Plot, error) { return render.Mesh(strings.Trim(stage, "_"), m, c) })
}

func (d devOutput) plot(name string, build func() (*plot.Plot, error)) error {
	p, err := build()
	if err != nil {
		return err
	}
	return render.Save(p, name+"plot.png")
}
