// Package render draws developer plots of the mesher's stages: the
// boundary with its corners and features, the quadtree leaves, primal and
// dual elements, and the boundary curvature.
package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/mesh"
	"github.com/chazu/dualmesh/pkg/tree"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Size is the edge length of saved plots.
const Size = 15 * vg.Centimeter

var (
	boundaryColor = color.RGBA{A: 255}
	cornerColor   = color.RGBA{R: 220, A: 255}
	featureColor  = color.RGBA{B: 220, A: 255}
	cellColor     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	elementColor  = color.RGBA{G: 120, B: 60, A: 255}
)

// Polys is anything with active elements to draw.
type Polys interface {
	Active() []*mesh.Poly
}

// Curve plots the loops of c with its corners and curvature features.
func Curve(c *curve.Curve) (*plot.Plot, error) {
	p := newPlot("boundary")
	if err := addCurve(p, c); err != nil {
		return nil, err
	}
	if err := addPoints(p, "corners", c.Corners(), cornerColor, draw.BoxGlyph{}); err != nil {
		return nil, err
	}
	if err := addPoints(p, "features", c.Features(), featureColor, draw.CircleGlyph{}); err != nil {
		return nil, err
	}
	return p, nil
}

// Tree plots the leaf cells of t over its curve.
func Tree(t *tree.QuadTree) (*plot.Plot, error) {
	p := newPlot(fmt.Sprintf("quadtree, %d leaves", len(t.Leaves())))
	for _, i := range t.Leaves() {
		b := t.Cell(i).Bounds()
		l, err := plotter.NewLine(plotter.XYs{
			{X: b.MinX, Y: b.MinY}, {X: b.MaxX, Y: b.MinY},
			{X: b.MaxX, Y: b.MaxY}, {X: b.MinX, Y: b.MaxY}, {X: b.MinX, Y: b.MinY},
		})
		if err != nil {
			return nil, fmt.Errorf("render: cell %d: %w", i, err)
		}
		l.LineStyle.Color = cellColor
		l.LineStyle.Width = vg.Points(0.5)
		p.Add(l)
	}
	if err := addCurve(p, t.Curve()); err != nil {
		return nil, err
	}
	return p, nil
}

// Mesh plots the active elements of m, and the curve when c is not nil.
func Mesh(title string, m Polys, c *curve.Curve) (*plot.Plot, error) {
	active := m.Active()
	p := newPlot(fmt.Sprintf("%s, %d elements", title, len(active)))
	for _, poly := range active {
		if poly.Len() == 0 {
			continue
		}
		xys := make(plotter.XYs, 0, poly.Len()+1)
		for _, n := range poly.Nodes {
			xys = append(xys, plotter.XY{X: n.X, Y: n.Y})
		}
		xys = append(xys, xys[0])
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("render: element %d: %w", poly.ID, err)
		}
		l.LineStyle.Color = elementColor
		l.LineStyle.Width = vg.Points(0.5)
		p.Add(l)
	}
	if c != nil {
		if err := addCurve(p, c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Curvature plots the signed curvature of every loop against the sample
// index, with the feature band marked.
func Curvature(c *curve.Curve) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "curvature"
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "k"
	n := 0
	for i, loop := range c.Loops() {
		xys := make(plotter.XYs, len(loop.Points))
		for j, pt := range loop.Points {
			xys[j] = plotter.XY{X: float64(j), Y: pt.Curvature}
			n = max(n, j+1)
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("render: loop %d curvature: %w", i, err)
		}
		l.LineStyle.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("loop %d", i), l)
	}
	for _, k := range []float64{curve.FeatureMin, curve.FeatureMax, -curve.FeatureMin, -curve.FeatureMax} {
		l, err := plotter.NewLine(plotter.XYs{{X: 0, Y: k}, {X: float64(max(n-1, 1)), Y: k}})
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = cellColor
		l.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(l)
	}
	return p, nil
}

// Save writes p to name; the format follows the file extension.
func Save(p *plot.Plot, name string) error {
	if err := p.Save(Size, Size, name); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Write encodes p to w in format, one of the extensions plot.Save knows
// ("svg", "png", "pdf", ...).
func Write(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(Size, Size, format)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	return p
}

func addCurve(p *plot.Plot, c *curve.Curve) error {
	for i, loop := range c.Loops() {
		if len(loop.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, 0, len(loop.Points)+1)
		for _, pt := range loop.Points {
			xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
		}
		xys = append(xys, xys[0])
		l, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("render: loop %d: %w", i, err)
		}
		l.LineStyle.Color = boundaryColor
		l.LineStyle.Width = vg.Points(1)
		if !loop.In {
			l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(l)
	}
	return nil
}

func addPoints(p *plot.Plot, name string, pts []curve.Point, c color.Color, shape draw.GlyphDrawer) error {
	if len(pts) == 0 {
		return nil
	}
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("render: %s: %w", name, err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = shape
	s.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}
