package tree

import (
	"fmt"
	"math"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/node"
)

// Quadrant identifies a child of a quadtree cell.
type Quadrant int

const (
	NE Quadrant = iota
	NW
	SW
	SE
)

// Location-code suffix of each quadrant: x bit then y bit.
var quadrantCode = [4]string{NE: "11", NW: "01", SW: "00", SE: "10"}

// SplitNone is the split code of a leaf with no finer outer neighbours.
const SplitNone = "none"

// Quad is one quadtree cell. Leaves own their corner nodes through the
// registry; internal cells keep their corners and gain four children.
type Quad struct {
	NE, NW, SW, SE *node.Node

	Code      string
	SplitCode string
	Leaf      bool

	children [4]int
}

// Child returns the index of child q. It is only meaningful for internal
// cells.
func (c *Quad) Child(q Quadrant) int { return c.children[q] }

// Bounds returns the cell rectangle.
func (c *Quad) Bounds() curve.Box {
	return curve.Box{MinX: c.SW.X, MinY: c.SW.Y, MaxX: c.NE.X, MaxY: c.NE.Y}
}

// Width returns the shorter side of the cell.
func (c *Quad) Width() float64 {
	return math.Min(c.NE.X-c.SW.X, c.NE.Y-c.SW.Y)
}

// Center returns the mean of the four corners.
func (c *Quad) Center() node.Point {
	return node.Mean(c.SE.Point(), c.SW.Point(), c.NE.Point(), c.NW.Point())
}

// QuadTree is a quadtree stored as an arena of cells. Index 0 is the root.
// The code map holds every cell except the root.
type QuadTree struct {
	cells   []Quad
	codes   map[string]int
	curve   *curve.Curve
	reg     *node.Registry
	minSize float64
	balance Balance
	err     error
}

// NewQuadTree builds a single-leaf tree over the curve's bounding box,
// grown by 0.01 on every side. A degenerate single-point box is grown
// asymmetrically by 5 and 5.1 instead.
func NewQuadTree(c *curve.Curve, reg *node.Registry, minSize float64) (*QuadTree, error) {
	if !(minSize > 0) {
		return nil, fmt.Errorf("tree: %w: %g", ErrInvalidMinimumSize, minSize)
	}
	b := c.Bounds()
	if b.MaxX == b.MinX && b.MaxY == b.MinY {
		b.MaxX += 5.1
		b.MinX -= 5
		b.MaxY += 5.1
		b.MinY -= 5
	} else {
		b.MaxX += .01
		b.MinX -= .01
		b.MaxY += .01
		b.MinY -= .01
	}

	t := &QuadTree{
		codes:   make(map[string]int),
		curve:   c,
		reg:     reg,
		minSize: minSize,
		balance: QuadBalance,
	}
	t.cells = append(t.cells, Quad{
		NW:   reg.AddXYZ(b.MinX, b.MaxY, 0, true),
		NE:   reg.AddXYZ(b.MaxX, b.MaxY, 0, true),
		SW:   reg.AddXYZ(b.MinX, b.MinY, 0, true),
		SE:   reg.AddXYZ(b.MaxX, b.MinY, 0, true),
		Leaf: true,
	})
	return t, nil
}

// SetBalance replaces the neighbour balance policy.
func (t *QuadTree) SetBalance(b Balance) { t.balance = b }

// Root returns the root index.
func (t *QuadTree) Root() int { return 0 }

// Len returns the number of cells, root included.
func (t *QuadTree) Len() int { return len(t.cells) }

// Cell returns the cell at index i. The pointer is invalidated by the next
// subdivision.
func (t *QuadTree) Cell(i int) *Quad { return &t.cells[i] }

// Curve returns the boundary the tree refines against.
func (t *QuadTree) Curve() *curve.Curve { return t.curve }

// Registry returns the node registry shared with the mesh builders.
func (t *QuadTree) Registry() *node.Registry { return t.reg }

// MinSize returns the minimum cell width.
func (t *QuadTree) MinSize() float64 { return t.minSize }

// Lookup returns the index of the cell with the given code.
func (t *QuadTree) Lookup(code string) (int, bool) {
	i, ok := t.codes[code]
	return i, ok
}

// Subdivide splits leaf i into four children when it is at least the
// minimum size wide. Internal or small cells are left alone.
func (t *QuadTree) Subdivide(i int) error {
	t.subdivide(i)
	return t.err
}

func (t *QuadTree) subdivide(i int) {
	if t.err != nil {
		return
	}
	c := t.cells[i]
	if !c.Leaf || c.Width() < t.minSize {
		return
	}
	if depth(c.Code, 2) >= MaxLevel {
		t.err = fmt.Errorf("tree: subdivide %q: %w", c.Code, ErrRefinementLimit)
		return
	}

	nw, ne, sw, se := c.NW.Point(), c.NE.Point(), c.SW.Point(), c.SE.Point()
	n := nw.Add(ne).Div(2)
	e := se.Add(ne).Div(2)
	s := sw.Add(se).Div(2)
	w := nw.Add(sw).Div(2)
	ctr := nw.Add(ne).Add(sw).Add(se).Div(4)
	ctr.Fringe = false

	var kids [4]int
	kids[NW] = t.addChild(n, nw, w, ctr, c.Code+quadrantCode[NW])
	kids[NE] = t.addChild(ne, n, ctr, e, c.Code+quadrantCode[NE])
	kids[SW] = t.addChild(ctr, w, sw, s, c.Code+quadrantCode[SW])
	kids[SE] = t.addChild(e, ctr, s, se, c.Code+quadrantCode[SE])

	t.cells[i].Leaf = false
	t.cells[i].children = kids
}

func (t *QuadTree) addChild(ne, nw, sw, se node.Point, code string) int {
	q := Quad{Code: code, Leaf: true}
	q.NW = t.reg.Add(nw)
	q.NE = t.reg.Add(ne)
	q.SW = t.reg.Add(sw)
	q.SE = t.reg.Add(se)
	t.cells = append(t.cells, q)
	i := len(t.cells) - 1
	t.codes[code] = i
	return i
}

// BalancedRefineCurve refines every cell under i that the curve touches
// down to the minimum size, balancing neighbours after each split. With
// boundary false only curvature feature samples trigger refinement.
func (t *QuadTree) BalancedRefineCurve(i int, boundary bool) error {
	t.refine(i, boundary)
	if t.err == nil {
		logging.Logger().Debug("tree: refined", "cells", len(t.cells), "nodes", t.reg.Len())
	}
	return t.err
}

var refineOrder = [4]Quadrant{NE, SE, SW, NW}

func (t *QuadTree) refine(i int, boundary bool) {
	if t.err != nil {
		return
	}
	if !t.cells[i].Leaf {
		for _, q := range refineOrder {
			t.refine(t.cells[i].children[q], boundary)
		}
	}

	box := t.cells[i].Bounds()
	hit := t.curve.FeatureInBoundingBox(box)
	if boundary {
		hit = t.curve.InBoundingBox(box)
	}
	if !hit || t.cells[i].Width() <= t.minSize {
		return
	}
	t.subdivide(i)
	t.fullSetTestAndSubdivide(i)
	if t.cells[i].Leaf {
		return
	}
	for _, q := range refineOrder {
		t.refine(t.cells[i].children[q], boundary)
	}
}

func (t *QuadTree) fullSetTestAndSubdivide(i int) {
	for _, dir := range []func(string) string{t.North, t.East, t.South, t.West} {
		t.testAndSubdivide(i, dir)
	}
}

func (t *QuadTree) testAndSubdivide(i int, dir func(string) string) {
	if t.err != nil {
		return
	}
	code := t.cells[i].Code
	test := dir(code)
	if nbr, ok := t.codes[test]; ok {
		diff := t.MaxLevel(i) - t.MaxLevel(nbr)
		same := t.Parent(test) == t.Parent(code)
		if t.balance.needsSplit(same, diff) {
			t.subdivide(nbr)
			t.fullSetTestAndSubdivide(nbr)
		}
		return
	}

	// No same-depth neighbour: the neighbour's parent may be a coarse leaf.
	p, ok := t.codes[t.Parent(test)]
	if !ok {
		return
	}
	t.subdivide(p)
	nbr, ok := t.codes[test]
	if ok {
		t.subdivide(nbr)
	}
	t.fullSetTestAndSubdivide(p)
	if ok {
		t.fullSetTestAndSubdivide(nbr)
	}
}

// MaxLevel returns the height of the subtree at i; a leaf is 1.
func (t *QuadTree) MaxLevel(i int) int {
	c := &t.cells[i]
	if c.Leaf {
		return 1
	}
	level := 0
	for _, k := range c.children {
		level = max(level, t.MaxLevel(k))
	}
	return level + 1
}

// AssignSplitCode classifies every leaf by how much finer its three outer
// neighbours are: "none", or "270", "180", "90" followed by the corner
// facing those neighbours.
func (t *QuadTree) AssignSplitCode() {
	t.WalkLeaves(DumpOrder, func(i int) {
		t.cells[i].SplitCode = t.splitCode(i)
	})
}

func (t *QuadTree) splitCode(i int) string {
	code := t.cells[i].Code
	var dirs []func(string) string
	var corner string
	switch QuadrantOf(code) {
	case 1:
		dirs, corner = []func(string) string{t.West, t.SouthWest, t.South}, "SW"
	case 2:
		dirs, corner = []func(string) string{t.East, t.South, t.SouthEast}, "SE"
	case 3:
		dirs, corner = []func(string) string{t.NorthEast, t.North, t.East}, "NE"
	case 4:
		dirs, corner = []func(string) string{t.North, t.NorthWest, t.West}, "NW"
	}

	sum := 0
	for _, dir := range dirs {
		if nbr, ok := t.codes[dir(code)]; ok {
			sum += t.MaxLevel(nbr) - 1
		}
	}
	switch sum {
	case 0:
		return SplitNone
	case 1:
		return "270" + corner
	case 2:
		return "180" + corner
	case 3:
		return "90" + corner
	}
	// Unreachable for a balanced tree.
	return corner
}

// QuadrantOf returns 1 for NE, 2 for NW, 3 for SW, 4 for SE and 0 for the
// root or a malformed code.
func QuadrantOf(code string) int {
	if len(code) < 2 || code == Null {
		return 0
	}
	switch code[len(code)-2:] {
	case "11":
		return 1
	case "01":
		return 2
	case "00":
		return 3
	case "10":
		return 4
	}
	return 0
}

// DumpOrder and PrimalOrder are the child orders leaves are visited in.
var (
	DumpOrder   = [4]Quadrant{NE, NW, SW, SE}
	PrimalOrder = [4]Quadrant{NW, NE, SW, SE}
)

// WalkLeaves calls fn for every leaf, depth first, children in order.
func (t *QuadTree) WalkLeaves(order [4]Quadrant, fn func(i int)) {
	var walk func(i int)
	walk = func(i int) {
		if t.cells[i].Leaf {
			fn(i)
			return
		}
		for _, q := range order {
			walk(t.cells[i].children[q])
		}
	}
	walk(0)
}

// Leaves returns the leaf indices in DumpOrder.
func (t *QuadTree) Leaves() []int {
	var out []int
	t.WalkLeaves(DumpOrder, func(i int) { out = append(out, i) })
	return out
}

// Neighbour lookups. Each returns Null at the domain edge.

func (t *QuadTree) North(c string) string     { return step(c, 2, 1, true) }
func (t *QuadTree) South(c string) string     { return step(c, 2, 1, false) }
func (t *QuadTree) East(c string) string      { return step(c, 2, 0, true) }
func (t *QuadTree) West(c string) string      { return step(c, 2, 0, false) }
func (t *QuadTree) NorthEast(c string) string { return t.North(t.East(c)) }
func (t *QuadTree) NorthWest(c string) string { return t.North(t.West(c)) }
func (t *QuadTree) SouthEast(c string) string { return t.South(t.East(c)) }
func (t *QuadTree) SouthWest(c string) string { return t.South(t.West(c)) }

// Parent returns the code one level up, or Null for first-level cells.
func (t *QuadTree) Parent(c string) string { return parent(c, 2) }

// Exists reports whether a cell has the given code.
func (t *QuadTree) Exists(c string) bool {
	_, ok := t.codes[c]
	return ok
}

// ExistsAndLeaf reports whether c names a leaf.
func (t *QuadTree) ExistsAndLeaf(c string) bool {
	i, ok := t.codes[c]
	return ok && t.cells[i].Leaf
}

// ExistsAndLeafAndNoSplit reports whether c names a leaf with split code
// "none".
func (t *QuadTree) ExistsAndLeafAndNoSplit(c string) bool {
	i, ok := t.codes[c]
	return ok && t.cells[i].Leaf && t.cells[i].SplitCode == SplitNone
}

// SplitCode returns the split code of leaf c, or Null.
func (t *QuadTree) SplitCode(c string) string {
	i, ok := t.codes[c]
	if !ok || !t.cells[i].Leaf {
		return Null
	}
	return t.cells[i].SplitCode
}
