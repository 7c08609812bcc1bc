package tree

import (
	"fmt"
	"math"

	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/node"
	"github.com/chazu/dualmesh/pkg/surface"
)

// Corner order of an octree cell: bottom face (z min) counter-clockwise
// from the south-west corner, then the top face in the same order.
const (
	SWD = iota
	SED
	NED
	NWD
	SWU
	SEU
	NEU
	NWU
)

// The 27 lattice points of a subdivided cell are the 8 corners (0-7), the
// center (8), six face centers and twelve edge midpoints. childLattice
// picks each child's corners from that lattice.
var (
	faceCenters = map[int][4]int{
		9: {1, 2, 5, 6}, 12: {5, 6, 7, 4}, 15: {0, 4, 7, 3},
		22: {0, 1, 2, 3}, 18: {0, 1, 5, 4}, 11: {2, 3, 6, 7},
	}
	edgeMids = map[int][2]int{
		26: {0, 1}, 19: {1, 5}, 20: {5, 4}, 21: {4, 0},
		13: {5, 6}, 17: {4, 7}, 25: {0, 3}, 23: {1, 2},
		14: {7, 6}, 16: {3, 7}, 24: {2, 3}, 10: {6, 2},
	}
	childLattice = [8][8]int{
		{8, 9, 10, 11, 12, 13, 6, 14},
		{15, 8, 11, 16, 17, 12, 14, 7},
		{18, 19, 9, 8, 20, 5, 13, 12},
		{21, 18, 8, 15, 4, 20, 12, 17},
		{22, 23, 2, 24, 8, 9, 10, 11},
		{25, 22, 24, 3, 15, 8, 11, 16},
		{26, 1, 23, 22, 18, 19, 9, 8},
		{0, 26, 22, 25, 21, 18, 8, 15},
	}
	// Location-code suffix of each child: x, y, z bits.
	octantCode = [8]string{"111", "011", "101", "001", "110", "010", "100", "000"}
)

// Oct is one octree cell.
type Oct struct {
	Corners [8]*node.Node
	Code    string
	Leaf    bool

	children [8]int
}

// Child returns the index of child k of an internal cell.
func (c *Oct) Child(k int) int { return c.children[k] }

// Bounds returns the box spanned by the corners.
func (c *Oct) Bounds() surface.Box {
	p := c.Corners[0]
	b := surface.Box{Min: surface.Point{X: p.X, Y: p.Y, Z: p.Z}, Max: surface.Point{X: p.X, Y: p.Y, Z: p.Z}}
	for _, n := range c.Corners[1:] {
		b.Min.X, b.Max.X = math.Min(b.Min.X, n.X), math.Max(b.Max.X, n.X)
		b.Min.Y, b.Max.Y = math.Min(b.Min.Y, n.Y), math.Max(b.Max.Y, n.Y)
		b.Min.Z, b.Max.Z = math.Min(b.Min.Z, n.Z), math.Max(b.Max.Z, n.Z)
	}
	return b
}

// Width returns the shortest side.
func (c *Oct) Width() float64 {
	b := c.Bounds()
	return math.Min(math.Min(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y), b.Max.Z-b.Min.Z)
}

// OctTree is the 3D analogue of QuadTree, refined against a surface.
type OctTree struct {
	cells   []Oct
	codes   map[string]int
	surf    *surface.Surface
	reg     *node.Registry
	minSize float64
	balance Balance
	err     error
}

// NewOctTree builds a single-leaf tree over the surface's bounding box.
func NewOctTree(s *surface.Surface, reg *node.Registry, minSize float64) (*OctTree, error) {
	if !(minSize > 0) {
		return nil, fmt.Errorf("tree: %w: %g", ErrInvalidMinimumSize, minSize)
	}
	lo, hi := s.Bounds().Min, s.Bounds().Max
	pts := [8]surface.Point{
		SWD: lo,
		SED: {X: hi.X, Y: lo.Y, Z: lo.Z},
		NED: {X: hi.X, Y: hi.Y, Z: lo.Z},
		NWD: {X: lo.X, Y: hi.Y, Z: lo.Z},
		SWU: {X: lo.X, Y: lo.Y, Z: hi.Z},
		SEU: {X: hi.X, Y: lo.Y, Z: hi.Z},
		NEU: hi,
		NWU: {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	root := Oct{Leaf: true}
	for k, p := range pts {
		root.Corners[k] = reg.AddXYZ(p.X, p.Y, p.Z, true)
	}
	return &OctTree{
		cells:   []Oct{root},
		codes:   make(map[string]int),
		surf:    s,
		reg:     reg,
		minSize: minSize,
		balance: OctBalance,
	}, nil
}

// SetBalance replaces the neighbour balance policy.
func (t *OctTree) SetBalance(b Balance) { t.balance = b }

// Root returns the root index.
func (t *OctTree) Root() int { return 0 }

// Len returns the number of cells, root included.
func (t *OctTree) Len() int { return len(t.cells) }

// Cell returns the cell at index i. The pointer is invalidated by the next
// subdivision.
func (t *OctTree) Cell(i int) *Oct { return &t.cells[i] }

// Registry returns the node registry.
func (t *OctTree) Registry() *node.Registry { return t.reg }

// Lookup returns the index of the cell with the given code.
func (t *OctTree) Lookup(code string) (int, bool) {
	i, ok := t.codes[code]
	return i, ok
}

// Subdivide splits leaf i into eight children when it is wider than the
// minimum size.
func (t *OctTree) Subdivide(i int) error {
	t.subdivide(i)
	return t.err
}

func (t *OctTree) subdivide(i int) {
	if t.err != nil {
		return
	}
	c := t.cells[i]
	if !c.Leaf || !(c.Width() > t.minSize) {
		return
	}
	if depth(c.Code, 3) >= MaxLevel {
		t.err = fmt.Errorf("tree: subdivide %q: %w", c.Code, ErrRefinementLimit)
		return
	}

	var lat [27]node.Point
	for k, n := range c.Corners {
		lat[k] = n.Point()
	}
	lat[8] = node.Mean(lat[:8]...)
	lat[8].Fringe = false
	for k, f := range faceCenters {
		lat[k] = node.Mean(lat[f[0]], lat[f[1]], lat[f[2]], lat[f[3]])
	}
	for k, e := range edgeMids {
		lat[k] = lat[e[0]].Add(lat[e[1]]).Div(2)
	}

	var kids [8]int
	for k := range childLattice {
		o := Oct{Code: c.Code + octantCode[k], Leaf: true}
		for j, l := range childLattice[k] {
			o.Corners[j] = t.reg.Add(lat[l])
		}
		t.cells = append(t.cells, o)
		kids[k] = len(t.cells) - 1
		t.codes[o.Code] = kids[k]
	}
	t.cells[i].Leaf = false
	t.cells[i].children = kids
}

// RefineSurface refines every cell the surface touches down to the
// minimum size, without balancing.
func (t *OctTree) RefineSurface(i int) error {
	t.refine(i, false)
	return t.err
}

// BalancedRefineSurface is RefineSurface with neighbour balancing after
// every split.
func (t *OctTree) BalancedRefineSurface(i int) error {
	t.refine(i, true)
	if t.err == nil {
		logging.Logger().Debug("tree: refined octree", "cells", len(t.cells), "leaves", t.Size())
	}
	return t.err
}

func (t *OctTree) refine(i int, balanced bool) {
	if t.err != nil {
		return
	}
	if !t.cells[i].Leaf {
		for k := range 8 {
			t.refine(t.cells[i].children[k], balanced)
		}
	}
	if !t.surf.InBoundingBox(t.cells[i].Bounds()) || !(t.cells[i].Width() > t.minSize) {
		return
	}
	t.subdivide(i)
	if balanced {
		t.fullSetTestAndSubdivide(i)
	}
	if t.cells[i].Leaf {
		return
	}
	for k := range 8 {
		t.refine(t.cells[i].children[k], balanced)
	}
}

func (t *OctTree) fullSetTestAndSubdivide(i int) {
	for _, dir := range []func(string) string{t.IP1, t.IM1, t.JP1, t.JM1, t.KP1, t.KM1} {
		t.testAndSubdivide(i, dir)
	}
}

func (t *OctTree) testAndSubdivide(i int, dir func(string) string) {
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
func (t *OctTree) MaxLevel(i int) int {
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

// Size returns the number of leaves.
func (t *OctTree) Size() int {
	n := 0
	t.WalkLeaves(func(int) { n++ })
	return n
}

// WalkLeaves calls fn for every leaf, depth first, children 0 to 7.
func (t *OctTree) WalkLeaves(fn func(i int)) {
	var walk func(i int)
	walk = func(i int) {
		if t.cells[i].Leaf {
			fn(i)
			return
		}
		for _, k := range t.cells[i].children {
			walk(k)
		}
	}
	walk(0)
}

// Hexes returns the corner node IDs of every leaf in walk order.
func (t *OctTree) Hexes() [][8]int {
	var out [][8]int
	t.WalkLeaves(func(i int) {
		var ids [8]int
		for k, n := range t.cells[i].Corners {
			ids[k] = n.ID
		}
		out = append(out, ids)
	})
	return out
}

// OctantOf returns the child index (0-7) a code ends in, or -1.
func OctantOf(code string) int {
	if len(code) < 3 || code == Null {
		return -1
	}
	suffix := code[len(code)-3:]
	for k, s := range octantCode {
		if s == suffix {
			return k
		}
	}
	return -1
}

// Axis neighbours: I is x, J is y, K is z.

func (t *OctTree) IP1(c string) string { return step(c, 3, 0, true) }
func (t *OctTree) IM1(c string) string { return step(c, 3, 0, false) }
func (t *OctTree) JP1(c string) string { return step(c, 3, 1, true) }
func (t *OctTree) JM1(c string) string { return step(c, 3, 1, false) }
func (t *OctTree) KP1(c string) string { return step(c, 3, 2, true) }
func (t *OctTree) KM1(c string) string { return step(c, 3, 2, false) }

// Parent returns the code one level up, or Null for first-level cells.
func (t *OctTree) Parent(c string) string { return parent(c, 3) }
