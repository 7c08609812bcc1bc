package mesh

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/node"
	"github.com/chazu/dualmesh/pkg/tree"
)

// ErrRefinementLimit is returned when element IDs for a tree this deep
// would not fit in 63 bits.
var ErrRefinementLimit = fmt.Errorf("mesh: element id overflow: %w", tree.ErrRefinementLimit)

// headerBits is the width of the level header in an element ID.
const headerBits = 8

// Loop is a transition loop: four primal element IDs, ascending.
type Loop [4]int

// Primal is the transition-free mesh of a quadtree's leaves. Its nodes
// live in the tree's registry.
type Primal struct {
	Mesh

	tree     *tree.QuadTree
	maxLevel int
	loops    map[Loop]struct{}
}

// NewPrimal builds the primal mesh of t, whose split codes must already be
// assigned, and collects its transition loops.
func NewPrimal(t *tree.QuadTree) (*Primal, error) {
	p := &Primal{
		Mesh:     newMesh(t.Registry()),
		tree:     t,
		maxLevel: t.MaxLevel(t.Root()),
		loops:    make(map[Loop]struct{}),
	}
	if 1+headerBits+2*p.maxLevel > 63 {
		return nil, fmt.Errorf("mesh: tree height %d: %w", p.maxLevel, ErrRefinementLimit)
	}

	var err error
	t.WalkLeaves(tree.PrimalOrder, func(i int) {
		if err == nil {
			err = p.addLeaf(t.Cell(i))
		}
	})
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("mesh: built primal", "polys", len(p.polys), "loops", len(p.loops))
	return p, nil
}

// ID packs a location code into an element ID: an optional transition
// bit, an 8-bit header holding depth+1, then the code padded with zeros
// to the tree height.
func (p *Primal) ID(code string, transition bool) (int, error) {
	width := 2 * p.maxLevel
	if len(code) > width {
		return 0, fmt.Errorf("mesh: code %q deeper than tree: %w", code, ErrRefinementLimit)
	}
	var b strings.Builder
	if transition {
		b.WriteByte('1')
	}
	fmt.Fprintf(&b, "%0*b", headerBits, (len(code)/2+1)&0xff)
	b.WriteString(code)
	b.WriteString(strings.Repeat("0", width-len(code)))
	id, err := strconv.ParseInt(b.String(), 2, 64)
	if err != nil {
		return 0, fmt.Errorf("mesh: code %q: %w", code, err)
	}
	return int(id), nil
}

// splitCorner is the corner a leaf in each quadrant splits toward.
var splitCorner = [5]string{1: "SW", 2: "SE", 3: "NE", 4: "NW"}

func (p *Primal) addLeaf(c *tree.Quad) error {
	ne, nw, se, sw := c.NE.Point(), c.NW.Point(), c.SE.Point(), c.SW.Point()
	n := ne.Add(nw).Div(2)
	s := se.Add(sw).Div(2)
	e := ne.Add(se).Div(2)
	w := nw.Add(sw).Div(2)

	whole, err := p.ID(c.Code, false)
	if err != nil {
		return err
	}
	quadrant := tree.QuadrantOf(c.Code)
	if c.SplitCode == tree.SplitNone || quadrant == 0 {
		p.AddPoly([]node.Point{ne, nw, sw, se}, whole)
	} else {
		half, err := p.ID(c.Code, true)
		if err != nil {
			return err
		}
		var tri, rest []node.Point
		switch quadrant {
		case 1:
			tri, rest = []node.Point{w, s, sw}, []node.Point{s, se, ne, nw, w}
		case 2:
			tri, rest = []node.Point{e, s, se}, []node.Point{e, ne, nw, sw, s}
		case 3:
			tri, rest = []node.Point{ne, n, e}, []node.Point{n, nw, sw, se, e}
		case 4:
			tri, rest = []node.Point{n, nw, w}, []node.Point{w, sw, se, ne, n}
		}
		p.AddPoly(tri, half)
		p.AddPoly(rest, whole)
		if err := p.search(c.Code, tables.byCorner[splitCorner[quadrant]]); err != nil {
			return err
		}
	}
	return p.search(c.Code, tables.square)
}

// search walks each path from code and records every walk that closes.
func (p *Primal) search(code string, paths []Path) error {
	for _, path := range paths {
		stops := Walk(p.tree, code, path)
		if len(stops) != 5 {
			continue
		}
		var ids [5]int
		for k, st := range stops {
			id, err := p.ID(st.Code, st.Transition)
			if err != nil {
				return err
			}
			ids[k] = id
		}
		if ids[0] == ids[4] {
			p.addLoop(ids[0], ids[1], ids[2], ids[3])
		}
	}
	return nil
}

// addLoop records a loop under its sorted ID set. Repeated IDs collapse,
// leaving trailing zeros.
func (p *Primal) addLoop(a, b, c, d int) {
	ids := []int{a, b, c, d}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	var l Loop
	copy(l[:], ids)
	p.loops[l] = struct{}{}
}

// Loops returns the unique transition loops in ascending order.
func (p *Primal) Loops() []Loop {
	out := make([]Loop, 0, len(p.loops))
	for l := range p.loops {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Loop) int {
		for k := range a {
			if c := cmp.Compare(a[k], b[k]); c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

// Tree returns the quadtree the mesh was built from.
func (p *Primal) Tree() *tree.QuadTree { return p.tree }
