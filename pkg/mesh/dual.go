package mesh

import (
	"fmt"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/node"
)

// Classifier decides whether a point is inside the meshed region.
type Classifier interface {
	Contains(x, y float64) bool
}

// Dual is the mesh with one node per primal element and one quad per
// transition loop. It owns a fresh registry.
type Dual struct {
	Mesh

	curve  *curve.Curve
	inside Classifier
	count  int
}

// NewDual builds the dual of p against the boundary c.
func NewDual(p *Primal, c *curve.Curve) *Dual {
	d := &Dual{Mesh: newMesh(node.NewRegistry()), curve: c, inside: c}
	for _, l := range p.Loops() {
		var centers [4]node.Point
		ok := true
		for k, id := range l {
			poly := p.Poly(id)
			if poly == nil {
				d.diagnose(MissingPoly, fmt.Sprintf("loop %v names element %d", l, id), 0)
				ok = false
				break
			}
			centers[k] = poly.Center()
		}
		if !ok {
			continue
		}
		// Ascending IDs run SW, NW, SE, NE for a regular loop.
		nw, ne, sw, se := centers[0], centers[1], centers[2], centers[3]
		d.add(ne, nw, sw, se)
	}
	logging.Logger().Debug("mesh: built dual", "polys", len(d.polys), "nodes", d.reg.Len())
	return d
}

// SetClassifier replaces the inside test used by Trim. The default is the
// curve's winding-number test.
func (d *Dual) SetClassifier(c Classifier) { d.inside = c }

// Count returns the last element ID handed out.
func (d *Dual) Count() int { return d.count }

// add detangles and appends one quad under the next ID.
func (d *Dual) add(a, b, c, e node.Point) *Poly {
	ok := detangle(&a, &b, &c, &e)
	d.count++
	p := d.AddPoly([]node.Point{a, b, c, e}, d.count)
	if !ok {
		p.Tangled = true
		d.diagnose(DetangleUnresolved, "corner order left as found", p.ID)
	}
	return p
}

// signSum is the sum over the four corners of the sign of the turn there.
// A clean cycle scores 4 one way round and -4 the other.
func signSum(a, b, c, d node.Point) int {
	sum := 0
	for _, v := range [4]float64{cross(a, b, c), cross(b, c, d), cross(c, d, a), cross(d, a, b)} {
		if v > 0 {
			sum++
		} else {
			sum--
		}
	}
	return sum
}

// detangle reorders a quad's corners so no two edges cross and the turns
// are positive. It reports false for an order it cannot fix.
func detangle(a, b, c, d *node.Point) bool {
	switch signSum(*a, *b, *c, *d) {
	case 0:
		switch {
		case signSum(*a, *b, *d, *c) == 4:
			*c, *d = *d, *c
		case signSum(*a, *c, *b, *d) == 4:
			*b, *c = *c, *b
		case signSum(*a, *c, *d, *b) == 4:
			*b, *d = *d, *b
			*b, *c = *c, *b
		case signSum(*a, *d, *b, *c) == 4:
			*b, *d = *d, *b
			*c, *d = *d, *c
		case signSum(*a, *d, *c, *b) == 4:
			*b, *d = *d, *b
		default:
			return false
		}
	case -4:
		*a, *d = *d, *a
		*b, *c = *c, *b
	}
	return true
}

// Trim deactivates every element whose center is outside the region.
func (d *Dual) Trim() {
	n := 0
	for _, p := range d.polys {
		c := p.Center()
		if !d.inside.Contains(c.X, c.Y) {
			p.Active = false
			n++
		}
	}
	logging.Logger().Debug("mesh: trimmed dual", "removed", n)
}

// Project recomputes the fringe and moves every fringe node onto the
// curve.
func (d *Dual) Project() {
	d.FringeNodes()
	for _, n := range d.reg.Nodes() {
		if n.Fringe {
			x, y := d.curve.NearestPt(n.X, n.Y)
			d.reg.Move(n, x, y, n.Z)
		}
	}
}

// Snap moves the node nearest each curve corner onto it.
func (d *Dual) Snap() {
	for _, c := range d.curve.Corners() {
		if n := d.reg.Near(c.X, c.Y); n != nil {
			d.reg.Move(n, c.X, c.Y, n.Z)
		}
	}
}

// Subdivide makes one refinement pass over the elements that existed when
// it was called: each is either repaired by Split3 or split four ways.
// Elements created during the pass are left for the next one.
func (d *Dual) Subdivide() {
	n := len(d.polys)
	for _, p := range d.polys[:n] {
		if p.Active && p.Len() == 4 && !p.OkToSubdivide {
			d.diagnose(RefinementCapped, "repaired element not split again", p.ID)
			continue
		}
		if !d.Split3(p) {
			d.SubdividePoly(p)
		}
	}
}

// SubdividePoly splits an active quad into four around its center. It
// reports whether a split happened.
func (d *Dual) SubdividePoly(p *Poly) bool {
	if p == nil || p.Len() != 4 || !p.Active || !p.OkToSubdivide {
		return false
	}
	a, b, c, e := p.Nodes[0].Point(), p.Nodes[1].Point(), p.Nodes[2].Point(), p.Nodes[3].Point()
	ab := a.Add(b).Div(2)
	bc := b.Add(c).Div(2)
	ce := c.Add(e).Div(2)
	ea := e.Add(a).Div(2)
	m := node.Mean(a, b, c, e)

	p.Active = false
	d.add(a, ab, m, ea)
	d.add(ab, b, bc, m)
	d.add(bc, c, ce, m)
	d.add(ce, e, ea, m)
	return true
}

// Split3 replaces a quad with an oblique turn by three quads around a
// point biased away from the worst corner, after pulling that corner back
// onto the curve. It reports whether the split happened. Ties between
// equally bad corners go to the first in corner order.
func (d *Dual) Split3(p *Poly) bool {
	if p == nil || p.Len() != 4 || !p.Active || !p.OkToSubdivide {
		return false
	}
	var q [4]node.Point
	for k := range q {
		q[k] = p.Nodes[k].Point()
	}
	var ang [4]float64
	bad := false
	for k := range ang {
		ang[k] = turn(q[k], q[(k+1)%4], q[(k+2)%4])
		bad = bad || oblique(ang[k])
	}
	if !bad {
		return false
	}
	p.Active = false
	p.OkToSubdivide = false

	// Rotate so the worst corner is b; the four cases are one case under
	// rotation.
	r := (worstTurn(ang) + 1) % 4
	a, b, c, e := q[(r+3)%4], q[r], q[(r+1)%4], q[(r+2)%4]
	m := node.Mean(a, c, e)
	ce := c.Add(e).Div(2)
	ea := e.Add(a).Div(2)
	b = d.walk(a, c)

	quads := [3][4]node.Point{
		{b, c, ce, m},
		{b, m, ea, a},
		{m, ce, e, ea},
	}
	if r == 2 {
		// The third corner numbers its first two quads the other way.
		quads[0], quads[1] = quads[1], quads[0]
	}
	for _, quad := range quads {
		d.add(quad[0], quad[1], quad[2], quad[3]).OkToSubdivide = false
	}
	return true
}

// worstTurn returns the index of the turn furthest from a right angle
// in the folded sense: turns over 90 are measured from 180.
func worstTurn(ang [4]float64) int {
	worst, val := 0, 0.0
	for k, a := range ang {
		if a > 90 {
			a = abs(a - 180)
		}
		if k == 0 || a < val {
			worst, val = k, a
		}
	}
	return worst
}

// walk returns the curve point nearest the midpoint of a and c.
func (d *Dual) walk(a, c node.Point) node.Point {
	mid := a.Add(c).Div(2)
	mid.X, mid.Y = d.curve.NearestPt(mid.X, mid.Y)
	return mid
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
