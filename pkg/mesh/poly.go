// Package mesh builds the primal and dual meshes of a balanced quadtree.
//
// The primal mesh has one element per leaf, or two for a leaf split
// against finer neighbours, so it has no hanging nodes. The dual mesh has
// one node per primal element and one quad per transition loop; it is
// then trimmed to the boundary, projected onto it, and repaired where
// angles go oblique.
package mesh

import (
	"math"

	"github.com/chazu/dualmesh/pkg/node"
)

// Poly is one element. Elements are never removed: trimming and
// subdivision clear Active instead, so IDs and order stay stable.
type Poly struct {
	Nodes  []*node.Node
	ID     int
	Active bool
	// OkToSubdivide is cleared once an oblique repair has produced or
	// consumed the element.
	OkToSubdivide bool
	// Tangled marks a quad whose corner order could not be untangled.
	Tangled bool
}

// Len returns the number of corners.
func (p *Poly) Len() int { return len(p.Nodes) }

// IDs returns the corner node IDs in order.
func (p *Poly) IDs() []int {
	ids := make([]int, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Center returns the mean of the corners.
func (p *Poly) Center() node.Point {
	pts := make([]node.Point, len(p.Nodes))
	for i, n := range p.Nodes {
		pts[i] = n.Point()
	}
	return node.Mean(pts...)
}

// ShortestSide returns the shortest edge length, or 0 for fewer than two
// corners.
func (p *Poly) ShortestSide() float64 {
	return p.side(math.Min)
}

// LongestSide returns the longest edge length, or 0 for fewer than two
// corners.
func (p *Poly) LongestSide() float64 {
	return p.side(math.Max)
}

func (p *Poly) side(pick func(a, b float64) float64) float64 {
	if len(p.Nodes) < 2 {
		return 0
	}
	s := p.Nodes[0].Dist(p.Nodes[1])
	for i, n := range p.Nodes {
		s = pick(s, n.Dist(p.Nodes[(i+1)%len(p.Nodes)]))
	}
	return s
}

// Angles returns the interior angle at each corner in degrees.
func (p *Poly) Angles() []float64 {
	n := len(p.Nodes)
	out := make([]float64, n)
	for i := range p.Nodes {
		a := p.Nodes[(i+n-1)%n].Point()
		b := p.Nodes[i].Point()
		c := p.Nodes[(i+1)%n].Point()
		out[i] = 180 - turn(a, b, c)
	}
	return out
}

// turn is the angle in degrees between the directions a->b and b->c.
func turn(a, b, c node.Point) float64 {
	fx, fy := b.X-a.X, b.Y-a.Y
	fm := math.Sqrt(fx*fx + fy*fy)
	tx, ty := c.X-b.X, c.Y-b.Y
	tm := math.Sqrt(tx*tx + ty*ty)
	cos := (fx*tx + fy*ty) / (fm * tm)
	return math.Acos(max(-1, min(1, cos))) * degPerRad
}

// cross is the z component of (b-a) x (c-b) with the sign flipped, so a
// clockwise turn is positive.
func cross(a, b, c node.Point) float64 {
	fx, fy := b.X-a.X, b.Y-a.Y
	tx, ty := c.X-b.X, c.Y-b.Y
	return fy*tx - fx*ty
}

const degPerRad = 180 / 3.14159

// ObliqueLow and ObliqueHigh bound the turning angles a quad may have
// before it is repaired.
const (
	ObliqueLow  = 20.0
	ObliqueHigh = 160.0
)

func oblique(deg float64) bool {
	return deg < ObliqueLow || deg > ObliqueHigh
}
