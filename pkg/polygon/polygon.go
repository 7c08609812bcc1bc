// Package polygon classifies points against NaN-separated multi-loop
// polygons. Classifier is the shared capability; Generalized answers it by
// ray casting through a segment KD-tree, and OrbClassifier delegates to
// orb's planar ring test.
package polygon

import "math"

// Classifier decides whether a point lies inside a region.
type Classifier interface {
	Contains(x, y float64) bool
}

// Float is the coordinate type a Generalized polygon is built from.
type Float interface {
	~float32 | ~float64
}

// Generalized is a polygon made of one or more closed loops. A point is
// inside when a ray from it crosses the loops an odd number of times.
type Generalized[T Float] struct {
	tree *kdTree
	area float64
}

// NewGeneralized builds a polygon from flattened coordinates with NaN
// between loops. It returns false when x and y are empty or of different
// lengths.
func NewGeneralized[T Float](x, y []T) (*Generalized[T], bool) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, false
	}
	segs := segments(x, y)
	return &Generalized[T]{tree: newKDTree(segs), area: signedArea(segs)}, true
}

// Area returns the signed area of all loops.
func (g *Generalized[T]) Area() float64 { return g.area }

// InPoly classifies (x, y). An x-directed ray is cast first; if it grazes
// a vertex or runs along an edge a y-directed ray is tried, and if that is
// also ambiguous the point is nudged by a tiny multiple of the polygon's
// size and cast again along x.
func (g *Generalized[T]) InPoly(x, y T) bool {
	return g.Contains(float64(x), float64(y))
}

// Contains implements Classifier.
func (g *Generalized[T]) Contains(x, y float64) bool {
	c := g.tree.count(ray{ox: x, oy: y, dir: dirX})
	if c.bad() {
		c = g.tree.count(ray{ox: x, oy: y, dir: dirY})
		if c.bad() {
			tol := math.Sqrt(math.Abs(g.area)) * 1e-12
			c = g.tree.count(ray{ox: x + tol, oy: y + tol, dir: dirX})
		}
	}
	return c.interior%2 == 1
}

// Nodes returns the number of KD-tree nodes.
func (g *Generalized[T]) Nodes() int { return g.tree.root.nodes() }

// Segments returns the number of segments stored across the KD-tree.
func (g *Generalized[T]) Segments() int { return g.tree.root.segments() }

func segments[T Float](x, y []T) []segment {
	f := func(i int) point { return point{float64(x[i]), float64(y[i])} }
	segs := make([]segment, 0, len(x))
	first := 0
	for k := 1; k < len(x); k++ {
		if math.IsNaN(float64(x[k])) {
			segs = append(segs, segment{f(k - 1), f(first)})
			first = k + 1
			k++
			continue
		}
		segs = append(segs, segment{f(k - 1), f(k)})
	}
	if first < len(x) {
		segs = append(segs, segment{f(len(x) - 1), f(first)})
	}
	return segs
}

func signedArea(segs []segment) float64 {
	a := 0.0
	for _, s := range segs {
		a += s.p0.x*s.p1.y - s.p1.x*s.p0.y
	}
	return a / 2
}
