// Package node provides mesh vertices and the deduplicating registry that
// owns them. Registry IDs start at 1 and never change once assigned.
package node

import (
	"fmt"
	"math"
)

const (
	// Tolerance is the merge distance: two points closer than this are the
	// same node.
	Tolerance = 1e-8

	// Unset is the ID of a node that has not been registered.
	Unset = -1
)

// Point is an unregistered coordinate. Arithmetic on points carries the
// fringe flag the way corner interpolation needs it: a sum is fringe only
// when both operands are, and scaling keeps the flag.
type Point struct {
	X, Y, Z float64
	Fringe  bool
}

// Pt returns a non-fringe point.
func Pt(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z, Fringe: p.Fringe && q.Fringe}
}

// Div returns p/s.
func (p Point) Div(s float64) Point {
	return Point{X: p.X / s, Y: p.Y / s, Z: p.Z / s, Fringe: p.Fringe}
}

// Equal reports whether p and q are within Tolerance of each other.
func (p Point) Equal(q Point) bool {
	return p.dist2(q) < Tolerance*Tolerance
}

func (p Point) dist2(q Point) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return dx*dx + dy*dy + dz*dz
}

// Mean returns the average of pts. Fringe follows Add.
func Mean(pts ...Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	sum := pts[0]
	for _, p := range pts[1:] {
		sum = sum.Add(p)
	}
	return sum.Div(float64(len(pts)))
}

// Node is a registered mesh vertex.
type Node struct {
	X, Y, Z float64
	ID      int

	// Fringe marks a node on the boundary of the current element set.
	Fringe bool
	// Active marks a node referenced by at least one active element.
	Active bool

	// FX, FY, FZ accumulate forces for relaxation. Nothing in the meshing
	// pipeline reads them.
	FX, FY, FZ float64
}

// Point returns the node's coordinate and fringe flag.
func (n *Node) Point() Point {
	return Point{X: n.X, Y: n.Y, Z: n.Z, Fringe: n.Fringe}
}

// Dist returns the Euclidean distance between n and m.
func (n *Node) Dist(m *Node) float64 {
	return math.Sqrt(n.Point().dist2(m.Point()))
}

// String formats the node as an "id x y z active fringe" row, flags as 0
// or 1.
func (n *Node) String() string {
	return fmt.Sprintf("%d\t%g\t%g\t%g\t%d\t%d", n.ID, n.X, n.Y, n.Z, b2i(n.Active), b2i(n.Fringe))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
