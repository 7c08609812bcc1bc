package node

import (
	"github.com/dhconnelly/rtreego"
)

// entry is the R-tree record for one node. rect is the box the node was
// inserted under, which Delete needs after the node has moved.
type entry struct {
	n    *Node
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Registry is the deduplicated node store. Add returns an existing node
// when one lies within Tolerance of the request; otherwise it appends a
// new node with the next ID.
//
// Nodes are never removed. Coordinates may change through Move, which
// keeps the spatial index consistent; writing X/Y/Z directly is allowed
// only for nodes that will not be looked up again.
type Registry struct {
	nodes   []*Node
	entries []*entry
	index   *rtreego.Rtree
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: rtreego.NewTree(3, 25, 50)}
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Nodes returns all nodes in ID order. The slice is shared; do not append.
func (r *Registry) Nodes() []*Node {
	return r.nodes
}

// Get returns the node with the given ID, or nil.
func (r *Registry) Get(id int) *Node {
	if id < 1 || id > len(r.nodes) {
		return nil
	}
	return r.nodes[id-1]
}

// Add registers p, or returns the node already within Tolerance of it.
// A new node is active and takes p's fringe flag.
func (r *Registry) Add(p Point) *Node {
	if n := r.find(p); n != nil {
		return n
	}
	n := &Node{X: p.X, Y: p.Y, Z: p.Z, ID: len(r.nodes) + 1, Fringe: p.Fringe, Active: true}
	e := &entry{n: n, rect: boxAround(p)}
	r.nodes = append(r.nodes, n)
	r.entries = append(r.entries, e)
	r.index.Insert(e)
	return n
}

// AddXYZ is Add for a bare coordinate.
func (r *Registry) AddXYZ(x, y, z float64, fringe bool) *Node {
	return r.Add(Point{X: x, Y: y, Z: z, Fringe: fringe})
}

// find returns the lowest-ID node within Tolerance of p.
func (r *Registry) find(p Point) *Node {
	var best *Node
	for _, s := range r.index.SearchIntersect(boxAround(p)) {
		n := s.(*entry).n
		if n.Point().Equal(p) && (best == nil || n.ID < best.ID) {
			best = n
		}
	}
	return best
}

// Move relocates n and reindexes it.
func (r *Registry) Move(n *Node, x, y, z float64) {
	e := r.entries[n.ID-1]
	r.index.Delete(e)
	n.X, n.Y, n.Z = x, y, z
	e.rect = boxAround(n.Point())
	r.index.Insert(e)
}

// Near returns the first node, in ID order, with the smallest planar
// distance to (x, y). It returns nil for an empty registry.
func (r *Registry) Near(x, y float64) *Node {
	var best *Node
	bestD := 0.0
	for _, n := range r.nodes {
		d := (n.X-x)*(n.X-x) + (n.Y-y)*(n.Y-y)
		if best == nil || d < bestD {
			best, bestD = n, d
		}
	}
	return best
}

// SetFringe sets the fringe flag of the node with the given ID.
func (r *Registry) SetFringe(id int, f bool) {
	if n := r.Get(id); n != nil {
		n.Fringe = f
	}
}

// ResetFringe clears every fringe flag.
func (r *Registry) ResetFringe() {
	for _, n := range r.nodes {
		n.Fringe = false
	}
}

// ResetActive clears every active flag.
func (r *Registry) ResetActive() {
	for _, n := range r.nodes {
		n.Active = false
	}
}

// ResetForce zeroes every force accumulator.
func (r *Registry) ResetForce() {
	for _, n := range r.nodes {
		n.FX, n.FY, n.FZ = 0, 0, 0
	}
}

// Active returns the active nodes in ID order.
func (r *Registry) Active() []*Node {
	var out []*Node
	for _, n := range r.nodes {
		if n.Active {
			out = append(out, n)
		}
	}
	return out
}

func boxAround(p Point) rtreego.Rect {
	return rtreego.Point{p.X, p.Y, p.Z}.ToRect(Tolerance)
}
