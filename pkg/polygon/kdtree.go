package polygon

// leafSize is the segment count at or below which a node stops splitting.
const leafSize = 10

type kdTree struct {
	segs []segment
	root *kdNode
}

type kdNode struct {
	box      bbox
	children []*kdNode
	segs     []*segment
}

func newKDTree(segs []segment) *kdTree {
	t := &kdTree{segs: segs}
	ptrs := make([]*segment, len(t.segs))
	for i := range t.segs {
		ptrs[i] = &t.segs[i]
	}
	t.root = newKDNode(ptrs)
	return t
}

func newKDNode(segs []*segment) *kdNode {
	n := &kdNode{box: boundsOf(segs)}
	if len(segs) <= leafSize {
		n.segs = segs
		return n
	}

	var mid point
	for _, s := range segs {
		m := s.mid()
		mid.x += m.x
		mid.y += m.y
	}
	mid.x /= float64(len(segs))
	mid.y /= float64(len(segs))

	axis := n.box.longer()
	var left, right []*segment
	for _, s := range segs {
		if s.mid().along(axis) < mid.along(axis) {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	// Coincident midpoints cannot be separated.
	if len(left) == 0 || len(right) == 0 {
		n.segs = segs
		return n
	}
	n.children = []*kdNode{newKDNode(right), newKDNode(left)}
	return n
}

func (t *kdTree) count(r ray) counter {
	return t.root.count(r)
}

func (n *kdNode) count(r ray) counter {
	var c counter
	if !n.box.hitBy(r) {
		return c
	}
	for _, ch := range n.children {
		c.merge(ch.count(r))
	}
	for _, s := range n.segs {
		c.add(s.intersect(r))
	}
	return c
}

func (n *kdNode) nodes() int {
	total := 1
	for _, ch := range n.children {
		total += ch.nodes()
	}
	return total
}

func (n *kdNode) segments() int {
	total := len(n.segs)
	for _, ch := range n.children {
		total += ch.segments()
	}
	return total
}
