// Package tree implements balanced quadtrees and octrees over a boundary.
//
// Cells are addressed by location codes: strings of '0' and '1' where each
// subdivision appends one bit per axis (two in 2D, three in 3D). Reading
// every stride-th bit gives the cell's integer coordinate along one axis at
// its depth, so lateral neighbours are found by incrementing that integer
// instead of walking parent pointers.
package tree

import (
	"errors"
	"strconv"
)

const (
	// MaxLevel is the deepest subdivision a location code may encode.
	MaxLevel = 28

	// Null is the code of a cell that does not exist.
	Null = "NULL"
)

var (
	// ErrRefinementLimit is returned when a subdivision would go deeper
	// than MaxLevel.
	ErrRefinementLimit = errors.New("refinement limit exceeded")

	// ErrInvalidMinimumSize is returned for a minimum cell size that is not
	// a positive number.
	ErrInvalidMinimumSize = errors.New("minimum size must be positive")
)

// Balance is the neighbour-depth policy enforced after each subdivision.
// A neighbour is split when this cell's subtree is deeper than the
// neighbour's by at least SameParent (siblings) or OtherParent (cousins).
type Balance struct {
	SameParent  int
	OtherParent int
}

// QuadBalance and OctBalance are the default policies. They differ on
// purpose; the octree policy splits siblings sooner and cousins later.
var (
	QuadBalance = Balance{SameParent: 2, OtherParent: 1}
	OctBalance  = Balance{SameParent: 1, OtherParent: 2}
)

func (b Balance) needsSplit(sameParent bool, diff int) bool {
	if sameParent {
		return diff >= b.SameParent
	}
	return diff >= b.OtherParent
}

// step returns the code of the same-depth neighbour of c along axis, for
// codes with stride bits per level. It returns Null at the domain edge.
func step(c string, stride, axis int, plus bool) string {
	if c == Null || c == "" || axis < 0 || axis >= stride {
		return Null
	}
	bits := make([]byte, 0, len(c)/stride+1)
	for i := axis; i < len(c); i += stride {
		bits = append(bits, c[i])
	}
	v, err := strconv.ParseUint(string(bits), 2, 64)
	if err != nil {
		return Null
	}
	last := uint64(1)<<len(bits) - 1
	switch {
	case plus && v == last:
		return Null
	case !plus && v == 0:
		return Null
	case plus:
		v++
	default:
		v--
	}

	out := []byte(c)
	for loc := len(c) - (stride - axis); loc >= 0; loc -= stride {
		out[loc] = '0' + byte(v&1)
		v >>= 1
	}
	return string(out)
}

// parent drops the last level of c. A first-level code has no parent in
// the lookup map, so it maps to Null rather than the root's empty code.
func parent(c string, stride int) string {
	if c == Null || len(c) <= stride {
		return Null
	}
	return c[:len(c)-stride]
}

// depth returns the number of levels encoded in c.
func depth(c string, stride int) int {
	return len(c) / stride
}
