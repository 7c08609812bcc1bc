// Package surface holds a triangulated surface and the containment query
// the octree refines against.
package surface

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chazu/dualmesh/pkg/node"
)

// Point is a surface vertex.
type Point struct {
	X, Y, Z float64
}

// Box is an axis-aligned box.
type Box struct {
	Min, Max Point
}

// Contains reports whether p lies in b, faces included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Surface is a vertex list plus triangles. Triangle entries are 1-based
// vertex IDs, as in the Abaqus files the surfaces come from.
type Surface struct {
	points []Point
	tris   [][3]int
	bounds Box
}

// New builds a surface from vertices and 1-based triangles.
func New(points []Point, tris [][3]int) *Surface {
	s := &Surface{points: points, tris: tris}
	for i, p := range points {
		if i == 0 {
			s.bounds = Box{Min: p, Max: p}
			continue
		}
		s.bounds.Min.X = min(s.bounds.Min.X, p.X)
		s.bounds.Min.Y = min(s.bounds.Min.Y, p.Y)
		s.bounds.Min.Z = min(s.bounds.Min.Z, p.Z)
		s.bounds.Max.X = max(s.bounds.Max.X, p.X)
		s.bounds.Max.Y = max(s.bounds.Max.Y, p.Y)
		s.bounds.Max.Z = max(s.bounds.Max.Z, p.Z)
	}
	return s
}

// FromTriangles builds a surface from a triangle soup, merging vertices
// closer than node.Tolerance.
func FromTriangles(soup [][3]Point) *Surface {
	reg := node.NewRegistry()
	tris := make([][3]int, 0, len(soup))
	for _, t := range soup {
		var ids [3]int
		for j, p := range t {
			ids[j] = reg.AddXYZ(p.X, p.Y, p.Z, false).ID
		}
		tris = append(tris, ids)
	}
	points := make([]Point, 0, reg.Len())
	for _, n := range reg.Nodes() {
		points = append(points, Point{n.X, n.Y, n.Z})
	}
	return New(points, tris)
}

// Empty reports whether the surface has no vertices.
func (s *Surface) Empty() bool { return len(s.points) == 0 }

// Points returns the vertices.
func (s *Surface) Points() []Point { return s.points }

// Triangles returns the 1-based triangles.
func (s *Surface) Triangles() [][3]int { return s.tris }

// Bounds returns the vertex bounding box.
func (s *Surface) Bounds() Box { return s.bounds }

// SetBounds replaces the box the octree root is built over.
func (s *Surface) SetBounds(b Box) { s.bounds = b }

// InBoundingBox reports whether any vertex lies in b.
func (s *Surface) InBoundingBox(b Box) bool {
	for _, p := range s.points {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// Write dumps one "x\ty\tz" row per vertex.
func (s *Surface) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range s.points {
		fmt.Fprintf(bw, "%g\t%g\t%g\n", p.X, p.Y, p.Z)
	}
	return bw.Flush()
}
