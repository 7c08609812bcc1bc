package kernel

import "github.com/chazu/dualmesh/pkg/surface"

// Mesh is a triangle soup. Vertices are not shared between triangles.
type Mesh struct {
	Triangles [][3]surface.Point
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Bounds returns the box around every vertex, or the zero box for an
// empty mesh.
func (m *Mesh) Bounds() surface.Box {
	var b surface.Box
	for i, t := range m.Triangles {
		for j, p := range t {
			if i == 0 && j == 0 {
				b = surface.Box{Min: p, Max: p}
				continue
			}
			b.Min = surface.Point{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
			b.Max = surface.Point{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
		}
	}
	return b
}

// Surface welds the soup into an indexed surface.
func (m *Mesh) Surface() *surface.Surface {
	return surface.FromTriangles(m.Triangles)
}
