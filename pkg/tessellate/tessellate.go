// Package tessellate turns the solids of a script scene into the
// triangulated surface the octree refines against.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/dualmesh/pkg/engine"
	"github.com/chazu/dualmesh/pkg/kernel"
	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/surface"
)

// ErrNoSolids is returned for a scene that declared no solids.
var ErrNoSolids = errors.New("tessellate: scene has no solids")

// Scene meshes every solid of s with k, cells marching-cubes cells along
// each solid's longest side, and welds the triangles into one surface.
// Solids are meshed separately; overlapping solids keep their inner faces.
func Scene(s *engine.Scene, k kernel.Kernel, cells int) (*surface.Surface, error) {
	if s == nil || len(s.Solids) == 0 {
		return nil, ErrNoSolids
	}
	var soup [][3]surface.Point
	for i, solid := range s.Solids {
		m, err := k.ToMesh(solid, cells)
		if err != nil {
			return nil, fmt.Errorf("tessellate: solid %d: %w", i, err)
		}
		logging.Logger().Debug("tessellate: solid", "index", i, "triangles", m.TriangleCount())
		soup = append(soup, m.Triangles...)
	}
	return surface.FromTriangles(soup), nil
}

// Union meshes the union of every solid of s as one body, so overlapping
// solids share a single outer skin.
func Union(s *engine.Scene, k kernel.Kernel, cells int) (*surface.Surface, error) {
	solid := s.Solid(k)
	if solid == nil {
		return nil, ErrNoSolids
	}
	m, err := k.ToMesh(solid, cells)
	if err != nil {
		return nil, fmt.Errorf("tessellate: union: %w", err)
	}
	return m.Surface(), nil
}
