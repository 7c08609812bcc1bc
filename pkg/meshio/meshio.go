// Package meshio reads boundary and surface inputs and writes meshes in
// the plain, Abaqus inp, VTK and GeoJSON formats.
package meshio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/dualmesh/pkg/mesh"
	"github.com/chazu/dualmesh/pkg/node"
)

// ErrMalformed is returned for an input row that does not parse.
var ErrMalformed = errors.New("meshio: malformed row")

// PolyMesh is a 2D element mesh. *mesh.Mesh, *mesh.Primal and *mesh.Dual
// all satisfy it.
type PolyMesh interface {
	Registry() *node.Registry
	Active() []*mesh.Poly
	MaxPolySize() int
}

// HexMesh is a mesh of eight-node hexahedra. *tree.OctTree satisfies it.
type HexMesh interface {
	Registry() *node.Registry
	Hexes() [][8]int
}

func malformed(line int, row string) error {
	return fmt.Errorf("%w: line %d: %q", ErrMalformed, line, row)
}

// CreateFile creates name and hands it to fn.
func CreateFile(name string, fn func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("meshio: write %s: %w", name, err)
	}
	return f.Close()
}

func openFile[T any](name string, fn func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(name)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("meshio: %w", err)
	}
	defer f.Close()
	v, err := fn(f)
	if err != nil {
		return v, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
