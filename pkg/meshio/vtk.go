package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const vtkHexahedron = 12

// WriteVTK writes m as a legacy ASCII unstructured grid of hexahedra with
// the element number as cell data. Point indices are registry IDs less
// one.
func WriteVTK(w io.Writer, m HexMesh) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("# vtk DataFile Version 3.1\ndualmesh octree\nASCII\nDATASET UNSTRUCTURED_GRID\n\n")

	nodes := m.Registry().Nodes()
	fmt.Fprintf(bw, "POINTS %d float\n", len(nodes))
	for _, n := range nodes {
		fmt.Fprintf(bw, "%g\t%g\t%g\n", n.X, n.Y, n.Z)
	}

	hexes := m.Hexes()
	fmt.Fprintf(bw, "CELLS %d %d\n", len(hexes), len(hexes)*9)
	for _, h := range hexes {
		bw.WriteString("8")
		for _, id := range h {
			fmt.Fprintf(bw, "\t%d", id-1)
		}
		bw.WriteByte('\n')
	}

	fmt.Fprintf(bw, "CELL_TYPES %d\n", len(hexes))
	types := make([]string, len(hexes))
	for i := range types {
		types[i] = fmt.Sprint(vtkHexahedron)
	}
	bw.WriteString(strings.Join(types, "\t"))
	bw.WriteByte('\n')

	fmt.Fprintf(bw, "CELL_DATA %d\nSCALARS elem_val float\nLOOKUP_TABLE default\n", len(hexes))
	for i := range hexes {
		fmt.Fprintf(bw, "%d\n", i+1)
	}
	return bw.Flush()
}
