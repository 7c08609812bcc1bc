package tree

import (
	"bufio"
	"fmt"
	"io"
)

// WriteCells writes one row of corner node IDs (NE, NW, SW, SE) per leaf.
func (t *QuadTree) WriteCells(w io.Writer) error {
	bw := bufio.NewWriter(w)
	t.WalkLeaves(DumpOrder, func(i int) {
		c := &t.cells[i]
		fmt.Fprintf(bw, "%d\t%d\t%d\t%d\n", c.NE.ID, c.NW.ID, c.SW.ID, c.SE.ID)
	})
	return bw.Flush()
}

// WriteBoxes writes every leaf outline as a closed "x\ty" polyline,
// outlines separated by NaN rows.
func (t *QuadTree) WriteBoxes(w io.Writer) error {
	bw := bufio.NewWriter(w)
	first := true
	t.WalkLeaves(DumpOrder, func(i int) {
		if !first {
			bw.WriteString("NaN\tNaN\n")
		}
		first = false
		c := &t.cells[i]
		for _, n := range [5]nodeXY{{c.SW.X, c.SW.Y}, {c.SE.X, c.SE.Y}, {c.NE.X, c.NE.Y}, {c.NW.X, c.NW.Y}, {c.SW.X, c.SW.Y}} {
			fmt.Fprintf(bw, "%g\t%g\n", n.x, n.y)
		}
	})
	return bw.Flush()
}

type nodeXY struct{ x, y float64 }

// WriteNodes writes every registry node as an "id x y z active fringe" row.
func (t *QuadTree) WriteNodes(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, n := range t.reg.Nodes() {
		fmt.Fprintln(bw, n)
	}
	return bw.Flush()
}
