package meshio

import (
	"bufio"
	"fmt"
	"io"
)

// WritePlain writes the active elements to quads, one row of tab-terminated
// node IDs each, padded with -1 to the widest element, and every node to
// nodes as "id x y z active fringe" rows.
func WritePlain(quads, nodes io.Writer, m PolyMesh) error {
	bw := bufio.NewWriter(quads)
	size := m.MaxPolySize()
	for _, p := range m.Active() {
		for _, id := range p.IDs() {
			fmt.Fprintf(bw, "%d\t", id)
		}
		if pad := size - p.Len(); pad > 0 {
			for range pad - 1 {
				bw.WriteString("-1\t")
			}
			bw.WriteString("-1")
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	bw = bufio.NewWriter(nodes)
	for _, n := range m.Registry().Nodes() {
		fmt.Fprintln(bw, n)
	}
	return bw.Flush()
}

// WritePlainFiles writes prefix+"quads" and prefix+"nodes".
func WritePlainFiles(prefix string, m PolyMesh) error {
	return CreateFile(prefix+"quads", func(q io.Writer) error {
		return CreateFile(prefix+"nodes", func(n io.Writer) error {
			return WritePlain(q, n, m)
		})
	})
}
