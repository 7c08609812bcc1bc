package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/node"
	"github.com/chazu/dualmesh/pkg/surface"
)

const (
	nodeBanner    = "********************************** N O D E S **********************************"
	elementBanner = "********************************** E L E M E N T S ****************************"
)

// Abaqus element types written by this package.
const (
	TypeQuad = "CPE4"
	TypeHex  = "C3D8R"
)

// WriteInp writes the active nodes and the active full-size elements of m
// as an Abaqus input deck. Node IDs are registry IDs; elements are
// numbered from 1.
func WriteInp(w io.Writer, m PolyMesh) error {
	bw := bufio.NewWriter(w)
	writeNodes(bw, m.Registry().Active())
	fmt.Fprintf(bw, "%s\n*ELEMENT, TYPE=%s, ELSET=EB1\n", elementBanner, TypeQuad)
	size := m.MaxPolySize()
	count := 0
	for _, p := range m.Active() {
		if p.Len() != size {
			continue
		}
		count++
		fmt.Fprintf(bw, "%d", count)
		for _, id := range p.IDs() {
			fmt.Fprintf(bw, ",    %d", id)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteHexInp writes every node and every hexahedron of m as an Abaqus
// input deck.
func WriteHexInp(w io.Writer, m HexMesh) error {
	bw := bufio.NewWriter(w)
	writeNodes(bw, m.Registry().Nodes())
	fmt.Fprintf(bw, "%s\n*ELEMENT, TYPE=%s, ELSET=EB1\n", elementBanner, TypeHex)
	for i, h := range m.Hexes() {
		fmt.Fprintf(bw, "%d,\t%d", i+1, h[0])
		for _, id := range h[1:] {
			fmt.Fprintf(bw, ",%d", id)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writeNodes(bw *bufio.Writer, nodes []*node.Node) {
	fmt.Fprintf(bw, "%s\n*NODE, NSET=ALLNODES\n", nodeBanner)
	for _, n := range nodes {
		fmt.Fprintf(bw, "%d,\t%g,\t%g,\t%g\n", n.ID, n.X, n.Y, n.Z)
	}
}

// Inp is the node and element content of an Abaqus input deck.
type Inp struct {
	Nodes    []InpNode
	Elements []InpElement
}

// InpNode is one *NODE row.
type InpNode struct {
	ID      int
	X, Y, Z float64
}

// InpElement is one *ELEMENT row with the TYPE of its block.
type InpElement struct {
	ID    int
	Type  string
	Nodes []int
}

type inpSection int

const (
	sectionNone inpSection = iota
	sectionNode
	sectionElement
)

// ReadInp reads the *NODE and *ELEMENT blocks of an Abaqus input deck.
// Lines starting with ** are comments; any other keyword line ends the
// current block.
func ReadInp(r io.Reader) (*Inp, error) {
	inp := &Inp{}
	sc := bufio.NewScanner(r)
	section, typ := sectionNone, ""
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimSpace(sc.Text())
		switch {
		case row == "" || strings.HasPrefix(row, "**"):
			continue
		case strings.HasPrefix(row, "*"):
			section, typ = parseKeyword(row)
			continue
		}
		fields := splitRow(row)
		switch section {
		case sectionNode:
			n, err := parseNode(fields)
			if err != nil {
				return nil, malformed(line, row)
			}
			inp.Nodes = append(inp.Nodes, n)
		case sectionElement:
			e, err := parseElement(fields)
			if err != nil {
				return nil, malformed(line, row)
			}
			e.Type = typ
			inp.Elements = append(inp.Elements, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return inp, nil
}

// LoadInp reads an Abaqus input deck from a file.
func LoadInp(name string) (*Inp, error) {
	return openFile(name, ReadInp)
}

func parseKeyword(row string) (inpSection, string) {
	parts := strings.Split(row, ",")
	section := sectionNone
	switch strings.ToUpper(strings.TrimSpace(parts[0])) {
	case "*NODE":
		section = sectionNode
	case "*ELEMENT":
		section = sectionElement
	}
	typ := ""
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(k, "TYPE") {
			typ = strings.TrimSpace(v)
		}
	}
	return section, typ
}

func splitRow(row string) []string {
	var out []string
	for _, f := range strings.Split(row, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseNode(fields []string) (InpNode, error) {
	if len(fields) < 3 {
		return InpNode{}, ErrMalformed
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return InpNode{}, err
	}
	var xyz [3]float64
	for i, f := range fields[1:min(len(fields), 4)] {
		if xyz[i], err = strconv.ParseFloat(f, 64); err != nil {
			return InpNode{}, err
		}
	}
	return InpNode{ID: id, X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func parseElement(fields []string) (InpElement, error) {
	if len(fields) < 2 {
		return InpElement{}, ErrMalformed
	}
	ids := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return InpElement{}, err
		}
		ids[i] = v
	}
	return InpElement{ID: ids[0], Nodes: ids[1:]}, nil
}

// ReadSurface reads a triangulated surface from an Abaqus input deck. The
// first three nodes of each element form a triangle.
func ReadSurface(r io.Reader) (*surface.Surface, error) {
	inp, err := ReadInp(r)
	if err != nil {
		return nil, err
	}
	index := make(map[int]int, len(inp.Nodes))
	points := make([]surface.Point, len(inp.Nodes))
	for i, n := range inp.Nodes {
		index[n.ID] = i + 1
		points[i] = surface.Point{X: n.X, Y: n.Y, Z: n.Z}
	}
	tris := make([][3]int, 0, len(inp.Elements))
	for _, e := range inp.Elements {
		if len(e.Nodes) < 3 {
			return nil, fmt.Errorf("%w: element %d has %d nodes", ErrMalformed, e.ID, len(e.Nodes))
		}
		var tri [3]int
		for k := range tri {
			i, ok := index[e.Nodes[k]]
			if !ok {
				return nil, fmt.Errorf("%w: element %d names unknown node %d", ErrMalformed, e.ID, e.Nodes[k])
			}
			tri[k] = i
		}
		tris = append(tris, tri)
	}
	logging.Logger().Debug("meshio: read surface", "points", len(points), "triangles", len(tris))
	return surface.New(points, tris), nil
}

// LoadSurface reads a surface file.
func LoadSurface(name string) (*surface.Surface, error) {
	return openFile(name, ReadSurface)
}
