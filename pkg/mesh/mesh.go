package mesh

import (
	"fmt"

	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/node"
)

// Code identifies a kind of recoverable anomaly.
type Code string

const (
	DetangleUnresolved Code = "DETANGLE_UNRESOLVED"
	DuplicatePolyID    Code = "DUPLICATE_POLY_ID"
	MissingPoly        Code = "MISSING_POLY"
	RefinementCapped   Code = "REFINEMENT_CAPPED"
)

// Diagnostic records an anomaly that did not stop the build.
type Diagnostic struct {
	Code    Code
	Message string
	PolyID  int // zero if not tied to an element
}

func (d Diagnostic) String() string {
	if d.PolyID == 0 {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s (poly %d)", d.Code, d.Message, d.PolyID)
}

// Mesh is an append-only element list over a node registry.
type Mesh struct {
	reg         *node.Registry
	polys       []*Poly
	idMap       map[int]*Poly
	maxPolySize int
	diags       []Diagnostic
}

func newMesh(reg *node.Registry) Mesh {
	return Mesh{reg: reg, idMap: make(map[int]*Poly)}
}

// Registry returns the registry the element corners live in.
func (m *Mesh) Registry() *node.Registry { return m.reg }

// Polys returns every element, active or not, in creation order.
func (m *Mesh) Polys() []*Poly { return m.polys }

// MaxPolySize returns the largest corner count of any element.
func (m *Mesh) MaxPolySize() int { return m.maxPolySize }

// Diagnostics returns the anomalies recorded so far.
func (m *Mesh) Diagnostics() []Diagnostic { return m.diags }

// Poly returns the element with the given ID, or nil.
func (m *Mesh) Poly(id int) *Poly { return m.idMap[id] }

// AddPoly registers pts and appends an element over them. A repeated ID
// is recorded as a diagnostic and the ID keeps mapping to the first
// element.
func (m *Mesh) AddPoly(pts []node.Point, id int) *Poly {
	p := &Poly{ID: id, Active: true, OkToSubdivide: true}
	for _, pt := range pts {
		p.Nodes = append(p.Nodes, m.reg.Add(pt))
	}
	m.polys = append(m.polys, p)
	m.maxPolySize = max(m.maxPolySize, len(pts))
	if _, dup := m.idMap[id]; dup {
		m.diagnose(DuplicatePolyID, "element id already in use", id)
		return p
	}
	m.idMap[id] = p
	return p
}

func (m *Mesh) diagnose(code Code, msg string, id int) {
	d := Diagnostic{Code: code, Message: msg, PolyID: id}
	m.diags = append(m.diags, d)
	logging.Logger().Warn("mesh: "+msg, "code", string(code), "poly", id)
}

// Active returns the active elements in order.
func (m *Mesh) Active() []*Poly {
	var out []*Poly
	for _, p := range m.polys {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

type edge struct{ a, b int }

// FringeNodes marks exactly the nodes on an edge used by one active
// element.
func (m *Mesh) FringeNodes() {
	count := make(map[edge]int)
	for _, p := range m.Active() {
		for i, n := range p.Nodes {
			a, b := n.ID, p.Nodes[(i+1)%len(p.Nodes)].ID
			if a > b {
				a, b = b, a
			}
			count[edge{a, b}]++
		}
	}
	m.reg.ResetFringe()
	for e, c := range count {
		if c == 1 {
			m.reg.SetFringe(e.a, true)
			m.reg.SetFringe(e.b, true)
		}
	}
}

// UpdateActiveNodes marks exactly the nodes used by an active element.
func (m *Mesh) UpdateActiveNodes() {
	m.reg.ResetActive()
	for _, p := range m.Active() {
		for _, n := range p.Nodes {
			n.Active = true
		}
	}
}

// Connectivity returns the corner IDs of every active element.
func (m *Mesh) Connectivity() [][]int {
	var out [][]int
	for _, p := range m.Active() {
		out = append(out, p.IDs())
	}
	return out
}

// NodeRows returns the active nodes as {id, x, y, z} rows.
func (m *Mesh) NodeRows() [][4]float64 {
	var out [][4]float64
	for _, n := range m.reg.Active() {
		out = append(out, [4]float64{float64(n.ID), n.X, n.Y, n.Z})
	}
	return out
}
