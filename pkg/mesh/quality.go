package mesh

import (
	"fmt"
	"math"
)

// Severity says whether a quality finding should fail a build.
type Severity int

const (
	SeverityError   Severity = iota // the mesh is unusable
	SeverityWarning                 // the mesh is usable but poor here
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is one quality problem of one element.
type Finding struct {
	PolyID   int
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] poly %d: %s", f.Severity, f.PolyID, f.Message)
}

// Quality summarises the active elements of a mesh.
type Quality struct {
	Elements int
	MinSide  float64
	MaxSide  float64
	MinAngle float64
	MaxAngle float64
	Oblique  int
	Tangled  int

	Findings []Finding
}

// Errors returns the error-severity findings.
func (q Quality) Errors() []Finding {
	var out []Finding
	for _, f := range q.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Measure inspects every active element. Structural checks (missing or
// inactive corners, repeated corners) come first, then geometry (zero
// sides, crossed corners, oblique angles). Measure never changes m.
func Measure(m *Mesh) Quality {
	q := Quality{MinSide: math.Inf(1), MinAngle: math.Inf(1)}
	for _, p := range m.Active() {
		q.Elements++
		q.Findings = append(q.Findings, checkStructure(m, p)...)
		q.Findings = append(q.Findings, q.checkGeometry(p)...)
	}
	if q.Elements == 0 {
		q.MinSide, q.MinAngle = 0, 0
	}
	return q
}

func checkStructure(m *Mesh, p *Poly) []Finding {
	var out []Finding
	seen := make(map[int]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if m.reg.Get(n.ID) != n {
			out = append(out, Finding{p.ID, fmt.Sprintf("corner %d is not in the registry", n.ID), SeverityError})
		}
		if seen[n.ID] {
			out = append(out, Finding{p.ID, fmt.Sprintf("corner %d repeated", n.ID), SeverityError})
		}
		seen[n.ID] = true
	}
	if len(p.Nodes) < 3 {
		out = append(out, Finding{p.ID, fmt.Sprintf("%d corners", len(p.Nodes)), SeverityError})
	}
	return out
}

func (q *Quality) checkGeometry(p *Poly) []Finding {
	var out []Finding
	short, long := p.ShortestSide(), p.LongestSide()
	q.MinSide = min(q.MinSide, short)
	q.MaxSide = max(q.MaxSide, long)
	if short == 0 && len(p.Nodes) >= 2 {
		out = append(out, Finding{p.ID, "zero-length side", SeverityError})
	}
	if p.Tangled {
		q.Tangled++
		out = append(out, Finding{p.ID, "corners cross", SeverityWarning})
	}
	if len(p.Nodes) < 3 {
		return out
	}
	obl := false
	for _, a := range p.Angles() {
		if math.IsNaN(a) {
			continue
		}
		q.MinAngle = min(q.MinAngle, a)
		q.MaxAngle = max(q.MaxAngle, a)
		obl = obl || oblique(a)
	}
	if obl && len(p.Nodes) == 4 {
		q.Oblique++
		out = append(out, Finding{p.ID, "oblique angle", SeverityWarning})
	}
	return out
}
