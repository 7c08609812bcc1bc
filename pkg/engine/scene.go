package engine

import (
	"math"

	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/kernel"
)

// Vec is a script vector. Z is zero for 2D values.
type Vec struct {
	X, Y, Z float64
}

// Loop is a closed boundary ring, first point not repeated.
type Loop struct {
	Points []Vec
	Hole   bool
}

// Scene is what a script produced: boundary loops for the 2D mesher and
// solids for the 3D mesher.
type Scene struct {
	Loops  []Loop
	Solids []kernel.Solid
}

// Empty reports whether the script declared nothing.
func (s *Scene) Empty() bool { return len(s.Loops) == 0 && len(s.Solids) == 0 }

// Curve flattens the loops into a curve. Material loops are emitted
// counter-clockwise and holes clockwise, whatever order the script gave.
func (s *Scene) Curve() *curve.Curve {
	var x, y []float64
	for i, l := range s.Loops {
		if i > 0 {
			x = append(x, math.NaN())
			y = append(y, math.NaN())
		}
		pts := l.Points
		if ccw := signedArea(pts) >= 0; ccw == l.Hole {
			pts = reversed(pts)
		}
		for _, p := range pts {
			x = append(x, p.X)
			y = append(y, p.Y)
		}
	}
	return curve.New(x, y)
}

// Solid unions every declared solid, or returns nil when there are none.
func (s *Scene) Solid(k kernel.Kernel) kernel.Solid {
	if len(s.Solids) == 0 {
		return nil
	}
	out := s.Solids[0]
	for _, o := range s.Solids[1:] {
		out = k.Union(out, o)
	}
	return out
}

func signedArea(pts []Vec) float64 {
	a := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

func reversed(pts []Vec) []Vec {
	out := make([]Vec, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
