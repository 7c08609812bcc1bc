// Package curve holds closed boundary loops and the geometric queries the
// tree and mesh builders run against them: bounding-box hits, winding
// number classification, nearest-point projection, corners and
// curvature features.
package curve

import (
	"math"

	"github.com/chazu/dualmesh/pkg/logging"
)

const (
	// CornerAngle is the turning angle, in degrees, above which a sample is
	// a corner.
	CornerAngle = 20.0

	// FeatureMin and FeatureMax bound the curvature band that marks a
	// feature sample: FeatureMin < |k| <= FeatureMax.
	FeatureMin = 0.125
	FeatureMax = 2.75

	// degPerRad uses the truncated pi the corner thresholds were tuned with.
	degPerRad = 180 / 3.14159
)

// Point is a boundary sample with its finite-difference data.
type Point struct {
	X, Y     float64
	DX, DY   float64
	D2X, D2Y float64

	TanX, TanY float64
	Angle      float64
	Curvature  float64
}

// Loop is one closed sequence of samples. In is fixed by the sign of the
// loop's area at construction: true for material, false for a hole.
type Loop struct {
	Points []Point
	In     bool
}

// Box is an axis-aligned rectangle.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether (x, y) lies in b, edges included.
func (b Box) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Curve is a set of closed loops with derived corners and features.
type Curve struct {
	loops    []Loop
	corners  []Point
	features []Point
	bounds   Box
}

// New builds a curve from flattened coordinates. NaN in x separates loops.
// Mismatched or empty slices give a curve with no loops.
func New(x, y []float64) *Curve {
	c := &Curve{}
	if len(x) == 0 || len(x) != len(y) {
		return c
	}

	var cur []Point
	flush := func() {
		if len(cur) > 0 {
			c.loops = append(c.loops, Loop{Points: cur, In: area(cur) >= 0})
		}
		cur = nil
	}
	unset := true
	for i := range x {
		if math.IsNaN(x[i]) {
			flush()
			continue
		}
		cur = append(cur, Point{X: x[i], Y: y[i]})
		if unset {
			c.bounds = Box{MinX: x[i], MinY: y[i], MaxX: x[i], MaxY: y[i]}
			unset = false
		}
		c.bounds.MinX = math.Min(c.bounds.MinX, x[i])
		c.bounds.MaxX = math.Max(c.bounds.MaxX, x[i])
		c.bounds.MinY = math.Min(c.bounds.MinY, y[i])
		c.bounds.MaxY = math.Max(c.bounds.MaxY, y[i])
	}
	flush()

	log := logging.Logger()
	for i := range c.loops {
		l := &c.loops[i]
		log.Debug("curve: loop", "index", i, "points", len(l.Points), "in", l.In)
		fillDerivatives(l.Points)
		setTangents(l.Points)
	}
	for i := range c.loops {
		c.corners = append(c.corners, findCorners(c.loops[i].Points)...)
	}
	for i := range c.loops {
		c.features = append(c.features, findFeatures(c.loops[i].Points)...)
	}
	log.Debug("curve: built", "loops", len(c.loops), "corners", len(c.corners), "features", len(c.features))
	return c
}

// Empty reports whether the curve has no loops.
func (c *Curve) Empty() bool { return len(c.loops) == 0 }

// Loops returns the curve's loops.
func (c *Curve) Loops() []Loop { return c.loops }

// XY flattens the loops back into coordinates with NaN between loops.
func (c *Curve) XY() (x, y []float64) {
	for i, l := range c.loops {
		if i > 0 {
			x = append(x, math.NaN())
			y = append(y, math.NaN())
		}
		for _, p := range l.Points {
			x = append(x, p.X)
			y = append(y, p.Y)
		}
	}
	return x, y
}

// Corners returns the detected corner samples in loop order.
func (c *Curve) Corners() []Point { return c.corners }

// Features returns the samples whose curvature falls in the feature band.
func (c *Curve) Features() []Point { return c.features }

// Bounds returns the bounding box of all samples.
func (c *Curve) Bounds() Box { return c.bounds }

// SetBounds overrides the bounding box used to seed a tree.
func (c *Curve) SetBounds(b Box) { c.bounds = b }

// In returns 1 for a material loop, -1 for a hole and 0 for an index out
// of range.
func (c *Curve) In(i int) int {
	if i < 0 || i >= len(c.loops) {
		return 0
	}
	if c.loops[i].In {
		return 1
	}
	return -1
}

// InBoundingBox reports whether any sample lies in b. A curve can cross b
// without a sample inside it; this only sees samples.
func (c *Curve) InBoundingBox(b Box) bool {
	for _, l := range c.loops {
		for _, p := range l.Points {
			if b.Contains(p.X, p.Y) {
				return true
			}
		}
	}
	return false
}

// FeatureInBoundingBox reports whether any feature sample lies in b.
func (c *Curve) FeatureInBoundingBox(b Box) bool {
	for _, p := range c.features {
		if b.Contains(p.X, p.Y) {
			return true
		}
	}
	return false
}

// InCurve reports whether (x, y) is inside material: each loop with a
// non-zero winding number adds one if it is a material loop and
// subtracts one if it is a hole.
func (c *Curve) InCurve(x, y float64) bool {
	count := 0
	for _, l := range c.loops {
		if windingNumber(x, y, l.Points) != 0 {
			if l.In {
				count++
			} else {
				count--
			}
		}
	}
	return count > 0
}

// Contains is InCurve under the polygon classifier contract.
func (c *Curve) Contains(x, y float64) bool { return c.InCurve(x, y) }

// NearestPt projects (x, y) onto the curve: the nearest sample, pulled
// toward whichever neighbouring sample is closer, weighted by distance.
// It returns (x, y) unchanged for an empty curve.
func (c *Curve) NearestPt(x, y float64) (float64, float64) {
	if c.Empty() {
		return x, y
	}
	li, pi := -1, 0
	best := 0.0
	for i, l := range c.loops {
		for j, p := range l.Points {
			d := (p.X-x)*(p.X-x) + (p.Y-y)*(p.Y-y)
			if li < 0 || d < best {
				li, pi, best = i, j, d
			}
		}
	}

	pts := c.loops[li].Points
	n := len(pts)
	p := pts[pi]
	next := pts[(pi+1)%n]
	prev := pts[(pi+n-1)%n]

	dist := math.Sqrt(best)
	distNext := math.Hypot(x-next.X, y-next.Y)
	distPrev := math.Hypot(x-prev.X, y-prev.Y)

	other, d := prev, distPrev
	if distNext < distPrev {
		other, d = next, distNext
	}
	sum := dist + d
	if sum == 0 {
		return p.X, p.Y
	}
	return d/sum*p.X + dist/sum*other.X, d/sum*p.Y + dist/sum*other.Y
}

// area is twice the signed area of the loop; only its sign is used.
func area(pts []Point) float64 {
	a := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a
}

func fillDerivatives(pts []Point) {
	n := len(pts)
	for i := range pts {
		next := pts[(i+1)%n]
		prev := pts[(i+n-1)%n]
		p := &pts[i]
		p.DX = (next.X - prev.X) / 2
		p.DY = (next.Y - prev.Y) / 2
		p.D2X = next.X + prev.X - 2*p.X
		p.D2Y = next.Y + prev.Y - 2*p.Y
		p.Curvature = math.Pow(p.DX*p.DX+p.DY*p.DY, 1.5) / math.Abs(p.DX*p.D2Y-p.DY*p.D2X)
	}
}

// setTangents stores the unit tangent with its components swapped, so
// Angle is measured from the y axis.
func setTangents(pts []Point) {
	for i := range pts {
		p := &pts[i]
		if math.IsNaN(p.DX) || math.IsNaN(p.DY) {
			p.TanX, p.TanY = 1, 0
		} else {
			mag := math.Hypot(p.DX, p.DY)
			p.TanX, p.TanY = p.DY/mag, p.DX/mag
		}
		p.Angle = math.Atan2(p.TanY, p.TanX)
	}
}

func findCorners(pts []Point) []Point {
	var out []Point
	n := len(pts)
	first := false
	last := n
	for i := range pts {
		if math.IsNaN(pts[i].DX) || math.IsNaN(pts[i].DY) {
			continue
		}
		del := math.Abs(pts[(i+1)%n].Angle-pts[i].Angle) * degPerRad
		if del > 180 {
			del -= 180
		}
		// A half-turn flip of the derivative is noise, not a corner.
		if del > 170 && del < 190 {
			del = 0
		}
		if !(del > CornerAngle) {
			continue
		}
		if i == 0 {
			first = true
		}
		next := last + 1
		if next > n {
			next -= n
		}
		if next == i {
			continue
		}
		if i == n-1 && first {
			continue
		}
		out = append(out, pts[i])
		last = i
	}
	return out
}

func findFeatures(pts []Point) []Point {
	var out []Point
	for _, p := range pts {
		if math.IsNaN(p.DX) || math.IsNaN(p.DY) {
			continue
		}
		k := math.Abs(p.Curvature)
		if k > FeatureMin && k <= FeatureMax {
			out = append(out, p)
		}
	}
	return out
}

func isLeft(x0, y0, x1, y1, x2, y2 float64) float64 {
	return (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
}

// windingNumber is zero only when (x, y) is outside the loop.
func windingNumber(x, y float64, pts []Point) int {
	wn := 0
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if a.Y <= y {
			if b.Y > y && isLeft(a.X, a.Y, b.X, b.Y, x, y) > 0 {
				wn++
			}
		} else if b.Y <= y && isLeft(a.X, a.Y, b.X, b.Y, x, y) < 0 {
			wn--
		}
	}
	return wn
}
