package polygon

import "math"

type point struct{ x, y float64 }

type direction int

const (
	dirX direction = iota
	dirY
)

// along returns the coordinate parallel to d, across the one perpendicular.
func (p point) along(d direction) float64 {
	if d == dirX {
		return p.x
	}
	return p.y
}

func (p point) across(d direction) float64 {
	if d == dirX {
		return p.y
	}
	return p.x
}

// ray starts at (ox, oy) and runs toward +infinity along dir.
type ray struct {
	ox, oy float64
	dir    direction
}

func (r ray) origin() point { return point{r.ox, r.oy} }

type hit int

const (
	hitNone hit = iota
	hitInterior
	hitVertex
	hitCollinear
)

type counter struct {
	interior, vertex, collinear int
}

func (c *counter) add(h hit) {
	switch h {
	case hitInterior:
		c.interior++
	case hitVertex:
		c.vertex++
	case hitCollinear:
		c.collinear++
	}
}

func (c *counter) merge(o counter) {
	c.interior += o.interior
	c.vertex += o.vertex
	c.collinear += o.collinear
}

// bad reports a count that cannot be trusted for parity.
func (c counter) bad() bool { return c.vertex != 0 || c.collinear != 0 }

type segment struct{ p0, p1 point }

func (s segment) mid() point {
	return point{(s.p0.x + s.p1.x) / 2, (s.p0.y + s.p1.y) / 2}
}

func (s segment) intersect(r ray) hit {
	d := r.dir
	o := r.origin()
	tol := 1e-13 * math.Hypot(s.p1.x-s.p0.x, s.p1.y-s.p0.y)

	dv := s.p1.across(d) - s.p0.across(d)
	if math.Abs(dv) < tol {
		if math.Abs(s.p0.across(d)-o.across(d)) < tol && (o.along(d) < s.p0.along(d) || o.along(d) < s.p1.along(d)) {
			return hitCollinear
		}
		return hitNone
	}
	t := (o.across(d) - s.p0.across(d)) / dv
	xi := t*(s.p1.along(d)-s.p0.along(d)) + s.p0.along(d) - o.along(d)
	if xi > 0 {
		switch {
		case t == 0 || t == 1:
			return hitVertex
		case t > 0 && t < 1:
			return hitInterior
		}
	}
	return hitNone
}

type bbox struct{ min, max point }

func boundsOf(segs []*segment) bbox {
	if len(segs) == 0 {
		return bbox{}
	}
	b := bbox{min: segs[0].p0, max: segs[0].p0}
	for _, s := range segs {
		for _, p := range [2]point{s.p0, s.p1} {
			b.min.x = math.Min(b.min.x, p.x)
			b.min.y = math.Min(b.min.y, p.y)
			b.max.x = math.Max(b.max.x, p.x)
			b.max.y = math.Max(b.max.y, p.y)
		}
	}
	return b
}

// longer returns the axis along which b is longer; ties go to y.
func (b bbox) longer() direction {
	if b.max.x-b.min.x > b.max.y-b.min.y {
		return dirX
	}
	return dirY
}

func (b bbox) hitBy(r ray) bool {
	o := r.origin()
	return o.across(r.dir) >= b.min.across(r.dir) &&
		o.across(r.dir) <= b.max.across(r.dir) &&
		o.along(r.dir) <= b.max.along(r.dir)
}
