package polygon

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// OrbClassifier holds each loop as an orb ring and counts how many rings
// contain a point; odd is inside.
type OrbClassifier struct {
	rings []orb.Ring
	bound orb.Bound
}

// NewOrbClassifier builds rings from flattened coordinates with NaN
// between loops. Rings are closed if the input leaves them open.
func NewOrbClassifier(x, y []float64) *OrbClassifier {
	c := &OrbClassifier{}
	if len(x) != len(y) {
		return c
	}
	var cur orb.Ring
	flush := func() {
		if len(cur) == 0 {
			return
		}
		if !cur.Closed() {
			cur = append(cur, cur[0])
		}
		c.rings = append(c.rings, cur)
		cur = nil
	}
	for i := range x {
		if math.IsNaN(x[i]) {
			flush()
			continue
		}
		cur = append(cur, orb.Point{x[i], y[i]})
	}
	flush()
	if len(c.rings) > 0 {
		c.bound = c.rings[0].Bound()
		for _, r := range c.rings[1:] {
			c.bound = c.bound.Union(r.Bound())
		}
	}
	return c
}

// Rings returns the closed loops.
func (c *OrbClassifier) Rings() []orb.Ring { return c.rings }

// Contains implements Classifier.
func (c *OrbClassifier) Contains(x, y float64) bool {
	p := orb.Point{x, y}
	if len(c.rings) == 0 || !c.bound.Contains(p) {
		return false
	}
	n := 0
	for _, r := range c.rings {
		if planar.RingContains(r, p) {
			n++
		}
	}
	return n%2 == 1
}
