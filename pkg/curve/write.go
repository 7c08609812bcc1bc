package curve

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Write dumps the curve for inspection. prefix receives the loops,
// separated by a NaN row; prefix+"features", prefix+"curvature" and
// prefix+"corners" receive the derived data.
func (c *Curve) Write(prefix string) error {
	files := []struct {
		suffix string
		fn     func(io.Writer) error
	}{
		{"", c.WriteLoops},
		{"features", func(w io.Writer) error { return writeXY(w, c.features) }},
		{"curvature", c.WriteCurvature},
		{"corners", func(w io.Writer) error { return writeXY(w, c.corners) }},
	}
	for _, f := range files {
		if err := writeFile(prefix+f.suffix, f.fn); err != nil {
			return err
		}
	}
	return nil
}

// WriteLoops writes one "x\ty" row per sample, loops separated by NaN rows.
func (c *Curve) WriteLoops(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, l := range c.loops {
		for _, p := range l.Points {
			fmt.Fprintf(bw, "%g\t%g\n", p.X, p.Y)
		}
		if i != len(c.loops)-1 {
			bw.WriteString("NaN\tNaN\n")
		}
	}
	return bw.Flush()
}

// WriteCurvature writes "x y dx dy d2x d2y k" rows, loops separated by NaN
// rows.
func (c *Curve) WriteCurvature(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, l := range c.loops {
		for _, p := range l.Points {
			fmt.Fprintf(bw, "%g\t%g\t%g\t%g\t%g\t%g\t%g\n", p.X, p.Y, p.DX, p.DY, p.D2X, p.D2Y, p.Curvature)
		}
		if i != len(c.loops)-1 {
			bw.WriteString("NaN\tNaN\n")
		}
	}
	return bw.Flush()
}

func writeXY(w io.Writer, pts []Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range pts {
		fmt.Fprintf(bw, "%g\t%g\n", p.X, p.Y)
	}
	return bw.Flush()
}

func writeFile(name string, fn func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("curve: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("curve: write %s: %w", name, err)
	}
	return f.Close()
}
