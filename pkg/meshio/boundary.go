package meshio

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/chazu/dualmesh/pkg/curve"
)

// ReadBoundary reads whitespace-separated x y pairs. A pair whose x is
// NaN closes the current loop.
func ReadBoundary(r io.Reader) (*curve.Curve, error) {
	x, y, err := readPairs(r)
	if err != nil {
		return nil, err
	}
	return curve.New(x, y), nil
}

// LoadBoundary reads a boundary file.
func LoadBoundary(name string) (*curve.Curve, error) {
	return openFile(name, ReadBoundary)
}

func readPairs(r io.Reader) (x, y []float64, err error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	n := 0
	var pending string
	for sc.Scan() {
		n++
		tok := sc.Text()
		if n%2 == 1 {
			pending = tok
			continue
		}
		px, err := strconv.ParseFloat(pending, 64)
		if err != nil {
			return nil, nil, malformed(n/2, pending+" "+tok)
		}
		if math.IsNaN(px) {
			x, y = append(x, math.NaN()), append(y, math.NaN())
			continue
		}
		py, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, nil, malformed(n/2, pending+" "+tok)
		}
		x, y = append(x, px), append(y, py)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if n%2 == 1 {
		return nil, nil, malformed(n/2+1, pending)
	}
	return x, y, nil
}
