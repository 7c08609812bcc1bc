package tessellate_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/dualmesh/pkg/engine"
	"github.com/chazu/dualmesh/pkg/kernel"
	"github.com/chazu/dualmesh/pkg/kernel/sdfx"
	"github.com/chazu/dualmesh/pkg/tessellate"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New()
}

func evalScene(t *testing.T, k kernel.Kernel, source string) *engine.Scene {
	t.Helper()
	s, evalErrs, err := engine.NewEngine(k).Evaluate(source)
	if err != nil {
		t.Fatalf("fatal: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return s
}

func TestSceneSingleSphere(t *testing.T) {
	k := newKernel()
	s := evalScene(t, k, `(solid (sphere 1))`)
	surf, err := tessellate.Scene(s, k, 24)
	if err != nil {
		t.Fatal(err)
	}
	if surf.Empty() {
		t.Fatal("expected a non-empty surface")
	}
	b := surf.Bounds()
	for _, v := range []float64{b.Min.X, b.Min.Y, b.Min.Z} {
		if math.Abs(v+1) > 0.1 {
			t.Errorf("min = %+v, want about -1", b.Min)
		}
	}
	for _, v := range []float64{b.Max.X, b.Max.Y, b.Max.Z} {
		if math.Abs(v-1) > 0.1 {
			t.Errorf("max = %+v, want about 1", b.Max)
		}
	}
}

func TestSceneSeparateSolids(t *testing.T) {
	k := newKernel()
	s := evalScene(t, k, `
(solid (box 2 2 2))
(solid (translate (box 2 2 2) (vec 10 0 0)))`)
	surf, err := tessellate.Scene(s, k, 16)
	if err != nil {
		t.Fatal(err)
	}
	b := surf.Bounds()
	if math.Abs(b.Min.X+1) > 0.1 || math.Abs(b.Max.X-11) > 0.1 {
		t.Errorf("x extent = [%g, %g], want about [-1, 11]", b.Min.X, b.Max.X)
	}
	// Nothing lies between the boxes.
	for _, p := range surf.Points() {
		if p.X > 1.1 && p.X < 8.9 {
			t.Fatalf("vertex %+v between the boxes", p)
		}
	}
}

func TestUnionOverlapping(t *testing.T) {
	k := newKernel()
	s := evalScene(t, k, `
(solid (box 2 2 2))
(solid (translate (box 2 2 2) (vec 1 0 0)))`)
	separate, err := tessellate.Scene(s, k, 16)
	if err != nil {
		t.Fatal(err)
	}
	union, err := tessellate.Union(s, k, 16)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := union.Bounds().Max.X, separate.Bounds().Max.X; math.Abs(got-want) > 0.2 {
		t.Errorf("union max x = %g, separate %g", got, want)
	}
	// The union has no faces inside the overlap.
	for _, p := range union.Points() {
		if p.X > 0.1 && p.X < 0.9 && math.Abs(p.Y) < 0.9 && math.Abs(p.Z) < 0.9 {
			t.Fatalf("union vertex %+v inside the body", p)
		}
	}
}

func TestNoSolids(t *testing.T) {
	k := newKernel()
	s := evalScene(t, k, `(loop (rect 1 1))`)
	if _, err := tessellate.Scene(s, k, 16); !errors.Is(err, tessellate.ErrNoSolids) {
		t.Errorf("Scene: err = %v, want ErrNoSolids", err)
	}
	if _, err := tessellate.Union(s, k, 16); !errors.Is(err, tessellate.ErrNoSolids) {
		t.Errorf("Union: err = %v, want ErrNoSolids", err)
	}
	if _, err := tessellate.Scene(nil, k, 16); !errors.Is(err, tessellate.ErrNoSolids) {
		t.Errorf("nil scene: err = %v", err)
	}
}
