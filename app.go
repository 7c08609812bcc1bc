package main

import (
	"fmt"
	"os"

	"github.com/chazu/dualmesh/pkg/engine"
	"github.com/chazu/dualmesh/pkg/kernel"
	"github.com/chazu/dualmesh/pkg/kernel/sdfx"
	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/surface"
	"github.com/chazu/dualmesh/pkg/tessellate"
)

// App evaluates boundary scripts and tessellates their solids.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
}

// LoopData summarises one boundary loop.
type LoopData struct {
	Points int     `json:"points"`
	Hole   bool    `json:"hole"`
	Area   float64 `json:"area"`
}

// SolidData summarises one solid by its bounding box.
type SolidData struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalErrorData) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ScriptResult is the outcome of one script evaluation. Scene is nil when
// Errors is not empty.
type ScriptResult struct {
	Scene  *engine.Scene   `json:"-"`
	Loops  []LoopData      `json:"loops"`
	Solids []SolidData     `json:"solids"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp() *App {
	k := sdfx.New()
	return &App{
		engine: engine.NewEngine(k),
		kernel: k,
	}
}

// Evaluate runs script source and summarises the scene it builds.
func (a *App) Evaluate(source string) ScriptResult {
	result := ScriptResult{
		Loops:  []LoopData{},
		Solids: []SolidData{},
		Errors: []EvalErrorData{},
	}

	scene, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		logging.Logger().Error("script: fatal", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    e.Line,
			Col:     e.Col,
			Message: e.Message,
		})
	}
	if len(result.Errors) > 0 {
		return result
	}

	result.Scene = scene
	for _, l := range scene.Loops {
		result.Loops = append(result.Loops, LoopData{
			Points: len(l.Points),
			Hole:   l.Hole,
			Area:   area(l.Points),
		})
	}
	for _, s := range scene.Solids {
		lo, hi := s.BoundingBox()
		result.Solids = append(result.Solids, SolidData{Min: lo, Max: hi})
	}
	return result
}

// EvaluateFile reads and evaluates a script file. A script with errors is
// reported as a single error naming the first one.
func (a *App) EvaluateFile(name string) (*engine.Scene, error) {
	src, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	r := a.Evaluate(string(src))
	if len(r.Errors) > 0 {
		return nil, fmt.Errorf("%s: %s", name, r.Errors[0])
	}
	return r.Scene, nil
}

// Surface tessellates the solids of scene. With union set the solids are
// merged into one body first.
func (a *App) Surface(scene *engine.Scene, cells int, union bool) (*surface.Surface, error) {
	if union {
		return tessellate.Union(scene, a.kernel, cells)
	}
	return tessellate.Scene(scene, a.kernel, cells)
}

// area is the unsigned area enclosed by pts.
func area(pts []engine.Vec) float64 {
	a := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	if a < 0 {
		a = -a
	}
	return a / 2
}
