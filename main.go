package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/chazu/dualmesh/pkg/config"
	"github.com/chazu/dualmesh/pkg/curve"
	"github.com/chazu/dualmesh/pkg/logging"
	"github.com/chazu/dualmesh/pkg/mesher"
	"github.com/chazu/dualmesh/pkg/meshio"
	"github.com/chazu/dualmesh/pkg/surface"
	"github.com/tdewolff/argp"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type Mesh2D struct {
	Config     string  `short:"c" desc:"Input file of key: value lines"`
	Script     string  `short:"s" desc:"Script producing the boundary, used instead of a boundary file"`
	Resolution float64 `short:"r" desc:"Minimum cell size"`
	Output     string  `short:"o" desc:"Output file name without extension"`
	Format     string  `short:"f" desc:"Output format: inp, plain or geojson"`
	Classifier string  `desc:"Inside test for trimming: winding, kdtree or orb"`
	Passes     int     `desc:"Subdivide, project and snap rounds; 0 is one, negative is none"`
	Features   bool    `desc:"Refine only at curvature features"`
	Unit       bool    `desc:"Mesh the box (-1,-1)..(1,1) instead of the boundary's extent"`
	Dev        bool    `short:"d" desc:"Write every pipeline stage"`
	Plots      bool    `desc:"Add PNG plots to the stage output"`
	Verbose    bool    `short:"v" desc:"Log progress to stderr"`
	Input      string  `index:"0" desc:"Boundary file of x y rows"`
}

type Mesh3D struct {
	Config     string  `short:"c" desc:"Input file of key: value lines"`
	Script     string  `short:"s" desc:"Script whose solids are meshed, used instead of a surface file"`
	Resolution float64 `short:"r" desc:"Minimum cell size"`
	Output     string  `short:"o" desc:"Output file name without extension"`
	Format     string  `short:"f" desc:"Output format: inp or vtk"`
	Cells      int     `default:"64" desc:"Tessellation cells along the longest side of a solid"`
	Union      bool    `desc:"Union the script's solids before tessellating"`
	Unbalanced bool    `desc:"Skip neighbour balancing"`
	Dev        bool    `short:"d" desc:"Write the octree before output"`
	Verbose    bool    `short:"v" desc:"Log progress to stderr"`
	Input      string  `index:"0" desc:"Abaqus inp file holding the surface"`
}

type Template struct {
	Output string `short:"o" desc:"Output file, standard output if empty"`
}

type Script struct {
	JSON  bool   `desc:"Print the summary as JSON"`
	Input string `index:"0" desc:"Script file"`
}

func main() {
	root := argp.NewCmd(&Mesh2D{}, "Balanced quadtree and octree dual mesher")
	root.AddCmd(&Mesh3D{}, "mesh3d", "Mesh a closed surface with a balanced octree")
	root.AddCmd(&Template{}, "template", "Write an example input file")
	root.AddCmd(&Script{}, "script", "Evaluate a script and summarise what it builds")
	root.Parse()
	root.PrintHelp()
}

func (cmd *Mesh2D) Run() error {
	if cmd.Config == "" && cmd.Input == "" && cmd.Script == "" {
		return argp.ShowUsage
	}
	setVerbose(cmd.Verbose)

	s, err := settings(cmd.Config, map[string]string{
		config.Boundary:        cmd.Input,
		config.Script:          cmd.Script,
		config.Resolution:      floatFlag(cmd.Resolution),
		config.OutputFile:      cmd.Output,
		config.OutputFormat:    cmd.Format,
		config.DeveloperOutput: boolFlag(cmd.Dev, "true"),
		config.BoundaryRefine:  boolFlag(cmd.Features, "false"),
	})
	if err != nil {
		return err
	}

	var c *curve.Curve
	if s.Script != "" {
		scene, err := NewApp().EvaluateFile(s.Script)
		if err != nil {
			return err
		}
		c = scene.Curve()
	} else if c, err = meshio.LoadBoundary(s.Boundary); err != nil {
		return err
	}

	opts := mesher.Options{
		MinSize:       s.Resolution,
		FeatureRefine: !s.BoundaryRefine,
		Classifier:    cmd.Classifier,
		Passes:        cmd.Passes,
		Plots:         cmd.Plots,
	}
	if cmd.Unit {
		opts.Bounds = mesher.BoundsUnit
	}
	switch s.Box.Dim {
	case 2:
		opts.Box = &curve.Box{MinX: s.Box.Lo[0], MinY: s.Box.Lo[1], MaxX: s.Box.Hi[0], MaxY: s.Box.Hi[1]}
	case 3:
		return fmt.Errorf("bounding_box: need a 2D box, got %v..%v", s.Box.Lo, s.Box.Hi)
	}
	if s.DeveloperOutput {
		opts.DeveloperOutput = s.OutputFile
	}

	r, err := mesher.Mesh2D(c, opts)
	if err != nil {
		return err
	}

	switch s.OutputFormat {
	case "", "inp":
		return writeOutput(s.OutputFile+".inp", func(w io.Writer) error {
			return meshio.WriteInp(w, r.Dual)
		})
	case "plain":
		return meshio.WritePlainFiles(s.OutputFile+"_", r.Dual)
	case "geojson":
		return writeOutput(s.OutputFile+".geojson", func(w io.Writer) error {
			return meshio.WriteGeoJSON(w, r.Dual)
		})
	}
	return fmt.Errorf("output_format: %q is not a 2D format", s.OutputFormat)
}

func (cmd *Mesh3D) Run() error {
	if cmd.Config == "" && cmd.Input == "" && cmd.Script == "" {
		return argp.ShowUsage
	}
	setVerbose(cmd.Verbose)

	s, err := settings(cmd.Config, map[string]string{
		config.Surface:         cmd.Input,
		config.Script:          cmd.Script,
		config.Resolution:      floatFlag(cmd.Resolution),
		config.OutputFile:      cmd.Output,
		config.OutputFormat:    cmd.Format,
		config.DeveloperOutput: boolFlag(cmd.Dev, "true"),
	})
	if err != nil {
		return err
	}

	var surf *surface.Surface
	if s.Script != "" {
		app := NewApp()
		scene, err := app.EvaluateFile(s.Script)
		if err != nil {
			return err
		}
		if surf, err = app.Surface(scene, cmd.Cells, cmd.Union); err != nil {
			return err
		}
	} else if surf, err = meshio.LoadSurface(s.Surface); err != nil {
		return err
	}

	opts := mesher.Options{
		MinSize:    s.Resolution,
		Unbalanced: cmd.Unbalanced,
	}
	switch s.Box.Dim {
	case 2:
		return fmt.Errorf("bounding_box: need a 3D box, got %v..%v", s.Box.Lo, s.Box.Hi)
	case 3:
		opts.Box3D = &surface.Box{
			Min: surface.Point{X: s.Box.Lo[0], Y: s.Box.Lo[1], Z: s.Box.Lo[2]},
			Max: surface.Point{X: s.Box.Hi[0], Y: s.Box.Hi[1], Z: s.Box.Hi[2]},
		}
	}
	if s.DeveloperOutput {
		opts.DeveloperOutput = s.OutputFile
	}

	r, err := mesher.Mesh3D(surf, opts)
	if err != nil {
		return err
	}

	switch s.OutputFormat {
	case "", "inp":
		return writeOutput(s.OutputFile+".inp", func(w io.Writer) error {
			return meshio.WriteHexInp(w, r.Tree)
		})
	case "vtk":
		return writeOutput(s.OutputFile+".vtk", func(w io.Writer) error {
			return meshio.WriteVTK(w, r.Tree)
		})
	}
	return fmt.Errorf("output_format: %q is not a 3D format", s.OutputFormat)
}

func (cmd *Template) Run() error {
	if cmd.Output == "" {
		return config.WriteTemplate(stdout)
	}
	return meshio.CreateFile(cmd.Output, config.WriteTemplate)
}

func (cmd *Script) Run() error {
	if cmd.Input == "" {
		return argp.ShowUsage
	}
	src, err := os.ReadFile(cmd.Input)
	if err != nil {
		return err
	}
	r := NewApp().Evaluate(string(src))

	if cmd.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	} else {
		for i, l := range r.Loops {
			kind := "loop"
			if l.Hole {
				kind = "hole"
			}
			fmt.Fprintf(stdout, "%s %d: %d points, area %.6g\n", kind, i+1, l.Points, l.Area)
		}
		for i, s := range r.Solids {
			fmt.Fprintf(stdout, "solid %d: %v..%v\n", i+1, s.Min, s.Max)
		}
		for _, e := range r.Errors {
			fmt.Fprintln(stdout, e)
		}
	}
	if len(r.Errors) > 0 {
		return fmt.Errorf("%s: %d errors", cmd.Input, len(r.Errors))
	}
	return nil
}

// settings loads file, or the defaults with developer output off, and
// overrides it with every non-empty flag value.
func settings(file string, flags map[string]string) (config.Settings, error) {
	c := config.New()
	c.Set(config.DeveloperOutput, "false")
	if file != "" {
		var err error
		if c, err = config.Load(file); err != nil {
			return config.Settings{}, err
		}
	}
	for k, v := range flags {
		if v != "" {
			c.Set(k, v)
		}
	}
	return c.Settings()
}

func floatFlag(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func boolFlag(b bool, val string) string {
	if !b {
		return ""
	}
	return val
}

func setVerbose(v bool) {
	level := slog.LevelInfo
	if v {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
}

func writeOutput(name string, fn func(io.Writer) error) error {
	if err := meshio.CreateFile(name, fn); err != nil {
		return err
	}
	logging.Logger().Info("wrote output", "file", name)
	return nil
}
