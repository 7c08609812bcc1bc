package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/dualmesh/pkg/config"
	"github.com/chazu/dualmesh/pkg/meshio"
	"github.com/paulmach/orb/geojson"
	"github.com/tdewolff/argp"
	"github.com/tdewolff/test"
)

func TestMain(m *testing.M) {
	stderr = io.Discard
	os.Exit(m.Run())
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	name = filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestMesh2DBoundaryFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "square")
	cmd := &Mesh2D{Input: "examples/square.txt", Resolution: 1, Output: out}
	test.Error(t, cmd.Run())

	inp, err := meshio.LoadInp(out + ".inp")
	test.Error(t, err)
	test.T(t, len(inp.Nodes), 9)
	test.T(t, len(inp.Elements), 4)
	test.T(t, inp.Elements[0].Type, meshio.TypeQuad)
	test.T(t, len(inp.Elements[0].Nodes), 4)
}

func TestMesh2DFormats(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "square")
		test.Error(t, (&Mesh2D{Input: "examples/square.txt", Resolution: 1, Output: out, Format: "plain"}).Run())
		quads, err := os.ReadFile(out + "_quads")
		test.Error(t, err)
		test.T(t, strings.Count(string(quads), "\n"), 4)
		_, err = os.Stat(out + "_nodes")
		test.Error(t, err)
	})
	t.Run("geojson", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "square")
		test.Error(t, (&Mesh2D{Input: "examples/square.txt", Resolution: 1, Output: out, Format: "geojson"}).Run())
		data, err := os.ReadFile(out + ".geojson")
		test.Error(t, err)
		fc, err := geojson.UnmarshalFeatureCollection(data)
		test.Error(t, err)
		test.T(t, len(fc.Features), 4)
	})
	t.Run("vtk", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "square")
		err := (&Mesh2D{Input: "examples/square.txt", Resolution: 1, Output: out, Format: "vtk"}).Run()
		test.That(t, err != nil, "vtk accepted for a 2D mesh")
	})
}

func TestMesh2DConfig(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "square")
	cfg := writeFile(t, "square.yml", "boundary: examples/square.txt\nresolution: 1\ndeveloper_output: T\noutput_file: "+out+"\n")

	test.Error(t, (&Mesh2D{Config: cfg}).Run())
	_, err := os.Stat(out + ".inp")
	test.Error(t, err)
	quads, err := os.ReadFile(out + "_10_mesh_quads")
	test.Error(t, err)
	test.T(t, strings.Count(string(quads), "\n"), 4)

	// Flags override the file.
	test.Error(t, (&Mesh2D{Config: cfg, Format: "geojson"}).Run())
	_, err = os.Stat(out + ".geojson")
	test.Error(t, err)
}

func TestMesh2DExampleConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plate")
	test.Error(t, (&Mesh2D{Config: "examples/plate.yml", Output: out}).Run())
	_, err := os.Stat(out + ".inp")
	test.Error(t, err)
	_, err = os.Stat(out + "_10_mesh_quads")
	test.That(t, errors.Is(err, os.ErrNotExist), "developer output is off in plate.yml")
}

func TestMesh2DScript(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plate")
	test.Error(t, (&Mesh2D{Script: "examples/plate.zy", Resolution: 0.25, Output: out}).Run())

	inp, err := meshio.LoadInp(out + ".inp")
	test.Error(t, err)
	test.That(t, len(inp.Elements) > 0, "no elements")
	for _, n := range inp.Nodes {
		// Nothing lies deep inside the hole.
		dx, dy := n.X+1, n.Y
		test.That(t, dx*dx+dy*dy > 0.1, "node", n.ID, "inside the hole")
	}
}

func TestMesh2DErrors(t *testing.T) {
	box3 := writeFile(t, "box.yml", "boundary: examples/square.txt\nbounding_box: {(0,0,0),(1,1,1)}\n")
	bad := writeFile(t, "bad.zy", "(loop (rect 1 1)")
	tests := []struct {
		name string
		cmd  *Mesh2D
	}{
		{"missing boundary", &Mesh2D{Input: "examples/missing.txt"}},
		{"3D box", &Mesh2D{Config: box3}},
		{"unknown classifier", &Mesh2D{Input: "examples/square.txt", Classifier: "ray"}},
		{"negative resolution", &Mesh2D{Input: "examples/square.txt", Resolution: -1}},
		{"bad script", &Mesh2D{Script: bad}},
		{"missing config", &Mesh2D{Config: "examples/missing.yml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.Output = filepath.Join(t.TempDir(), "out")
			test.That(t, tt.cmd.Run() != nil, "expected an error")
		})
	}
}

func TestUsage(t *testing.T) {
	test.That(t, errors.Is((&Mesh2D{}).Run(), argp.ShowUsage))
	test.That(t, errors.Is((&Mesh3D{}).Run(), argp.ShowUsage))
	test.That(t, errors.Is((&Script{}).Run(), argp.ShowUsage))
}

func TestMesh3DSurfaceFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tetra")
	test.Error(t, (&Mesh3D{Input: "examples/tetra.inp", Resolution: 0.4, Output: out}).Run())
	inp, err := meshio.LoadInp(out + ".inp")
	test.Error(t, err)
	test.T(t, len(inp.Elements), 64)
	test.T(t, inp.Elements[0].Type, meshio.TypeHex)
	test.T(t, len(inp.Elements[0].Nodes), 8)

	test.Error(t, (&Mesh3D{Input: "examples/tetra.inp", Resolution: 0.4, Output: out, Format: "vtk", Unbalanced: true}).Run())
	vtk, err := os.ReadFile(out + ".vtk")
	test.Error(t, err)
	test.That(t, strings.Contains(string(vtk), "CELLS 36 324\n"), "unbalanced octree should have 36 cells")
}

func TestMesh3DScript(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bracket")
	test.Error(t, (&Mesh3D{Script: "examples/bracket.zy", Resolution: 1, Cells: 16, Output: out, Dev: true}).Run())
	inp, err := meshio.LoadInp(out + ".inp")
	test.Error(t, err)
	test.That(t, len(inp.Elements) > 1, "bracket should refine the root")
	_, err = os.Stat(out + "_01_oct_tree.vtk")
	test.Error(t, err)
}

func TestMesh3DErrors(t *testing.T) {
	box2 := writeFile(t, "box.yml", "surface: examples/tetra.inp\nbounding_box: {(0,0),(1,1)}\n")
	loops := writeFile(t, "loops.zy", "(loop (rect 1 1))")
	tests := []struct {
		name string
		cmd  *Mesh3D
	}{
		{"missing surface", &Mesh3D{Input: "examples/missing.inp"}},
		{"2D box", &Mesh3D{Config: box2}},
		{"2D format", &Mesh3D{Input: "examples/tetra.inp", Format: "geojson"}},
		{"script without solids", &Mesh3D{Script: loops, Cells: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.Output = filepath.Join(t.TempDir(), "out")
			test.That(t, tt.cmd.Run() != nil, "expected an error")
		})
	}
}

func TestTemplate(t *testing.T) {
	buf := captureStdout(t)
	test.Error(t, (&Template{}).Run())
	test.That(t, strings.HasPrefix(buf.String(), "boundary: filename.txt"), "template starts with", buf.String())

	name := filepath.Join(t.TempDir(), "in.yml")
	test.Error(t, (&Template{Output: name}).Run())
	c, err := config.Load(name)
	test.Error(t, err)
	s, err := c.Settings()
	test.Error(t, err)
	test.T(t, s.Resolution, 0.5)
	test.T(t, s.OutputFormat, "inp")
}

func TestScript(t *testing.T) {
	buf := captureStdout(t)
	test.Error(t, (&Script{Input: "examples/plate.zy"}).Run())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.T(t, len(lines), 2)
	test.T(t, lines[0], "loop 1: 4 points, area 8")
	test.That(t, strings.HasPrefix(lines[1], "hole 2: 32 points"), lines[1])

	buf.Reset()
	test.Error(t, (&Script{Input: "examples/bracket.zy", JSON: true}).Run())
	var r ScriptResult
	test.Error(t, json.Unmarshal(buf.Bytes(), &r))
	test.T(t, len(r.Loops), 0)
	test.T(t, len(r.Solids), 1)
	test.T(t, len(r.Errors), 0)

	buf.Reset()
	bad := writeFile(t, "bad.zy", "(loop (rect 1 1))\n(loop (circle :radius -1))\n")
	test.That(t, (&Script{Input: bad}).Run() != nil, "expected an error")
	test.That(t, strings.Contains(buf.String(), "circle"), buf.String())
}
