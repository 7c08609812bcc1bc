// Package config reads the mesher's "key: value" input files.
//
// A line is split at its first colon; everything after a # is dropped.
// Keys not present in the file keep their defaults.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned by strict parsing for a key with no default.
var ErrUnknownKey = errors.New("config: unknown key")

// Keys.
const (
	Version         = "version"
	BoundaryRefine  = "boundary_refine"
	DeveloperOutput = "developer_output"
	Boundary        = "boundary"
	BoundingBox     = "bounding_box"
	Resolution      = "resolution"
	OutputFile      = "output_file"
	Surface         = "surface"
	OutputFormat    = "output_format"
	Script          = "script"
)

// template holds every known key with its default value and a comment
// for the example file.
var template = map[string]string{
	Version:         "1.1",
	BoundaryRefine:  "true",
	DeveloperOutput: "true",
	Boundary:        "filename.txt # space delimited xy-pairs, 1 line for each ",
	BoundingBox:     "{(0,0),(0, 0)} # equal points or left off will default to tight bounding box",
	Resolution:      "0.5",
	OutputFile:      "mesh  # extension will be added automatically",
	Surface:         " # abaqus inp surface for the 3D mesher",
	OutputFormat:    "inp # inp, plain, vtk or geojson",
	Script:          " # zygomys script producing the boundary, used instead of boundary",
}

// Config is a set of string values by key.
type Config struct {
	values map[string]string
}

// New returns a config holding the defaults.
func New() *Config {
	c := &Config{values: make(map[string]string, len(template))}
	for k, v := range template {
		c.values[k] = stripComment(v)
	}
	return c
}

// Parse reads r over the defaults. Unknown keys are kept.
func Parse(r io.Reader) (*Config, error) {
	return parse(r, false)
}

// ParseStrict is Parse, failing with ErrUnknownKey on a key that has no
// default.
func ParseStrict(r io.Reader) (*Config, error) {
	return parse(r, true)
}

// Load parses the named file.
func Load(name string) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func parse(r io.Reader, strict bool) (*Config, error) {
	c := New()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		key, val, ok := splitAssign(sc.Text())
		if !ok {
			continue
		}
		if _, known := template[key]; strict && !known {
			return nil, fmt.Errorf("%w: %q on line %d", ErrUnknownKey, key, line)
		}
		c.values[key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func splitAssign(s string) (key, val string, ok bool) {
	s = stripComment(s)
	key, val, ok = strings.Cut(s, ":")
	return strings.TrimSpace(key), strings.TrimSpace(val), ok
}

func stripComment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Set overrides one value.
func (c *Config) Set(key, val string) { c.values[key] = val }

// String returns the value of key, or "" if it is unset.
func (c *Config) String(key string) string { return c.values[key] }

// Float returns the value of key as a number. An unset key is 0.
func (c *Config) Float(key string) (float64, error) {
	v, ok := c.values[key]
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

// Bool reports whether the value of key is true, 1 or t, in any case.
func (c *Config) Bool(key string) bool {
	switch strings.ToLower(c.values[key]) {
	case "true", "1", "t":
		return true
	}
	return false
}

// Box is a bounding box from the config. Dim is 2 or 3, or 0 when the
// box is left to the input's own extent.
type Box struct {
	Dim    int
	Lo, Hi [3]float64
}

// Auto reports whether the box defers to the input's extent.
func (b Box) Auto() bool { return b.Dim == 0 }

// Box parses key as {(lx,ly),(ux,uy)} or {(lx,ly,lz),(ux,uy,uz)}. Braces,
// brackets and parentheses are ignored. Any other count of numbers, or
// equal corners, gives an auto box.
func (c *Config) Box(key string) (Box, error) {
	vals := splitByCommaIgnore(c.values[key])
	var nums []float64
	for _, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Box{}, fmt.Errorf("config: %s: %w", key, err)
		}
		nums = append(nums, f)
	}
	var b Box
	switch len(nums) {
	case 4:
		b = Box{Dim: 2, Lo: [3]float64{nums[0], nums[1]}, Hi: [3]float64{nums[2], nums[3]}}
	case 6:
		b = Box{Dim: 3, Lo: [3]float64(nums[0:3]), Hi: [3]float64(nums[3:6])}
	default:
		return Box{}, nil
	}
	if b.Lo == b.Hi {
		return Box{}, nil
	}
	return b, nil
}

func splitByCommaIgnore(s string) []string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '{', '}', '[', ']':
			return -1
		}
		return r
	}, s)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Keys returns the keys present, sorted.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// WriteTemplate writes an example file with every known key, its default
// and a comment, sorted by key.
func WriteTemplate(w io.Writer) error {
	keys := make([]string, 0, len(template))
	for k := range template {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		fmt.Fprintf(bw, "%s: %s\n", k, template[k])
	}
	return bw.Flush()
}

// Settings is the typed view of a config.
type Settings struct {
	Version         string
	BoundaryRefine  bool
	DeveloperOutput bool
	Boundary        string
	Box             Box
	Resolution      float64
	OutputFile      string
	Surface         string
	OutputFormat    string
	Script          string
}

// Settings converts every known key.
func (c *Config) Settings() (Settings, error) {
	s := Settings{
		Version:         c.String(Version),
		BoundaryRefine:  c.Bool(BoundaryRefine),
		DeveloperOutput: c.Bool(DeveloperOutput),
		Boundary:        c.String(Boundary),
		OutputFile:      c.String(OutputFile),
		Surface:         c.String(Surface),
		OutputFormat:    c.String(OutputFormat),
		Script:          c.String(Script),
	}
	var err error
	if s.Resolution, err = c.Float(Resolution); err != nil {
		return s, err
	}
	if s.Box, err = c.Box(BoundingBox); err != nil {
		return s, err
	}
	return s, nil
}
