package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/dualmesh/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: fill-circle -> fill_circle
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}


// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec wraps a Vec.
type sexpVec struct {
	vec Vec
}

func (v *sexpVec) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps an open ring of 2D points produced by circle, rect or
// polygon and consumed by loop and hole.
type sexpShape struct {
	kind string
	pts  []Vec
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %d points)", s.kind, len(s.pts))
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel solid.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	lo, hi := s.solid.BoundingBox()
	return fmt.Sprintf("(solid %v %v)", lo, hi)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value - treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}


// toVec extracts a Vec from a sexpVec.
func toVec(s zygo.Sexp) (Vec, error) {
	if v, ok := s.(*sexpVec); ok {
		return v.vec, nil
	}
	return Vec{}, fmt.Errorf("expected vec, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts the points of a sexpShape.
func toShape(s zygo.Sexp) ([]Vec, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.pts, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a kernel solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if so, ok := s.(*sexpSolid); ok {
		return so.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// number returns keyword kw if present, else positional argument pos, else
// def. A negative pos disables the positional fallback.
func (a kwArgs) number(kw string, pos int, def float64) (float64, error) {
	if v, ok := a.kw[kw]; ok {
		return toFloat64(v)
	}
	if pos >= 0 && pos < len(a.positional) {
		return toFloat64(a.positional[pos])
	}
	return def, nil
}

// vec returns keyword kw as a Vec, or def when it is absent.
func (a kwArgs) vec(kw string, def Vec) (Vec, error) {
	if v, ok := a.kw[kw]; ok {
		return toVec(v)
	}
	return def, nil
}

// builtin is the signature zygomys calls user functions with.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// DefaultSegments is the number of edges circle uses without :segments.
const DefaultSegments = 64

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the geometry builtins into a zygomys
// environment. 2D shapes become loops of scene; solids are built with k.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, scene *Scene, k kernel.Kernel) {

	// -----------------------------------------------------------------------
	// (vec 1 2) or (vec 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec requires 2 or 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec{vec: Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (circle :center (vec 0 0) :radius 1 :segments 64)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		center, err := pa.vec("center", Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
		}
		r, err := pa.number("radius", 0, 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", r)
		}
		n, err := pa.number("segments", -1, DefaultSegments)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: segments: %w", err)
		}
		if n < 3 {
			return zygo.SexpNull, fmt.Errorf("circle: need at least 3 segments, got %g", n)
		}
		segs := int(n)
		pts := make([]Vec, segs)
		for i := range pts {
			t := 2 * math.Pi * float64(i) / float64(segs)
			pts[i] = Vec{X: center.X + r*math.Cos(t), Y: center.Y + r*math.Sin(t)}
		}
		return &sexpShape{kind: "circle", pts: pts}, nil
	})

	// -----------------------------------------------------------------------
	// (rect :min (vec 0 0) :max (vec 2 1)) or (rect 2 1), centered
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var lo, hi Vec
		if len(pa.positional) == 2 {
			w, err := toFloat64(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rect: width: %w", err)
			}
			h, err := toFloat64(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rect: height: %w", err)
			}
			lo, hi = Vec{X: -w / 2, Y: -h / 2}, Vec{X: w / 2, Y: h / 2}
		} else {
			var err error
			if lo, err = pa.vec("min", Vec{}); err != nil {
				return zygo.SexpNull, fmt.Errorf("rect: min: %w", err)
			}
			if hi, err = pa.vec("max", Vec{X: 1, Y: 1}); err != nil {
				return zygo.SexpNull, fmt.Errorf("rect: max: %w", err)
			}
		}
		if hi.X <= lo.X || hi.Y <= lo.Y {
			return zygo.SexpNull, fmt.Errorf("rect: empty rectangle")
		}
		pts := []Vec{{X: lo.X, Y: lo.Y}, {X: hi.X, Y: lo.Y}, {X: hi.X, Y: hi.Y}, {X: lo.X, Y: hi.Y}}
		return &sexpShape{kind: "rect", pts: pts}, nil
	})

	// -----------------------------------------------------------------------
	// (polygon (vec 0 0) (vec 1 0) (vec 0 1)) or (polygon (list ...))
	// -----------------------------------------------------------------------
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		items := args
		if len(args) == 1 {
			l, err := sexpListToSlice(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: %w", err)
			}
			items = l
		}
		if len(items) < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon requires at least 3 points, got %d", len(items))
		}
		pts := make([]Vec, len(items))
		for i, it := range items {
			v, err := toVec(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: point %d: %w", i, err)
			}
			pts[i] = Vec{X: v.X, Y: v.Y}
		}
		return &sexpShape{kind: "polygon", pts: pts}, nil
	})

	// -----------------------------------------------------------------------
	// (loop shape) and (hole shape)
	// -----------------------------------------------------------------------
	addLoop := func(hole bool) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 shape, got %d", name, len(args))
			}
			pts, err := toShape(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			scene.Loops = append(scene.Loops, Loop{Points: pts, Hole: hole})
			return args[0], nil
		}
	}
	env.AddFunction("loop", addLoop(false))
	env.AddFunction("hole", addLoop(true))

	// Solid builtins share the kernel check.
	addSolid := func(fn builtin) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if k == nil {
				return zygo.SexpNull, fmt.Errorf("%s: no solid kernel configured", name)
			}
			return fn(env, name, args)
		}
	}

	// -----------------------------------------------------------------------
	// (box 10 20 30) or (box :size (vec 10 20 30))
	// -----------------------------------------------------------------------
	env.AddFunction("box", addSolid(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var size Vec
		if v, ok := pa.kw["size"]; ok {
			s, err := toVec(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			size = s
		} else {
			if len(pa.positional) != 3 {
				return zygo.SexpNull, fmt.Errorf("box requires 3 sizes or :size")
			}
			for i, p := range []*float64{&size.X, &size.Y, &size.Z} {
				f, err := toFloat64(pa.positional[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: %c: %w", "xyz"[i], err)
				}
				*p = f
			}
		}
		if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
			return zygo.SexpNull, fmt.Errorf("box: sizes must be positive")
		}
		return &sexpSolid{solid: k.Box(size.X, size.Y, size.Z)}, nil
	}))

	// -----------------------------------------------------------------------
	// (cylinder :height 10 :radius 2)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", addSolid(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := pa.number("height", 0, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		r, err := pa.number("radius", 1, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		if h <= 0 || r <= 0 {
			return zygo.SexpNull, fmt.Errorf("cylinder: height and radius must be positive")
		}
		return &sexpSolid{solid: k.Cylinder(h, r)}, nil
	}))

	// -----------------------------------------------------------------------
	// (sphere :radius 5) or (sphere 5)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", addSolid(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		r, err := parseArgs(args).number("radius", 0, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("sphere: radius must be positive")
		}
		return &sexpSolid{solid: k.Sphere(r)}, nil
	}))

	// -----------------------------------------------------------------------
	// (union a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	fold := func(op func(a, b kernel.Solid) kernel.Solid) builtin {
		return addSolid(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", name, len(args))
			}
			out, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			for i, a := range args[1:] {
				s, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", name, i+2, err)
				}
				out = op(out, s)
			}
			return &sexpSolid{solid: out}, nil
		})
	}
	env.AddFunction("union", fold(func(a, b kernel.Solid) kernel.Solid { return k.Union(a, b) }))
	env.AddFunction("difference", fold(func(a, b kernel.Solid) kernel.Solid { return k.Difference(a, b) }))
	env.AddFunction("intersection", fold(func(a, b kernel.Solid) kernel.Solid { return k.Intersection(a, b) }))

	// -----------------------------------------------------------------------
	// (translate s (vec 1 2 3)) or (translate s :by (vec 1 2 3))
	// (rotate s (vec 0 0 90)) or (rotate s :axis :z :angle 90)
	// -----------------------------------------------------------------------
	transform := func(op func(s kernel.Solid, v Vec) kernel.Solid) builtin {
		return addSolid(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) < 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid as first argument", name)
			}
			s, err := toSolid(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			v, err := transformVec(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &sexpSolid{solid: op(s, v)}, nil
		})
	}
	env.AddFunction("translate", transform(func(s kernel.Solid, v Vec) kernel.Solid {
		return k.Translate(s, v.X, v.Y, v.Z)
	}))
	env.AddFunction("rotate", transform(func(s kernel.Solid, v Vec) kernel.Solid {
		return k.Rotate(s, v.X, v.Y, v.Z)
	}))

	// -----------------------------------------------------------------------
	// (solid s) adds s to the scene.
	// -----------------------------------------------------------------------
	env.AddFunction("solid", addSolid(func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires exactly 1 argument, got %d", len(args))
		}
		s, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: %w", err)
		}
		scene.Solids = append(scene.Solids, s)
		return args[0], nil
	}))
}

// transformVec reads the vector of translate and rotate: a second
// positional vec, :by, or :axis with :angle.
func transformVec(pa kwArgs) (Vec, error) {
	if len(pa.positional) >= 2 {
		return toVec(pa.positional[1])
	}
	if v, ok := pa.kw["by"]; ok {
		return toVec(v)
	}
	axis, ok := pa.kw["axis"]
	if !ok {
		return Vec{}, fmt.Errorf("missing vector")
	}
	name, err := toKeywordString(axis)
	if err != nil {
		return Vec{}, fmt.Errorf("axis: %w", err)
	}
	angle, err := pa.number("angle", -1, 0)
	if err != nil {
		return Vec{}, fmt.Errorf("angle: %w", err)
	}
	switch name {
	case "x":
		return Vec{X: angle}, nil
	case "y":
		return Vec{Y: angle}, nil
	case "z":
		return Vec{Z: angle}, nil
	}
	return Vec{}, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}
