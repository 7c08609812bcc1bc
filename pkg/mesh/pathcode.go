package mesh

import (
	"fmt"
	"strings"

	"github.com/chazu/dualmesh/pkg/tree"
)

// Transition loops are found by walking a path of instructions over the
// tree's neighbour graph. A path is written as underscore-terminated
// triples <step><offset><destination>:
//
//	step         N, S, E, W move to the same-depth neighbour; D stays put
//	offset       0 keeps the code; 1-4 first descend into the NE, NW, SW or
//	             SE child of the current code, which need not exist
//	destination  O keeps the result; P and T move to its parent. T also
//	             selects the transition half of a split leaf
//
// Every stop must land on an existing leaf. A walk of five stops that
// ends where it started names the four elements of one dual quad.

// Direction is the lateral move of one instruction.
type Direction byte

const (
	Stay  Direction = 'D'
	North Direction = 'N'
	South Direction = 'S'
	East  Direction = 'E'
	West  Direction = 'W'
)

// Instr is one decoded path triple.
type Instr struct {
	// Offset is the child suffix appended before the step, or "".
	Offset   string
	Step     Direction
	ToParent bool
	// Transition selects the triangle half of a split leaf.
	Transition bool
}

// Path is a decoded instruction sequence.
type Path []Instr

var offsetSuffix = map[byte]string{'0': "", '1': "11", '2': "01", '3': "00", '4': "10"}

// ParsePath decodes a path string such as "E1O_N0O_W0O_S0T_E1O_".
func ParsePath(s string) (Path, error) {
	var p Path
	for _, tok := range strings.Split(strings.TrimSuffix(s, "_"), "_") {
		if len(tok) != 3 {
			return nil, fmt.Errorf("mesh: path %q: bad instruction %q", s, tok)
		}
		var in Instr
		switch d := Direction(tok[0]); d {
		case Stay, North, South, East, West:
			in.Step = d
		default:
			return nil, fmt.Errorf("mesh: path %q: bad step %q", s, tok[0])
		}
		off, ok := offsetSuffix[tok[1]]
		if !ok {
			return nil, fmt.Errorf("mesh: path %q: bad offset %q", s, tok[1])
		}
		in.Offset = off
		switch tok[2] {
		case 'O':
		case 'P':
			in.ToParent = true
		case 'T':
			in.ToParent, in.Transition = true, true
		default:
			return nil, fmt.Errorf("mesh: path %q: bad destination %q", s, tok[2])
		}
		p = append(p, in)
	}
	return p, nil
}

// MustParsePath is ParsePath for the built-in tables.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Navigator is the neighbour graph a path is walked over.
// *tree.QuadTree implements it.
type Navigator interface {
	North(code string) string
	South(code string) string
	East(code string) string
	West(code string) string
	Parent(code string) string
	ExistsAndLeaf(code string) bool
}

// Stop is one leaf visited by a walk.
type Stop struct {
	Code       string
	Transition bool
}

// Walk runs p from the leaf start and returns the leaves visited. It
// stops early at the first instruction that does not land on a leaf, so
// a complete walk returns len(p) stops.
func Walk(nav Navigator, start string, p Path) []Stop {
	var stops []Stop
	cur := start
	for _, in := range p {
		if cur != tree.Null {
			cur += in.Offset
		}
		if cur != tree.Null {
			switch in.Step {
			case North:
				cur = nav.North(cur)
			case South:
				cur = nav.South(cur)
			case East:
				cur = nav.East(cur)
			case West:
				cur = nav.West(cur)
			}
		}
		if cur != tree.Null && in.Step != Stay && in.ToParent {
			cur = nav.Parent(cur)
		}
		if !nav.ExistsAndLeaf(cur) {
			break
		}
		stops = append(stops, Stop{Code: cur, Transition: in.Transition})
	}
	return stops
}

// mirror rewrites a path string through a character map.
func mirror(s string, swap map[rune]rune) string {
	return strings.Map(func(r rune) rune {
		if m, ok := swap[r]; ok {
			return m
		}
		return r
	}, s)
}

var (
	swapEW = map[rune]rune{'E': 'W', 'W': 'E', '1': '2', '2': '1', '3': '4', '4': '3'}
	swapNS = map[rune]rune{'N': 'S', 'S': 'N', '1': '4', '4': '1', '2': '3', '3': '2'}
)

// squarePaths close a loop around the shared corner of four leaves. They
// run from every leaf whatever its split code.
var squarePaths = []string{
	"N0O_E0O_S0O_W0O_N0O_",
	"E0O_S0O_W0O_N0O_E0O_",
	"S0O_W0O_N0O_E0O_S0O_",
	"W0O_N0O_E0O_S0O_W0O_",
}

// nePaths are the transition loops of a leaf split toward the north-east.
// The other corners are mirror images.
var nePaths = []string{
	"E1O_N0O_W0O_S0T_E1O_",
	"E1O_S0O_W0P_D0T_E1O_",
	"N1O_W0O_S0P_D0T_N1O_",
	"E1O_N0T_W3O_S0T_E1O_",
	"E1T_N2O_W0O_S0T_E1T_",
	"D0P_D0T_E1T_D0P_W0O_",
	"D0T_E1O_N0O_W0T_S4T_",
	"D0P_D0T_N1T_D0P_S0O_",
	"D0T_E1T_N2O_W0T_S4T_",
	"D0T_E1T_N2T_W3O_S0T_",
	"D0T_E1O_N0T_W3T_S4T_",
	"D0P_N2O_W0O_S0P_E0O_",
	"D0P_E4O_S0O_W0P_N0O_",
}

// pathTables holds the decoded tables. The corner key is the corner a
// split leaf faces.
type pathTables struct {
	square   []Path
	byCorner map[string][]Path
}

func newPathTables() *pathTables {
	t := &pathTables{byCorner: make(map[string][]Path)}
	for _, s := range squarePaths {
		t.square = append(t.square, MustParsePath(s))
	}
	for _, s := range nePaths {
		t.byCorner["NE"] = append(t.byCorner["NE"], MustParsePath(s))
		t.byCorner["NW"] = append(t.byCorner["NW"], MustParsePath(mirror(s, swapEW)))
		t.byCorner["SE"] = append(t.byCorner["SE"], MustParsePath(mirror(s, swapNS)))
		t.byCorner["SW"] = append(t.byCorner["SW"], MustParsePath(mirror(mirror(s, swapEW), swapNS)))
	}
	return t
}

var tables = newPathTables()
