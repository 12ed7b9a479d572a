// Package spacetime holds the coordinate primitives of the simulation:
// grid positions, spacetime positions, cardinal directions, and the
// player's world line through the time cube.
package spacetime

import "fmt"

// Pos2 is a cell on the spatial grid.
type Pos2 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pos3 is a cell in spacetime. T is the slice index, not the turn counter:
// rifts move T backward while turns only ever increase.
type Pos3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	T int `json:"t"`
}

// Plane drops the time component.
func (p Pos3) Plane() Pos2 { return Pos2{X: p.X, Y: p.Y} }

// At lifts a grid cell into the slice at time t.
func (p Pos2) At(t int) Pos3 { return Pos3{X: p.X, Y: p.Y, T: t} }

func (p Pos2) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }
func (p Pos3) String() string { return fmt.Sprintf("(%d,%d,t%d)", p.X, p.Y, p.T) }

// Manhattan returns the spatial L1 distance, ignoring time.
func Manhattan(a, b Pos2) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Dir is one of the four cardinal directions. North decreases Y.
type Dir string

const (
	North Dir = "NORTH"
	South Dir = "SOUTH"
	East  Dir = "EAST"
	West  Dir = "WEST"
)

var dirDeltas = map[Dir]Pos2{
	North: {X: 0, Y: -1},
	South: {X: 0, Y: 1},
	East:  {X: 1, Y: 0},
	West:  {X: -1, Y: 0},
}

// Valid reports whether d is one of the four cardinals.
func (d Dir) Valid() bool {
	_, ok := dirDeltas[d]
	return ok
}

// Delta returns the unit cell offset for d. Panics on an invalid
// direction; callers validate at the protocol boundary.
func (d Dir) Delta() Pos2 {
	dd, ok := dirDeltas[d]
	if !ok {
		panic(fmt.Sprintf("spacetime: invalid direction %q", string(d)))
	}
	return dd
}

// Opposite returns the reverse cardinal.
func (d Dir) Opposite() Dir {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	panic(fmt.Sprintf("spacetime: invalid direction %q", string(d)))
}

// Step moves one cell in d from p, keeping the same slice.
func (p Pos2) Step(d Dir) Pos2 {
	dd := d.Delta()
	return Pos2{X: p.X + dd.X, Y: p.Y + dd.Y}
}

// Dirs lists the cardinals in a fixed order for deterministic iteration.
func Dirs() []Dir { return []Dir{North, South, East, West} }
