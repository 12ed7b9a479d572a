package spacetime

import (
	"errors"
	"fmt"
)

// ErrEmptyWorldLine is returned by accessors on a world line with no
// positions. New always seeds one, so user code only sees this when it
// constructs the zero value directly.
var ErrEmptyWorldLine = errors.New("world line has no positions")

// SelfIntersectionError reports an attempt to re-enter a spacetime cell
// the player has already occupied. The player may never coexist with a
// past self in the exact same cell and slice.
type SelfIntersectionError struct {
	Pos Pos3
}

func (e *SelfIntersectionError) Error() string {
	return fmt.Sprintf("world line already passes through %s", e.Pos)
}

// InvalidStepError reports a normal extension that is not a legal step:
// the target must be exactly one slice ahead and at most one cell away.
type InvalidStepError struct {
	From Pos3
	To   Pos3
}

func (e *InvalidStepError) Error() string {
	return fmt.Sprintf("illegal step from %s to %s", e.From, e.To)
}

// TurnPos pairs a spacetime position with the turn counter at which the
// player occupied it. One slice can hold several of these after a rift.
type TurnPos struct {
	Pos  Pos3 `json:"pos"`
	Turn int  `json:"turn"`
}

// WorldLine is the player's ordered path through spacetime. Index i of
// the path is the position at turn i. Every position ever occupied stays
// in the visited set; nothing is removed when time is re-entered.
type WorldLine struct {
	path    []Pos3
	visited map[Pos3]struct{}
}

// NewWorldLine starts a world line at the spawn position (turn 0).
func NewWorldLine(start Pos3) *WorldLine {
	return &WorldLine{
		path:    []Pos3{start},
		visited: map[Pos3]struct{}{start: {}},
	}
}

// Current returns the latest position.
func (wl *WorldLine) Current() (Pos3, error) {
	if len(wl.path) == 0 {
		return Pos3{}, ErrEmptyWorldLine
	}
	return wl.path[len(wl.path)-1], nil
}

// Len is the number of recorded positions (turns taken plus one).
func (wl *WorldLine) Len() int { return len(wl.path) }

// Contains reports whether the player has ever occupied p.
func (wl *WorldLine) Contains(p Pos3) bool {
	_, ok := wl.visited[p]
	return ok
}

// ExtendNormal appends a position reached by ordinary play: exactly one
// slice forward and at most one cell of spatial movement (a wait or a
// cardinal step). The world line is unchanged on error.
func (wl *WorldLine) ExtendNormal(next Pos3) error {
	cur, err := wl.Current()
	if err != nil {
		return err
	}
	if next.T != cur.T+1 || Manhattan(cur.Plane(), next.Plane()) > 1 {
		return &InvalidStepError{From: cur, To: next}
	}
	return wl.append(next)
}

// ExtendRift appends a position reached through a rift. Any target is
// geometrically legal; only self-intersection is rejected here.
func (wl *WorldLine) ExtendRift(next Pos3) error {
	if len(wl.path) == 0 {
		return ErrEmptyWorldLine
	}
	return wl.append(next)
}

func (wl *WorldLine) append(next Pos3) error {
	if wl.Contains(next) {
		return &SelfIntersectionError{Pos: next}
	}
	wl.path = append(wl.path, next)
	wl.visited[next] = struct{}{}
	return nil
}

// PositionsAtTime returns every visit the player has made to slice t,
// with the turn of each visit, in turn order. After rifting backward the
// same slice holds several selves.
func (wl *WorldLine) PositionsAtTime(t int) []TurnPos {
	var out []TurnPos
	for turn, p := range wl.path {
		if p.T == t {
			out = append(out, TurnPos{Pos: p, Turn: turn})
		}
	}
	return out
}

// Path returns a copy of the full path in turn order.
func (wl *WorldLine) Path() []Pos3 {
	out := make([]Pos3, len(wl.path))
	copy(out, wl.path)
	return out
}

// TimeRange returns the earliest and latest slice the world line touches.
func (wl *WorldLine) TimeRange() (min, max int, err error) {
	if len(wl.path) == 0 {
		return 0, 0, ErrEmptyWorldLine
	}
	min, max = wl.path[0].T, wl.path[0].T
	for _, p := range wl.path[1:] {
		if p.T < min {
			min = p.T
		}
		if p.T > max {
			max = p.T
		}
	}
	return min, max, nil
}
