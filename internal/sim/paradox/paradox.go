// Package paradox tracks causal anchors and checks them against the
// current timeline. An anchor is a fact the player's history depends on:
// "I was here", "that crate was there". When an edit to the past breaks
// an anchored fact at or after the edited slice, the timeline is
// inconsistent and the session ends in paradox.
package paradox

import (
	"fmt"
	"sort"

	"chronocube.game/internal/sim/cube"
	"chronocube.game/internal/sim/spacetime"
)

// Kind distinguishes what an anchor pins down.
type Kind string

const (
	// PlayerAt pins the player's presence in a spacetime cell.
	PlayerAt Kind = "PLAYER_AT"
	// ObjectAt pins an object's presence in a spacetime cell.
	ObjectAt Kind = "OBJECT_AT"
)

// Violation codes.
const (
	ViolationPlayerMissing  = "PLAYER_MISSING"
	ViolationObjectMissing  = "OBJECT_MISSING"
	ViolationObjectMismatch = "OBJECT_MISMATCH"
)

// Anchor is one causal fact. SourceTurn is the turn that established it;
// when the same fact is derived again later, the earliest turn wins.
type Anchor struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	ObjectID   string         `json:"object_id,omitempty"`
	Pos        spacetime.Pos3 `json:"pos"`
	SourceTurn int            `json:"source_turn"`
}

// Key is the structural identity of the anchored fact. Two anchors with
// the same key are the same fact regardless of when they were derived.
func (a Anchor) Key() string {
	if a.Kind == PlayerAt {
		return fmt.Sprintf("player@%d,%d,%d", a.Pos.X, a.Pos.Y, a.Pos.T)
	}
	return fmt.Sprintf("object:%s@%d,%d,%d", a.ObjectID, a.Pos.X, a.Pos.Y, a.Pos.T)
}

// NewPlayerAnchor pins the player at pos, derived on turn.
func NewPlayerAnchor(pos spacetime.Pos3, turn int) Anchor {
	a := Anchor{Kind: PlayerAt, Pos: pos, SourceTurn: turn}
	a.ID = a.Key()
	return a
}

// NewObjectAnchor pins object id at pos, derived on turn.
func NewObjectAnchor(objectID string, pos spacetime.Pos3, turn int) Anchor {
	a := Anchor{Kind: ObjectAt, ObjectID: objectID, Pos: pos, SourceTurn: turn}
	a.ID = a.Key()
	return a
}

// Set is the deduplicated anchor collection for a session.
type Set struct {
	byKey map[string]Anchor
}

// NewSet returns an empty anchor set.
func NewSet() *Set {
	return &Set{byKey: map[string]Anchor{}}
}

// Merge folds anchors in. A new fact is added; a repeated fact keeps the
// smaller source turn.
func (s *Set) Merge(anchors ...Anchor) {
	for _, a := range anchors {
		k := a.Key()
		if prev, ok := s.byKey[k]; ok {
			if a.SourceTurn < prev.SourceTurn {
				s.byKey[k] = a
			}
			continue
		}
		s.byKey[k] = a
	}
}

// Len is the number of distinct anchored facts.
func (s *Set) Len() int { return len(s.byKey) }

// All returns every anchor ordered by (time, key) for deterministic
// evaluation and export.
func (s *Set) All() []Anchor {
	out := make([]Anchor, 0, len(s.byKey))
	for _, a := range s.byKey {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.T != out[j].Pos.T {
			return out[i].Pos.T < out[j].Pos.T
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FromTime returns the anchors whose pinned slice is at or after t.
func (s *Set) FromTime(t int) []Anchor {
	var out []Anchor
	for _, a := range s.All() {
		if a.Pos.T >= t {
			out = append(out, a)
		}
	}
	return out
}

// Violation is one broken anchor.
type Violation struct {
	Anchor Anchor `json:"anchor"`
	Code   string `json:"code"`
	// Actual is where the object really is in the anchored slice, set
	// for OBJECT_MISMATCH.
	Actual *spacetime.Pos2 `json:"actual,omitempty"`
}

// Report is the outcome of one evaluation pass.
type Report struct {
	Paradox    bool        `json:"paradox"`
	Violations []Violation `json:"violations,omitempty"`
	// EarliestSourceTurn is the lowest source turn among the broken
	// anchors, i.e. how far back the player's cause was.
	EarliestSourceTurn int `json:"earliest_source_turn,omitempty"`
}

// Config switches evaluation on or off.
type Config struct {
	Enabled bool
}

// Evaluate checks every anchor pinned at or after checkedFromTime
// against the cube and world line. Slices before checkedFromTime cannot
// have changed and are skipped.
func Evaluate(c *cube.TimeCube, wl *spacetime.WorldLine, s *Set, checkedFromTime int, cfg Config) Report {
	if !cfg.Enabled {
		return Report{}
	}
	var rep Report
	for _, a := range s.FromTime(checkedFromTime) {
		v, broken := check(c, wl, a)
		if !broken {
			continue
		}
		rep.Violations = append(rep.Violations, v)
		if !rep.Paradox || a.SourceTurn < rep.EarliestSourceTurn {
			rep.EarliestSourceTurn = a.SourceTurn
		}
		rep.Paradox = true
	}
	return rep
}

func check(c *cube.TimeCube, wl *spacetime.WorldLine, a Anchor) (Violation, bool) {
	switch a.Kind {
	case PlayerAt:
		if wl.Contains(a.Pos) {
			return Violation{}, false
		}
		return Violation{Anchor: a, Code: ViolationPlayerMissing}, true
	case ObjectAt:
		cell, ok := c.CellOf(a.ObjectID, a.Pos.T)
		if !ok {
			return Violation{Anchor: a, Code: ViolationObjectMissing}, true
		}
		if cell != a.Pos.Plane() {
			actual := cell
			return Violation{Anchor: a, Code: ViolationObjectMismatch, Actual: &actual}, true
		}
		return Violation{}, false
	}
	return Violation{}, false
}
