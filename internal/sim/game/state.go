// Package game ties the simulation together: it bootstraps a session
// from a content pack, dispatches interactions, and runs the per-turn
// pipeline of anchor derivation, paradox checking, win detection, and
// enemy sight.
package game

import (
	"fmt"

	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/cube"
	"chronocube.game/internal/sim/detection"
	"chronocube.game/internal/sim/paradox"
	"chronocube.game/internal/sim/rift"
	"chronocube.game/internal/sim/spacetime"
)

// Phase is the session lifecycle. Won, Detected, and Paradox are
// terminal: only RESTART is accepted afterwards.
type Phase string

const (
	PhasePlaying  Phase = "PLAYING"
	PhaseWon      Phase = "WON"
	PhaseDetected Phase = "DETECTED"
	PhaseParadox  Phase = "PARADOX"
)

// Terminal reports whether the phase ends the session.
func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseDetected || p == PhaseParadox
}

// State is one running session. It is not safe for concurrent use; the
// transport serializes access.
type State struct {
	pack *content.Pack

	cube    *cube.TimeCube
	wl      *spacetime.WorldLine
	anchors *paradox.Set

	turn   int
	phase  Phase
	status string
	energy int

	riftSettings rift.Settings

	lastDetection *detection.Report
	lastParadox   *paradox.Report

	history      []TurnRecord
	historyLimit int
}

// New bootstraps a session from a loaded pack: builds the cube, projects
// behavior-driven instances into every slice, and seeds the spawn
// anchor.
func New(pack *content.Pack) (*State, error) {
	s := &State{pack: pack}
	if err := s.bootstrap(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) bootstrap() error {
	lv := &s.pack.Level
	c := cube.New(lv.Width, lv.Height, lv.TimeDepth)

	for i := range lv.Instances {
		inst := &lv.Instances[i]
		arch := s.pack.Archetypes.Defs[inst.Archetype]
		obj := &cube.Object{
			ID:        inst.ID,
			Archetype: arch,
			Pos:       inst.Pos.At(inst.T),
		}
		if inst.Behavior != nil {
			cells := make([]spacetime.Pos2, lv.TimeDepth)
			origin := content.Cell{X: inst.Pos.X, Y: inst.Pos.Y}
			for t := range cells {
				cell := inst.Behavior.CellAt(origin, t)
				cells[t] = spacetime.Pos2{X: cell.X, Y: cell.Y}
			}
			if err := c.PlaceProjected(obj, cells); err != nil {
				return fmt.Errorf("instance %s: %w", inst.ID, err)
			}
			continue
		}
		if err := c.Place(obj); err != nil {
			return fmt.Errorf("instance %s: %w", inst.ID, err)
		}
	}

	spawn := lv.PlayerSpawn.At(0)
	if c.IsBlocked(spawn, nil) {
		return fmt.Errorf("level %s: player spawn %s is blocked", lv.ID, spawn)
	}

	s.cube = c
	s.wl = spacetime.NewWorldLine(spawn)
	s.anchors = paradox.NewSet()
	s.anchors.Merge(paradox.NewPlayerAnchor(spawn, 0))
	s.turn = 0
	s.phase = PhasePlaying
	s.status = fmt.Sprintf("turn 0: spawned at %s", spawn)
	s.energy = s.pack.Rules.Rift.InitialEnergy
	s.riftSettings = rift.Settings{
		Enabled:        s.pack.Rules.Rift.Enabled,
		DefaultDelta:   s.pack.Rules.Rift.DefaultDelta,
		BaseEnergyCost: s.pack.Rules.Rift.BaseEnergyCost,
	}
	s.lastDetection = nil
	s.lastParadox = nil
	s.history = nil
	return nil
}

// restart rebuilds the session from the pack. Anchors, the world line,
// energy, and the phase all reset; the turn counter starts over.
func (s *State) restart() error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	s.status = "session restarted"
	return nil
}

// Accessors used by the view, persistence, and tests.

func (s *State) Turn() int      { return s.turn }
func (s *State) Phase() Phase   { return s.phase }
func (s *State) Status() string { return s.status }
func (s *State) Energy() int    { return s.energy }
func (s *State) Level() *content.Level {
	return &s.pack.Level
}
func (s *State) Pack() *content.Pack { return s.pack }

// Player returns the player's current spacetime position.
func (s *State) Player() spacetime.Pos3 {
	p, err := s.wl.Current()
	if err != nil {
		// The world line is seeded at bootstrap; an empty one here is a
		// programming error.
		panic(err)
	}
	return p
}

// WorldLine returns the full path in turn order.
func (s *State) WorldLine() []spacetime.Pos3 { return s.wl.Path() }

// Cube exposes the occupancy index read-only by convention.
func (s *State) Cube() *cube.TimeCube { return s.cube }

// Anchors returns the accumulated causal anchors, ordered.
func (s *State) Anchors() []paradox.Anchor { return s.anchors.All() }

// History returns the retained turn records, oldest first. With a
// history limit set, older records have been dropped; the journal keeps
// the full run.
func (s *State) History() []TurnRecord { return s.history }

// SetHistoryLimit caps how many turn records the state retains. Zero or
// negative means unlimited. The limit survives restarts.
func (s *State) SetHistoryLimit(n int) { s.historyLimit = n }

func (s *State) appendHistory(rec TurnRecord) {
	s.history = append(s.history, rec)
	if s.historyLimit > 0 && len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
}

// LastDetection returns the report that ended the session, if any.
func (s *State) LastDetection() *detection.Report { return s.lastDetection }

// LastParadox returns the report that ended the session, if any.
func (s *State) LastParadox() *paradox.Report { return s.lastParadox }

func (s *State) bounds() rift.Bounds {
	return rift.Bounds{Width: s.cube.Width, Height: s.cube.Height, TimeDepth: s.cube.TimeDepth}
}
