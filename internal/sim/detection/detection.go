// Package detection implements delayed line-of-sight checks. Enemies do
// not see the present: an enemy standing in slice T observes the
// player's world line as it was delayTurns earlier, at T-delayTurns.
// Rifting into an enemy's past is therefore how you get caught.
package detection

import (
	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/cube"
	"chronocube.game/internal/sim/spacetime"
)

// Event is one successful observation.
type Event struct {
	EnemyID        string         `json:"enemy_id"`
	EnemyPos       spacetime.Pos3 `json:"enemy_pos"`
	ObservedPlayer spacetime.Pos3 `json:"observed_player"`
	// ObservedTurn is the turn counter of the player visit that was
	// seen, which after rifts is not the slice index.
	ObservedTurn int `json:"observed_turn"`
}

// Report is the outcome of one evaluation pass.
type Report struct {
	Detected bool    `json:"detected"`
	Events   []Event `json:"events,omitempty"`
}

// Evaluate runs every detector against the world line at currentTime.
// All events are collected, not just the first, so a client can show
// every enemy that saw the player.
func Evaluate(c *cube.TimeCube, wl *spacetime.WorldLine, currentTime int, rules content.DetectionRules) Report {
	if !rules.Enabled {
		return Report{}
	}
	var rep Report
	for _, enemy := range c.AllObjects() {
		if !enemy.Has(content.TagDetector) {
			continue
		}
		cell, ok := c.CellOf(enemy.ID, currentTime)
		if !ok {
			continue
		}
		delay, maxDist := rules.DelayTurns, rules.MaxDistance
		if ov, has := rules.Overrides[enemy.ID]; has {
			if ov.DelayTurns != nil {
				delay = *ov.DelayTurns
			}
			if ov.MaxDistance != nil {
				maxDist = *ov.MaxDistance
			}
		}
		// A delay under one turn or a negative range is a misconfigured
		// detector; it observes nothing rather than something wrong.
		if delay < 1 || maxDist < 0 {
			continue
		}
		observedTime := currentTime - delay
		if observedTime < 0 {
			continue
		}
		enemyPos := cell.At(currentTime)
		for _, visit := range wl.PositionsAtTime(observedTime) {
			if spacetime.Manhattan(cell, visit.Pos.Plane()) > maxDist {
				continue
			}
			if !clearSight(c, cell, visit.Pos.Plane(), currentTime) {
				continue
			}
			rep.Detected = true
			rep.Events = append(rep.Events, Event{
				EnemyID:        enemy.ID,
				EnemyPos:       enemyPos,
				ObservedPlayer: visit.Pos,
				ObservedTurn:   visit.Turn,
			})
		}
	}
	return rep
}

// clearSight reports whether no vision-blocking object stands strictly
// between the two cells. Occlusion is tested in the enemy's slice: what
// stands around the enemy now is what blocks its view into the past.
// The endpoints themselves never occlude.
func clearSight(c *cube.TimeCube, from, to spacetime.Pos2, t int) bool {
	for _, cell := range lineBetween(from, to) {
		if cell == from || cell == to {
			continue
		}
		for _, o := range c.ObjectsAt(cell.At(t)) {
			if o.Has(content.TagBlocksVision) {
				return false
			}
		}
	}
	return true
}

// lineBetween traces the discrete segment from a to b inclusive using
// integer error stepping; an exact diagonal tie advances both axes.
func lineBetween(a, b spacetime.Pos2) []spacetime.Pos2 {
	dx := abs(b.X - a.X)
	dy := abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	x, y := a.X, a.Y
	errv := dx - dy
	cells := make([]spacetime.Pos2, 0, dx+dy+1)
	for {
		cells = append(cells, spacetime.Pos2{X: x, Y: y})
		if x == b.X && y == b.Y {
			return cells
		}
		e2 := 2 * errv
		if e2 > -dy {
			errv -= dy
			x += sx
		}
		if e2 < dx {
			errv += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
