package game

import (
	"testing"

	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/spacetime"
)

func TestMoveAndWait(t *testing.T) {
	s := newSession(t, nil)
	rec := mustApply(t, s, Action{Kind: ActMove, Dir: spacetime.East})
	if rec.Turn != 1 || rec.Outcome.To != (spacetime.Pos3{X: 3, Y: 2, T: 1}) {
		t.Fatalf("rec = %+v", rec)
	}
	rec = mustApply(t, s, Action{Kind: ActWait})
	if rec.Outcome.To != (spacetime.Pos3{X: 3, Y: 2, T: 2}) {
		t.Fatalf("wait landed at %s", rec.Outcome.To)
	}
	if s.Turn() != 2 || s.Phase() != PhasePlaying {
		t.Fatalf("turn=%d phase=%s", s.Turn(), s.Phase())
	}
	if len(s.WorldLine()) != 3 {
		t.Fatalf("world line length = %d", len(s.WorldLine()))
	}
}

func TestMoveIntoWall(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "wall_1", "wall", 3, 2)
	})
	applyExpectCode(t, s, Action{Kind: ActMove, Dir: spacetime.East}, protocol.ErrBlockedByObject)
}

func TestMoveOffBoard(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		p.Level.PlayerSpawn = spacetime.Pos2{X: 0, Y: 0}
	})
	applyExpectCode(t, s, Action{Kind: ActMove, Dir: spacetime.West}, protocol.ErrOutOfBounds)
	applyExpectCode(t, s, Action{Kind: ActMove, Dir: spacetime.North}, protocol.ErrOutOfBounds)
}

func TestTimeBoundary(t *testing.T) {
	s := newSession(t, nil)
	for i := 0; i < 5; i++ {
		mustApply(t, s, Action{Kind: ActWait})
	}
	applyExpectCode(t, s, Action{Kind: ActWait}, protocol.ErrTimeBoundary)
	applyExpectCode(t, s, Action{Kind: ActMove, Dir: spacetime.East}, protocol.ErrTimeBoundary)
}

func TestBadRequestValidation(t *testing.T) {
	s := newSession(t, nil)
	applyExpectCode(t, s, Action{Kind: ActMove}, protocol.ErrBadRequest)
	applyExpectCode(t, s, Action{Kind: ActMove, Dir: spacetime.Dir("UP")}, protocol.ErrBadRequest)
	applyExpectCode(t, s, Action{Kind: ActionKind("FLY")}, protocol.ErrBadRequest)
}

func TestPushSingleCrate(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "crate_1", "crate", 3, 2)
	})
	rec := mustApply(t, s, Action{Kind: ActPush, Dir: spacetime.East})
	if rec.Outcome.To != (spacetime.Pos3{X: 3, Y: 2, T: 1}) {
		t.Fatalf("player at %s", rec.Outcome.To)
	}
	if len(rec.Outcome.Moved) != 1 || rec.Outcome.Moved[0].ID != "crate_1" {
		t.Fatalf("moved = %+v", rec.Outcome.Moved)
	}
	c := s.Cube()
	if cell, _ := c.CellOf("crate_1", 0); cell != (spacetime.Pos2{X: 3, Y: 2}) {
		t.Fatalf("crate history before the push changed: %v", cell)
	}
	for tt := 1; tt < 6; tt++ {
		if cell, _ := c.CellOf("crate_1", tt); cell != (spacetime.Pos2{X: 4, Y: 2}) {
			t.Fatalf("t=%d: crate at %v", tt, cell)
		}
	}
}

func TestPushChainOfThree(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "c1", "crate", 3, 2)
		place(p, "c2", "crate", 4, 2)
		place(p, "c3", "crate", 5, 2)
	})
	rec := mustApply(t, s, Action{Kind: ActPush, Dir: spacetime.East})
	if len(rec.Outcome.Moved) != 3 {
		t.Fatalf("moved = %+v", rec.Outcome.Moved)
	}
	c := s.Cube()
	for id, want := range map[string]spacetime.Pos2{
		"c1": {X: 4, Y: 2}, "c2": {X: 5, Y: 2}, "c3": {X: 6, Y: 2},
	} {
		if cell, _ := c.CellOf(id, 1); cell != want {
			t.Fatalf("%s at %v, want %v", id, cell, want)
		}
	}
}

func TestPushChainTooLong(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "c1", "crate", 3, 2)
		place(p, "c2", "crate", 4, 2)
		place(p, "c3", "crate", 5, 2)
		place(p, "c4", "crate", 6, 2)
	})
	applyExpectCode(t, s, Action{Kind: ActPush, Dir: spacetime.East}, protocol.ErrPushChainTooLong)
}

func TestPushErrors(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "wall_1", "wall", 3, 2)
		place(p, "c_wedged", "crate", 2, 3)
		place(p, "wall_2", "wall", 2, 4)
	})
	// A wall is not pushable.
	applyExpectCode(t, s, Action{Kind: ActPush, Dir: spacetime.East}, protocol.ErrNotPushable)
	// Empty cell: nothing to push.
	applyExpectCode(t, s, Action{Kind: ActPush, Dir: spacetime.West}, protocol.ErrNotPushable)
	// Crate wedged against a wall.
	applyExpectCode(t, s, Action{Kind: ActPush, Dir: spacetime.South}, protocol.ErrNoSpaceToPush)

	// Crate at the board edge has nowhere to go.
	edge := newSession(t, func(p *content.Pack) {
		p.Level.PlayerSpawn = spacetime.Pos2{X: 1, Y: 2}
		place(p, "c_edge", "crate", 0, 2)
	})
	applyExpectCode(t, edge, Action{Kind: ActPush, Dir: spacetime.West}, protocol.ErrNoSpaceToPush)
}

func TestPushOntoOccupiedCellFails(t *testing.T) {
	// The exit does not block movement but still occupies its cell, so
	// a crate cannot be parked on it.
	s := newSession(t, func(p *content.Pack) {
		place(p, "crate_1", "crate", 3, 2)
		place(p, "door", "exit", 4, 2)
	})
	applyExpectCode(t, s, Action{Kind: ActPush, Dir: spacetime.East}, protocol.ErrNoSpaceToPush)
}

func TestPullCrate(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "crate_1", "crate", 1, 2)
	})
	rec := mustApply(t, s, Action{Kind: ActPull, Dir: spacetime.East})
	if rec.Outcome.To != (spacetime.Pos3{X: 3, Y: 2, T: 1}) {
		t.Fatalf("player at %s", rec.Outcome.To)
	}
	// The crate follows into the vacated spawn cell.
	if cell, _ := s.Cube().CellOf("crate_1", 1); cell != (spacetime.Pos2{X: 2, Y: 2}) {
		t.Fatalf("crate at %v", cell)
	}
	if cell, _ := s.Cube().CellOf("crate_1", 0); cell != (spacetime.Pos2{X: 1, Y: 2}) {
		t.Fatalf("crate history before the pull changed: %v", cell)
	}
}

func TestPullErrors(t *testing.T) {
	s := newSession(t, func(p *content.Pack) {
		place(p, "wall_1", "wall", 2, 1)
	})
	// Nothing behind the player.
	applyExpectCode(t, s, Action{Kind: ActPull, Dir: spacetime.East}, protocol.ErrNothingToPull)
	// A wall behind the player cannot be pulled (moving south puts the
	// wall at (2,1) directly behind).
	applyExpectCode(t, s, Action{Kind: ActPull, Dir: spacetime.South}, protocol.ErrNotPullable)
	// Player target blocked: pulling north walks into the wall.
	applyExpectCode(t, s, Action{Kind: ActPull, Dir: spacetime.North}, protocol.ErrBlockedByObject)
}

func TestRiftDefaultJump(t *testing.T) {
	s := newSession(t, nil)
	mustApply(t, s, Action{Kind: ActMove, Dir: spacetime.East})
	mustApply(t, s, Action{Kind: ActMove, Dir: spacetime.East})
	rec := mustApply(t, s, Action{Kind: ActRift})
	if rec.Outcome.To != (spacetime.Pos3{X: 4, Y: 2, T: 0}) {
		t.Fatalf("rift landed at %s", rec.Outcome.To)
	}
	if rec.Outcome.EnergyCost != 2 || s.Energy() != 8 {
		t.Fatalf("energy cost %d, remaining %d", rec.Outcome.EnergyCost, s.Energy())
	}
	// Turns keep counting even though time went backward.
	if s.Turn() != 3 {
		t.Fatalf("turn = %d", s.Turn())
	}
}

func TestRiftSelfIntersection(t *testing.T) {
	s := newSession(t, nil)
	mustApply(t, s, Action{Kind: ActMove, Dir: spacetime.East})
	// Tunneling back onto the spawn cell re-enters the world line.
	applyExpectCode(t, s, Action{Kind: ActRift, Rift: tunnelTo(2, 2, 0)}, protocol.ErrSelfIntersection)
}

func TestRiftErrors(t *testing.T) {
	s := newSession(t, nil)
	// t=0: the default backward jump underflows.
	applyExpectCode(t, s, Action{Kind: ActRift}, protocol.ErrInvalidRiftTarget)
	applyExpectCode(t, s, Action{Kind: ActRift, Rift: tunnelTo(9, 9, 2)}, protocol.ErrInvalidRiftTarget)

	poor := newSession(t, func(p *content.Pack) {
		p.Rules.Rift.InitialEnergy = 1
	})
	mustApply(t, poor, Action{Kind: ActMove, Dir: spacetime.East})
	mustApply(t, poor, Action{Kind: ActMove, Dir: spacetime.East})
	applyExpectCode(t, poor, Action{Kind: ActRift}, protocol.ErrInsufficientEnergy)

	noRift := newSession(t, func(p *content.Pack) {
		p.Rules.Rift.Enabled = false
	})
	mustApply(t, noRift, Action{Kind: ActMove, Dir: spacetime.East})
	applyExpectCode(t, noRift, Action{Kind: ActRift}, protocol.ErrInvalidRiftTarget)
}
