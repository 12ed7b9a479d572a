package runsdb

import (
	"path/filepath"
	"testing"

	"chronocube.game/internal/sim/game"
	"chronocube.game/internal/sim/spacetime"
)

func TestRunsAndTurnsRoundTrip(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	rec1 := game.TurnRecord{
		Turn:   1,
		Action: game.Action{Kind: game.ActMove, Dir: spacetime.East},
		Outcome: game.Outcome{
			Kind: game.ActMove,
			From: spacetime.Pos3{X: 2, Y: 2, T: 0},
			To:   spacetime.Pos3{X: 3, Y: 2, T: 1},
		},
		Phase:  game.PhasePlaying,
		Status: "turn 1: moved EAST to (3,2)@1",
		Digest: "aaaa",
	}
	rec2 := rec1
	rec2.Turn = 2
	rec2.Action = game.Action{Kind: game.ActWait}
	rec2.Outcome.Kind = game.ActWait
	rec2.Digest = "bbbb"

	if err := db.WriteTurn("sess-1", rec1); err != nil {
		t.Fatalf("write turn: %v", err)
	}
	if err := db.WriteTurn("sess-1", rec2); err != nil {
		t.Fatalf("write turn: %v", err)
	}
	db.RecordRun(RunRow{
		SessionID: "sess-1",
		LevelID:   "facility-07",
		Phase:     string(game.PhasePlaying),
		Turns:     2,
		Energy:    8,
		Digest:    "bbbb",
		StartedAt: "2026-08-26T10:00:00Z",
	})
	db.RecordSnapshot("sess-1", 2, "snapshots/sess-1/turn-2.snap.zst")
	db.Flush()

	turns, err := db.TurnsOf("sess-1")
	if err != nil {
		t.Fatalf("turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Turn != 1 || turns[1].Turn != 2 {
		t.Fatalf("turn order wrong: %d, %d", turns[0].Turn, turns[1].Turn)
	}
	if turns[0].Action.Kind != game.ActMove || turns[0].Outcome.To.X != 3 {
		t.Fatalf("turn 1 record mangled: %+v", turns[0])
	}
	if turns[1].Digest != "bbbb" {
		t.Fatalf("turn 2 digest: %q", turns[1].Digest)
	}

	runs, err := db.RecentRuns(10)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].LevelID != "facility-07" || runs[0].Turns != 2 || runs[0].FinishedAt != "" {
		t.Fatalf("run row mangled: %+v", runs[0])
	}

	// Overwrite on terminal phase.
	db.RecordRun(RunRow{
		SessionID:  "sess-1",
		LevelID:    "facility-07",
		Phase:      string(game.PhaseWon),
		Turns:      3,
		Energy:     8,
		Digest:     "cccc",
		StartedAt:  "2026-08-26T10:00:00Z",
		FinishedAt: "2026-08-26T10:05:00Z",
	})
	db.Flush()
	runs, err = db.RecentRuns(10)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Phase != string(game.PhaseWon) || runs[0].FinishedAt == "" {
		t.Fatalf("run upsert failed: %+v", runs)
	}
}
