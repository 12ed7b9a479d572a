package archive

import (
	"os"
	"path/filepath"
	"testing"

	"chronocube.game/internal/persistence/snapshot"
	"chronocube.game/internal/sim/game"
)

func TestArchiveRunSnapshot_CopiesTerminalSnapshot(t *testing.T) {
	dataDir := t.TempDir()

	src := filepath.Join(dataDir, "snapshots", "sess-1", "turn-9.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, SessionID: "sess-1", LevelID: "facility-07", Turn: 9},
		Phase:  string(game.PhaseWon),
		Digest: "deadbeef",
	}

	archivedPath, ok, err := ArchiveRunSnapshot(dataDir, src, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}

	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	metaPath := filepath.Join(filepath.Dir(archivedPath), "meta.json")
	if _, err := os.Stat(metaPath); err != nil {
		t.Fatalf("expected meta.json to exist: %v", err)
	}
}

func TestArchiveRunSnapshot_SkipsLiveRun(t *testing.T) {
	dataDir := t.TempDir()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, SessionID: "sess-1", LevelID: "facility-07", Turn: 3},
		Phase:  string(game.PhasePlaying),
	}
	_, ok, err := ArchiveRunSnapshot(dataDir, "nonexistent", snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if ok {
		t.Fatalf("expected archived=false for a live run")
	}
}
