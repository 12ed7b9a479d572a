package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"chronocube.game/internal/persistence/snapshot"
	"chronocube.game/internal/sim/game"
)

type RunArchiveMeta struct {
	SessionID string `json:"session_id"`
	LevelID   string `json:"level_id"`
	Phase     string `json:"phase"`
	EndTurn   int    `json:"end_turn"`
	Digest    string `json:"digest"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveRunSnapshot copies a finished run's final snapshot into
// `dataDir/archives/run_<sessionID>/`. It returns (archivedPath,
// archived=true) only when the snapshot's phase is terminal; mid-run
// snapshots are left where they are.
func ArchiveRunSnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if !game.Phase(snap.Phase).Terminal() {
		return "", false, nil
	}
	if snap.Header.SessionID == "" {
		return "", false, nil
	}

	archiveDir := filepath.Join(dataDir, "archives", "run_"+snap.Header.SessionID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := RunArchiveMeta{
		SessionID: snap.Header.SessionID,
		LevelID:   snap.Header.LevelID,
		Phase:     snap.Phase,
		EndTurn:   snap.Header.Turn,
		Digest:    snap.Digest,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
