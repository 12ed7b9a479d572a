package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"chronocube.game/internal/persistence/archive"
	persistlog "chronocube.game/internal/persistence/log"
	"chronocube.game/internal/persistence/runsdb"
	"chronocube.game/internal/persistence/snapshot"
	"chronocube.game/internal/sim/game"
	"chronocube.game/internal/sim/tuning"
)

// persistSink fans every committed turn out to the turn journal, the
// runs index, and the snapshot writer. It runs inline with the session
// lock, so everything here must stay cheap; the runs index already
// buffers internally and the journal write is a compressed append.
type persistSink struct {
	dataDir string
	tune    tuning.Tuning
	runs    *runsdb.RunsDB
	log     *log.Logger

	mu      sync.Mutex
	journal *persistlog.TurnLogger
	started map[string]string // sessionID -> start timestamp

	turns    atomic.Uint64
	finished atomic.Uint64
}

func newPersistSink(dataDir string, tune tuning.Tuning, runs *runsdb.RunsDB, logger *log.Logger) *persistSink {
	s := &persistSink{
		dataDir: dataDir,
		tune:    tune,
		runs:    runs,
		log:     logger,
		started: make(map[string]string),
	}
	if tune.TurnLogEnabled {
		s.journal = persistlog.NewTurnLogger(dataDir)
	}
	return s
}

func (s *persistSink) OnTurn(sessionID string, rec game.TurnRecord, st *game.State) {
	s.turns.Add(1)

	s.mu.Lock()
	startedAt, ok := s.started[sessionID]
	if !ok {
		startedAt = time.Now().UTC().Format(time.RFC3339Nano)
		s.started[sessionID] = startedAt
	}
	if s.journal != nil {
		if err := s.journal.WriteTurn(persistlog.TurnEntry{SessionID: sessionID, Record: rec}); err != nil {
			s.log.Printf("turn journal: %v", err)
		}
	}
	s.mu.Unlock()

	terminal := rec.Phase.Terminal()

	if s.runs != nil {
		if err := s.runs.WriteTurn(sessionID, rec); err != nil {
			s.log.Printf("runs db: %v", err)
		}
		row := runsdb.RunRow{
			SessionID: sessionID,
			LevelID:   st.Pack().Level.ID,
			Phase:     string(rec.Phase),
			Turns:     rec.Turn,
			Energy:    st.Energy(),
			Digest:    rec.Digest,
			StartedAt: startedAt,
		}
		if terminal {
			row.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
		}
		s.runs.RecordRun(row)
	}

	if terminal || (s.tune.SnapshotEveryTurns > 0 && rec.Turn%s.tune.SnapshotEveryTurns == 0) {
		s.writeSnapshot(sessionID, rec, st, terminal)
	}

	if terminal {
		s.finished.Add(1)
		s.mu.Lock()
		delete(s.started, sessionID)
		s.mu.Unlock()
	}
}

func (s *persistSink) writeSnapshot(sessionID string, rec game.TurnRecord, st *game.State, terminal bool) {
	snap := snapshot.FromState(sessionID, st)
	path := filepath.Join(s.dataDir, "snapshots", sessionID, fmt.Sprintf("turn-%d.snap.zst", rec.Turn))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		s.log.Printf("snapshot write: %v", err)
		return
	}
	if s.runs != nil {
		s.runs.RecordSnapshot(sessionID, rec.Turn, path)
	}
	if terminal {
		if _, ok, err := archive.ArchiveRunSnapshot(s.dataDir, path, snap); err != nil {
			s.log.Printf("archive run: %v", err)
		} else if ok {
			s.log.Printf("archived run %s (%s after %d turns)", sessionID, rec.Phase, rec.Turn)
		}
	}
}

func (s *persistSink) Turns() uint64    { return s.turns.Load() }
func (s *persistSink) Finished() uint64 { return s.finished.Load() }

func (s *persistSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		_ = s.journal.Close()
	}
}
