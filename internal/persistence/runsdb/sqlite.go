// Package runsdb maintains a queryable SQLite index of sessions: one
// row per run, one per committed turn, plus the content digests each
// run was played against. Writes go through a buffered channel and a
// single writer goroutine so the simulation never blocks on disk; the
// turn journal stays the source of truth if the indexer falls behind.
package runsdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/game"
)

type RunsDB struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqRun
	reqSnapshot
)

type req struct {
	kind reqKind

	turn     turnRow
	run      RunRow
	snapshot snapshotRow

	// flush, when set, asks the writer to commit and signal.
	flush chan struct{}
}

type turnRow struct {
	SessionID string
	Turn      int
	Kind      string
	Phase     string
	Status    string
	Digest    string
	RawJSON   []byte
}

// RunRow is one session's summary, written at start and overwritten as
// the phase settles.
type RunRow struct {
	SessionID  string
	LevelID    string
	Phase      string
	Turns      int
	Energy     int
	Digest     string
	StartedAt  string
	FinishedAt string
}

type snapshotRow struct {
	SessionID string
	Turn      int
	Path      string
}

func OpenSQLite(path string) (*RunsDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &RunsDB{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS content (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			session_id TEXT PRIMARY KEY,
			level_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			turns INTEGER NOT NULL,
			energy INTEGER NOT NULL,
			digest TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_level ON runs(level_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			kind TEXT NOT NULL,
			phase TEXT NOT NULL,
			status TEXT,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session_id, turn)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			session_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (session_id, turn)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *RunsDB) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteTurn queues one committed turn. Drops when the buffer is full;
// the journal keeps the full record.
func (s *RunsDB) WriteTurn(sessionID string, rec game.TurnRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	r := turnRow{
		SessionID: sessionID,
		Turn:      rec.Turn,
		Kind:      string(rec.Action.Kind),
		Phase:     string(rec.Phase),
		Status:    rec.Status,
		Digest:    rec.Digest,
		RawJSON:   raw,
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: r}:
	default:
	}
	return nil
}

// RecordRun queues a run summary upsert.
func (s *RunsDB) RecordRun(row RunRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqRun, run: row}:
	default:
	}
}

// RecordSnapshot queues a snapshot file reference.
func (s *RunsDB) RecordSnapshot(sessionID string, turn int, path string) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: snapshotRow{SessionID: sessionID, Turn: turn, Path: path}}:
	default:
	}
}

// UpsertContent stores the pack files and digests the server is running
// so a run can always be matched back to its exact content.
func (s *RunsDB) UpsertContent(configDir string, pack *content.Pack) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	read := func(name, digest, file string) {
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	if configDir != "" {
		read("archetypes", pack.Archetypes.Digest, "archetypes.json")
		read("rules", pack.RulesDigest, "rules.json")
		read("level", pack.LevelDigest, "level.json")
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO content(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentRuns returns the newest run summaries, most recent first.
func (s *RunsDB) RecentRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT session_id, level_id, phase, turns, energy, digest, started_at, COALESCE(finished_at,'')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.SessionID, &r.LevelID, &r.Phase, &r.Turns, &r.Energy, &r.Digest, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TurnsOf returns a session's indexed turns in order.
func (s *RunsDB) TurnsOf(sessionID string) ([]game.TurnRecord, error) {
	rows, err := s.db.Query(`SELECT raw_json FROM turns WHERE session_id = ? ORDER BY turn`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []game.TurnRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec game.TurnRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Flush blocks until every queued write is committed. Test and shutdown
// helper.
func (s *RunsDB) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{flush: done}
	<-done
}

func (s *RunsDB) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(session_id,turn,kind,phase,status,digest,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(session_id,level_id,phase,turns,energy,digest,started_at,finished_at) VALUES(?,?,?,?,?,?,?,NULLIF(?,''))`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(session_id,turn,path) VALUES(?,?,?)`)
	defer func() {
		if insertTurn != nil {
			_ = insertTurn.Close()
		}
		if insertRun != nil {
			_ = insertRun.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.flush != nil {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			if insertTurn != nil {
				if _, err := tx.Stmt(insertTurn).Exec(
					t.SessionID, t.Turn, t.Kind, t.Phase, t.Status, t.Digest, string(t.RawJSON),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		case reqRun:
			rr := r.run
			if insertRun != nil {
				if _, err := tx.Stmt(insertRun).Exec(
					rr.SessionID, rr.LevelID, rr.Phase, rr.Turns, rr.Energy, rr.Digest, rr.StartedAt, rr.FinishedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(sn.SessionID, sn.Turn, sn.Path); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
