// Command admin inspects a server's recorded data offline: the runs
// index, a single run's turns, and snapshot files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"chronocube.game/internal/persistence/runsdb"
	"chronocube.game/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "runs":
			runsCmd(os.Args[2:])
			return
		case "turns":
			turnsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin {runs|turns|snapshot} [flags]")
	os.Exit(2)
}

func openDB(dataDir string) *runsdb.RunsDB {
	db, err := runsdb.OpenSQLite(filepath.Join(dataDir, "runs.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open runs db:", err)
		os.Exit(1)
	}
	return db
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 20, "max rows")
	asJSON := fs.Bool("json", false, "emit JSON")
	_ = fs.Parse(args)

	db := openDB(*dataDir)
	defer db.Close()

	rows, err := db.RecentRuns(*limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rows)
		return
	}
	for _, r := range rows {
		finished := r.FinishedAt
		if finished == "" {
			finished = "-"
		}
		fmt.Printf("%s level=%s phase=%s turns=%d energy=%d started=%s finished=%s\n",
			r.SessionID, r.LevelID, r.Phase, r.Turns, r.Energy, r.StartedAt, finished)
	}
}

func turnsCmd(args []string) {
	fs := flag.NewFlagSet("turns", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id")
	_ = fs.Parse(args)

	if *sessionID == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}

	db := openDB(*dataDir)
	defer db.Close()

	recs, err := db.TurnsOf(*sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, rec := range recs {
		fmt.Printf("%4d %-20s phase=%-8s %s\n", rec.Turn, rec.Action, rec.Phase, rec.Status)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "path to .snap.zst")
	asJSON := fs.Bool("json", false, "emit the full snapshot as JSON")
	_ = fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
		return
	}
	fmt.Printf("snapshot v%d session=%s level=%s turn=%d phase=%s energy=%d\n",
		snap.Header.Version, snap.Header.SessionID, snap.Header.LevelID,
		snap.Header.Turn, snap.Phase, snap.Energy)
	fmt.Printf("  board %dx%dx%d, %d objects, %d anchors, %d journaled turns\n",
		snap.Width, snap.Height, snap.TimeDepth, len(snap.Objects), len(snap.Anchors), len(snap.History))
	fmt.Printf("  digest %s\n", snap.Digest)
	fmt.Printf("  content archetypes=%s rules=%s level=%s\n",
		snap.ArchetypesDigest, snap.RulesDigest, snap.LevelDigest)
}
