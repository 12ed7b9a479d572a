// Package snapshot serializes a session to disk: a zstd-compressed gob
// document with a JSON header line in front so tooling can identify a
// file without decoding the whole body.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"chronocube.game/internal/sim/game"
	"chronocube.game/internal/sim/paradox"
	"chronocube.game/internal/sim/spacetime"
)

type Header struct {
	Version   int    `json:"version"`
	SessionID string `json:"session_id"`
	LevelID   string `json:"level_id"`
	Turn      int    `json:"turn"`
}

// SnapshotV1 captures everything needed to audit or replay a session:
// the content digests it ran against, the full world line, every
// object's per-slice history, the anchors, and the committed turns.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Phase  string `json:"phase"`
	Status string `json:"status"`
	Energy int    `json:"energy"`
	Digest string `json:"digest"`

	ArchetypesDigest string `json:"archetypes_digest"`
	RulesDigest      string `json:"rules_digest"`
	LevelDigest      string `json:"level_digest"`

	Width     int `json:"width"`
	Height    int `json:"height"`
	TimeDepth int `json:"time_depth"`

	WorldLine []spacetime.Pos3  `json:"world_line"`
	Objects   []ObjectV1        `json:"objects"`
	Anchors   []paradox.Anchor  `json:"anchors"`
	History   []game.TurnRecord `json:"history"`
}

// ObjectV1 is one object's complete occupancy history, one slot per
// slice. Gob cannot carry nil pointers inside slices, so absence is a
// flag rather than a nil.
type ObjectV1 struct {
	ID        string   `json:"id"`
	Archetype string   `json:"archetype"`
	Cells     []CellV1 `json:"cells"`
}

type CellV1 struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Present bool `json:"present"`
}

// FromState projects a session into a snapshot document.
func FromState(sessionID string, s *game.State) SnapshotV1 {
	pack := s.Pack()
	c := s.Cube()
	snap := SnapshotV1{
		Header: Header{
			Version:   1,
			SessionID: sessionID,
			LevelID:   pack.Level.ID,
			Turn:      s.Turn(),
		},
		Phase:  string(s.Phase()),
		Status: s.Status(),
		Energy: s.Energy(),
		Digest: s.Digest(),

		ArchetypesDigest: pack.Archetypes.Digest,
		RulesDigest:      pack.RulesDigest,
		LevelDigest:      pack.LevelDigest,

		Width:     c.Width,
		Height:    c.Height,
		TimeDepth: c.TimeDepth,

		WorldLine: s.WorldLine(),
		Anchors:   s.Anchors(),
		History:   s.History(),
	}
	for _, o := range c.AllObjects() {
		ov := ObjectV1{ID: o.ID, Archetype: o.Archetype.ID, Cells: make([]CellV1, c.TimeDepth)}
		for t := 0; t < c.TimeDepth; t++ {
			if cell, ok := c.CellOf(o.ID, t); ok {
				ov.Cells[t] = CellV1{X: cell.X, Y: cell.Y, Present: true}
			}
		}
		snap.Objects = append(snap.Objects, ov)
	}
	return snap
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body repeats it.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
