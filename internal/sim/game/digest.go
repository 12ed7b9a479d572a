package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"chronocube.game/internal/sim/spacetime"
)

// digestDoc is the canonical state projection that gets hashed. Field
// order is fixed by the struct, object order by id, so two sessions that
// replayed the same actions over the same pack hash identically.
type digestDoc struct {
	LevelID   string           `json:"level_id"`
	Turn      int              `json:"turn"`
	Phase     Phase            `json:"phase"`
	Energy    int              `json:"energy"`
	WorldLine []spacetime.Pos3 `json:"world_line"`
	Objects   []digestObject   `json:"objects"`
}

type digestObject struct {
	ID    string            `json:"id"`
	Cells []*spacetime.Pos2 `json:"cells"`
}

// Digest returns the sha256 hex of the canonical state, covering the
// world line, every object's full per-slice history, energy, and phase.
func (s *State) Digest() string {
	doc := digestDoc{
		LevelID:   s.pack.Level.ID,
		Turn:      s.turn,
		Phase:     s.phase,
		Energy:    s.energy,
		WorldLine: s.wl.Path(),
	}
	for _, o := range s.cube.AllObjects() {
		d := digestObject{ID: o.ID, Cells: make([]*spacetime.Pos2, s.cube.TimeDepth)}
		for t := 0; t < s.cube.TimeDepth; t++ {
			if cell, ok := s.cube.CellOf(o.ID, t); ok {
				c := cell
				d.Cells[t] = &c
			}
		}
		doc.Objects = append(doc.Objects, d)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
