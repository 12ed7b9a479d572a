package protocol

// StateView is the client-facing projection of a session. Everything a
// renderer needs, nothing it could cheat with is hidden anyway: the
// whole cube is the player's to inspect.
type StateView struct {
	SessionID string `json:"session_id,omitempty"`
	LevelID   string `json:"level_id"`
	Turn      int    `json:"turn"`
	Phase     string `json:"phase"`
	Status    string `json:"status,omitempty"`
	Energy    int    `json:"energy"`
	Digest    string `json:"digest"`

	Player    Pos3Ref      `json:"player"`
	WorldLine []Pos3Ref    `json:"world_line"`
	Objects   []ObjectView `json:"objects"`

	Detection *DetectionView `json:"detection,omitempty"`
	Paradox   *ParadoxView   `json:"paradox,omitempty"`
}

// ObjectView is one placed object with its per-slice cells. Cells[t] is
// the cell at slice t; a nil entry means the object is absent from that
// slice.
type ObjectView struct {
	ID        string     `json:"id"`
	Archetype string     `json:"archetype"`
	Glyph     string     `json:"glyph,omitempty"`
	Tint      string     `json:"tint,omitempty"`
	Cells     []*CellRef `json:"cells"`
}

// DetectionView reports the sighting that ended the session.
type DetectionView struct {
	Events []DetectionEventView `json:"events"`
}

type DetectionEventView struct {
	EnemyID        string  `json:"enemy_id"`
	EnemyPos       Pos3Ref `json:"enemy_pos"`
	ObservedPlayer Pos3Ref `json:"observed_player"`
	ObservedTurn   int     `json:"observed_turn"`
}

// ParadoxView reports the broken anchors that ended the session.
type ParadoxView struct {
	EarliestSourceTurn int             `json:"earliest_source_turn"`
	Violations         []ViolationView `json:"violations"`
}

type ViolationView struct {
	Code       string   `json:"code"`
	Kind       string   `json:"kind"`
	ObjectID   string   `json:"object_id,omitempty"`
	Pos        Pos3Ref  `json:"pos"`
	SourceTurn int      `json:"source_turn"`
	Actual     *CellRef `json:"actual,omitempty"`
}
