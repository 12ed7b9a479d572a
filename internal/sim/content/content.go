// Package content loads the game's data pack: object archetypes, the
// session rules, and the level layout. Each file is digested so clients
// and replays can verify they run against the same content.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"chronocube.game/internal/sim/spacetime"
)

// Tag is a capability flag on an archetype. Interaction rules key off
// tags, never off archetype ids.
type Tag string

const (
	TagBlocksMovement Tag = "BLOCKS_MOVEMENT"
	TagBlocksVision   Tag = "BLOCKS_VISION"
	TagPushable       Tag = "PUSHABLE"
	TagPullable       Tag = "PULLABLE"
	TagTimePersistent Tag = "TIME_PERSISTENT"
	TagExit           Tag = "EXIT"
	TagDetector       Tag = "DETECTOR"
)

var knownTags = map[Tag]struct{}{
	TagBlocksMovement: {},
	TagBlocksVision:   {},
	TagPushable:       {},
	TagPullable:       {},
	TagTimePersistent: {},
	TagExit:           {},
	TagDetector:       {},
}

// Archetype is a reusable object definition. Glyph and tint are purely
// presentational and passed through to clients untouched.
type Archetype struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"` // "wall","crate","enemy","exit","decor"
	Tags  []Tag  `json:"tags"`
	Glyph string `json:"glyph,omitempty"`
	Tint  string `json:"tint,omitempty"`

	tagSet map[Tag]struct{}
}

// Has reports whether the archetype carries tag.
func (a *Archetype) Has(tag Tag) bool {
	_, ok := a.tagSet[tag]
	return ok
}

// NewArchetype builds an archetype in code. Loaded packs go through
// Load; this is for tests and programmatic levels.
func NewArchetype(id, kind string, tags ...Tag) *Archetype {
	a := &Archetype{ID: id, Kind: kind, Tags: tags}
	a.tagSet = make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		a.tagSet[t] = struct{}{}
	}
	return a
}

// ArchetypeCatalog maps archetype id to definition.
type ArchetypeCatalog struct {
	Defs   map[string]*Archetype
	Digest string
}

// DetectionRules configure the line-of-sight evaluator. DelayTurns is
// how far into the past an enemy sees; MaxDistance caps sight range.
type DetectionRules struct {
	Enabled     bool `json:"enabled"`
	DelayTurns  int  `json:"delay_turns"`
	MaxDistance int  `json:"max_distance"`

	// Overrides replace the global numbers for a specific enemy
	// instance id.
	Overrides map[string]DetectionOverride `json:"overrides,omitempty"`
}

// DetectionOverride is a per-enemy replacement for the global detection
// numbers. Nil fields fall back to the global value.
type DetectionOverride struct {
	DelayTurns  *int `json:"delay_turns,omitempty"`
	MaxDistance *int `json:"max_distance,omitempty"`
}

// RiftRules configure time travel.
type RiftRules struct {
	Enabled        bool `json:"enabled"`
	DefaultDelta   int  `json:"default_delta"`
	BaseEnergyCost int  `json:"base_energy_cost"`
	InitialEnergy  int  `json:"initial_energy"`
}

// ParadoxRules configure causal-consistency checking.
type ParadoxRules struct {
	Enabled bool `json:"enabled"`
}

// Rules is the session rule block, loaded from rules.json.
type Rules struct {
	MaxPushChain int            `json:"max_push_chain"`
	Rift         RiftRules      `json:"rift"`
	Paradox      ParadoxRules   `json:"paradox"`
	Detection    DetectionRules `json:"detection"`
}

func (r *Rules) applyDefaults() {
	if r.MaxPushChain <= 0 {
		r.MaxPushChain = 3
	}
	if r.Rift.DefaultDelta == 0 {
		r.Rift.DefaultDelta = 2
	}
	if r.Rift.BaseEnergyCost <= 0 {
		r.Rift.BaseEnergyCost = 2
	}
	// No detection defaults: a delay under one turn or a negative range
	// marks the detector misconfigured, and the evaluator skips it.
}

// Instance places an archetype in the level. T is the placement slice
// for non-persistent objects; persistent objects ignore it.
type Instance struct {
	ID        string         `json:"id"`
	Archetype string         `json:"archetype"`
	Pos       spacetime.Pos2 `json:"pos"`
	T         int            `json:"t,omitempty"`
	Behavior  *Policy        `json:"behavior,omitempty"`
}

// Level is a playable board: dimensions, spawn, and object placements.
type Level struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	TimeDepth   int             `json:"time_depth"`
	PlayerSpawn spacetime.Pos2  `json:"player_spawn"`
	Instances   []Instance      `json:"instances"`
	Theme       json.RawMessage `json:"theme,omitempty"`
}

// Pack bundles everything a session needs, with per-file digests.
type Pack struct {
	Archetypes ArchetypeCatalog
	Rules      Rules
	Level      Level

	RulesDigest string
	LevelDigest string
}

// Load reads archetypes.json, rules.json, and level.json from dir and
// cross-validates instance references.
func Load(dir string) (*Pack, error) {
	var p Pack

	if err := loadArchetypes(filepath.Join(dir, "archetypes.json"), &p.Archetypes); err != nil {
		return nil, err
	}
	if err := loadRules(filepath.Join(dir, "rules.json"), &p); err != nil {
		return nil, err
	}
	if err := loadLevel(filepath.Join(dir, "level.json"), &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadArchetypes(path string, out *ArchetypeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []*Archetype
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("archetypes.json: %w", err)
	}
	out.Defs = map[string]*Archetype{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("archetypes.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("archetypes.json: duplicate id %q", d.ID)
		}
		d.tagSet = make(map[Tag]struct{}, len(d.Tags))
		for _, t := range d.Tags {
			if _, ok := knownTags[t]; !ok {
				return fmt.Errorf("archetypes.json: %s: unknown tag %q", d.ID, t)
			}
			d.tagSet[t] = struct{}{}
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadRules(path string, p *Pack) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p.RulesDigest = sha256Hex(raw)
	if err := json.Unmarshal(raw, &p.Rules); err != nil {
		return fmt.Errorf("rules.json: %w", err)
	}
	p.Rules.applyDefaults()
	return nil
}

func loadLevel(path string, p *Pack) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p.LevelDigest = sha256Hex(raw)
	if err := json.Unmarshal(raw, &p.Level); err != nil {
		return fmt.Errorf("level.json: %w", err)
	}
	return nil
}

func (p *Pack) validate() error {
	lv := &p.Level
	if lv.Width <= 0 || lv.Height <= 0 {
		return fmt.Errorf("level %s: non-positive board %dx%d", lv.ID, lv.Width, lv.Height)
	}
	if lv.TimeDepth <= 0 {
		return fmt.Errorf("level %s: non-positive time depth %d", lv.ID, lv.TimeDepth)
	}
	if !p.inPlane(lv.PlayerSpawn) {
		return fmt.Errorf("level %s: player spawn %s outside board", lv.ID, lv.PlayerSpawn)
	}
	seen := map[string]struct{}{}
	for i := range lv.Instances {
		inst := &lv.Instances[i]
		if inst.ID == "" {
			return fmt.Errorf("level %s: instance %d: empty id", lv.ID, i)
		}
		if _, dup := seen[inst.ID]; dup {
			return fmt.Errorf("level %s: duplicate instance id %q", lv.ID, inst.ID)
		}
		seen[inst.ID] = struct{}{}
		arch, ok := p.Archetypes.Defs[inst.Archetype]
		if !ok {
			return fmt.Errorf("level %s: instance %s: unknown archetype %q", lv.ID, inst.ID, inst.Archetype)
		}
		if !p.inPlane(inst.Pos) {
			return fmt.Errorf("level %s: instance %s: position %s outside board", lv.ID, inst.ID, inst.Pos)
		}
		if inst.T < 0 || inst.T >= lv.TimeDepth {
			return fmt.Errorf("level %s: instance %s: slice %d outside time depth %d", lv.ID, inst.ID, inst.T, lv.TimeDepth)
		}
		if inst.Behavior != nil {
			if arch.Has(TagTimePersistent) {
				return fmt.Errorf("level %s: instance %s: behavior on a time-persistent archetype", lv.ID, inst.ID)
			}
			if err := inst.Behavior.validate(); err != nil {
				return fmt.Errorf("level %s: instance %s: %w", lv.ID, inst.ID, err)
			}
		}
	}
	if od := p.Rules.Detection.Overrides; od != nil {
		for id := range od {
			if _, ok := seen[id]; !ok {
				return fmt.Errorf("rules: detection override for unknown instance %q", id)
			}
		}
	}
	return nil
}

func (p *Pack) inPlane(c spacetime.Pos2) bool {
	return c.X >= 0 && c.X < p.Level.Width && c.Y >= 0 && c.Y < p.Level.Height
}
