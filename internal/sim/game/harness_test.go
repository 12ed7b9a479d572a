package game

import (
	"errors"
	"testing"

	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/rift"
	"chronocube.game/internal/sim/spacetime"
)

func tunnelTo(x, y, tt int) *rift.Instruction {
	return &rift.Instruction{
		Mode:   rift.ModeTunnel,
		Target: spacetime.Pos3{X: x, Y: y, T: tt},
	}
}

// testPack builds an 8x8x6 session pack in code: spawn at (2,2), rift
// enabled with 10 energy, paradox on, detection off unless a test turns
// it on.
func testPack(mod func(*content.Pack)) *content.Pack {
	p := &content.Pack{
		Archetypes: content.ArchetypeCatalog{
			Defs: map[string]*content.Archetype{
				"wall": content.NewArchetype("wall", "wall",
					content.TagBlocksMovement, content.TagBlocksVision, content.TagTimePersistent),
				"crate": content.NewArchetype("crate", "crate",
					content.TagBlocksMovement, content.TagPushable, content.TagPullable, content.TagTimePersistent),
				"exit": content.NewArchetype("exit", "exit",
					content.TagExit, content.TagTimePersistent),
				"guard": content.NewArchetype("guard", "enemy",
					content.TagDetector, content.TagBlocksMovement),
			},
			Digest: "test",
		},
		Rules: content.Rules{
			MaxPushChain: 3,
			Rift: content.RiftRules{
				Enabled:        true,
				DefaultDelta:   2,
				BaseEnergyCost: 2,
				InitialEnergy:  10,
			},
			Paradox:   content.ParadoxRules{Enabled: true},
			Detection: content.DetectionRules{Enabled: false, DelayTurns: 1, MaxDistance: 5},
		},
		Level: content.Level{
			ID:          "test_level",
			Width:       8,
			Height:      8,
			TimeDepth:   6,
			PlayerSpawn: spacetime.Pos2{X: 2, Y: 2},
		},
		RulesDigest: "test",
		LevelDigest: "test",
	}
	if mod != nil {
		mod(p)
	}
	return p
}

func place(p *content.Pack, id, archetype string, x, y int) {
	p.Level.Instances = append(p.Level.Instances, content.Instance{
		ID: id, Archetype: archetype, Pos: spacetime.Pos2{X: x, Y: y},
	})
}

func placeStaticGuard(p *content.Pack, id string, x, y int) {
	p.Level.Instances = append(p.Level.Instances, content.Instance{
		ID: id, Archetype: "guard", Pos: spacetime.Pos2{X: x, Y: y},
		Behavior: &content.Policy{Kind: content.PolicyStatic},
	})
}

func newSession(t *testing.T, mod func(*content.Pack)) *State {
	t.Helper()
	s, err := New(testPack(mod))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func mustApply(t *testing.T, s *State, a Action) TurnRecord {
	t.Helper()
	rec, err := s.Apply(a)
	if err != nil {
		t.Fatalf("apply %s: %v", a, err)
	}
	return rec
}

func applyExpectCode(t *testing.T, s *State, a Action, code string) {
	t.Helper()
	before := s.Digest()
	_, err := s.Apply(a)
	var ae *ActionError
	if !errors.As(err, &ae) {
		t.Fatalf("apply %s: err = %v, want ActionError", a, err)
	}
	if ae.Code != code {
		t.Fatalf("apply %s: code = %s, want %s", a, ae.Code, code)
	}
	if s.Digest() != before {
		t.Fatalf("apply %s: state mutated on rejected action", a)
	}
}
