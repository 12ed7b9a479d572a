package content

import "testing"

// The shipped pack must load cleanly and carry coherent references.
func TestLoadShippedPack(t *testing.T) {
	p, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load configs: %v", err)
	}
	if len(p.Archetypes.Defs) == 0 {
		t.Fatalf("no archetypes")
	}
	if p.Archetypes.Digest == "" || p.RulesDigest == "" || p.LevelDigest == "" {
		t.Fatalf("missing digests: %q %q %q", p.Archetypes.Digest, p.RulesDigest, p.LevelDigest)
	}
	if p.Level.Width <= 0 || p.Level.Height <= 0 || p.Level.TimeDepth <= 0 {
		t.Fatalf("bad level dimensions: %dx%d depth %d", p.Level.Width, p.Level.Height, p.Level.TimeDepth)
	}
	wall, ok := p.Archetypes.Defs["wall"]
	if !ok {
		t.Fatalf("pack has no wall archetype")
	}
	if !wall.Has(TagBlocksMovement) || !wall.Has(TagBlocksVision) {
		t.Fatalf("wall tags wrong: %v", wall.Tags)
	}
	if p.Rules.MaxPushChain <= 0 {
		t.Fatalf("max push chain default not applied")
	}
	if p.Rules.Detection.DelayTurns < 1 {
		t.Fatalf("detection delay %d < 1", p.Rules.Detection.DelayTurns)
	}
	for _, inst := range p.Level.Instances {
		if _, ok := p.Archetypes.Defs[inst.Archetype]; !ok {
			t.Fatalf("instance %s references unknown archetype %s", inst.ID, inst.Archetype)
		}
	}
}

func TestRulesDefaults(t *testing.T) {
	var r Rules
	r.applyDefaults()
	if r.MaxPushChain != 3 {
		t.Fatalf("max push chain = %d", r.MaxPushChain)
	}
	if r.Rift.DefaultDelta != 2 {
		t.Fatalf("default delta = %d", r.Rift.DefaultDelta)
	}
	if r.Rift.BaseEnergyCost != 2 {
		t.Fatalf("base energy cost = %d", r.Rift.BaseEnergyCost)
	}
	// Detection numbers get no defaults; a zero delay stays zero and
	// marks the detector misconfigured.
	if r.Detection.DelayTurns != 0 || r.Detection.MaxDistance != 0 {
		t.Fatalf("detection numbers rewritten: %+v", r.Detection)
	}
}
