package cube

import (
	"errors"
	"testing"

	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/spacetime"
)

func TestPlaceMirrorsPersistentObjects(t *testing.T) {
	c := New(8, 8, 6)
	crate := &Object{
		ID:        "crate_1",
		Archetype: content.NewArchetype("crate", "crate", content.TagBlocksMovement, content.TagPushable, content.TagTimePersistent),
		Pos:       spacetime.Pos3{X: 3, Y: 2, T: 0},
	}
	if err := c.Place(crate); err != nil {
		t.Fatalf("place: %v", err)
	}
	for tt := 0; tt < 6; tt++ {
		cell, ok := c.CellOf("crate_1", tt)
		if !ok || cell != (spacetime.Pos2{X: 3, Y: 2}) {
			t.Fatalf("t=%d: crate at %v ok=%v", tt, cell, ok)
		}
	}
}

func TestPlaceSliceLocalObject(t *testing.T) {
	c := New(8, 8, 6)
	mark := &Object{
		ID:        "mark",
		Archetype: content.NewArchetype("marker", "decor"),
		Pos:       spacetime.Pos3{X: 1, Y: 1, T: 2},
	}
	if err := c.Place(mark); err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, ok := c.CellOf("mark", 2); !ok {
		t.Fatalf("marker missing from its placement slice")
	}
	if _, ok := c.CellOf("mark", 3); ok {
		t.Fatalf("slice-local marker leaked into t=3")
	}
}

func TestPlaceRejectsDuplicatesAndBounds(t *testing.T) {
	c := New(4, 4, 2)
	wallArch := content.NewArchetype("wall", "wall", content.TagBlocksMovement, content.TagTimePersistent)
	if err := c.Place(&Object{ID: "w", Archetype: wallArch, Pos: spacetime.Pos3{X: 0, Y: 0, T: 0}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	err := c.Place(&Object{ID: "w", Archetype: wallArch, Pos: spacetime.Pos3{X: 1, Y: 0, T: 0}})
	var dup *DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("duplicate id: err = %v", err)
	}
	err = c.Place(&Object{ID: "w2", Archetype: wallArch, Pos: spacetime.Pos3{X: 4, Y: 0, T: 0}})
	var oob *OutOfBoundsError
	if !errors.As(err, &oob) {
		t.Fatalf("out of bounds: err = %v", err)
	}
}

func TestPlaceProjected(t *testing.T) {
	c := New(8, 8, 4)
	enemy := &Object{
		ID:        "guard_1",
		Archetype: content.NewArchetype("guard", "enemy", content.TagDetector, content.TagBlocksMovement),
		Pos:       spacetime.Pos3{X: 5, Y: 1, T: 0},
	}
	cells := []spacetime.Pos2{{X: 5, Y: 1}, {X: 5, Y: 2}, {X: 5, Y: 3}, {X: 5, Y: 2}}
	if err := c.PlaceProjected(enemy, cells); err != nil {
		t.Fatalf("place projected: %v", err)
	}
	for tt, want := range cells {
		cell, ok := c.CellOf("guard_1", tt)
		if !ok || cell != want {
			t.Fatalf("t=%d: guard at %v, want %v", tt, cell, want)
		}
	}
	if err := c.PlaceProjected(enemy, cells[:2]); err == nil {
		t.Fatalf("short projection accepted")
	}
}

func TestIsBlockedHonorsExceptions(t *testing.T) {
	c := New(8, 8, 3)
	crateArch := content.NewArchetype("crate", "crate", content.TagBlocksMovement, content.TagPushable, content.TagTimePersistent)
	if err := c.Place(&Object{ID: "c1", Archetype: crateArch, Pos: spacetime.Pos3{X: 2, Y: 2, T: 0}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	p := spacetime.Pos3{X: 2, Y: 2, T: 1}
	if !c.IsBlocked(p, nil) {
		t.Fatalf("crate cell not blocked")
	}
	if c.IsBlocked(p, map[string]struct{}{"c1": {}}) {
		t.Fatalf("exception ignored")
	}
	exitArch := content.NewArchetype("exit", "exit", content.TagExit, content.TagTimePersistent)
	if err := c.Place(&Object{ID: "door", Archetype: exitArch, Pos: spacetime.Pos3{X: 5, Y: 5, T: 0}}); err != nil {
		t.Fatalf("place exit: %v", err)
	}
	ep := spacetime.Pos3{X: 5, Y: 5, T: 1}
	if c.IsBlocked(ep, nil) {
		t.Fatalf("exit should not block movement")
	}
	if !c.IsOccupied(ep, nil) {
		t.Fatalf("exit cell should count as occupied")
	}
}

func TestApplyRelocationsFromTime(t *testing.T) {
	c := New(8, 8, 6)
	crateArch := content.NewArchetype("crate", "crate", content.TagBlocksMovement, content.TagPushable, content.TagTimePersistent)
	if err := c.Place(&Object{ID: "c1", Archetype: crateArch, Pos: spacetime.Pos3{X: 3, Y: 2, T: 0}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	err := c.ApplyRelocationsFromTime(2, []Relocation{
		{ID: "c1", From: spacetime.Pos2{X: 3, Y: 2}, To: spacetime.Pos2{X: 4, Y: 2}},
	})
	if err != nil {
		t.Fatalf("relocate: %v", err)
	}
	for tt := 0; tt < 2; tt++ {
		if cell, _ := c.CellOf("c1", tt); cell != (spacetime.Pos2{X: 3, Y: 2}) {
			t.Fatalf("t=%d: past slice mutated, crate at %v", tt, cell)
		}
	}
	for tt := 2; tt < 6; tt++ {
		if cell, _ := c.CellOf("c1", tt); cell != (spacetime.Pos2{X: 4, Y: 2}) {
			t.Fatalf("t=%d: crate at %v, want (4,2)", tt, cell)
		}
	}
	o, _ := c.Object("c1")
	if o.Pos != (spacetime.Pos3{X: 4, Y: 2, T: 2}) {
		t.Fatalf("canonical pos = %s", o.Pos)
	}
}

func TestRelocationChainSwap(t *testing.T) {
	// Two crates in a row pushed one cell east in the same batch: the
	// head moves into the cell the tail vacates.
	c := New(8, 8, 4)
	crateArch := content.NewArchetype("crate", "crate", content.TagBlocksMovement, content.TagPushable, content.TagTimePersistent)
	for _, o := range []*Object{
		{ID: "c1", Archetype: crateArch, Pos: spacetime.Pos3{X: 3, Y: 2, T: 0}},
		{ID: "c2", Archetype: crateArch, Pos: spacetime.Pos3{X: 4, Y: 2, T: 0}},
	} {
		if err := c.Place(o); err != nil {
			t.Fatalf("place %s: %v", o.ID, err)
		}
	}
	err := c.ApplyRelocationsFromTime(1, []Relocation{
		{ID: "c2", From: spacetime.Pos2{X: 4, Y: 2}, To: spacetime.Pos2{X: 5, Y: 2}},
		{ID: "c1", From: spacetime.Pos2{X: 3, Y: 2}, To: spacetime.Pos2{X: 4, Y: 2}},
	})
	if err != nil {
		t.Fatalf("chain relocate: %v", err)
	}
	if cell, _ := c.CellOf("c1", 2); cell != (spacetime.Pos2{X: 4, Y: 2}) {
		t.Fatalf("c1 at %v", cell)
	}
	if cell, _ := c.CellOf("c2", 2); cell != (spacetime.Pos2{X: 5, Y: 2}) {
		t.Fatalf("c2 at %v", cell)
	}
}

func TestRelocationAtomicOnFailure(t *testing.T) {
	c := New(8, 8, 6)
	crateArch := content.NewArchetype("crate", "crate", content.TagBlocksMovement, content.TagPushable, content.TagTimePersistent)
	wallArch := content.NewArchetype("wall", "wall", content.TagBlocksMovement, content.TagTimePersistent)
	if err := c.Place(&Object{ID: "c1", Archetype: crateArch, Pos: spacetime.Pos3{X: 3, Y: 2, T: 0}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := c.Place(&Object{ID: "wall_1", Archetype: wallArch, Pos: spacetime.Pos3{X: 4, Y: 2, T: 0}}); err != nil {
		t.Fatalf("place wall: %v", err)
	}
	err := c.ApplyRelocationsFromTime(1, []Relocation{
		{ID: "c1", From: spacetime.Pos2{X: 3, Y: 2}, To: spacetime.Pos2{X: 4, Y: 2}},
	})
	var occ *TargetOccupiedError
	if !errors.As(err, &occ) {
		t.Fatalf("err = %v, want TargetOccupiedError", err)
	}
	for tt := 0; tt < 6; tt++ {
		if cell, _ := c.CellOf("c1", tt); cell != (spacetime.Pos2{X: 3, Y: 2}) {
			t.Fatalf("t=%d: cube mutated on failed batch", tt)
		}
	}
}

func TestRelocationSourceMismatch(t *testing.T) {
	c := New(8, 8, 6)
	crateArch := content.NewArchetype("crate", "crate", content.TagBlocksMovement, content.TagPushable, content.TagTimePersistent)
	if err := c.Place(&Object{ID: "c1", Archetype: crateArch, Pos: spacetime.Pos3{X: 3, Y: 2, T: 0}}); err != nil {
		t.Fatalf("place: %v", err)
	}
	// Diverge the crate's history from t=3, then try a batch from t=1
	// whose source only matches the early slices.
	if err := c.ApplyRelocationsFromTime(3, []Relocation{
		{ID: "c1", From: spacetime.Pos2{X: 3, Y: 2}, To: spacetime.Pos2{X: 3, Y: 3}},
	}); err != nil {
		t.Fatalf("first relocate: %v", err)
	}
	err := c.ApplyRelocationsFromTime(1, []Relocation{
		{ID: "c1", From: spacetime.Pos2{X: 3, Y: 2}, To: spacetime.Pos2{X: 2, Y: 2}},
	})
	var nis *NotInSliceError
	if !errors.As(err, &nis) {
		t.Fatalf("err = %v, want NotInSliceError", err)
	}
	if cell, _ := c.CellOf("c1", 1); cell != (spacetime.Pos2{X: 3, Y: 2}) {
		t.Fatalf("early slice mutated on failed batch")
	}
}
