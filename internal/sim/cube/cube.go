// Package cube implements the spatiotemporal occupancy index: a stack
// of per-slice spatial grids covering every time the level spans, with
// the objects that live in them.
package cube

import (
	"fmt"
	"sort"

	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/spacetime"
)

// Object is a placed level object. Pos is the canonical position: for
// time-persistent objects it tracks the latest relocation, for
// slice-local objects it is the placement cell.
type Object struct {
	ID        string
	Archetype *content.Archetype
	Pos       spacetime.Pos3
}

// Has reports whether the object's archetype carries tag.
func (o *Object) Has(tag content.Tag) bool { return o.Archetype.Has(tag) }

// OutOfBoundsError reports a position outside the cube.
type OutOfBoundsError struct {
	Pos spacetime.Pos3
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("position %s outside cube", e.Pos)
}

// DuplicateIDError reports a second placement under an existing id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("object id %q already placed", e.ID)
}

// TargetOccupiedError reports a relocation into a cell that still holds
// another object in some slice.
type TargetOccupiedError struct {
	ID string
	To spacetime.Pos3
}

func (e *TargetOccupiedError) Error() string {
	return fmt.Sprintf("cannot relocate %s: %s occupied", e.ID, e.To)
}

// NotInSliceError reports a relocation whose source cell does not hold
// the object in some slice of the affected window. This happens when an
// object's history already diverges inside that window.
type NotInSliceError struct {
	ID   string
	From spacetime.Pos3
}

func (e *NotInSliceError) Error() string {
	return fmt.Sprintf("object %s not at %s", e.ID, e.From)
}

// Relocation moves one object from one cell to another, applied to every
// slice from a start time onward.
type Relocation struct {
	ID   string
	From spacetime.Pos2
	To   spacetime.Pos2
}

type slice struct {
	cells map[spacetime.Pos2][]string
	byID  map[string]spacetime.Pos2
}

func newSlice() *slice {
	return &slice{
		cells: map[spacetime.Pos2][]string{},
		byID:  map[string]spacetime.Pos2{},
	}
}

func (s *slice) add(id string, c spacetime.Pos2) {
	s.cells[c] = append(s.cells[c], id)
	s.byID[id] = c
}

func (s *slice) remove(id string) {
	c, ok := s.byID[id]
	if !ok {
		return
	}
	ids := s.cells[c]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.cells, c)
	} else {
		s.cells[c] = ids
	}
	delete(s.byID, id)
}

// TimeCube indexes object occupancy per slice. Slices are dense:
// one per t in [0, TimeDepth).
type TimeCube struct {
	Width     int
	Height    int
	TimeDepth int

	slices  []*slice
	objects map[string]*Object
}

// New allocates an empty cube. Dimensions must be positive.
func New(width, height, timeDepth int) *TimeCube {
	c := &TimeCube{
		Width:     width,
		Height:    height,
		TimeDepth: timeDepth,
		slices:    make([]*slice, timeDepth),
		objects:   map[string]*Object{},
	}
	for t := range c.slices {
		c.slices[t] = newSlice()
	}
	return c
}

// InPlane reports whether the cell is on the board.
func (c *TimeCube) InPlane(p spacetime.Pos2) bool {
	return p.X >= 0 && p.X < c.Width && p.Y >= 0 && p.Y < c.Height
}

// InBounds reports whether the spacetime position is inside the cube.
func (c *TimeCube) InBounds(p spacetime.Pos3) bool {
	return c.InPlane(p.Plane()) && p.T >= 0 && p.T < c.TimeDepth
}

// Place inserts an object. Time-persistent objects are mirrored into
// every slice; others occupy only their placement slice.
func (c *TimeCube) Place(o *Object) error {
	if !c.InBounds(o.Pos) {
		return &OutOfBoundsError{Pos: o.Pos}
	}
	if _, dup := c.objects[o.ID]; dup {
		return &DuplicateIDError{ID: o.ID}
	}
	c.objects[o.ID] = o
	if o.Has(content.TagTimePersistent) {
		for _, s := range c.slices {
			s.add(o.ID, o.Pos.Plane())
		}
		return nil
	}
	c.slices[o.Pos.T].add(o.ID, o.Pos.Plane())
	return nil
}

// PlaceProjected inserts an object whose cell varies per slice, one cell
// per t in [0, TimeDepth). Used for behavior-driven objects whose paths
// are projected at bootstrap.
func (c *TimeCube) PlaceProjected(o *Object, cells []spacetime.Pos2) error {
	if len(cells) != c.TimeDepth {
		return fmt.Errorf("projected cells: got %d, want %d", len(cells), c.TimeDepth)
	}
	for t, cell := range cells {
		if !c.InPlane(cell) {
			return &OutOfBoundsError{Pos: cell.At(t)}
		}
	}
	if _, dup := c.objects[o.ID]; dup {
		return &DuplicateIDError{ID: o.ID}
	}
	c.objects[o.ID] = o
	for t, cell := range cells {
		c.slices[t].add(o.ID, cell)
	}
	return nil
}

// Object returns the object with the given id.
func (c *TimeCube) Object(id string) (*Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// ObjectsAt returns the objects occupying a cell in one slice, in a
// deterministic order.
func (c *TimeCube) ObjectsAt(p spacetime.Pos3) []*Object {
	if !c.InBounds(p) {
		return nil
	}
	ids := c.slices[p.T].cells[p.Plane()]
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	out := make([]*Object, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, c.objects[id])
	}
	return out
}

// CellOf returns the cell an object occupies in slice t.
func (c *TimeCube) CellOf(id string, t int) (spacetime.Pos2, bool) {
	if t < 0 || t >= c.TimeDepth {
		return spacetime.Pos2{}, false
	}
	cell, ok := c.slices[t].byID[id]
	return cell, ok
}

// IsBlocked reports whether any occupant of p blocks movement. Ids in
// except are ignored, which lets callers test a cell as it will look
// after a planned relocation.
func (c *TimeCube) IsBlocked(p spacetime.Pos3, except map[string]struct{}) bool {
	for _, o := range c.ObjectsAt(p) {
		if _, skip := except[o.ID]; skip {
			continue
		}
		if o.Has(content.TagBlocksMovement) {
			return true
		}
	}
	return false
}

// IsOccupied reports whether any object (blocking or not) outside
// except occupies p.
func (c *TimeCube) IsOccupied(p spacetime.Pos3, except map[string]struct{}) bool {
	for _, o := range c.ObjectsAt(p) {
		if _, skip := except[o.ID]; skip {
			continue
		}
		return true
	}
	return false
}

// AllObjects returns every placed object sorted by id.
func (c *TimeCube) AllObjects() []*Object {
	out := make([]*Object, 0, len(c.objects))
	for _, o := range c.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateRelocationsFromTime checks a batch without mutating anything.
// Per affected slice: the target must be on the board, the source must
// actually hold the object, and the target must be free of any occupant
// that is not itself being relocated away.
func (c *TimeCube) ValidateRelocationsFromTime(startTime int, relocs []Relocation) error {
	if len(relocs) == 0 {
		return nil
	}
	if startTime < 0 || startTime >= c.TimeDepth {
		return &OutOfBoundsError{Pos: spacetime.Pos3{T: startTime}}
	}
	moving := make(map[string]struct{}, len(relocs))
	for _, r := range relocs {
		moving[r.ID] = struct{}{}
	}
	for _, r := range relocs {
		if !c.InPlane(r.To) {
			return &OutOfBoundsError{Pos: r.To.At(startTime)}
		}
		for t := startTime; t < c.TimeDepth; t++ {
			s := c.slices[t]
			if cell, ok := s.byID[r.ID]; !ok || cell != r.From {
				return &NotInSliceError{ID: r.ID, From: r.From.At(t)}
			}
			for _, id := range s.cells[r.To] {
				if _, rel := moving[id]; !rel {
					return &TargetOccupiedError{ID: r.ID, To: r.To.At(t)}
				}
			}
		}
	}
	return nil
}

// ApplyRelocationsFromTime applies a batch of relocations to every slice
// in [startTime, TimeDepth). The batch is atomic: every relocation is
// validated in every affected slice before anything mutates, so a
// failure leaves the cube untouched.
//
// Validation per slice: the target must be on the board, the source must
// actually hold the object, and the target must be free of any occupant
// that is not itself being relocated away.
func (c *TimeCube) ApplyRelocationsFromTime(startTime int, relocs []Relocation) error {
	if len(relocs) == 0 {
		return nil
	}
	if err := c.ValidateRelocationsFromTime(startTime, relocs); err != nil {
		return err
	}
	for _, r := range relocs {
		for t := startTime; t < c.TimeDepth; t++ {
			s := c.slices[t]
			s.remove(r.ID)
			s.add(r.ID, r.To)
		}
		c.objects[r.ID].Pos = r.To.At(startTime)
	}
	return nil
}
