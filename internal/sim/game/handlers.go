package game

import (
	"errors"

	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/cube"
	"chronocube.game/internal/sim/rift"
	"chronocube.game/internal/sim/spacetime"
)

// plan is a fully validated interaction waiting to be committed. All
// checks that could fail happen while building a plan; committing one
// cannot leave the session half-mutated.
type plan struct {
	next       spacetime.Pos3
	viaRift    bool
	riftMode   rift.Mode
	energyCost int

	relocs    []cube.Relocation
	relocFrom int
	moved     []MovedObject
}

func (s *State) planFor(a Action) (plan, error) {
	switch a.Kind {
	case ActMove:
		return s.planStep(a.Dir.Delta())
	case ActWait:
		return s.planStep(spacetime.Pos2{})
	case ActPush:
		return s.planPush(a.Dir)
	case ActPull:
		return s.planPull(a.Dir)
	case ActRift:
		return s.planRift(a.Rift)
	}
	return plan{}, errf(protocol.ErrBadRequest, "unknown action kind %q", string(a.Kind))
}

// planStep covers MOVE and WAIT: one slice forward, at most one cell of
// movement.
func (s *State) planStep(delta spacetime.Pos2) (plan, error) {
	cur := s.Player()
	next := spacetime.Pos3{X: cur.X + delta.X, Y: cur.Y + delta.Y, T: cur.T + 1}
	if err := s.checkArrival(next, nil); err != nil {
		return plan{}, err
	}
	return plan{next: next}, nil
}

// checkArrival validates the player's landing cell: time horizon, board
// bounds, blockers (minus objects the plan relocates away), and
// self-intersection.
func (s *State) checkArrival(next spacetime.Pos3, except map[string]struct{}) error {
	if next.T >= s.cube.TimeDepth {
		return errf(protocol.ErrTimeBoundary, "slice %d is beyond the time horizon %d", next.T, s.cube.TimeDepth)
	}
	if !s.cube.InPlane(next.Plane()) {
		return errf(protocol.ErrOutOfBounds, "%s is off the board", next.Plane())
	}
	if s.cube.IsBlocked(next, except) {
		return errf(protocol.ErrBlockedByObject, "%s is blocked", next)
	}
	if s.wl.Contains(next) {
		return errf(protocol.ErrSelfIntersection, "already occupied %s on an earlier turn", next)
	}
	return nil
}

// planPush validates a push: the player steps into the chain's first
// cell while the whole contiguous chain of pushable objects shifts one
// cell onward. The chain is read in the arrival slice, and the
// relocation rewrites every slice from there to the horizon.
func (s *State) planPush(dir spacetime.Dir) (plan, error) {
	cur := s.Player()
	arrive := cur.T + 1
	if arrive >= s.cube.TimeDepth {
		return plan{}, errf(protocol.ErrTimeBoundary, "slice %d is beyond the time horizon %d", arrive, s.cube.TimeDepth)
	}
	first := cur.Plane().Step(dir)
	if !s.cube.InPlane(first) {
		return plan{}, errf(protocol.ErrOutOfBounds, "%s is off the board", first)
	}

	maxChain := s.pack.Rules.MaxPushChain
	var chain []*cube.Object
	chainCells := []spacetime.Pos2{}
	cell := first
	for {
		var pushable *cube.Object
		blocking := false
		for _, o := range s.cube.ObjectsAt(cell.At(arrive)) {
			if o.Has(content.TagPushable) {
				pushable = o
				break
			}
			if o.Has(content.TagBlocksMovement) {
				blocking = true
			}
		}
		if pushable == nil {
			if blocking {
				if len(chain) == 0 {
					return plan{}, errf(protocol.ErrNotPushable, "object at %s cannot be pushed", cell)
				}
				return plan{}, errf(protocol.ErrNoSpaceToPush, "chain is wedged against %s", cell)
			}
			break
		}
		chain = append(chain, pushable)
		chainCells = append(chainCells, cell)
		if len(chain) > maxChain {
			return plan{}, errf(protocol.ErrPushChainTooLong, "chain exceeds %d objects", maxChain)
		}
		cell = cell.Step(dir)
		if !s.cube.InPlane(cell) {
			return plan{}, errf(protocol.ErrNoSpaceToPush, "chain would run off the board at %s", cell)
		}
	}
	if len(chain) == 0 {
		return plan{}, errf(protocol.ErrNotPushable, "nothing to push at %s", first)
	}

	except := make(map[string]struct{}, len(chain))
	for _, o := range chain {
		except[o.ID] = struct{}{}
	}
	next := first.At(arrive)
	if err := s.checkArrival(next, except); err != nil {
		return plan{}, err
	}

	// Far end first, so each object moves into a cell its neighbor
	// vacates.
	p := plan{next: next, relocFrom: arrive}
	for i := len(chain) - 1; i >= 0; i-- {
		from := chainCells[i]
		to := from.Step(dir)
		p.relocs = append(p.relocs, cube.Relocation{ID: chain[i].ID, From: from, To: to})
		p.moved = append(p.moved, MovedObject{ID: chain[i].ID, From: from.At(arrive), To: to.At(arrive)})
	}
	if err := s.precheckRelocations(&p, protocol.ErrNoSpaceToPush); err != nil {
		return plan{}, err
	}
	return p, nil
}

// planPull validates a pull: the player steps one cell in dir while the
// pullable object directly behind follows into the vacated cell.
func (s *State) planPull(dir spacetime.Dir) (plan, error) {
	cur := s.Player()
	arrive := cur.T + 1
	next := spacetime.Pos3{X: cur.X + dir.Delta().X, Y: cur.Y + dir.Delta().Y, T: arrive}
	if err := s.checkArrival(next, nil); err != nil {
		return plan{}, err
	}

	behind := cur.Plane().Step(dir.Opposite())
	if !s.cube.InPlane(behind) {
		return plan{}, errf(protocol.ErrNothingToPull, "no cell behind the player at %s", behind)
	}
	var target *cube.Object
	occupied := false
	for _, o := range s.cube.ObjectsAt(behind.At(arrive)) {
		occupied = true
		if o.Has(content.TagPullable) {
			target = o
			break
		}
	}
	if target == nil {
		if occupied {
			return plan{}, errf(protocol.ErrNotPullable, "object at %s cannot be pulled", behind)
		}
		return plan{}, errf(protocol.ErrNothingToPull, "nothing to pull at %s", behind)
	}

	vacated := cur.Plane()
	p := plan{
		next:      next,
		relocFrom: arrive,
		relocs:    []cube.Relocation{{ID: target.ID, From: behind, To: vacated}},
		moved:     []MovedObject{{ID: target.ID, From: behind.At(arrive), To: vacated.At(arrive)}},
	}
	if err := s.precheckRelocations(&p, protocol.ErrBlockedByObject); err != nil {
		return plan{}, err
	}
	return p, nil
}

// planRift resolves a rift instruction and validates the landing.
func (s *State) planRift(instr *rift.Instruction) (plan, error) {
	cur := s.Player()
	res, err := rift.Resolve(cur, instr, s.riftSettings, s.energy, s.bounds())
	if err != nil {
		switch {
		case errors.Is(err, rift.ErrInsufficientEnergy):
			return plan{}, errf(protocol.ErrInsufficientEnergy, "need %d energy, have %d", s.riftSettings.BaseEnergyCost, s.energy)
		case errors.Is(err, rift.ErrDisabled):
			return plan{}, errf(protocol.ErrInvalidRiftTarget, "rifting is disabled in this level")
		default:
			return plan{}, errf(protocol.ErrInvalidRiftTarget, "%v", err)
		}
	}
	if s.cube.IsBlocked(res.Target, nil) {
		return plan{}, errf(protocol.ErrBlockedByObject, "%s is blocked", res.Target)
	}
	if s.wl.Contains(res.Target) {
		return plan{}, errf(protocol.ErrSelfIntersection, "already occupied %s on an earlier turn", res.Target)
	}
	return plan{next: res.Target, viaRift: true, riftMode: res.Mode, energyCost: res.EnergyCost}, nil
}

// precheckRelocations runs the cube's own batch validation against a
// copy of nothing: the cube validates before mutating, so running the
// real call inside commit would be enough. Doing a dry check here keeps
// plan construction the single place that can reject an action.
func (s *State) precheckRelocations(p *plan, occupiedCode string) error {
	err := s.cube.ValidateRelocationsFromTime(p.relocFrom, p.relocs)
	if err == nil {
		return nil
	}
	var occ *cube.TargetOccupiedError
	if errors.As(err, &occ) {
		return errf(occupiedCode, "%s is occupied", occ.To)
	}
	var nis *cube.NotInSliceError
	if errors.As(err, &nis) {
		return errf(protocol.ErrBlockedByObject, "history of %s diverges at %s", nis.ID, nis.From)
	}
	var oob *cube.OutOfBoundsError
	if errors.As(err, &oob) {
		return errf(protocol.ErrNoSpaceToPush, "%s is off the board", oob.Pos)
	}
	return errf(protocol.ErrInternal, "relocation validation: %v", err)
}
