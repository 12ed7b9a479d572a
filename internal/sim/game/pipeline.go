package game

import (
	"fmt"
	"strings"

	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/content"
	"chronocube.game/internal/sim/detection"
	"chronocube.game/internal/sim/paradox"
)

// Apply runs one interaction through the full turn pipeline:
//
//	validate -> commit movement and relocations -> advance the turn ->
//	derive and merge anchors -> paradox check over the touched window ->
//	win check -> detection check -> status.
//
// On error nothing has changed and the returned record is zero. Terminal
// phases reject everything except RESTART.
func (s *State) Apply(a Action) (TurnRecord, error) {
	if err := a.validate(); err != nil {
		return TurnRecord{}, err
	}
	if a.Kind == ActRestart {
		if err := s.restart(); err != nil {
			return TurnRecord{}, errf(protocol.ErrInternal, "restart: %v", err)
		}
		rec := TurnRecord{
			Turn:    s.turn,
			Action:  a,
			Outcome: Outcome{Kind: ActRestart, From: s.Player(), To: s.Player()},
			Phase:   s.phase,
			Status:  s.status,
			Digest:  s.Digest(),
		}
		s.appendHistory(rec)
		return rec, nil
	}
	if s.phase != PhasePlaying {
		return TurnRecord{}, errf(protocol.ErrNotPlaying, "session is %s", string(s.phase))
	}

	p, err := s.planFor(a)
	if err != nil {
		return TurnRecord{}, err
	}

	from := s.Player()
	if err := s.commit(&p); err != nil {
		return TurnRecord{}, err
	}

	outcome := Outcome{
		Kind:       a.Kind,
		From:       from,
		To:         p.next,
		Moved:      p.moved,
		EnergyCost: p.energyCost,
	}
	if p.viaRift {
		outcome.RiftMode = p.riftMode
	}

	s.turn++
	s.deriveAnchors(&p)
	s.settlePhase(&p, &outcome)

	rec := TurnRecord{
		Turn:    s.turn,
		Action:  a,
		Outcome: outcome,
		Phase:   s.phase,
		Status:  s.status,
		Digest:  s.Digest(),
	}
	s.appendHistory(rec)
	return rec, nil
}

// commit mutates the session according to a validated plan. Relocations
// go first because the cube's batch is the only step that can still
// fail; the world line extension afterwards was fully pre-validated.
func (s *State) commit(p *plan) error {
	if len(p.relocs) > 0 {
		if err := s.cube.ApplyRelocationsFromTime(p.relocFrom, p.relocs); err != nil {
			return errf(protocol.ErrInternal, "relocation batch: %v", err)
		}
	}
	var err error
	if p.viaRift {
		err = s.wl.ExtendRift(p.next)
	} else {
		err = s.wl.ExtendNormal(p.next)
	}
	if err != nil {
		return errf(protocol.ErrInternal, "world line extension: %v", err)
	}
	s.energy -= p.energyCost
	return nil
}

// deriveAnchors records the facts this turn created: the player stood
// here, and each moved object now stands there.
func (s *State) deriveAnchors(p *plan) {
	s.anchors.Merge(paradox.NewPlayerAnchor(p.next, s.turn))
	for _, m := range p.moved {
		s.anchors.Merge(paradox.NewObjectAnchor(m.ID, m.To, s.turn))
	}
}

// settlePhase runs the paradox, win, and detection checks in order and
// writes the status line.
func (s *State) settlePhase(p *plan, outcome *Outcome) {
	checkedFrom := p.next.T
	if len(p.relocs) > 0 && p.relocFrom < checkedFrom {
		checkedFrom = p.relocFrom
	}
	pr := paradox.Evaluate(s.cube, s.wl, s.anchors, checkedFrom,
		paradox.Config{Enabled: s.pack.Rules.Paradox.Enabled})
	if pr.Paradox {
		s.lastParadox = &pr
		s.phase = PhaseParadox
		s.status = paradoxStatus(s.turn, &pr)
		return
	}

	for _, o := range s.cube.ObjectsAt(p.next) {
		if o.Has(content.TagExit) {
			s.phase = PhaseWon
			s.status = fmt.Sprintf("turn %d: escaped through %s at %s", s.turn, o.ID, p.next)
			return
		}
	}

	dr := detection.Evaluate(s.cube, s.wl, p.next.T, s.pack.Rules.Detection)
	if dr.Detected {
		s.lastDetection = &dr
		s.phase = PhaseDetected
		s.status = detectionStatus(s.turn, &dr)
		return
	}

	s.status = outcomeStatus(s.turn, outcome)
}

func outcomeStatus(turn int, o *Outcome) string {
	switch o.Kind {
	case ActWait:
		return fmt.Sprintf("turn %d: waited at %s", turn, o.To)
	case ActRift:
		return fmt.Sprintf("turn %d: rifted to %s (-%d energy)", turn, o.To, o.EnergyCost)
	case ActPush, ActPull:
		ids := make([]string, len(o.Moved))
		for i, m := range o.Moved {
			ids[i] = m.ID
		}
		verb := "pushed"
		if o.Kind == ActPull {
			verb = "pulled"
		}
		return fmt.Sprintf("turn %d: %s %s, now at %s", turn, verb, strings.Join(ids, ","), o.To)
	default:
		return fmt.Sprintf("turn %d: moved to %s", turn, o.To)
	}
}

func paradoxStatus(turn int, rep *paradox.Report) string {
	v := rep.Violations[0]
	what := "the player"
	if v.Anchor.Kind == paradox.ObjectAt {
		what = v.Anchor.ObjectID
	}
	return fmt.Sprintf("turn %d: paradox, %s no longer at %s (cause from turn %d)",
		turn, what, v.Anchor.Pos, rep.EarliestSourceTurn)
}

func detectionStatus(turn int, rep *detection.Report) string {
	ev := rep.Events[0]
	return fmt.Sprintf("turn %d: detected by %s at %s (saw the player at %s)",
		turn, ev.EnemyID, ev.EnemyPos, ev.ObservedPlayer)
}
