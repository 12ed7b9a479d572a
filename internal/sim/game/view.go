package game

import (
	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/spacetime"
)

// View builds the client-facing state projection.
func (s *State) View() protocol.StateView {
	v := protocol.StateView{
		LevelID: s.pack.Level.ID,
		Turn:    s.turn,
		Phase:   string(s.phase),
		Status:  s.status,
		Energy:  s.energy,
		Digest:  s.Digest(),
		Player:  pos3Ref(s.Player()),
	}
	for _, p := range s.wl.Path() {
		v.WorldLine = append(v.WorldLine, pos3Ref(p))
	}
	for _, o := range s.cube.AllObjects() {
		ov := protocol.ObjectView{
			ID:        o.ID,
			Archetype: o.Archetype.ID,
			Glyph:     o.Archetype.Glyph,
			Tint:      o.Archetype.Tint,
			Cells:     make([]*protocol.CellRef, s.cube.TimeDepth),
		}
		for t := 0; t < s.cube.TimeDepth; t++ {
			if cell, ok := s.cube.CellOf(o.ID, t); ok {
				ov.Cells[t] = &protocol.CellRef{X: cell.X, Y: cell.Y}
			}
		}
		v.Objects = append(v.Objects, ov)
	}
	if s.lastDetection != nil {
		dv := &protocol.DetectionView{}
		for _, ev := range s.lastDetection.Events {
			dv.Events = append(dv.Events, protocol.DetectionEventView{
				EnemyID:        ev.EnemyID,
				EnemyPos:       pos3Ref(ev.EnemyPos),
				ObservedPlayer: pos3Ref(ev.ObservedPlayer),
				ObservedTurn:   ev.ObservedTurn,
			})
		}
		v.Detection = dv
	}
	if s.lastParadox != nil {
		pv := &protocol.ParadoxView{EarliestSourceTurn: s.lastParadox.EarliestSourceTurn}
		for _, viol := range s.lastParadox.Violations {
			vv := protocol.ViolationView{
				Code:       viol.Code,
				Kind:       string(viol.Anchor.Kind),
				ObjectID:   viol.Anchor.ObjectID,
				Pos:        pos3Ref(viol.Anchor.Pos),
				SourceTurn: viol.Anchor.SourceTurn,
			}
			if viol.Actual != nil {
				vv.Actual = &protocol.CellRef{X: viol.Actual.X, Y: viol.Actual.Y}
			}
			pv.Violations = append(pv.Violations, vv)
		}
		v.Paradox = pv
	}
	return v
}

func pos3Ref(p spacetime.Pos3) protocol.Pos3Ref {
	return protocol.Pos3Ref{X: p.X, Y: p.Y, T: p.T}
}
