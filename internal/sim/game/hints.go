package game

import "chronocube.game/internal/sim/spacetime"

// Peek validates an action without committing it. The returned outcome
// predicts movement and relocations only; paradox and detection are a
// consequence of committing and are not simulated here.
func (s *State) Peek(a Action) (Outcome, error) {
	if err := a.validate(); err != nil {
		return Outcome{}, err
	}
	if a.Kind == ActRestart {
		return Outcome{Kind: ActRestart}, nil
	}
	p, err := s.planFor(a)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Kind:       a.Kind,
		From:       s.Player(),
		To:         p.next,
		Moved:      p.moved,
		EnergyCost: p.energyCost,
	}
	if p.viaRift {
		out.RiftMode = p.riftMode
	}
	return out, nil
}

// ValidActions enumerates the interactions that would be accepted this
// turn: every cardinal MOVE, PUSH, and PULL, WAIT, and the default RIFT.
// Parameterized rifts are not enumerated; probe those with Peek.
func (s *State) ValidActions() []Action {
	if s.phase != PhasePlaying {
		return []Action{{Kind: ActRestart}}
	}
	var out []Action
	try := func(a Action) {
		if _, err := s.planFor(a); err == nil {
			out = append(out, a)
		}
	}
	try(Action{Kind: ActWait})
	for _, d := range spacetime.Dirs() {
		try(Action{Kind: ActMove, Dir: d})
	}
	for _, d := range spacetime.Dirs() {
		try(Action{Kind: ActPush, Dir: d})
	}
	for _, d := range spacetime.Dirs() {
		try(Action{Kind: ActPull, Dir: d})
	}
	try(Action{Kind: ActRift})
	return out
}

// ReachableCells explores where normal movement alone can take the
// player within maxTurns steps: breadth-first over wait-or-step
// successors, skipping blocked cells and cells the world line already
// holds. Pushes, pulls, and rifts are out of scope.
func (s *State) ReachableCells(maxTurns int) []spacetime.Pos3 {
	start := s.Player()
	type node struct {
		pos   spacetime.Pos3
		depth int
	}
	seen := map[spacetime.Pos3]struct{}{start: {}}
	queue := []node{{pos: start}}
	var out []spacetime.Pos3
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.depth >= maxTurns || n.pos.T+1 >= s.cube.TimeDepth {
			continue
		}
		candidates := []spacetime.Pos3{{X: n.pos.X, Y: n.pos.Y, T: n.pos.T + 1}}
		for _, d := range spacetime.Dirs() {
			c := n.pos.Plane().Step(d)
			candidates = append(candidates, c.At(n.pos.T+1))
		}
		for _, next := range candidates {
			if _, dup := seen[next]; dup {
				continue
			}
			if !s.cube.InPlane(next.Plane()) {
				continue
			}
			if s.cube.IsBlocked(next, nil) || s.wl.Contains(next) {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, node{pos: next, depth: n.depth + 1})
		}
	}
	return out
}
