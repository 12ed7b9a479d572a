package content

import "testing"

func TestPatrolLoop(t *testing.T) {
	p := &Policy{
		Kind: PolicyPatrolLoop,
		Path: []Cell{{X: 5, Y: 1}, {X: 5, Y: 2}, {X: 5, Y: 3}},
	}
	origin := Cell{X: 5, Y: 1}
	want := []Cell{
		{X: 5, Y: 1}, {X: 5, Y: 2}, {X: 5, Y: 3},
		{X: 5, Y: 1}, {X: 5, Y: 2}, {X: 5, Y: 3},
	}
	for tt, w := range want {
		if got := p.CellAt(origin, tt); got != w {
			t.Fatalf("t=%d: loop at %v, want %v", tt, got, w)
		}
	}
}

func TestPatrolPingPong(t *testing.T) {
	p := &Policy{
		Kind: PolicyPatrolPingPong,
		Path: []Cell{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}},
	}
	origin := Cell{X: 1, Y: 1}
	want := []Cell{
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1},
		{X: 2, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1},
	}
	for tt, w := range want {
		if got := p.CellAt(origin, tt); got != w {
			t.Fatalf("t=%d: pingpong at %v, want %v", tt, got, w)
		}
	}
}

func TestScriptedClampsPastEnd(t *testing.T) {
	p := &Policy{
		Kind: PolicyScripted,
		Path: []Cell{{X: 0, Y: 0}, {X: 1, Y: 0}},
	}
	origin := Cell{X: 0, Y: 0}
	if got := p.CellAt(origin, 1); got != (Cell{X: 1, Y: 0}) {
		t.Fatalf("t=1: %v", got)
	}
	if got := p.CellAt(origin, 9); got != (Cell{X: 1, Y: 0}) {
		t.Fatalf("t=9: scripted should clamp to last waypoint, got %v", got)
	}
}

func TestStaticAndNilPolicies(t *testing.T) {
	origin := Cell{X: 4, Y: 4}
	var nilPolicy *Policy
	if got := nilPolicy.CellAt(origin, 3); got != origin {
		t.Fatalf("nil policy moved object to %v", got)
	}
	p := &Policy{Kind: PolicyStatic}
	if got := p.CellAt(origin, 3); got != origin {
		t.Fatalf("static policy moved object to %v", got)
	}
}

func TestSingleWaypointPingPong(t *testing.T) {
	p := &Policy{Kind: PolicyPatrolPingPong, Path: []Cell{{X: 2, Y: 2}}}
	for tt := 0; tt < 4; tt++ {
		if got := p.CellAt(Cell{}, tt); got != (Cell{X: 2, Y: 2}) {
			t.Fatalf("t=%d: %v", tt, got)
		}
	}
}
