package content

import "fmt"

// Policy kinds. A policy is a pure function of the slice index; the
// loader projects each moving instance into every slice at bootstrap so
// the runtime never evaluates policies mid-session.
const (
	PolicyStatic         = "STATIC"
	PolicyPatrolLoop     = "PATROL_LOOP"
	PolicyPatrolPingPong = "PATROL_PINGPONG"
	PolicyScripted       = "SCRIPTED"
)

// Policy describes how an instance moves through time. Path is relative
// to nothing: waypoints are absolute board cells, and waypoint 0 should
// normally equal the instance position.
type Policy struct {
	Kind string `json:"kind"`
	Path []Cell `json:"path,omitempty"`
}

// Cell is a bare board coordinate as it appears in level JSON.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p *Policy) validate() error {
	switch p.Kind {
	case PolicyStatic:
		return nil
	case PolicyPatrolLoop, PolicyPatrolPingPong, PolicyScripted:
		if len(p.Path) == 0 {
			return fmt.Errorf("behavior %s: empty path", p.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown behavior kind %q", p.Kind)
	}
}

// CellAt resolves the cell a policy-driven instance occupies at slice t.
// origin is the instance's placement cell, used when the policy is
// static or absent.
//
// PATROL_LOOP wraps around the path; PATROL_PINGPONG bounces between the
// endpoints; SCRIPTED indexes the path by t and clamps to the last
// waypoint once the script runs out.
func (p *Policy) CellAt(origin Cell, t int) Cell {
	if p == nil || p.Kind == PolicyStatic || len(p.Path) == 0 {
		return origin
	}
	if t < 0 {
		t = 0
	}
	n := len(p.Path)
	switch p.Kind {
	case PolicyPatrolLoop:
		return p.Path[t%n]
	case PolicyPatrolPingPong:
		if n == 1 {
			return p.Path[0]
		}
		period := 2 * (n - 1)
		i := t % period
		if i >= n {
			i = period - i
		}
		return p.Path[i]
	case PolicyScripted:
		if t >= n {
			return p.Path[n-1]
		}
		return p.Path[t]
	}
	return origin
}
