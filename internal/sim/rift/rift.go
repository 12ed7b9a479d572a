// Package rift resolves time-travel instructions into concrete spacetime
// targets and energy costs. Resolution is pure: it never looks at
// occupancy or the world line, only at bounds and the energy budget.
// Collision and self-intersection are the caller's problem.
package rift

import (
	"errors"
	"fmt"

	"chronocube.game/internal/sim/spacetime"
)

var (
	// ErrInvalidTargetTime means the resolved slice falls outside
	// [0, TimeDepth).
	ErrInvalidTargetTime = errors.New("rift target time outside the cube")
	// ErrInvalidTargetSpace means the resolved cell is off the board.
	ErrInvalidTargetSpace = errors.New("rift target cell outside the board")
	// ErrInsufficientEnergy means the player cannot pay the base cost.
	ErrInsufficientEnergy = errors.New("not enough energy to open a rift")
	// ErrDisabled means the session rules forbid rifting.
	ErrDisabled = errors.New("rifting is disabled")
)

// Mode selects how an instruction names its target.
type Mode string

const (
	// ModeDefault jumps backward by the session's default delta,
	// keeping the current cell.
	ModeDefault Mode = "DEFAULT"
	// ModeDelta jumps by a signed time offset, optionally landing on a
	// different cell.
	ModeDelta Mode = "DELTA"
	// ModeTunnel jumps to an absolute spacetime position.
	ModeTunnel Mode = "TUNNEL"
)

// Instruction is a parsed rift request.
type Instruction struct {
	Mode Mode `json:"mode"`

	// Delta is the signed slice offset for ModeDelta.
	Delta int `json:"delta,omitempty"`
	// Spatial optionally overrides the landing cell for ModeDelta.
	Spatial *spacetime.Pos2 `json:"spatial,omitempty"`
	// Target is the absolute destination for ModeTunnel.
	Target spacetime.Pos3 `json:"target,omitempty"`
}

// Settings are the session rift rules.
type Settings struct {
	Enabled        bool
	DefaultDelta   int
	BaseEnergyCost int
}

// Bounds describes the cube the target must land in.
type Bounds struct {
	Width     int
	Height    int
	TimeDepth int
}

// Resolution is a validated rift: where the player lands and what it
// costs.
type Resolution struct {
	Target     spacetime.Pos3
	EnergyCost int
	Mode       Mode
}

// Resolve turns an instruction into a resolution. A nil instruction is
// the default jump: backward by the session delta, same cell. energy is
// the player's remaining budget.
func Resolve(current spacetime.Pos3, instr *Instruction, st Settings, energy int, b Bounds) (Resolution, error) {
	if !st.Enabled {
		return Resolution{}, ErrDisabled
	}

	var target spacetime.Pos3
	mode := ModeDefault
	switch {
	case instr == nil || instr.Mode == ModeDefault:
		back := st.DefaultDelta
		if back < 0 {
			back = -back
		}
		target = spacetime.Pos3{X: current.X, Y: current.Y, T: current.T - back}
	case instr.Mode == ModeDelta:
		mode = ModeDelta
		cell := current.Plane()
		if instr.Spatial != nil {
			cell = *instr.Spatial
		}
		target = cell.At(current.T + instr.Delta)
	case instr.Mode == ModeTunnel:
		mode = ModeTunnel
		target = instr.Target
	default:
		return Resolution{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidTargetTime, string(instr.Mode))
	}

	if target.T < 0 || target.T >= b.TimeDepth {
		return Resolution{}, ErrInvalidTargetTime
	}
	if target.X < 0 || target.X >= b.Width || target.Y < 0 || target.Y >= b.Height {
		return Resolution{}, ErrInvalidTargetSpace
	}
	if energy < st.BaseEnergyCost {
		return Resolution{}, ErrInsufficientEnergy
	}
	return Resolution{Target: target, EnergyCost: st.BaseEnergyCost, Mode: mode}, nil
}
