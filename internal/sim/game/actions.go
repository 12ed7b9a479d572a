package game

import (
	"fmt"

	"chronocube.game/internal/protocol"
	"chronocube.game/internal/sim/rift"
	"chronocube.game/internal/sim/spacetime"
)

// ActionKind names an interaction.
type ActionKind string

const (
	ActMove    ActionKind = "MOVE"
	ActWait    ActionKind = "WAIT"
	ActPush    ActionKind = "PUSH"
	ActPull    ActionKind = "PULL"
	ActRift    ActionKind = "RIFT"
	ActRestart ActionKind = "RESTART"
)

// Action is one player interaction. Dir is required for MOVE, PUSH, and
// PULL; Rift is optional for RIFT (nil means the default backward jump).
type Action struct {
	Kind ActionKind        `json:"kind"`
	Dir  spacetime.Dir     `json:"dir,omitempty"`
	Rift *rift.Instruction `json:"rift,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActMove, ActPush, ActPull:
		return fmt.Sprintf("%s %s", a.Kind, a.Dir)
	default:
		return string(a.Kind)
	}
}

// validate rejects malformed actions before any handler runs.
func (a Action) validate() error {
	switch a.Kind {
	case ActMove, ActPush, ActPull:
		if !a.Dir.Valid() {
			return &ActionError{Code: protocol.ErrBadRequest, Message: fmt.Sprintf("%s requires a direction", a.Kind)}
		}
		return nil
	case ActWait, ActRift, ActRestart:
		return nil
	default:
		return &ActionError{Code: protocol.ErrBadRequest, Message: fmt.Sprintf("unknown action kind %q", string(a.Kind))}
	}
}

// ActionError is a rejected interaction. Code is always one of the
// protocol error codes; the session state is untouched when one is
// returned.
type ActionError struct {
	Code    string
	Message string
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func errf(code, format string, args ...any) *ActionError {
	return &ActionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// MovedObject records one object relocation within an outcome.
type MovedObject struct {
	ID   string         `json:"id"`
	From spacetime.Pos3 `json:"from"`
	To   spacetime.Pos3 `json:"to"`
}

// Outcome describes what a committed action did.
type Outcome struct {
	Kind       ActionKind     `json:"kind"`
	From       spacetime.Pos3 `json:"from"`
	To         spacetime.Pos3 `json:"to"`
	Moved      []MovedObject  `json:"moved,omitempty"`
	EnergyCost int            `json:"energy_cost,omitempty"`
	RiftMode   rift.Mode      `json:"rift_mode,omitempty"`
}

// TurnRecord is one committed turn: the action, what it did, and the
// resulting state digest. The turn log and replay tool both consume it.
type TurnRecord struct {
	Turn    int     `json:"turn"`
	Action  Action  `json:"action"`
	Outcome Outcome `json:"outcome"`
	Phase   Phase   `json:"phase"`
	Status  string  `json:"status"`
	Digest  string  `json:"digest"`
}
