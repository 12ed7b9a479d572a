package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBadRequest      = "E_BAD_REQUEST"

	// Session state.
	ErrNotPlaying = "E_NOT_PLAYING"

	// Interaction layer.
	ErrOutOfBounds        = "E_OUT_OF_BOUNDS"
	ErrTimeBoundary       = "E_TIME_BOUNDARY"
	ErrBlockedByObject    = "E_BLOCKED_BY_OBJECT"
	ErrNotPushable        = "E_NOT_PUSHABLE"
	ErrNotPullable        = "E_NOT_PULLABLE"
	ErrPushChainTooLong   = "E_PUSH_CHAIN_TOO_LONG"
	ErrNoSpaceToPush      = "E_NO_SPACE_TO_PUSH"
	ErrNothingToPull      = "E_NOTHING_TO_PULL"
	ErrSelfIntersection   = "E_SELF_INTERSECTION"
	ErrInvalidRiftTarget  = "E_INVALID_RIFT_TARGET"
	ErrInsufficientEnergy = "E_INSUFFICIENT_ENERGY"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:    {},
	ErrBadRequest:         {},
	ErrNotPlaying:         {},
	ErrOutOfBounds:        {},
	ErrTimeBoundary:       {},
	ErrBlockedByObject:    {},
	ErrNotPushable:        {},
	ErrNotPullable:        {},
	ErrPushChainTooLong:   {},
	ErrNoSpaceToPush:      {},
	ErrNothingToPull:      {},
	ErrSelfIntersection:   {},
	ErrInvalidRiftTarget:  {},
	ErrInsufficientEnergy: {},
	ErrInternal:           {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
