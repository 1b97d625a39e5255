package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy      = "E_WORLD_BUSY"
	ErrUnknownPlayer  = "E_UNKNOWN_PLAYER"
	ErrPlayerNotAlive = "E_NOT_ALIVE"
	ErrPlayerAlive    = "E_ALREADY_ALIVE"

	// Rule/input layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrScoreTooLow  = "E_SCORE_TOO_LOW"
	ErrMaxLevel     = "E_MAX_LEVEL"
	ErrLimitReached = "E_LIMIT_REACHED"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrUnknownPlayer:   {},
	ErrPlayerNotAlive:  {},
	ErrPlayerAlive:     {},
	ErrBadRequest:      {},
	ErrScoreTooLow:     {},
	ErrMaxLevel:        {},
	ErrLimitReached:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
