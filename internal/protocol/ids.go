package protocol

import (
	"fmt"
	"strconv"
)

// PlayerID is assigned by the session layer and is never reused while the session is active.
type PlayerID uint32

func (id PlayerID) String() string { return "P" + strconv.FormatUint(uint64(id), 10) }

// TeamID identifies a team. A player on no team carries a nil *TeamID.
type TeamID uint32

func (id TeamID) String() string { return "T" + strconv.FormatUint(uint64(id), 10) }

// TeamPtr returns a pointer to a copy of id.
func TeamPtr(id TeamID) *TeamID { return &id }

// SameTeam reports whether a and b are both set and equal.
func SameTeam(a, b *TeamID) bool {
	return a != nil && b != nil && *a == *b
}

// FormatTeam renders an optional team for logs.
func FormatTeam(id *TeamID) string {
	if id == nil {
		return "none"
	}
	return fmt.Sprint(*id)
}
