package player

import "strings"

// Flags are set from player inputs and cleared each physics tick.
// They tell the simulation which of the player's entities to remove.
type Flags struct {
	// LeftGame: the player just left the game so all of its entities should be removed.
	LeftGame bool
	// LeftPopulatedTeam: the player just left a team so all its mines should be removed.
	LeftPopulatedTeam bool
	// Upgraded: the player just upgraded so all limited entities should be removed.
	Upgraded bool
}

// Any reports whether a side effect is pending.
func (f Flags) Any() bool { return f.LeftGame || f.LeftPopulatedTeam || f.Upgraded }

func (f *Flags) Clear() { *f = Flags{} }

func (f Flags) String() string {
	var parts []string
	if f.LeftGame {
		parts = append(parts, "left_game")
	}
	if f.LeftPopulatedTeam {
		parts = append(parts, "left_populated_team")
	}
	if f.Upgraded {
		parts = append(parts, "upgraded")
	}
	return "{" + strings.Join(parts, ",") + "}"
}
