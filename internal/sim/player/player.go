// Package player holds the authoritative per-player state and the wrapper that
// shares it between the tick loop and the code driving each player's boat.
package player

import (
	"fmt"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/entities"
)

// Player is the owner of a boat, either a real person or a bot.
type Player struct {
	// Flags are set each tick from inputs. They are cleared once when the boat
	// spawns and once in each physics tick.
	Flags Flags
	// Hint from the client.
	Hint protocol.Hint
	// PlayerID is assigned by the session layer.
	PlayerID protocol.PlayerID
	Score    uint32
	// Status is Spawning, Alive or Dead.
	Status Status
	// TeamID is nil when the player is not in a team.
	TeamID *protocol.TeamID
}

// New returns a player with a Spawning status and no score.
func New(id protocol.PlayerID) Player {
	return Player{
		PlayerID: id,
		Status:   NewSpawning(),
	}
}

// NewMaxLevel is New with enough score to pick the top boat level. Only the
// debug tuning switch and test harnesses use it.
func NewMaxLevel(id protocol.PlayerID) Player {
	p := New(id)
	p.Score = entities.LevelToScore(entities.MaxBoatLevel)
	return p
}

// ChangeTeam moves the player to team (nil for none), setting
// Flags.LeftPopulatedTeam if the player was on a team before.
func (p *Player) ChangeTeam(team *protocol.TeamID) {
	if p.TeamID != nil {
		// Set whenever a team is left, populated or not.
		p.Flags.LeftPopulatedTeam = true
	}
	if team == nil {
		p.TeamID = nil
		return
	}
	t := *team
	p.TeamID = &t
}

// Level is the highest boat level the player's score allows.
func (p *Player) Level() uint8 { return entities.ScoreToLevel(p.Score) }

func (p *Player) String() string {
	return fmt.Sprintf("Player{id: %s, score: %d, team: %s, status: %s, flags: %s}",
		p.PlayerID, p.Score, protocol.FormatTeam(p.TeamID), p.Status, p.Flags)
}
