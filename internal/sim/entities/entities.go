// Package entities holds the entity vocabulary shared by the world and the player state.
package entities

import "strconv"

// Index is a position in the world's entity arena. It is valid only while the
// entity it names exists; removals compact the arena and move other entities.
type Index uint32

func (i Index) String() string { return "#" + strconv.FormatUint(uint64(i), 10) }

type Kind uint8

const (
	KindBoat Kind = iota + 1
	KindMine
	KindDecoy
)

func (k Kind) String() string {
	switch k {
	case KindBoat:
		return "boat"
	case KindMine:
		return "mine"
	case KindDecoy:
		return "decoy"
	default:
		return "unknown"
	}
}

// TeamTied entities belong to their owner's team membership and are removed
// when the owner leaves a team.
func (k Kind) TeamTied() bool { return k == KindMine }

// Limited entities are capped per boat level and are removed when the owner upgrades.
func (k Kind) Limited() bool { return k == KindDecoy }

const (
	MinBoatLevel uint8 = 1
	MaxBoatLevel uint8 = 10
)

// BoatData is the static description of a boat at a level.
type BoatData struct {
	Level       uint8
	Armaments   int
	Speed       float32 // m/s
	VisualRange float32 // m
	Reload      float32 // seconds per armament
	MaxDecoys   int
}

// Boat returns the data for a boat of the given level, clamped to the valid range.
func Boat(level uint8) BoatData {
	if level < MinBoatLevel {
		level = MinBoatLevel
	}
	if level > MaxBoatLevel {
		level = MaxBoatLevel
	}
	l := float32(level)
	return BoatData{
		Level:       level,
		Armaments:   int(level) + 1,
		Speed:       20 - l,
		VisualRange: 400 + 60*l,
		Reload:      6 - 0.3*l,
		MaxDecoys:   int(level+1) / 2,
	}
}

// LevelToScore is the score a player needs to reach level.
func LevelToScore(level uint8) uint32 {
	if level <= MinBoatLevel {
		return 0
	}
	l := uint32(level) - 1
	return 50 * l * l
}

// ScoreToLevel is the highest level reachable with score.
func ScoreToLevel(score uint32) uint8 {
	level := MinBoatLevel
	for level < MaxBoatLevel && LevelToScore(level+1) <= score {
		level++
	}
	return level
}
