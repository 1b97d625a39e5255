package player

import (
	"errors"
	"fmt"
	"time"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/entities"
)

// ErrInvalidState is matched by every *InvalidStateError.
var ErrInvalidState = errors.New("player: invalid status")

// InvalidStateError is the panic value of an operation that requires a status
// the player is not in. It signals a bookkeeping bug in the caller.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("player: %s called on a non-alive status of %s", e.Op, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// StatusKind names the mutually exclusive player states.
type StatusKind uint8

const (
	// Spawning: the player never had a boat, or is waiting for a new one.
	Spawning StatusKind = iota
	// Alive: the player has a boat.
	Alive
	// Dead: the player had a boat.
	Dead
)

func (k StatusKind) String() string {
	switch k {
	case Spawning:
		return protocol.StatusSpawning
	case Alive:
		return protocol.StatusAlive
	case Dead:
		return protocol.StatusDead
	default:
		return fmt.Sprintf("StatusKind(%d)", uint8(k))
	}
}

// DeathInfo is recorded when a boat is destroyed.
type DeathInfo struct {
	Reason      protocol.DeathReason
	Position    protocol.Vec2
	VisualRange float32
}

// Status is one of Spawning, Alive or Dead together with that variant's data.
//
// Variants are only built by the New* constructors. Callers change a player's
// status by assigning a whole new Status under the player's exclusive borrow, so
// nobody can observe a half-made transition. The zero value is Spawning.
type Status struct {
	kind  StatusKind
	since time.Time

	// Alive
	entityIndex entities.Index
	aimTarget   *protocol.Vec2

	// Dead
	death DeathInfo
}

func NewSpawning() Status {
	return Status{kind: Spawning, since: time.Now()}
}

func NewAlive(entityIndex entities.Index) Status {
	return Status{kind: Alive, since: time.Now(), entityIndex: entityIndex}
}

func NewDead(reason protocol.DeathReason, position protocol.Vec2, visualRange float32) Status {
	return Status{
		kind:  Dead,
		since: time.Now(),
		death: DeathInfo{Reason: reason, Position: position, VisualRange: visualRange},
	}
}

func (s Status) Kind() StatusKind { return s.kind }

// Since is when the player entered this status.
func (s Status) Since() time.Time { return s.since }

// IsAlive returns whether the status matches Alive.
func (s Status) IsAlive() bool { return s.kind == Alive }

// EntityIndex is the index of the player's boat in the world's entity arena.
func (s Status) EntityIndex() (entities.Index, bool) {
	if s.kind != Alive {
		return 0, false
	}
	return s.entityIndex, true
}

// MustEntityIndex is EntityIndex for callers that already know the player is alive.
// It panics with an *InvalidStateError otherwise.
func (s Status) MustEntityIndex() entities.Index {
	if s.kind != Alive {
		panic(&InvalidStateError{Op: "MustEntityIndex", Status: s})
	}
	return s.entityIndex
}

// AimTarget is where an alive player is aiming. Used by turrets and aircraft.
func (s Status) AimTarget() (protocol.Vec2, bool) {
	if s.kind != Alive || s.aimTarget == nil {
		return protocol.Vec2{}, false
	}
	return *s.aimTarget, true
}

// Death returns what was recorded when the player's boat was destroyed.
func (s Status) Death() (DeathInfo, bool) {
	if s.kind != Dead {
		return DeathInfo{}, false
	}
	return s.death, true
}

// SetEntityIndex moves an alive player's boat index, keeping aim target and spawn time.
// It panics with an *InvalidStateError if the status is not Alive and leaves s unchanged.
func (s *Status) SetEntityIndex(newIndex entities.Index) {
	if s.kind != Alive {
		panic(&InvalidStateError{Op: "SetEntityIndex", Status: *s})
	}
	s.entityIndex = newIndex
}

// SetAimTarget updates where an alive player is aiming; nil clears it.
// It reports false and does nothing for any other status.
func (s *Status) SetAimTarget(target *protocol.Vec2) bool {
	if s.kind != Alive {
		return false
	}
	if target == nil {
		s.aimTarget = nil
		return true
	}
	t := *target
	s.aimTarget = &t
	return true
}

func (s Status) String() string {
	switch s.kind {
	case Alive:
		if s.aimTarget != nil {
			return fmt.Sprintf("Alive{entity_index: %s, aim_target: (%g, %g)}", s.entityIndex, s.aimTarget.X, s.aimTarget.Y)
		}
		return fmt.Sprintf("Alive{entity_index: %s}", s.entityIndex)
	case Dead:
		return fmt.Sprintf("Dead{reason: %s, position: (%g, %g), visual_range: %g}",
			s.death.Reason, s.death.Position.X, s.death.Position.Y, s.death.VisualRange)
	default:
		return "Spawning"
	}
}
