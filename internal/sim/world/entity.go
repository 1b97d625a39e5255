package world

import (
	"fmt"
	"sort"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/entities"
	"mk48.io/internal/sim/player"
)

// Entity is one slot of the world's entity arena.
//
// A *Entity obtained from the arena by the world loop is the exclusive hold on
// that entity, and for a boat it is the player.Avatar that unlocks the owner's
// Extension.
type Entity struct {
	Kind     entities.Kind
	Position protocol.Vec2
	Velocity protocol.Vec2

	// Level of a boat.
	Level uint8
	// ExpiresTick of a decoy; 0 never expires.
	ExpiresTick uint64

	owner *player.Tuple
}

// Owner implements player.Avatar.
func (e *Entity) Owner() *player.Tuple { return e.owner }

func (e *Entity) String() string {
	return fmt.Sprintf("%s{owner: %s, pos: (%.1f, %.1f)}", e.Kind, e.owner, e.Position.X, e.Position.Y)
}

// EntityCount is the number of live entities.
func (w *World) EntityCount() int { return len(w.entities) }

// EntityAt returns a copy of the entity at idx.
func (w *World) EntityAt(idx entities.Index) (Entity, bool) {
	if int(idx) >= len(w.entities) {
		return Entity{}, false
	}
	return w.entities[idx], true
}

func (w *World) addEntity(e Entity) entities.Index {
	w.entities = append(w.entities, e)
	return entities.Index(len(w.entities) - 1)
}

// removeEntity swap-removes idx. If that moves a boat, its owner's status is
// pointed at the new slot, so no Alive status ever keeps a stale index.
// The caller must not hold a borrow of the moved boat's owner.
func (w *World) removeEntity(idx entities.Index) {
	last := entities.Index(len(w.entities) - 1)
	if idx > last {
		panic(fmt.Sprintf("world: remove of entity %s past end %s", idx, last))
	}
	if idx != last {
		w.entities[idx] = w.entities[last]
		if moved := &w.entities[idx]; moved.Kind == entities.KindBoat {
			moved.owner.Update(func(p *player.Player) { p.Status.SetEntityIndex(idx) })
		}
	}
	w.entities[last] = Entity{}
	w.entities = w.entities[:last]
}

// removeEntities removes every index in idxs; idxs may be in any order but must
// not repeat.
func (w *World) removeEntities(idxs []entities.Index) {
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] > idxs[j] })
	for _, idx := range idxs {
		w.removeEntity(idx)
	}
}

// countOwned counts entities of kind owned by tp.
func (w *World) countOwned(tp *player.Tuple, kind entities.Kind) int {
	n := 0
	for i := range w.entities {
		if w.entities[i].owner == tp && w.entities[i].Kind == kind {
			n++
		}
	}
	return n
}
