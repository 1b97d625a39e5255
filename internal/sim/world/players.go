package world

import (
	"fmt"
	"math"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/entities"
	"mk48.io/internal/sim/player"
)

// InputError is a refused player operation. Code is a protocol error code.
type InputError struct {
	Code    string
	Message string
}

func (e *InputError) Error() string { return e.Code + ": " + e.Message }

func inputErr(code, format string, args ...any) *InputError {
	return &InputError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (w *World) tuple(id protocol.PlayerID) (*player.Tuple, error) {
	tp := w.players[id]
	if tp == nil {
		return nil, inputErr(protocol.ErrUnknownPlayer, "player %s not found", id)
	}
	return tp, nil
}

// AddPlayer starts a session for a new player and returns its shared handle.
func (w *World) AddPlayer(name string) (protocol.PlayerID, *player.Tuple, error) {
	if len(w.players) >= w.cfg.MaxPlayers {
		return 0, nil, inputErr(protocol.ErrWorldBusy, "world %s is full", w.cfg.ID)
	}
	id := protocol.PlayerID(w.nextPlayer.Add(1))
	p := player.New(id)
	if w.cfg.DebugMaxScore {
		p = player.NewMaxLevel(id)
	}
	tp := player.NewTupleFrom(p)
	if name == "" {
		name = fmt.Sprintf("Guest %d", id)
	}
	w.players[id] = tp
	w.names[id] = name
	w.emit(LifecycleEntry{PlayerID: id, Event: EventJoin, Name: name, Score: p.Score})
	return id, tp, nil
}

// RemovePlayer marks the player as leaving. Its entities and the player itself
// are dropped by the next Step.
func (w *World) RemovePlayer(id protocol.PlayerID) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	tp.Update(func(p *player.Player) { p.Flags.LeftGame = true })
	return nil
}

// spawnPosition spreads players around a ring at half the world radius.
func (w *World) spawnPosition(id protocol.PlayerID) protocol.Vec2 {
	const golden = 2.399963229728653 // radians
	a := float64(id) * golden
	r := float64(w.cfg.WorldRadius) / 2
	return protocol.Vec2{X: float32(math.Cos(a) * r), Y: float32(math.Sin(a) * r)}
}

// Spawn grants a boat to a Spawning or Dead player, at the death position when
// that is still inside the world. Score is kept; the boat level follows it. The player's Extension is claimed by the new boat.
func (w *World) Spawn(id protocol.PlayerID) (entities.Index, error) {
	tp, err := w.tuple(id)
	if err != nil {
		return 0, err
	}
	var (
		idx    entities.Index
		level  uint8
		score  uint32
		refuse error
	)
	tp.Update(func(p *player.Player) {
		if p.Status.IsAlive() {
			refuse = inputErr(protocol.ErrPlayerAlive, "player %s already has a boat", id)
			return
		}
		pos := w.spawnPosition(id)
		// Boats that sank outside the world start over on the ring.
		if d, ok := p.Status.Death(); ok && d.Position.Length() <= w.cfg.WorldRadius {
			pos = d.Position
		}
		level = p.Level()
		score = p.Score
		idx = w.addEntity(Entity{Kind: entities.KindBoat, Position: pos, Level: level, owner: tp})
		p.Status = player.NewAlive(idx)
		// A pending leave still has to be honored by the next Step.
		p.Flags = player.Flags{LeftGame: p.Flags.LeftGame}
	})
	if refuse != nil {
		return 0, refuse
	}
	boat := &w.entities[idx]
	tp.UnsafeExtensionMut(boat).Reset(entities.Boat(level).Armaments, w.tick.Load())
	pos := boat.Position
	w.emit(LifecycleEntry{PlayerID: id, Event: EventSpawn, Score: score, Level: level, Position: &pos})
	return idx, nil
}

// Kill sinks the victim's boat, recording why and where. killer, if set, is
// credited with the kill score.
func (w *World) Kill(victim protocol.PlayerID, reason protocol.DeathReason, killer *protocol.PlayerID) error {
	tp, err := w.tuple(victim)
	if err != nil {
		return err
	}
	var (
		idx entities.Index
		ok  bool
	)
	tp.View(func(p *player.Player) { idx, ok = p.Status.EntityIndex() })
	if !ok {
		return inputErr(protocol.ErrPlayerNotAlive, "player %s has no boat", victim)
	}
	boat := w.entities[idx]
	if boat.owner != tp {
		panic(fmt.Sprintf("world: player %s status points at %s", victim, &boat))
	}
	if killer != nil && reason.Killer == "" {
		reason.Killer = killer.String()
	}

	var score uint32
	tp.Update(func(p *player.Player) {
		p.Status = player.NewDead(reason, boat.Position, entities.Boat(boat.Level).VisualRange)
		score = p.Score
	})
	w.removeEntity(idx)

	if killer != nil && *killer != victim {
		if k := w.players[*killer]; k != nil {
			k.Update(func(p *player.Player) { p.Score += w.cfg.KillScore })
		}
	}
	w.emit(LifecycleEntry{PlayerID: victim, Event: EventDeath, Score: score, Level: boat.Level, Reason: &reason, Position: &boat.Position})
	return nil
}

// Respawn moves a Dead player back to Spawning.
func (w *World) Respawn(id protocol.PlayerID) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	var refuse error
	tp.Update(func(p *player.Player) {
		if p.Status.Kind() != player.Dead {
			refuse = inputErr(protocol.ErrBadRequest, "player %s is %s, not dead", id, p.Status.Kind())
			return
		}
		p.Status = player.NewSpawning()
	})
	if refuse != nil {
		return refuse
	}
	w.emit(LifecycleEntry{PlayerID: id, Event: EventRespawn})
	return nil
}

// ChangeTeam moves the player to team (nil for none).
func (w *World) ChangeTeam(id protocol.PlayerID, team *protocol.TeamID) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	var entry LifecycleEntry
	tp.Update(func(p *player.Player) {
		p.ChangeTeam(team)
		entry = LifecycleEntry{PlayerID: id, Event: EventTeam, Score: p.Score, TeamID: p.TeamID}
	})
	w.emit(entry)
	return nil
}

func (w *World) SetHint(id protocol.PlayerID, hint protocol.Hint) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	tp.Update(func(p *player.Player) { p.Hint = hint })
	return nil
}

// SetAim points an alive player's boat and turrets at target; nil stops the boat.
func (w *World) SetAim(id protocol.PlayerID, target *protocol.Vec2) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	var applied bool
	tp.Update(func(p *player.Player) { applied = p.Status.SetAimTarget(target) })
	if !applied {
		return inputErr(protocol.ErrPlayerNotAlive, "player %s has no boat to aim", id)
	}
	return nil
}

func (w *World) AddScore(id protocol.PlayerID, n uint32) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	tp.Update(func(p *player.Player) { p.Score += n })
	return nil
}

// Upgrade moves an alive player's boat one level up if their score allows it.
// The new boat re-claims the Extension and limited entities are dropped next Step.
func (w *World) Upgrade(id protocol.PlayerID) error {
	tp, err := w.tuple(id)
	if err != nil {
		return err
	}
	var (
		idx    entities.Index
		score  uint32
		refuse error
	)
	tp.Update(func(p *player.Player) {
		i, ok := p.Status.EntityIndex()
		if !ok {
			refuse = inputErr(protocol.ErrPlayerNotAlive, "player %s has no boat", id)
			return
		}
		boat := &w.entities[i]
		if boat.Level >= entities.MaxBoatLevel {
			refuse = inputErr(protocol.ErrMaxLevel, "boat already at level %d", boat.Level)
			return
		}
		if need := entities.LevelToScore(boat.Level + 1); p.Score < need {
			refuse = inputErr(protocol.ErrScoreTooLow, "level %d needs score %d, have %d", boat.Level+1, need, p.Score)
			return
		}
		boat.Level++
		p.Flags.Upgraded = true
		idx, score = i, p.Score
	})
	if refuse != nil {
		return refuse
	}
	boat := &w.entities[idx]
	tp.UnsafeExtensionMut(boat).Reset(entities.Boat(boat.Level).Armaments, w.tick.Load())
	w.emit(LifecycleEntry{PlayerID: id, Event: EventUpgrade, Score: score, Level: boat.Level})
	return nil
}

// boatOf returns the boat of an alive player.
func (w *World) boatOf(id protocol.PlayerID) (*player.Tuple, *Entity, error) {
	tp, err := w.tuple(id)
	if err != nil {
		return nil, nil, err
	}
	var (
		idx entities.Index
		ok  bool
	)
	tp.View(func(p *player.Player) { idx, ok = p.Status.EntityIndex() })
	if !ok {
		return nil, nil, inputErr(protocol.ErrPlayerNotAlive, "player %s has no boat", id)
	}
	return tp, &w.entities[idx], nil
}

// fire spends the first ready armament of boat.
func (w *World) fire(tp *player.Tuple, boat *Entity) bool {
	ext := tp.UnsafeExtensionMut(boat)
	i := ext.FirstReady()
	if i < 0 {
		return false
	}
	return ext.Consume(i, entities.Boat(boat.Level).Reload)
}

// PlaceMine drops a mine at the boat's position. Mines stay tied to the
// player's team membership.
func (w *World) PlaceMine(id protocol.PlayerID) (entities.Index, error) {
	tp, boat, err := w.boatOf(id)
	if err != nil {
		return 0, err
	}
	if w.countOwned(tp, entities.KindMine) >= w.cfg.MinesMax {
		return 0, inputErr(protocol.ErrLimitReached, "at most %d mines", w.cfg.MinesMax)
	}
	if !w.fire(tp, boat) {
		return 0, inputErr(protocol.ErrLimitReached, "armaments reloading")
	}
	return w.addEntity(Entity{Kind: entities.KindMine, Position: boat.Position, owner: tp}), nil
}

// LaunchDecoy launches a decoy along the boat's heading. Decoys are limited per
// boat level and expire.
func (w *World) LaunchDecoy(id protocol.PlayerID) (entities.Index, error) {
	tp, boat, err := w.boatOf(id)
	if err != nil {
		return 0, err
	}
	data := entities.Boat(boat.Level)
	if w.countOwned(tp, entities.KindDecoy) >= data.MaxDecoys {
		return 0, inputErr(protocol.ErrLimitReached, "at most %d decoys at level %d", data.MaxDecoys, boat.Level)
	}
	if !w.fire(tp, boat) {
		return 0, inputErr(protocol.ErrLimitReached, "armaments reloading")
	}
	return w.addEntity(Entity{
		Kind:        entities.KindDecoy,
		Position:    boat.Position,
		Velocity:    boat.Velocity.Scale(1.5),
		ExpiresTick: w.tick.Load() + uint64(w.cfg.DecoyTicks),
		owner:       tp,
	}), nil
}

// Camera is the player's view into the world.
func (w *World) Camera(id protocol.PlayerID) (player.Camera, error) {
	tp, err := w.tuple(id)
	if err != nil {
		return player.Camera{}, err
	}
	cam := player.Camera{Radius: w.cfg.SpawningCameraRadius}
	tp.View(func(p *player.Player) {
		if idx, ok := p.Status.EntityIndex(); ok {
			boat := &w.entities[idx]
			cam = player.Camera{Center: boat.Position, Radius: entities.Boat(boat.Level).VisualRange}
			return
		}
		if d, ok := p.Status.Death(); ok {
			cam = player.Camera{Center: d.Position, Radius: d.VisualRange}
		}
	})
	return cam, nil
}
