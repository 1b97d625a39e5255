package world

import (
	"encoding/json"
	"math"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/entities"
	"mk48.io/internal/sim/player"
)

// arriveRadius is how close a boat gets to its aim target before stopping.
const arriveRadius = 1

func (w *World) dt() float32 { return 1 / float32(w.cfg.TickRateHz) }

// step advances the world by one tick.
//
// Order: joins, inputs, leaves, physics, border deaths, flag side effects,
// flag clearing, dropping departed players, logging, status push. Every player
// borrow taken here is released before the next one on the same player.
func (w *World) step(joins []JoinRequest, leaves []protocol.PlayerID, inputs []InputEnvelope) {
	nowTick := w.tick.Load()

	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := w.handleJoin(req)
		if resp.Welcome.PlayerID != 0 {
			recordedJoins = append(recordedJoins, RecordedJoin{PlayerID: resp.Welcome.PlayerID, Name: req.Name})
		}
	}
	for _, env := range inputs {
		w.applyInput(env)
	}
	for _, id := range leaves {
		delete(w.clients, id)
		_ = w.RemovePlayer(id)
	}

	w.integrate(nowTick)
	w.borderDeaths()
	left := w.applyFlags()

	for _, id := range w.playerIDs() {
		w.players[id].Update(func(p *player.Player) { p.Flags.Clear() })
	}
	for _, id := range left {
		w.dropPlayer(id)
	}

	if w.tickLogger != nil {
		alive := 0
		for _, e := range w.entities {
			if e.Kind == entities.KindBoat {
				alive++
			}
		}
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:     nowTick,
			Joins:    recordedJoins,
			Leaves:   left,
			Inputs:   len(inputs),
			Players:  len(w.players),
			Alive:    alive,
			Entities: len(w.entities),
		})
	}

	w.pushStatus(nowTick)
	w.tick.Add(1)
}

// Step advances the world by a single tick with no queued requests.
func (w *World) Step() { w.step(nil, nil, nil) }

// integrate moves entities, steers boats toward their aim targets, advances
// boat extensions and expires decoys.
func (w *World) integrate(nowTick uint64) {
	dt := w.dt()
	var expired []entities.Index
	for i := range w.entities {
		e := &w.entities[i]
		switch e.Kind {
		case entities.KindBoat:
			var (
				aim    protocol.Vec2
				hasAim bool
			)
			e.owner.View(func(p *player.Player) { aim, hasAim = p.Status.AimTarget() })
			e.Velocity = protocol.Vec2{}
			if hasAim {
				delta := aim.Sub(e.Position)
				if dist := delta.Length(); dist > arriveRadius {
					speed := entities.Boat(e.Level).Speed
					e.Velocity = delta.Scale(speed / dist)
				}
			}
			// The loop holds e exclusively, which is the proof the extension needs.
			ext := e.owner.UnsafeExtensionMut(e)
			ext.Reload(dt)
			if hasAim {
				bearing := float32(math.Atan2(float64(aim.Y-e.Position.Y), float64(aim.X-e.Position.X)))
				for j := range ext.TurretAngles {
					ext.TurretAngles[j] = bearing
				}
			}
		case entities.KindDecoy:
			if e.ExpiresTick != 0 && e.ExpiresTick <= nowTick {
				expired = append(expired, entities.Index(i))
			}
		}
		e.Position = e.Position.Add(e.Velocity.Scale(dt))
	}
	w.removeEntities(expired)
}

// borderDeaths sinks boats that left the world.
func (w *World) borderDeaths() {
	var victims []protocol.PlayerID
	for i := range w.entities {
		e := &w.entities[i]
		if e.Kind != entities.KindBoat || e.Position.Length() <= w.cfg.WorldRadius {
			continue
		}
		e.owner.View(func(p *player.Player) { victims = append(victims, p.PlayerID) })
	}
	for _, id := range victims {
		_ = w.Kill(id, protocol.DeathReason{Kind: protocol.DeathBorder}, nil)
	}
}

// applyFlags removes the entities the current flags call for and returns the
// players that left the game.
func (w *World) applyFlags() []protocol.PlayerID {
	flags := make(map[*player.Tuple]player.Flags)
	var left []protocol.PlayerID
	for _, id := range w.playerIDs() {
		tp := w.players[id]
		tp.View(func(p *player.Player) {
			if p.Flags.Any() {
				flags[tp] = p.Flags
			}
			if p.Flags.LeftGame {
				left = append(left, id)
			}
		})
	}
	if len(flags) == 0 {
		return nil
	}

	var doomed []entities.Index
	for i := range w.entities {
		e := &w.entities[i]
		f, ok := flags[e.owner]
		if !ok {
			continue
		}
		if f.LeftGame ||
			(f.LeftPopulatedTeam && e.Kind.TeamTied()) ||
			(f.Upgraded && e.Kind.Limited()) {
			doomed = append(doomed, entities.Index(i))
		}
	}
	w.removeEntities(doomed)
	return left
}

// dropPlayer ends the player's session. Its entities are already gone.
func (w *World) dropPlayer(id protocol.PlayerID) {
	tp := w.players[id]
	if tp == nil {
		return
	}
	var score uint32
	tp.View(func(p *player.Player) { score = p.Score })
	delete(w.players, id)
	delete(w.names, id)
	delete(w.clients, id)
	w.emit(LifecycleEntry{PlayerID: id, Event: EventLeave, Score: score})
}

func (w *World) handleJoin(req JoinRequest) JoinResponse {
	var resp JoinResponse
	id, _, err := w.AddPlayer(req.Name)
	if err != nil {
		resp.Code = protocol.ErrInternal
		if ie, ok := err.(*InputError); ok {
			resp.Code = ie.Code
		}
	} else {
		if req.Out != nil {
			w.clients[id] = &clientState{Out: req.Out}
		}
		resp.Welcome = protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			PlayerID:        id,
			TickRateHz:      w.cfg.TickRateHz,
		}
	}
	if req.Resp != nil {
		select {
		case req.Resp <- resp:
		default:
		}
	}
	return resp
}

// applyInput applies one client input. Refusals are reported back to the client.
func (w *World) applyInput(env InputEnvelope) {
	in := env.Input
	id := env.PlayerID
	var errs []error
	try := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if in.Hint != nil {
		try(w.SetHint(id, *in.Hint))
	}
	switch {
	case in.LeaveTeam:
		try(w.ChangeTeam(id, nil))
	case in.Team != nil:
		try(w.ChangeTeam(id, in.Team))
	}
	if in.Spawn {
		_, err := w.Spawn(id)
		try(err)
	}
	if in.Aim != nil {
		try(w.SetAim(id, in.Aim))
	}
	if in.Upgrade {
		try(w.Upgrade(id))
	}
	for _, err := range errs {
		msg := protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrInternal, Message: err.Error()}
		if ie, ok := err.(*InputError); ok {
			msg.Code, msg.Message = ie.Code, ie.Message
		}
		w.send(id, msg)
	}
}

// pushStatus sends every connected client its STATUS for this tick.
func (w *World) pushStatus(nowTick uint64) {
	for id := range w.clients {
		msg, ok := w.statusMsg(id, nowTick)
		if !ok {
			continue
		}
		w.send(id, msg)
	}
}

func (w *World) statusMsg(id protocol.PlayerID, nowTick uint64) (protocol.StatusMsg, bool) {
	tp := w.players[id]
	if tp == nil {
		return protocol.StatusMsg{}, false
	}
	cam, _ := w.Camera(id)
	msg := protocol.StatusMsg{
		Type:            protocol.TypeStatus,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		PlayerID:        id,
		Camera:          protocol.CameraV1{Center: cam.Center, Radius: cam.Radius},
	}
	tp.View(func(p *player.Player) {
		msg.Status = p.Status.Kind().String()
		msg.Score = p.Score
		if p.TeamID != nil {
			team := *p.TeamID
			msg.TeamID = &team
		}
		if d, ok := p.Status.Death(); ok {
			reason := d.Reason
			msg.DeathReason = &reason
		}
	})
	return msg, true
}

// send queues v for the client, dropping its oldest message if the queue is full.
func (w *World) send(id protocol.PlayerID, v any) {
	cl := w.clients[id]
	if cl == nil || cl.Out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	sendLatest(cl.Out, b)
}
