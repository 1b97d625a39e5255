package main

import (
	"math/rand"

	"mk48.io/internal/protocol"
)

// aimEvery is how many ticks the bot keeps a heading before picking a new one.
const aimEvery = 50

// brain turns STATUS pushes into inputs: spawn whenever there is no boat,
// join the configured team once, and wander inside the camera.
type brain struct {
	r      *rand.Rand
	team   *protocol.TeamID
	joined bool
	last   string
}

func (b *brain) decide(st protocol.StatusMsg) *protocol.InputMsg {
	prev := b.last
	b.last = st.Status
	in := &protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version}
	switch st.Status {
	case protocol.StatusSpawning, protocol.StatusDead:
		if prev == st.Status && st.Tick%10 != 0 {
			return nil
		}
		in.Spawn = true
		return in
	case protocol.StatusAlive:
		if b.team != nil && !b.joined {
			in.Team = b.team
			b.joined = true
			return in
		}
		if prev == protocol.StatusAlive && st.Tick%aimEvery != 0 {
			return nil
		}
		r := st.Camera.Radius / 2
		target := st.Camera.Center.Add(protocol.Vec2{
			X: (b.r.Float32()*2 - 1) * r,
			Y: (b.r.Float32()*2 - 1) * r,
		})
		in.Aim = &target
		return in
	}
	return nil
}
