package player

import "mk48.io/internal/protocol"

// Camera is a player's view into the world.
type Camera struct {
	Center protocol.Vec2
	Radius float32
}

// Contains reports whether pos is inside the view circle.
func (c Camera) Contains(pos protocol.Vec2) bool {
	return c.Center.Distance(pos) <= c.Radius
}
