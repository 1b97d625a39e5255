package protocol

import "math"

// Vec2 is a point or vector in world space (meters).
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(f float32) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

func (v Vec2) Length() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

func (v Vec2) Distance(o Vec2) float32 {
	return v.Sub(o).Length()
}

// Hint is the per-tick signal a client attaches to its inputs.
// The zero value is the default hint.
type Hint struct {
	// Aspect is the client's viewport width/height ratio.
	Aspect float32 `json:"aspect,omitempty"`
}

// DeathKind classifies why a boat was destroyed.
type DeathKind string

const (
	DeathBorder    DeathKind = "BORDER"
	DeathCollision DeathKind = "COLLISION"
	DeathRamming   DeathKind = "RAMMING"
	DeathWeapon    DeathKind = "WEAPON"
	DeathTerrain   DeathKind = "TERRAIN"
	DeathUnknown   DeathKind = "UNKNOWN"
)

// DeathReason describes what killed a boat. Killer is empty unless another player is to blame.
type DeathReason struct {
	Kind   DeathKind `json:"kind"`
	Killer string    `json:"killer,omitempty"`
	Entity string    `json:"entity,omitempty"`
}

func (r DeathReason) String() string {
	s := string(r.Kind)
	if s == "" {
		s = string(DeathUnknown)
	}
	if r.Killer != "" {
		s += " by " + r.Killer
	}
	if r.Entity != "" {
		s += " (" + r.Entity + ")"
	}
	return s
}
