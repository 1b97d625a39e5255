package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	PlayerID        PlayerID `json:"player_id"`
	TickRateHz      int      `json:"tick_rate_hz"`
}

// INPUT (client -> server). Every field is optional; absent fields leave state untouched.
type InputMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Hint *Hint `json:"hint,omitempty"`
	Aim  *Vec2 `json:"aim,omitempty"`

	Spawn     bool    `json:"spawn,omitempty"`
	Team      *TeamID `json:"team,omitempty"`
	LeaveTeam bool    `json:"leave_team,omitempty"`
	Upgrade   bool    `json:"upgrade,omitempty"`
}

// STATUS (server -> client), one per tick.
type StatusMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Tick            uint64   `json:"tick"`
	PlayerID        PlayerID `json:"player_id"`
	Status          string   `json:"status"`
	Score           uint32   `json:"score"`
	TeamID          *TeamID  `json:"team_id,omitempty"`
	Camera          CameraV1 `json:"camera"`

	DeathReason *DeathReason `json:"death_reason,omitempty"`
}

type CameraV1 struct {
	Center Vec2    `json:"center"`
	Radius float32 `json:"radius"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// Status names carried in StatusMsg.Status.
const (
	StatusSpawning = "SPAWNING"
	StatusAlive    = "ALIVE"
	StatusDead     = "DEAD"
)
