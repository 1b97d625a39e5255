package world

import (
	"fmt"
	"sort"
	"sync/atomic"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/player"
	"mk48.io/internal/sim/tuning"
)

type WorldConfig struct {
	ID         string
	TickRateHz int

	WorldRadius          float32
	MaxPlayers           int
	SpawningCameraRadius float32
	DebugMaxScore        bool

	KillScore  uint32
	MinesMax   int
	DecoyTicks int
}

// ConfigFromTuning maps the tuning file onto a world config.
func ConfigFromTuning(id string, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                   id,
		TickRateHz:           t.TickRateHz,
		WorldRadius:          t.WorldRadius,
		MaxPlayers:           t.MaxPlayers,
		SpawningCameraRadius: t.SpawningCameraRadius,
		DebugMaxScore:        t.DebugMaxScore,
		KillScore:            t.Score.Kill,
		MinesMax:             t.MinesMax,
		DecoyTicks:           t.DecoyTicks,
	}
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	// Code is a protocol error code when the join was refused.
	Code string
}

type InputEnvelope struct {
	PlayerID protocol.PlayerID
	Input    protocol.InputMsg
}

type RecordedJoin struct {
	PlayerID protocol.PlayerID `json:"player_id"`
	Name     string            `json:"name"`
}

// World is a single-threaded authoritative simulation.
// All state, including every player borrow, is taken only from the world loop
// goroutine; other goroutines reach it through the request channels.
type World struct {
	cfg WorldConfig

	tick atomic.Uint64

	entities []Entity
	players  map[protocol.PlayerID]*player.Tuple
	names    map[protocol.PlayerID]string
	clients  map[protocol.PlayerID]*clientState

	inbox   chan InputEnvelope
	join    chan JoinRequest
	leave   chan protocol.PlayerID
	stop    chan struct{}
	boardQ  chan leaderboardReq
	playerQ chan playerReq

	nextPlayer atomic.Uint32

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	lifecycle  []LifecycleLogger
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type LifecycleLogger interface {
	WriteLifecycle(entry LifecycleEntry) error
}

type TickLogEntry struct {
	Tick     uint64              `json:"tick"`
	Joins    []RecordedJoin      `json:"joins,omitempty"`
	Leaves   []protocol.PlayerID `json:"leaves,omitempty"`
	Inputs   int                 `json:"inputs"`
	Players  int                 `json:"players"`
	Alive    int                 `json:"alive"`
	Entities int                 `json:"entities"`
}

// Lifecycle event names.
const (
	EventJoin    = "JOIN"
	EventSpawn   = "SPAWN"
	EventDeath   = "DEATH"
	EventRespawn = "RESPAWN"
	EventTeam    = "TEAM"
	EventUpgrade = "UPGRADE"
	EventLeave   = "LEAVE"
)

// LifecycleEntry records one player state transition.
type LifecycleEntry struct {
	Tick     uint64                `json:"tick"`
	PlayerID protocol.PlayerID     `json:"player_id"`
	Event    string                `json:"event"`
	Name     string                `json:"name,omitempty"`
	Score    uint32                `json:"score"`
	Level    uint8                 `json:"level,omitempty"`
	TeamID   *protocol.TeamID      `json:"team_id,omitempty"`
	Reason   *protocol.DeathReason `json:"reason,omitempty"`
	Position *protocol.Vec2        `json:"position,omitempty"`
}

type clientState struct {
	Out chan []byte
}

func New(cfg WorldConfig) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world %s: tick rate must be positive", cfg.ID)
	}
	if cfg.WorldRadius <= 0 {
		return nil, fmt.Errorf("world %s: world radius must be positive", cfg.ID)
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 256
	}
	if cfg.SpawningCameraRadius <= 0 {
		cfg.SpawningCameraRadius = cfg.WorldRadius / 2
	}
	if cfg.DecoyTicks <= 0 {
		cfg.DecoyTicks = cfg.TickRateHz * 5
	}
	w := &World{
		cfg:     cfg,
		players: map[protocol.PlayerID]*player.Tuple{},
		names:   map[protocol.PlayerID]string{},
		clients: map[protocol.PlayerID]*clientState{},
		inbox:   make(chan InputEnvelope, 1024),
		join:    make(chan JoinRequest, 64),
		leave:   make(chan protocol.PlayerID, 64),
		stop:    make(chan struct{}),
		boardQ:  make(chan leaderboardReq, 16),
		playerQ: make(chan playerReq, 16),
	}
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// AddLifecycleLogger registers a sink for player lifecycle events.
func (w *World) AddLifecycleLogger(l LifecycleLogger) {
	if l != nil {
		w.lifecycle = append(w.lifecycle, l)
	}
}

func (w *World) Inbox() chan<- InputEnvelope {
	return w.inbox
}

func (w *World) Join() chan<- JoinRequest {
	return w.join
}

func (w *World) Leave() chan<- protocol.PlayerID {
	return w.leave
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

// Player returns the shared handle of a player, or nil.
// Borrowing it is only valid on the world loop goroutine.
func (w *World) Player(id protocol.PlayerID) *player.Tuple { return w.players[id] }

// playerIDs returns the current players in ascending id order.
func (w *World) playerIDs() []protocol.PlayerID {
	ids := make([]protocol.PlayerID, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *World) emit(e LifecycleEntry) {
	e.Tick = w.tick.Load()
	for _, l := range w.lifecycle {
		_ = l.WriteLifecycle(e)
	}
}
