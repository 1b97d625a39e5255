package main

import (
	"fmt"
	"sort"
	"strings"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/world"
)

type playerSummary struct {
	ID       protocol.PlayerID
	Name     string
	Joined   uint64
	Left     uint64
	HasLeft  bool
	Spawns   int
	Upgrades int
	Kills    int
	Teams    int
	MaxScore uint32
	MaxLevel uint8
	Deaths   map[protocol.DeathKind]int
}

func (p *playerSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q joined=%d", p.ID, p.Name, p.Joined)
	if p.HasLeft {
		fmt.Fprintf(&b, " left=%d", p.Left)
	}
	fmt.Fprintf(&b, " spawns=%d kills=%d upgrades=%d teams=%d max_score=%d max_level=%d",
		p.Spawns, p.Kills, p.Upgrades, p.Teams, p.MaxScore, p.MaxLevel)

	kinds := make([]string, 0, len(p.Deaths))
	for k := range p.Deaths {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	total := 0
	var parts []string
	for _, k := range kinds {
		n := p.Deaths[protocol.DeathKind(k)]
		total += n
		parts = append(parts, fmt.Sprintf("%s:%d", k, n))
	}
	fmt.Fprintf(&b, " deaths=%d", total)
	if len(parts) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}
	return b.String()
}

type summary struct {
	events  int
	players map[protocol.PlayerID]*playerSummary
}

func newSummary() *summary {
	return &summary{players: map[protocol.PlayerID]*playerSummary{}}
}

func (s *summary) get(id protocol.PlayerID) *playerSummary {
	p := s.players[id]
	if p == nil {
		p = &playerSummary{ID: id, Deaths: map[protocol.DeathKind]int{}}
		s.players[id] = p
	}
	return p
}

func (s *summary) add(e world.LifecycleEntry) {
	s.events++
	p := s.get(e.PlayerID)
	if e.Score > p.MaxScore {
		p.MaxScore = e.Score
	}
	if e.Level > p.MaxLevel {
		p.MaxLevel = e.Level
	}
	switch e.Event {
	case world.EventJoin:
		p.Name = e.Name
		p.Joined = e.Tick
	case world.EventLeave:
		p.Left, p.HasLeft = e.Tick, true
	case world.EventSpawn:
		p.Spawns++
	case world.EventUpgrade:
		p.Upgrades++
	case world.EventTeam:
		p.Teams++
	case world.EventDeath:
		kind := protocol.DeathUnknown
		if e.Reason != nil {
			if e.Reason.Kind != "" {
				kind = e.Reason.Kind
			}
			if k, ok := parsePlayerID(e.Reason.Killer); ok && k != e.PlayerID {
				s.get(k).Kills++
			}
		}
		p.Deaths[kind]++
	}
}

// rows returns the summaries ordered by player id.
func (s *summary) rows() []*playerSummary {
	out := make([]*playerSummary, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func filterRows(rows []*playerSummary, id protocol.PlayerID) []*playerSummary {
	for _, r := range rows {
		if r.ID == id {
			return []*playerSummary{r}
		}
	}
	return nil
}

// parsePlayerID parses the "P<n>" form of a player id.
func parsePlayerID(s string) (protocol.PlayerID, bool) {
	var n uint32
	if _, err := fmt.Sscanf(s, "P%d", &n); err != nil || n == 0 {
		return 0, false
	}
	return protocol.PlayerID(n), true
}
