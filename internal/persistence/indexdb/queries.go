package indexdb

import (
	"context"
	"database/sql"

	"mk48.io/internal/protocol"
)

// DeathRow is one indexed boat loss.
type DeathRow struct {
	Tick   uint64             `json:"tick"`
	Kind   protocol.DeathKind `json:"kind"`
	Killer string             `json:"killer,omitempty"`
	Entity string             `json:"entity,omitempty"`
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
	Score  uint32             `json:"score"`
	Level  uint8              `json:"level"`
}

// Deaths returns up to limit of the player's most recent deaths, newest first.
// Rows still queued for the writer are not visible.
func (s *SQLiteIndex) Deaths(ctx context.Context, id protocol.PlayerID, limit int) ([]DeathRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick,kind,killer,entity,x,y,score,level FROM deaths WHERE player_id=? ORDER BY tick DESC LIMIT ?`,
		int64(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeathRow
	for rows.Next() {
		var (
			d              DeathRow
			tick           int64
			kind           string
			killer, entity sql.NullString
			score, level   int64
		)
		if err := rows.Scan(&tick, &kind, &killer, &entity, &d.X, &d.Y, &score, &level); err != nil {
			return nil, err
		}
		d.Tick = uint64(tick)
		d.Kind = protocol.DeathKind(kind)
		d.Killer = killer.String
		d.Entity = entity.String
		d.Score = uint32(score)
		d.Level = uint8(level)
		out = append(out, d)
	}
	return out, rows.Err()
}
