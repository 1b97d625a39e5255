package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz  int     `yaml:"tick_rate_hz"`
	WorldRadius float32 `yaml:"world_radius"`
	MaxPlayers  int     `yaml:"max_players"`

	// SpawningCameraRadius is the view radius of a player without a boat or death position.
	SpawningCameraRadius float32 `yaml:"spawning_camera_radius"`
	// DebugMaxScore starts every player with enough score for the top boat level.
	DebugMaxScore bool `yaml:"debug_max_score"`

	Score      ScoreTuning `yaml:"score"`
	MinesMax   int         `yaml:"mines_max"`
	DecoyTicks int         `yaml:"decoy_ticks"`

	LogEveryTick bool `yaml:"log_every_tick"`
}

type ScoreTuning struct {
	// Kill is awarded to the player credited with sinking a boat.
	Kill uint32 `yaml:"kill"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      "1.0",
		TickRateHz:           10,
		WorldRadius:          2000,
		MaxPlayers:           256,
		SpawningCameraRadius: 800,
		Score:                ScoreTuning{Kill: 10},
		MinesMax:             4,
		DecoyTicks:           50,
	}
}

// Load reads a tuning file over Defaults; keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 || t.TickRateHz > 120 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be in 1..120, got %d", t.TickRateHz))
	}
	if t.WorldRadius <= 0 {
		errs = append(errs, fmt.Errorf("world_radius must be positive, got %g", t.WorldRadius))
	}
	if t.MaxPlayers <= 0 {
		errs = append(errs, fmt.Errorf("max_players must be positive, got %d", t.MaxPlayers))
	}
	if t.SpawningCameraRadius <= 0 {
		errs = append(errs, fmt.Errorf("spawning_camera_radius must be positive, got %g", t.SpawningCameraRadius))
	}
	if t.MinesMax < 0 {
		errs = append(errs, fmt.Errorf("mines_max must not be negative, got %d", t.MinesMax))
	}
	if t.DecoyTicks <= 0 {
		errs = append(errs, fmt.Errorf("decoy_ticks must be positive, got %d", t.DecoyTicks))
	}
	return errors.Join(errs...)
}
