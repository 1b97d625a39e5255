package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfig(t *testing.T) {
	tune, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning.yaml: %v", err)
	}
	if tune.TickRateHz != 10 || tune.Score.Kill != 10 || tune.DebugMaxScore {
		t.Fatalf("unexpected tuning: %+v", tune)
	}
}

func TestLoad_MissingKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 20\ndebug_max_score: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if tune.TickRateHz != 20 || !tune.DebugMaxScore {
		t.Fatalf("overrides not applied: %+v", tune)
	}
	if tune.WorldRadius != def.WorldRadius || tune.MinesMax != def.MinesMax {
		t.Fatalf("defaults lost: %+v", tune)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 0\nworld_radius: -1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "tick_rate_hz") || !strings.Contains(err.Error(), "world_radius") {
		t.Fatalf("error should name every bad key: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}
