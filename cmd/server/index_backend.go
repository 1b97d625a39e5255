package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mk48.io/internal/persistence/indexdb"
	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/tuning"
	"mk48.io/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.LifecycleLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	Stats() indexdb.Stats
	Deaths(ctx context.Context, id protocol.PlayerID, limit int) ([]indexdb.DeathRow, error)
}

func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MK48_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported MK48_INDEX_BACKEND: %s", backend)
	}
}
