package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/aegis/pkg/config"
	"mercator-hq/aegis/pkg/journal"
)

// New creates the backend selected by cfg.Driver. The directory of a
// SQLite database file is created if it does not exist.
func New(cfg *config.JournalConfig) (journal.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStorage(), nil
	case DriverSQLite, DriverSQLite3:
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, journal.NewStorageError(cfg.Driver, "mkdir", err)
			}
		}
		sc := DefaultSQLiteConfig()
		sc.Driver = cfg.Driver
		sc.Path = cfg.Path
		return NewSQLiteStorage(sc)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
