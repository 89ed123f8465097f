// Package storage provides journal backends.
//
// SQLiteStorage stores entries in a single table with times kept as Unix
// nanoseconds. Two drivers are supported and selected by name:
//
//   - "sqlite": modernc.org/sqlite, pure Go, the default
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// MemoryStorage keeps entries in a slice and is used by tests and by the
// "memory" driver.
//
//	store, err := storage.New(&cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
