/*
Package journal records the decisions the gateway makes on its own behalf.

Every request the pipeline rejects (401, 403, 404, 429, 503), every
forwarded request that counted as a downstream failure, and every circuit
breaker transition becomes an Entry. Entries are written asynchronously by
package recorder to a Storage backend:

  - storage.SQLiteStorage: database/sql with either the pure Go "sqlite"
    driver or the cgo "sqlite3" driver
  - storage.MemoryStorage: non-persistent, for tests

Package retention prunes old entries on a cron schedule and package export
renders query results for the "aegis journal" command.

# Querying

	since := time.Now().Add(-time.Hour)
	entries, err := store.Query(ctx, &journal.Query{
	    Since:   &since,
	    Kind:    journal.KindRejection,
	    Service: "identity",
	    Limit:   50,
	})

Results are ordered newest first. Credentials never reach the journal: the
Reason field carries error text only.
*/
package journal
