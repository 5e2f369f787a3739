// Package database opens the bridge's SQLite store and applies its schema.
//
// The store holds the discovery ledger: one row per Home Assistant config
// topic the bridge has published, so entities that disappear from the hub
// can be removed on a later cycle, including after a restart.
//
// Connections are opened through mattn/go-sqlite3 with WAL mode and a busy
// timeout. A single open connection is kept because SQLite allows one writer.
//
// Schema changes live as paired YYYYMMDD_HHMMSS_name.up.sql / .down.sql files
// in an fs.FS registered through MigrationsFS. Migrate applies pending files
// in version order, one transaction each, and records them in
// schema_migrations.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
