package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

const (
	dirMode  = 0750
	fileMode = 0600

	openPing    = 5 * time.Second
	idleTimeout = 30 * time.Minute

	// MemoryPath opens a private in-memory database. Used by tests.
	MemoryPath = ":memory:"
)

// DB is the bridge's SQLite handle. The entity ledger is its only tenant.
type DB struct {
	*sql.DB
	path string
}

// Config describes the SQLite file.
type Config struct {
	// Path is the database file; missing parent directories are created.
	Path string

	WALMode bool

	// BusyTimeout in seconds.
	BusyTimeout int
}

// ConfigFrom adapts the database section of config.yaml.
func ConfigFrom(cfg config.DatabaseConfig) Config {
	return Config{Path: cfg.Path, WALMode: cfg.WALMode, BusyTimeout: cfg.BusyTimeout}
}

func (c Config) inMemory() bool { return c.Path == MemoryPath }

// dsn builds a go-sqlite3 connection string.
// See https://github.com/mattn/go-sqlite3#connection-string
func (c Config) dsn() string {
	busy := time.Duration(c.BusyTimeout) * time.Second
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", c.Path, busy.Milliseconds())
	if c.WALMode && !c.inMemory() {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return dsn
}

// Open opens the ledger database and pings it.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("opening database: no path configured")
	}
	if !cfg.inMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	pool, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Path, err)
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY. An
	// in-memory database also vanishes with its connection, so it is
	// never recycled.
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)
	if !cfg.inMemory() {
		pool.SetConnMaxLifetime(time.Hour)
		pool.SetConnMaxIdleTime(idleTimeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openPing)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("pinging database %s: %w", cfg.Path, err)
	}

	if !cfg.inMemory() {
		_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // best effort
	}
	return &DB{DB: pool, path: cfg.Path}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path is the file (or MemoryPath) the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck reads the ledger schema version, which also proves the
// file is readable.
func (db *DB) HealthCheck(ctx context.Context) error {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// ExecContext is sql.DB.ExecContext with the error annotated.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// BeginTx is sql.DB.BeginTx with the error annotated.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
