package database

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config configures the cache database.
type Config struct {
	DatabasePath string

	// Clock is used for TTL checks. Defaults to the real clock.
	Clock clockwork.Clock

	// Per-namespace TTLs. Zero values fall back to DefaultTTLs.
	TTLs map[Namespace]time.Duration
}

// DB owns the single sqlite connection backing the lookup cache.
type DB struct {
	conn  *sql.DB
	Cache *CacheStore
}

// NewDB opens (creating if needed) the cache database and runs migrations.
func NewDB(cfg Config) (*DB, error) {
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database path not provided")
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", cfg.DatabasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single shared connection, guarded by the CacheStore mutex.
	conn.SetMaxOpenConns(1)

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set migration dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.Up(conn, "migrations"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	ttls := make(map[Namespace]time.Duration, len(allNamespaces))
	for _, ns := range allNamespaces {
		ttl := cfg.TTLs[ns]
		if ttl <= 0 {
			ttl = DefaultTTLs[ns]
		}
		ttls[ns] = ttl
	}

	return &DB{
		conn:  conn,
		Cache: newCacheStore(conn, clock, ttls),
	}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
