package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mauv0809/padel-elo/migrations"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// localDSNOptions are applied to every connection the sqlite3 driver opens.
// _txlock=immediate makes every transaction take the write lock on BEGIN, so
// two match submissions touching the same player are serialized by SQLite.
// The libsql driver has no such option: its transactions begin deferred, and a
// writer that loses the race fails with SQLITE_BUSY instead of waiting.
const localDSNOptions = "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

// InitDB opens the database and applies all pending migrations.
// An empty primaryURL selects a local SQLite database at dbPath (":memory:" is
// supported); otherwise the remote Turso database at primaryURL is used.
// The returned teardown closes the connection pool.
func InitDB(dbPath string, primaryURL string, authToken string) (*sql.DB, func(), error) {
	db, err := open(dbPath, primaryURL, authToken)
	if err != nil {
		return nil, nil, err
	}
	teardown := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		teardown()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		teardown()
		return nil, nil, err
	}
	log.Info("Database initialized successfully")
	return db, teardown, nil
}

func open(dbPath, primaryURL, authToken string) (*sql.DB, error) {
	if primaryURL == "" {
		log.Info("Initializing local SQLite database", "path", dbPath)
		if dbPath == ":memory:" {
			db, err := sql.Open("sqlite3", "file::memory:?"+localDSNOptions)
			if err != nil {
				return nil, fmt.Errorf("failed to open in-memory database: %w", err)
			}
			// Every new connection to :memory: is a fresh, empty database.
			db.SetMaxOpenConns(1)
			return db, nil
		}
		db, err := sql.Open("sqlite3", "file:"+dbPath+"?"+localDSNOptions+"&_journal_mode=WAL")
		if err != nil {
			return nil, fmt.Errorf("failed to open local database: %w", err)
		}
		return db, nil
	}

	log.Info("Initializing Turso database", "url", primaryURL)
	db, err := sql.Open("libsql", primaryURL+"?authToken="+authToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open db %s: %w", primaryURL, err)
	}
	// Foreign key support is not enabled by default in SQLite
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		log.Info("Applied migration", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	return nil
}
