package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the necessary schemas
// for persisting lobbies, participant snapshots and the immutable event log.
func InitSQLite(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the event drains of different lobbies.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db, sqliteSchemas); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

var sqliteSchemas = []string{
	`CREATE TABLE IF NOT EXISTS lobbies (
		lobby_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		phase TEXT NOT NULL,
		day_count INTEGER NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT '',
		last_updated DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS participants (
		participant_id TEXT NOT NULL,
		lobby_id TEXT NOT NULL,
		name TEXT,
		character_id TEXT,
		role TEXT NOT NULL,
		alive BOOLEAN NOT NULL DEFAULT 1,
		hp INTEGER NOT NULL,
		suspicion REAL NOT NULL DEFAULT 0.0,
		npc_trust REAL NOT NULL DEFAULT 1.0,
		last_updated DATETIME NOT NULL,
		PRIMARY KEY (lobby_id, participant_id)
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		lobby_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		game_day INTEGER NOT NULL,
		is_revealed BOOLEAN NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_lobby_seq ON events(lobby_id, seq);`,
	`CREATE INDEX IF NOT EXISTS idx_events_actor_id ON events(actor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_events_game_day ON events(game_day);`,
}

func createSchemas(db *sql.DB, schemas []string) error {
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}
