// Package storage - postgres.go
// PostgreSQL backend through the pgx database/sql driver.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// OpenPostgres connects to PostgreSQL and creates the schemas.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := createSchemas(db, postgresSchemas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return db, nil
}

var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS lobbies (
		lobby_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		phase TEXT NOT NULL,
		day_count INTEGER NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT '',
		last_updated TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS participants (
		participant_id TEXT NOT NULL,
		lobby_id TEXT NOT NULL,
		name TEXT,
		character_id TEXT,
		role TEXT NOT NULL,
		alive BOOLEAN NOT NULL DEFAULT TRUE,
		hp INTEGER NOT NULL,
		suspicion DOUBLE PRECISION NOT NULL DEFAULT 0,
		npc_trust DOUBLE PRECISION NOT NULL DEFAULT 1,
		last_updated TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (lobby_id, participant_id)
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		lobby_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		event_type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		game_day INTEGER NOT NULL,
		is_revealed BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_lobby_seq ON events(lobby_id, seq);`,
	`CREATE INDEX IF NOT EXISTS idx_events_actor_id ON events(actor_id);`,
}
