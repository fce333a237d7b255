// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID         string                 `json:"id" db:"id"`
	LobbyID    string                 `json:"lobby_id" db:"lobby_id"`
	Seq        int64                  `json:"seq" db:"seq"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	EventType  string                 `json:"event_type" db:"event_type"`
	ActorID    string                 `json:"actor_id" db:"actor_id"`
	TargetID   string                 `json:"target_id" db:"target_id"`
	Payload    map[string]interface{} `json:"payload" db:"payload"`
	GameDay    int                    `json:"game_day" db:"game_day"`
	IsRevealed bool                   `json:"is_revealed" db:"is_revealed"`
}

// EventFilter narrows a lobby's event history. Zero values match everything.
type EventFilter struct {
	ActorID      string
	EventType    string
	Day          int // 0 means any day
	RevealedOnly bool
}

// EventRepository defines the interface for event persistence.
// The domain uses this interface; the implementation is in infra.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByLobby retrieves a lobby's events in sequence order (for replay).
	GetByLobby(ctx context.Context, lobbyID string, filter EventFilter) ([]GameEvent, error)

	// DeleteLobby drops a lobby's history.
	DeleteLobby(ctx context.Context, lobbyID string) error
}

// LobbyRecord is the last known header of a lobby.
type LobbyRecord struct {
	LobbyID     string    `json:"lobby_id" db:"lobby_id"`
	Mode        string    `json:"mode" db:"mode"`
	Phase       string    `json:"phase" db:"phase"`
	DayCount    int       `json:"day_count" db:"day_count"`
	Winner      string    `json:"winner,omitempty" db:"winner"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// ParticipantSnapshot is the public state of a participant for quick reads.
type ParticipantSnapshot struct {
	ParticipantID string    `json:"participant_id" db:"participant_id"`
	LobbyID       string    `json:"lobby_id" db:"lobby_id"`
	Name          string    `json:"name" db:"name"`
	CharacterID   string    `json:"character_id" db:"character_id"`
	Role          string    `json:"role" db:"role"`
	Alive         bool      `json:"alive" db:"alive"`
	HP            int       `json:"hp" db:"hp"`
	Suspicion     float64   `json:"suspicion" db:"suspicion"`
	NPCTrust      float64   `json:"npc_trust" db:"npc_trust"`
	LastUpdated   time.Time `json:"last_updated" db:"last_updated"`
}

// SnapshotRepository defines the interface for lobby and participant snapshots.
type SnapshotRepository interface {
	// UpsertLobby records the lobby header.
	UpsertLobby(ctx context.Context, lobby LobbyRecord) error

	// Upsert updates or inserts a participant snapshot.
	Upsert(ctx context.Context, snapshot ParticipantSnapshot) error

	// GetByLobby retrieves all participant snapshots for a lobby.
	GetByLobby(ctx context.Context, lobbyID string) ([]ParticipantSnapshot, error)

	// ListLobbies returns every recorded lobby header.
	ListLobbies(ctx context.Context) ([]LobbyRecord, error)
}
