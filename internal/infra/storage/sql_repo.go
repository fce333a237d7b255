package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dialect hides the placeholder syntax difference between SQLite and PostgreSQL.
type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	sqliteDialect   = dialect{name: "sqlite", placeholder: func(int) string { return "?" }}
	postgresDialect = dialect{name: "postgres", placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}
)

// placeholders returns "p1, p2, ... pn" for the dialect.
func (d dialect) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

// SQLEventRepository implements EventRepository for SQLite and PostgreSQL.
type SQLEventRepository struct {
	db *sql.DB
	d  dialect
}

func NewSQLiteEventRepository(db *sql.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db, d: sqliteDialect}
}

func NewPostgresEventRepository(db *sql.DB) *SQLEventRepository {
	return &SQLEventRepository{db: db, d: postgresDialect}
}

const eventColumns = `id, lobby_id, seq, timestamp, event_type, actor_id, target_id, payload, game_day, is_revealed`

func (r *SQLEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO events (` + eventColumns + `) VALUES (` + r.d.placeholders(10) + `)`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.LobbyID, event.Seq, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, string(payloadBytes), event.GameDay, event.IsRevealed,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLEventRepository) GetByLobby(ctx context.Context, lobbyID string, f EventFilter) ([]GameEvent, error) {
	var b strings.Builder
	args := []interface{}{lobbyID}
	b.WriteString(`SELECT ` + eventColumns + ` FROM events WHERE lobby_id = ` + r.d.placeholder(1))

	where := func(column string, v interface{}) {
		args = append(args, v)
		fmt.Fprintf(&b, " AND %s = %s", column, r.d.placeholder(len(args)))
	}
	if f.ActorID != "" {
		where("actor_id", f.ActorID)
	}
	if f.EventType != "" {
		where("event_type", f.EventType)
	}
	if f.Day > 0 {
		where("game_day", f.Day)
	}
	if f.RevealedOnly {
		where("is_revealed", true)
	}
	b.WriteString(" ORDER BY seq ASC")

	return r.getMany(ctx, b.String(), args...)
}

func (r *SQLEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payload []byte
		err := rows.Scan(
			&e.ID, &e.LobbyID, &e.Seq, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payload, &e.GameDay, &e.IsRevealed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLEventRepository) DeleteLobby(ctx context.Context, lobbyID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE lobby_id = `+r.d.placeholder(1), lobbyID)
	return err
}

// ---------------------------------------------------------
// SQLSnapshotRepository
// ---------------------------------------------------------

type SQLSnapshotRepository struct {
	db *sql.DB
	d  dialect
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLSnapshotRepository {
	return &SQLSnapshotRepository{db: db, d: sqliteDialect}
}

func NewPostgresSnapshotRepository(db *sql.DB) *SQLSnapshotRepository {
	return &SQLSnapshotRepository{db: db, d: postgresDialect}
}

func (r *SQLSnapshotRepository) UpsertLobby(ctx context.Context, l LobbyRecord) error {
	query := `
		INSERT INTO lobbies (lobby_id, mode, phase, day_count, winner, last_updated)
		VALUES (` + r.d.placeholders(6) + `)
		ON CONFLICT(lobby_id) DO UPDATE SET
			mode=excluded.mode,
			phase=excluded.phase,
			day_count=excluded.day_count,
			winner=excluded.winner,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query, l.LobbyID, l.Mode, l.Phase, l.DayCount, l.Winner, time.Now())
	return err
}

func (r *SQLSnapshotRepository) Upsert(ctx context.Context, s ParticipantSnapshot) error {
	query := `
		INSERT INTO participants (participant_id, lobby_id, name, character_id, role, alive, hp, suspicion, npc_trust, last_updated)
		VALUES (` + r.d.placeholders(10) + `)
		ON CONFLICT(lobby_id, participant_id) DO UPDATE SET
			name=excluded.name,
			character_id=excluded.character_id,
			role=excluded.role,
			alive=excluded.alive,
			hp=excluded.hp,
			suspicion=excluded.suspicion,
			npc_trust=excluded.npc_trust,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ParticipantID, s.LobbyID, s.Name, s.CharacterID, s.Role,
		s.Alive, s.HP, s.Suspicion, s.NPCTrust, time.Now(),
	)
	return err
}

func (r *SQLSnapshotRepository) GetByLobby(ctx context.Context, lobbyID string) ([]ParticipantSnapshot, error) {
	query := `SELECT participant_id, lobby_id, name, character_id, role, alive, hp, suspicion, npc_trust, last_updated
		FROM participants WHERE lobby_id = ` + r.d.placeholder(1) + ` ORDER BY participant_id`
	rows, err := r.db.QueryContext(ctx, query, lobbyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []ParticipantSnapshot
	for rows.Next() {
		var p ParticipantSnapshot
		if err := rows.Scan(&p.ParticipantID, &p.LobbyID, &p.Name, &p.CharacterID, &p.Role,
			&p.Alive, &p.HP, &p.Suspicion, &p.NPCTrust, &p.LastUpdated); err != nil {
			return nil, err
		}
		snaps = append(snaps, p)
	}
	return snaps, rows.Err()
}

func (r *SQLSnapshotRepository) ListLobbies(ctx context.Context) ([]LobbyRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT lobby_id, mode, phase, day_count, winner, last_updated FROM lobbies ORDER BY lobby_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LobbyRecord
	for rows.Next() {
		var l LobbyRecord
		if err := rows.Scan(&l.LobbyID, &l.Mode, &l.Phase, &l.DayCount, &l.Winner, &l.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Ensure both backends satisfy the interfaces
var (
	_ EventRepository    = (*SQLEventRepository)(nil)
	_ SnapshotRepository = (*SQLSnapshotRepository)(nil)
)
