package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

func openTestDB(t *testing.T) (*SQLEventRepository, *SQLSnapshotRepository) {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteEventRepository(db), NewSQLiteSnapshotRepository(db)
}

func TestEventRoundTripAndFilters(t *testing.T) {
	repo, _ := openTestDB(t)
	ctx := context.Background()

	el := events.NewEventLog(NewEventSink(repo, "lobby-1"))
	el.Append(events.GameEvent{Type: events.EventTypePhaseChanged, ActorID: events.SystemActor, GameDay: 1, IsRevealed: true,
		Payload: events.PhaseChangedPayload{From: "preparation", To: "day", DayCount: 1}})
	el.Append(events.GameEvent{Type: events.EventTypeRoleAssigned, ActorID: events.SystemActor, TargetID: "p1", GameDay: 1,
		Payload: events.RolePayload{Role: "traitor"}})
	el.Append(events.GameEvent{Type: events.EventTypeAccusation, ActorID: "p2", TargetID: "p1", GameDay: 2, IsRevealed: true,
		Payload: events.AccusationPayload{Reason: "blood on the sleeve", Credibility: 0.8}})
	el.Close()

	all, err := repo.GetByLobby(ctx, "lobby-1", EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].Seq)
	assert.Equal(t, "day", all[0].Payload["to"])
	assert.Equal(t, "blood on the sleeve", all[2].Payload["reason"])

	revealed, err := repo.GetByLobby(ctx, "lobby-1", EventFilter{RevealedOnly: true})
	require.NoError(t, err)
	assert.Len(t, revealed, 2)

	byActor, err := repo.GetByLobby(ctx, "lobby-1", EventFilter{ActorID: "p2", Day: 2})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "ACCUSATION", byActor[0].EventType)

	other, err := repo.GetByLobby(ctx, "lobby-2", EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, repo.DeleteLobby(ctx, "lobby-1"))
	all, err = repo.GetByLobby(ctx, "lobby-1", EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSnapshotUpsert(t *testing.T) {
	_, snaps := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, snaps.UpsertLobby(ctx, LobbyRecord{LobbyID: "l1", Mode: "standard", Phase: "day", DayCount: 1}))
	require.NoError(t, snaps.UpsertLobby(ctx, LobbyRecord{LobbyID: "l1", Mode: "standard", Phase: "end", DayCount: 3, Winner: "protectors"}))

	lobbies, err := snaps.ListLobbies(ctx)
	require.NoError(t, err)
	require.Len(t, lobbies, 1)
	assert.Equal(t, "end", lobbies[0].Phase)
	assert.Equal(t, "protectors", lobbies[0].Winner)

	p := ParticipantSnapshot{ParticipantID: "p1", LobbyID: "l1", Name: "Brother", Role: "unknown", Alive: true, HP: 100, NPCTrust: 1}
	require.NoError(t, snaps.Upsert(ctx, p))
	p.HP = 40
	p.Alive = false
	require.NoError(t, snaps.Upsert(ctx, p))

	got, err := snaps.GetByLobby(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 40, got[0].HP)
	assert.False(t, got[0].Alive)
	assert.WithinDuration(t, time.Now(), got[0].LastUpdated, time.Minute)
}

func TestRecapHidesOthersSecrets(t *testing.T) {
	repo, _ := openTestDB(t)
	ctx := context.Background()

	rows := []GameEvent{
		{ID: "e1", Seq: 1, EventType: "ROLE_ASSIGNED", ActorID: "SYSTEM", TargetID: "p1", GameDay: 1},
		{ID: "e2", Seq: 2, EventType: "CARD_SELECTED", ActorID: "p2", GameDay: 1},
		{ID: "e3", Seq: 3, EventType: "ACCUSATION", ActorID: "p2", TargetID: "p1", GameDay: 2, IsRevealed: true,
			Payload: map[string]interface{}{"reason": "lied"}},
		{ID: "e4", Seq: 4, EventType: "CARD_SELECTED", ActorID: "p1", GameDay: 2},
	}
	for _, r := range rows {
		r.LobbyID = "l1"
		r.Timestamp = time.Now()
		require.NoError(t, repo.Append(ctx, r))
	}

	recap, err := NewRecap(repo).Build(ctx, "l1", "p1", 1)
	require.NoError(t, err)
	require.Len(t, recap, 2)
	assert.Equal(t, "ACCUSATION", recap[0].EventType)
	assert.Equal(t, "NEGATIVE", recap[0].Impact)
	assert.Contains(t, recap[0].Summary, "you")
	assert.Equal(t, "POSITIVE", recap[1].Impact)

	recap, err = NewRecap(repo).Build(ctx, "l1", "p1", 3)
	require.NoError(t, err)
	assert.Empty(t, recap)
}
