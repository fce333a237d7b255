package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/cache"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/storage"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	snaps map[string][]engine.Snapshot
}

func (b *recordingBroadcaster) Broadcast(lobbyID string, snap engine.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snaps == nil {
		b.snaps = make(map[string][]engine.Snapshot)
	}
	b.snaps[lobbyID] = append(b.snaps[lobbyID], snap)
}

func (b *recordingBroadcaster) sawPhase(lobbyID string, p engine.Phase) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.snaps[lobbyID] {
		if s.Phase == p {
			return true
		}
	}
	return false
}

// quickRules makes every phase last a handful of 2ms ticks.
func quickRules() engine.Rules {
	r := engine.DefaultRules()
	r.PreparationDuration = 0.01
	r.DayDuration = 0.01
	r.NightDuration = 0.01
	r.SkillSelectDuration = 0.01
	r.EndDuration = 0.01
	r.CharacterSelectDuration = 0.01
	r.RoleRevealDuration = 0.01
	return r
}

func quickSettings() Settings {
	return Settings{TickInterval: 2 * time.Millisecond, BroadcastEvery: 1, MaxLobbies: 2}
}

func seats(n int) []Seat {
	out := make([]Seat, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = Seat{ID: id, Name: "Villager " + id, Controlled: i == 0}
	}
	return out
}

func TestCreateValidatesRequest(t *testing.T) {
	m := NewManager(Deps{Rules: engine.DefaultRules()}, quickSettings())
	defer m.Shutdown()

	_, err := m.Create(CreateRequest{Participants: seats(2)})
	assert.ErrorIs(t, err, ErrInvalidLobby)
	_, err = m.Create(CreateRequest{Participants: seats(6)})
	assert.ErrorIs(t, err, ErrInvalidLobby)
	_, err = m.Create(CreateRequest{Mode: "arena", Participants: seats(3)})
	assert.ErrorIs(t, err, ErrInvalidLobby)

	dup := seats(3)
	dup[2].ID = dup[0].ID
	_, err = m.Create(CreateRequest{Participants: dup})
	assert.ErrorIs(t, err, ErrInvalidLobby)

	_, err = m.Create(CreateRequest{Participants: seats(3)})
	require.NoError(t, err)
	_, err = m.Create(CreateRequest{Mode: "swarm", Participants: seats(5)})
	require.NoError(t, err)
	_, err = m.Create(CreateRequest{Participants: seats(3)})
	assert.ErrorIs(t, err, ErrTooManyLobbies)

	infos, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, engine.ModeStandard, infos[0].Mode)
	assert.Equal(t, 5, infos[1].Participants)
}

func TestLobbyTicksBroadcastsAndCaches(t *testing.T) {
	b := &recordingBroadcaster{}
	c := cache.NewSnapshotCache(8, time.Minute)
	m := NewManager(Deps{Rules: quickRules(), Broadcaster: b, Cache: c}, quickSettings())
	defer m.Shutdown()

	l, err := m.Create(CreateRequest{Participants: seats(3)})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return b.sawPhase(l.ID, engine.PhaseNight) }, 5*time.Second, 5*time.Millisecond)

	snap, ok := c.Get(l.ID)
	require.True(t, ok)
	assert.Len(t, snap.Participants, 3)

	got, err := m.Get(l.ID)
	require.NoError(t, err)
	assert.Same(t, l, got)
	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestLobbySubmitAndRestart(t *testing.T) {
	seed := int64(5)
	m := NewManager(Deps{Rules: engine.DefaultRules()}, quickSettings())
	defer m.Shutdown()
	l, err := m.Create(CreateRequest{Seed: &seed, Participants: seats(3)})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Submit(ctx, cmd(t, CmdMove, "a", MovePayload{X: 3, Y: 4}))
	require.NoError(t, err)
	_, err = l.Submit(ctx, cmd(t, CmdAccuse, "a", AccusePayload{AccusedID: "b", Reason: "too early"}))
	assert.ErrorIs(t, err, engine.ErrWrongPhase, "accusations wait for play to begin")

	view, err := l.PrivateState(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3.0, view.Position.X)

	require.NoError(t, l.Restart(ctx))
	snap, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhasePreparation, snap.Phase)

	l.Close()
	_, err = l.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrLobbyClosed)
}

func TestLobbyPersistsHistory(t *testing.T) {
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "lobby.db"))
	require.NoError(t, err)
	defer db.Close()
	eventsRepo := storage.NewSQLiteEventRepository(db)
	snapsRepo := storage.NewSQLiteSnapshotRepository(db)

	b := &recordingBroadcaster{}
	m := NewManager(Deps{Rules: quickRules(), Events: eventsRepo, Snapshots: snapsRepo, Broadcaster: b}, quickSettings())
	l, err := m.Create(CreateRequest{Participants: seats(3)})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.sawPhase(l.ID, engine.PhaseDay) }, 5*time.Second, 5*time.Millisecond)
	m.Shutdown()

	ctx := context.Background()
	rows, err := eventsRepo.GetByLobby(ctx, l.ID, storage.EventFilter{EventType: "PHASE_CHANGED"})
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	hidden, err := eventsRepo.GetByLobby(ctx, l.ID, storage.EventFilter{EventType: "ROLE_ASSIGNED"})
	require.NoError(t, err)
	require.NotEmpty(t, hidden)
	assert.Zero(t, len(hidden)%3, "one assignment per participant per game")
	assert.False(t, hidden[0].IsRevealed)

	lobbies, err := snapsRepo.ListLobbies(ctx)
	require.NoError(t, err)
	require.Len(t, lobbies, 1)
	parts, err := snapsRepo.GetByLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, parts, 3)
}

func TestDeleteDropsHistory(t *testing.T) {
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "lobby.db"))
	require.NoError(t, err)
	defer db.Close()
	eventsRepo := storage.NewSQLiteEventRepository(db)

	m := NewManager(Deps{Rules: quickRules(), Events: eventsRepo}, quickSettings())
	defer m.Shutdown()
	l, err := m.Create(CreateRequest{Participants: seats(4)})
	require.NoError(t, err)
	ctx := context.Background()
	require.Eventually(t, func() bool {
		info, err := l.Info(ctx)
		return err == nil && info.Phase != string(engine.PhasePreparation)
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, m.Delete(ctx, l.ID))
	rows, err := eventsRepo.GetByLobby(ctx, l.ID, storage.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.ErrorIs(t, m.Delete(ctx, l.ID), ErrLobbyNotFound)
}
