package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/cache"
	"github.com/MRamiBalles/SinAndGrace/server/internal/infra/storage"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/metrics"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

type testServer struct {
	*Server
	manager *session.Manager
	events  storage.EventRepository
}

func newTestServer(t *testing.T, rules engine.Rules) *testServer {
	t.Helper()
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	repo := storage.NewSQLiteEventRepository(db)
	c := cache.NewSnapshotCache(16, time.Minute)
	m := metrics.New()

	mgr := session.NewManager(session.Deps{Rules: rules, Events: repo, Cache: c, Metrics: m},
		session.Settings{TickInterval: time.Hour})
	t.Cleanup(func() {
		mgr.Shutdown()
		db.Close()
	})
	return &testServer{
		Server:  NewServer(Deps{Manager: mgr, Events: repo, Cache: c, Metrics: m}),
		manager: mgr,
		events:  repo,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var resp Response
	if rec.Code != http.StatusNoContent && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func (s *testServer) create(t *testing.T, n int) string {
	t.Helper()
	seats := make([]session.Seat, n)
	for i := range seats {
		seats[i] = session.Seat{ID: fmt.Sprintf("p%d", i+1)}
	}
	code, resp := s.do(t, http.MethodPost, "/api/lobbies", session.CreateRequest{Participants: seats})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	return resp.Data.(map[string]interface{})["id"].(string)
}

func TestCreateAndListLobbies(t *testing.T) {
	s := newTestServer(t, engine.DefaultRules())

	code, resp := s.do(t, http.MethodPost, "/api/lobbies", session.CreateRequest{Participants: []session.Seat{{ID: "a"}}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)

	id := s.create(t, 3)
	code, resp = s.do(t, http.MethodGet, "/api/lobbies", nil)
	require.Equal(t, http.StatusOK, code)
	list := resp.Data.([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].(map[string]interface{})["id"])
}

func TestGetLobbySnapshot(t *testing.T) {
	s := newTestServer(t, engine.DefaultRules())
	id := s.create(t, 4)

	code, resp := s.do(t, http.MethodGet, "/api/lobbies/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	snap := resp.Data.(map[string]interface{})
	assert.Equal(t, "preparation", snap["phase"])
	assert.Len(t, snap["participants"], 4)

	// Second read is served from the cache.
	code, _ = s.do(t, http.MethodGet, "/api/lobbies/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	hits, _ := s.deps.Cache.Stats()
	assert.Equal(t, int64(1), hits)

	code, _ = s.do(t, http.MethodGet, "/api/lobbies/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCommandStatusCodes(t *testing.T) {
	s := newTestServer(t, engine.DefaultRules())
	id := s.create(t, 3)
	path := "/api/lobbies/" + id + "/commands"

	code, _ := s.do(t, http.MethodPost, path, session.Command{Type: session.CmdMove, ParticipantID: "p1", Payload: json.RawMessage(`{"x":5,"y":5}`)})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, path, session.Command{Type: session.CmdAccuse, ParticipantID: "p1", Payload: json.RawMessage(`{"accused_id":"p2","reason":"x"}`)})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, path, session.Command{Type: session.CmdMove, ParticipantID: "ghost", Payload: json.RawMessage(`{}`)})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, path, session.Command{Type: "FLY", ParticipantID: "p1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, path, session.Command{Type: session.CmdMove})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := s.do(t, http.MethodGet, "/api/lobbies/"+id+"/participants/p1", nil)
	require.Equal(t, http.StatusOK, code)
	pos := resp.Data.(map[string]interface{})["position"].(map[string]interface{})
	assert.Equal(t, 5.0, pos["x"])
}

func TestEventsHideSecretsAndRecap(t *testing.T) {
	s := newTestServer(t, engine.DefaultRules())
	id := s.create(t, 3)
	l, err := s.manager.Get(id)
	require.NoError(t, err)

	// Start the game so roles are drawn, then flush persistence.
	_, err = l.Do(context.Background(), func(e *engine.Engine) (interface{}, error) {
		e.Advance()
		return nil, nil
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		rows, err := s.events.GetByLobby(context.Background(), id, storage.EventFilter{EventType: "ROLE_ASSIGNED"})
		return err == nil && len(rows) == 3
	}, 3*time.Second, 10*time.Millisecond)

	code, resp := s.do(t, http.MethodGet, "/api/lobbies/"+id+"/events", nil)
	require.Equal(t, http.StatusOK, code)
	rows := resp.Data.([]interface{})
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.NotEqual(t, "ROLE_ASSIGNED", row.(map[string]interface{})["event_type"])
	}

	code, resp = s.do(t, http.MethodGet, "/api/lobbies/"+id+"/events?type=ROLE_ASSIGNED", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Data)

	code, _ = s.do(t, http.MethodGet, "/api/lobbies/"+id+"/events?day=zero", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodGet, "/api/lobbies/"+id+"/recap?participant=p1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.Data)
}

func TestRestartAndDelete(t *testing.T) {
	s := newTestServer(t, engine.DefaultRules())
	id := s.create(t, 3)

	code, resp := s.do(t, http.MethodPost, "/api/lobbies/"+id+"/restart", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "preparation", resp.Data.(map[string]interface{})["phase"])

	code, _ = s.do(t, http.MethodDelete, "/api/lobbies/"+id, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = s.do(t, http.MethodDelete, "/api/lobbies/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsRoutes(t *testing.T) {
	s := newTestServer(t, engine.DefaultRules())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sinandgrace_lobbies_active")
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("wrapped: %w", engine.ErrUnknownClue)))
	assert.Equal(t, http.StatusConflict, statusFor(engine.ErrWrongPhase))
	assert.Equal(t, http.StatusBadRequest, statusFor(engine.ErrInvalidReaction))
	assert.Equal(t, http.StatusGone, statusFor(session.ErrLobbyClosed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk on fire")))
}
