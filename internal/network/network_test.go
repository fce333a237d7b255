package network

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/metrics"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

type fixture struct {
	hub     *Hub
	manager *session.Manager
	lobby   *session.Lobby
	server  *httptest.Server
	metrics *metrics.Collector
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	m := metrics.New()
	hub := NewHub(logger.NewNop(), m, 16)
	go hub.Run(ctx)

	mgr := session.NewManager(session.Deps{Rules: engine.DefaultRules(), Metrics: m},
		session.Settings{TickInterval: time.Hour})
	lobby, err := mgr.Create(session.CreateRequest{Participants: []session.Seat{
		{ID: "p1"}, {ID: "p2"}, {ID: "p3"},
	}})
	require.NoError(t, err)

	srv := httptest.NewServer(ServeWS(hub, mgr, opts))
	t.Cleanup(func() {
		srv.Close()
		mgr.Shutdown()
		cancel()
	})
	return &fixture{hub: hub, manager: mgr, lobby: lobby, server: srv, metrics: m}
}

func (f *fixture) dial(t *testing.T, participant string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?lobby=" + f.lobby.ID + "&participant=" + participant
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next returns the next message, splitting batched frames.
func next(t *testing.T, conn *websocket.Conn, pending *[]Message) Message {
	t.Helper()
	for len(*pending) == 0 {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			var m Message
			require.NoError(t, json.Unmarshal(line, &m))
			*pending = append(*pending, m)
		}
	}
	m := (*pending)[0]
	*pending = (*pending)[1:]
	return m
}

func send(t *testing.T, conn *websocket.Conn, cmd session.Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestConnectSendsPrivateState(t *testing.T) {
	f := newFixture(t, Options{Rate: 100, Burst: 100, SendBuffer: 8})
	conn := f.dial(t, "p1")
	var pending []Message

	first := next(t, conn, &pending)
	assert.Equal(t, MsgState, first.Type)
	assert.Equal(t, f.lobby.ID, first.LobbyID)
}

func TestUnknownSeatIsRejected(t *testing.T) {
	f := newFixture(t, Options{Rate: 100, Burst: 100, SendBuffer: 8})
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?lobby=" + f.lobby.ID + "&participant=ghost"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	url = "ws" + strings.TrimPrefix(f.server.URL, "http") + "?lobby=nope&participant=p1"
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestFullLobbyIsRejected(t *testing.T) {
	f := newFixture(t, Options{Rate: 100, Burst: 100, SendBuffer: 8, MaxClients: 1})
	f.dial(t, "p1")
	require.Eventually(t, func() bool { return f.hub.ClientCount(f.lobby.ID) == 1 }, 2*time.Second, 5*time.Millisecond)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?lobby=" + f.lobby.ID + "&participant=p2"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestCommandsGetReplies(t *testing.T) {
	f := newFixture(t, Options{Rate: 100, Burst: 100, SendBuffer: 8})
	conn := f.dial(t, "p1")
	var pending []Message
	next(t, conn, &pending)

	send(t, conn, session.Command{Type: session.CmdMove, Payload: json.RawMessage(`{"x":1,"y":2}`)})
	res := next(t, conn, &pending)
	assert.Equal(t, MsgResult, res.Type)
	assert.Equal(t, session.CmdMove, res.Command)

	send(t, conn, session.Command{Type: session.CmdMove, ParticipantID: "p2", Payload: json.RawMessage(`{"x":1,"y":2}`)})
	res = next(t, conn, &pending)
	assert.Equal(t, MsgError, res.Type)
	assert.Equal(t, "participant mismatch", res.Error)

	send(t, conn, session.Command{Type: session.CmdAccuse, Payload: json.RawMessage(`{"accused_id":"p2","reason":"x"}`)})
	res = next(t, conn, &pending)
	assert.Equal(t, MsgError, res.Type)
	assert.Contains(t, res.Error, engine.ErrWrongPhase.Error())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	res = next(t, conn, &pending)
	assert.Equal(t, "malformed command", res.Error)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{Rate: 0.001, Burst: 1, SendBuffer: 8})
	conn := f.dial(t, "p1")
	var pending []Message
	next(t, conn, &pending)

	move := session.Command{Type: session.CmdMove, Payload: json.RawMessage(`{"x":1,"y":2}`)}
	send(t, conn, move)
	send(t, conn, move)
	assert.Equal(t, MsgResult, next(t, conn, &pending).Type)
	limited := next(t, conn, &pending)
	assert.Equal(t, "rate limited", limited.Error)
	assert.Equal(t, int64(1), f.metrics.Snapshot()["websocket"].(map[string]interface{})["rate_limited"])
}

func TestBroadcastReachesLobbyClients(t *testing.T) {
	f := newFixture(t, Options{Rate: 100, Burst: 100, SendBuffer: 8})
	conn := f.dial(t, "p2")
	var pending []Message
	next(t, conn, &pending)

	require.Eventually(t, func() bool { return f.hub.ClientCount(f.lobby.ID) == 1 }, 2*time.Second, 5*time.Millisecond)
	snap, err := f.lobby.Snapshot(context.Background())
	require.NoError(t, err)
	f.hub.Broadcast(f.lobby.ID, snap)
	f.hub.Broadcast("other-lobby", snap)

	msg := next(t, conn, &pending)
	assert.Equal(t, MsgSnapshot, msg.Type)
	assert.Equal(t, f.lobby.ID, msg.LobbyID)
	assert.Empty(t, pending)
}
