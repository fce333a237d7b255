package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

// Options tune accepted connections.
type Options struct {
	Rate       rate.Limit // commands per second per client
	Burst      int
	SendBuffer int
	MaxClients int // per lobby; 0 means unlimited
}

// LobbyFinder resolves a lobby by ID. *session.Manager implements it.
type LobbyFinder interface {
	Get(id string) (*session.Lobby, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades GET /ws?lobby=ID&participant=PID. The participant's private state is the first message.
func ServeWS(hub *Hub, lobbies LobbyFinder, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID := r.URL.Query().Get("lobby")
		participantID := r.URL.Query().Get("participant")
		if lobbyID == "" || participantID == "" {
			http.Error(w, "lobby and participant are required", http.StatusBadRequest)
			return
		}
		lobby, err := lobbies.Get(lobbyID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if opts.MaxClients > 0 && hub.ClientCount(lobbyID) >= opts.MaxClients {
			http.Error(w, "lobby is full", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		state, err := lobby.PrivateState(ctx, participantID)
		cancel()
		if err != nil {
			status := http.StatusNotFound
			if errors.Is(err, session.ErrLobbyClosed) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.metrics.RecordWSError()
			hub.logger.Err(err, "WebSocket upgrade failed")
			return
		}

		client := NewClient(hub, conn, lobby, lobbyID, participantID, rate.NewLimiter(opts.Rate, opts.Burst), opts.SendBuffer)
		if first, err := json.Marshal(Message{Type: MsgState, LobbyID: lobbyID, Data: state}); err == nil {
			client.replies <- first
		}
		client.Register()
		go client.WritePump()
		go client.ReadPump()
	}
}
