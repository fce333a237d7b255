// Package network carries lobby traffic over WebSocket: snapshots out, commands in.
// Frames hold one or more newline-separated JSON messages.
package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/metrics"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

// Outbound message types.
const (
	MsgSnapshot = "SNAPSHOT"
	MsgState    = "STATE"
	MsgResult   = "RESULT"
	MsgError    = "ERROR"
)

// Message is every server-to-client frame.
type Message struct {
	Type    string              `json:"type"`
	LobbyID string              `json:"lobby_id,omitempty"`
	Command session.CommandType `json:"command,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
}

type envelope struct {
	lobbyID string
	data    []byte
}

// Hub maintains the set of active clients per lobby and broadcasts snapshots to them.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub. bufferSize bounds pending broadcasts.
func NewHub(log *logger.Logger, m *metrics.Collector, bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Hub{
		broadcast:  make(chan envelope, bufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]bool),
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			h.mu.Lock()
			for _, room := range h.rooms {
				for client := range room {
					close(client.send)
					h.metrics.RecordWSConnection(-1)
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.lobbyID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.lobbyID] = room
			}
			room[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("WebSocket client connected: " + client.participantID + " in " + client.lobbyID)
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.lobbyID] {
				select {
				case client.send <- msg.data:
					h.metrics.RecordWSMessage(false)
				default:
					h.metrics.RecordWSDropped()
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	room := h.rooms[client.lobbyID]
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.lobbyID)
	}
	h.metrics.RecordWSConnection(-1)
	h.logger.Info("WebSocket client disconnected: " + client.participantID)
}

// Broadcast serializes a lobby snapshot and queues it for the lobby's clients.
// It never blocks the caller; a full queue drops the snapshot.
func (h *Hub) Broadcast(lobbyID string, snap engine.Snapshot) {
	payload, err := json.Marshal(Message{Type: MsgSnapshot, LobbyID: lobbyID, Data: snap})
	if err != nil {
		h.logger.Err(err, "Failed to serialize snapshot for WebSocket broadcast")
		return
	}
	select {
	case h.broadcast <- envelope{lobbyID: lobbyID, data: payload}:
	default:
		h.metrics.RecordWSDropped()
		h.logger.Warn("Broadcast queue full; snapshot dropped for " + lobbyID)
	}
}

// ClientCount returns how many clients are watching a lobby.
func (h *Hub) ClientCount(lobbyID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[lobbyID])
}

var _ session.Broadcaster = (*Hub)(nil)
