package network

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	// Time allowed for the lobby to answer a command.
	commandTimeout = 5 * time.Second
)

// Submitter accepts commands for a lobby. *session.Lobby implements it.
type Submitter interface {
	Submit(ctx context.Context, cmd session.Command) (interface{}, error)
}

// Client is one participant's WebSocket connection to a lobby.
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	lobby         Submitter
	lobbyID       string
	participantID string
	limiter       *rate.Limiter

	// send carries hub broadcasts and is closed by the hub.
	send chan []byte
	// replies carries command results and is owned by the client.
	replies chan []byte
}

// NewClient creates a new WebSocket client bound to one lobby seat.
func NewClient(hub *Hub, conn *websocket.Conn, lobby Submitter, lobbyID, participantID string, limiter *rate.Limiter, sendBuffer int) *Client {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		lobby:         lobby,
		lobbyID:       lobbyID,
		participantID: participantID,
		limiter:       limiter,
		send:          make(chan []byte, sendBuffer),
		replies:       make(chan []byte, sendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps commands from the websocket connection into the lobby.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Err(err, "WebSocket read failed for "+c.participantID)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd session.Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Warn("Failed to parse command from WebSocket: " + err.Error())
			c.reply(Message{Type: MsgError, Error: "malformed command"})
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd session.Command) {
	if !c.limiter.Allow() {
		c.hub.metrics.RecordWSRateLimited()
		c.hub.logger.Warn("Rate limit exceeded for client action from " + c.participantID)
		c.reply(Message{Type: MsgError, Command: cmd.Type, Error: "rate limited"})
		return
	}

	// A connection speaks only for its own seat.
	if cmd.ParticipantID == "" {
		cmd.ParticipantID = c.participantID
	}
	if cmd.ParticipantID != c.participantID {
		c.reply(Message{Type: MsgError, Command: cmd.Type, Error: "participant mismatch"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	v, err := c.lobby.Submit(ctx, cmd)
	if err != nil {
		c.reply(Message{Type: MsgError, LobbyID: c.lobbyID, Command: cmd.Type, Error: err.Error()})
		return
	}
	typ := MsgResult
	if cmd.Type == session.CmdState {
		typ = MsgState
	}
	c.reply(Message{Type: typ, LobbyID: c.lobbyID, Command: cmd.Type, Data: v})
}

// reply queues a direct message. A client that stops reading loses replies, not the connection.
func (c *Client) reply(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		c.hub.logger.Err(err, "Failed to serialize reply")
		return
	}
	select {
	case c.replies <- data:
	default:
		c.hub.metrics.RecordWSDropped()
	}
}

// WritePump pumps hub broadcasts and command replies to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message, c.send); err != nil {
				return
			}
		case message := <-c.replies:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.write(message, c.replies); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends message plus whatever is already queued on the same channel as one frame.
func (c *Client) write(message []byte, queued chan []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.hub.metrics.RecordWSError()
		return err
	}
	w.Write(message)

	n := len(queued)
	for i := 0; i < n; i++ {
		next, ok := <-queued
		if !ok {
			break
		}
		w.Write([]byte{'\n'})
		w.Write(next)
	}
	return w.Close()
}
