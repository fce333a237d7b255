package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

// EventSink persists one lobby's in-memory events through an EventRepository.
// It satisfies events.EventPersister.
type EventSink struct {
	repo    EventRepository
	lobbyID string
	timeout time.Duration
}

// NewEventSink binds a repository to a lobby.
func NewEventSink(repo EventRepository, lobbyID string) *EventSink {
	return &EventSink{repo: repo, lobbyID: lobbyID, timeout: 5 * time.Second}
}

// Append converts and stores the event.
func (s *EventSink) Append(e events.GameEvent) error {
	row, err := ToRow(s.lobbyID, e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.repo.Append(ctx, row)
}

// ToRow flattens a domain event into its persisted form. Typed payloads become JSON objects.
func ToRow(lobbyID string, e events.GameEvent) (GameEvent, error) {
	var payload map[string]interface{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return GameEvent{}, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = map[string]interface{}{"value": json.RawMessage(raw)}
		}
	}
	return GameEvent{
		ID:         e.ID,
		LobbyID:    lobbyID,
		Seq:        e.Seq,
		Timestamp:  e.Timestamp,
		EventType:  string(e.Type),
		ActorID:    e.ActorID,
		TargetID:   e.TargetID,
		Payload:    payload,
		GameDay:    e.GameDay,
		IsRevealed: e.IsRevealed,
	}, nil
}

var _ events.EventPersister = (*EventSink)(nil)
