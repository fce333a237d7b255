// Package events provides the append-only event log for a session.
// Every consequential engine decision is recorded here so it can be broadcast, persisted and replayed.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypePhaseChanged     EventType = "PHASE_CHANGED"
	EventTypeDayStarted       EventType = "DAY_STARTED"
	EventTypeRoleAssigned     EventType = "ROLE_ASSIGNED"
	EventTypeRoleDiscovered   EventType = "ROLE_DISCOVERED"
	EventTypeRoleRevealed     EventType = "ROLE_REVEALED"
	EventTypeClueGenerated    EventType = "CLUE_GENERATED"
	EventTypeClueCollected    EventType = "CLUE_COLLECTED"
	EventTypeAccusation       EventType = "ACCUSATION"
	EventTypeBehaviorObserved EventType = "BEHAVIOR_OBSERVED"
	EventTypeSuspected        EventType = "SUSPECTED"
	EventTypeNPCTrustChanged  EventType = "NPC_TRUST_CHANGED"
	EventTypeCardsOffered     EventType = "CARDS_OFFERED"
	EventTypeCardSelected     EventType = "CARD_SELECTED"
	EventTypeCardUsed         EventType = "CARD_USED"
	EventTypeComboTriggered   EventType = "COMBO_TRIGGERED"
	EventTypeSkillSelected    EventType = "SKILL_SELECTED"
	EventTypeCharacterChosen  EventType = "CHARACTER_CHOSEN"
	EventTypeAttack           EventType = "ATTACK"
	EventTypeParticipantDied  EventType = "PARTICIPANT_DIED"
	EventTypeGameOver         EventType = "GAME_OVER"
	EventTypeGameRestarted    EventType = "GAME_RESTARTED"
	EventTypeWorldEvent       EventType = "WORLD_EVENT"
	EventTypeMonsterWave      EventType = "MONSTER_WAVE"
)

// SystemActor is the actor ID used for engine-originated events.
const SystemActor = "SYSTEM"

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID         string      `json:"id"`
	Seq        int64       `json:"seq"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type"`
	ActorID    string      `json:"actor_id"`  // Who performed the action
	TargetID   string      `json:"target_id"` // Who was affected (optional)
	Payload    interface{} `json:"payload"`
	GameDay    int         `json:"game_day"`
	IsRevealed bool        `json:"is_revealed"` // false for hidden information such as role assignment
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// ErrorReporter is told about persistence failures. Optional.
type ErrorReporter func(event GameEvent, err error)

const persistQueueSize = 1024

// EventLog is the in-memory append-only log of one session.
// Persistence happens on a single background writer so Append never blocks on I/O.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	seq       int64
	persister EventPersister
	onError   ErrorReporter

	queue chan GameEvent
	done  chan struct{}
	once  sync.Once
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	el := &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
	if persister != nil {
		el.queue = make(chan GameEvent, persistQueueSize)
		el.done = make(chan struct{})
		go el.drain()
	}
	return el
}

// OnPersistError registers a callback for write failures and dropped events.
func (el *EventLog) OnPersistError(fn ErrorReporter) {
	el.mu.Lock()
	el.onError = fn
	el.mu.Unlock()
}

// Append stamps and adds a new event to the log. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) GameEvent {
	el.mu.Lock()
	el.seq++
	event.Seq = el.seq
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	el.events = append(el.events, event)
	onError := el.onError
	el.mu.Unlock()

	if el.queue != nil {
		select {
		case el.queue <- event:
		default:
			if onError != nil {
				onError(event, ErrQueueFull)
			}
		}
	}
	return event
}

func (el *EventLog) drain() {
	defer close(el.done)
	for event := range el.queue {
		if err := el.persister.Append(event); err != nil {
			el.mu.RLock()
			onError := el.onError
			el.mu.RUnlock()
			if onError != nil {
				onError(event, err)
			}
		}
	}
}

// Close flushes pending writes and stops the background writer.
func (el *EventLog) Close() {
	if el.queue == nil {
		return
	}
	el.once.Do(func() {
		close(el.queue)
		<-el.done
	})
}

// Len returns the number of events recorded.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByDay returns all events that occurred on a specific game day.
func (el *EventLog) GetByDay(day int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.GameDay == day {
			result = append(result, e)
		}
	}
	return result
}

// Since returns the events appended after the first n.
func (el *EventLog) Since(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n >= len(el.events) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	out := make([]GameEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// Tail returns up to k of the most recent revealed events, oldest first.
func (el *EventLog) Tail(k int) []GameEvent {
	if k <= 0 {
		return nil
	}
	el.mu.RLock()
	defer el.mu.RUnlock()

	out := make([]GameEvent, 0, k)
	for i := len(el.events) - 1; i >= 0 && len(out) < k; i-- {
		if el.events[i].IsRevealed {
			out = append(out, el.events[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
