// Package storage - recap.go
// Rebuilds a participant's view of what happened from the event log.
package storage

import (
	"context"
	"fmt"
)

// Recap turns a lobby's persisted history into a per-participant summary.
// It is used for the reconnect "what did I miss" screen and for auditing.
type Recap struct {
	eventRepo EventRepository
}

// NewRecap creates a recap builder.
func NewRecap(eventRepo EventRepository) *Recap {
	return &Recap{eventRepo: eventRepo}
}

// RecapEntry is a simplified event for the recap screen.
type RecapEntry struct {
	Seq       int64  `json:"seq"`
	Day       int    `json:"day"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Build returns the entries relevant to participantID from sinceDay on.
// Hidden events are only included when the participant performed them.
func (r *Recap) Build(ctx context.Context, lobbyID, participantID string, sinceDay int) ([]RecapEntry, error) {
	all, err := r.eventRepo.GetByLobby(ctx, lobbyID, EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to get lobby events: %w", err)
	}

	var recap []RecapEntry
	for _, e := range all {
		if e.GameDay < sinceDay {
			continue
		}
		if !visibleTo(e, participantID) {
			continue
		}
		recap = append(recap, RecapEntry{
			Seq:       e.Seq,
			Day:       e.GameDay,
			EventType: e.EventType,
			Summary:   summarize(e, participantID),
			Impact:    impact(e, participantID),
		})
	}
	return recap, nil
}

func visibleTo(e GameEvent, participantID string) bool {
	if e.EventType == "ROLE_ASSIGNED" {
		return false
	}
	return e.IsRevealed || (participantID != "" && e.ActorID == participantID)
}

func summarize(e GameEvent, observerID string) string {
	about := "someone"
	if e.TargetID == observerID && observerID != "" {
		about = "you"
	} else if e.TargetID != "" {
		about = e.TargetID
	}

	switch e.EventType {
	case "PHASE_CHANGED":
		return fmt.Sprintf("The %v began.", e.Payload["to"])
	case "ACCUSATION":
		return fmt.Sprintf("%s accused %s: %v", e.ActorID, about, e.Payload["reason"])
	case "CLUE_GENERATED":
		return fmt.Sprintf("A %v clue surfaced about %s.", e.Payload["category"], about)
	case "CLUE_COLLECTED":
		return fmt.Sprintf("%s picked up a clue.", e.ActorID)
	case "ROLE_REVEALED":
		return fmt.Sprintf("%s was revealed as %v.", about, e.Payload["role"])
	case "ATTACK":
		return fmt.Sprintf("%s attacked %s.", e.ActorID, about)
	case "PARTICIPANT_DIED":
		return fmt.Sprintf("%s died.", about)
	case "SUSPECTED":
		return fmt.Sprintf("The village grew suspicious of %s.", about)
	case "GAME_OVER":
		return fmt.Sprintf("The game ended: %v win.", e.Payload["winner"])
	default:
		return "Something happened in the village."
	}
}

func impact(e GameEvent, observerID string) string {
	targeted := observerID != "" && e.TargetID == observerID
	switch e.EventType {
	case "ACCUSATION", "ATTACK", "SUSPECTED", "PARTICIPANT_DIED":
		if targeted {
			return "NEGATIVE"
		}
	case "CLUE_COLLECTED", "SKILL_SELECTED", "CARD_SELECTED":
		if e.ActorID == observerID {
			return "POSITIVE"
		}
	}
	return "NEUTRAL"
}
