package engine

import (
	"fmt"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// RevealStatus reports what Reveal did.
type RevealStatus string

const (
	RevealApplied     RevealStatus = "revealed"
	RevealAlreadyDone RevealStatus = "already_revealed"
)

// AlignmentTracker owns every mutation of a participant's AlignmentState.
type AlignmentTracker struct {
	rules  *Rules
	roster *roster
	rec    *recorder
	logger *logger.Logger

	// suspected remembers who is above the threshold so crossings fire once.
	suspected map[string]bool
	onReveal  func(p *participant.Participant)
}

// NewAlignmentTracker creates the tracker.
func NewAlignmentTracker(r *Rules, ros *roster, rec *recorder, log *logger.Logger) *AlignmentTracker {
	return &AlignmentTracker{
		rules:     r,
		roster:    ros,
		rec:       rec,
		logger:    log,
		suspected: make(map[string]bool),
	}
}

// Adjust applies d to the participant. Bounded fields stay in [0,1]; sin and grace never shrink.
func (at *AlignmentTracker) Adjust(id string, d rules.AlignmentDelta) error {
	p, ok := at.roster.get(id)
	if !ok {
		return ErrUnknownParticipant
	}
	p.Alignment = rules.ApplyAlignmentDelta(p.Alignment, d)
	return nil
}

// AdjustNPCTrust moves the NPC opinion of a participant, clamped to [0,1].
func (at *AlignmentTracker) AdjustNPCTrust(id string, delta float64) error {
	p, ok := at.roster.get(id)
	if !ok {
		return ErrUnknownParticipant
	}
	p.Alignment.NPCTrust = rules.Clamp01(p.Alignment.NPCTrust + delta)
	at.rec.record(events.EventTypeNPCTrustChanged, events.SystemActor, id,
		events.TrustPayload{Delta: delta, NPCTrust: p.Alignment.NPCTrust}, true)
	return nil
}

// IsSuspected reports whether suspicion exceeds the suspicion threshold.
func (at *AlignmentTracker) IsSuspected(id string) bool {
	p, ok := at.roster.get(id)
	return ok && p.Alignment.Suspicion > at.rules.SuspicionThreshold
}

// IsRevealEligible reports whether suspicion exceeds the higher reveal threshold.
func (at *AlignmentTracker) IsRevealEligible(id string) bool {
	p, ok := at.roster.get(id)
	return ok && p.Alignment.Suspicion > at.rules.RevealThreshold
}

// Reveal publicly copies the true role into the visible role. Only the first call has any effect.
func (at *AlignmentTracker) Reveal(id string) (RevealStatus, error) {
	p, ok := at.roster.get(id)
	if !ok {
		return "", ErrUnknownParticipant
	}
	if p.Revealed {
		return RevealAlreadyDone, nil
	}

	p.Role = p.TrueRole
	p.Revealed = true
	p.KnownRole = true
	at.rec.record(events.EventTypeRoleRevealed, events.SystemActor, id,
		events.RolePayload{Role: string(p.Role)}, true)
	at.logger.Event("ROLE_REVEALED", id, fmt.Sprintf("%s is a %s", p.Name, p.Role))

	if at.onReveal != nil {
		at.onReveal(p)
	}
	return RevealApplied, nil
}

// Discover lets a participant privately learn its own role. Returns false if it already knew.
func (at *AlignmentTracker) Discover(id string) (bool, error) {
	p, ok := at.roster.get(id)
	if !ok {
		return false, ErrUnknownParticipant
	}
	if p.KnownRole {
		return false, nil
	}
	p.KnownRole = true
	at.rec.record(events.EventTypeRoleDiscovered, id, id, events.RolePayload{Role: string(p.TrueRole)}, false)
	return true, nil
}

// raiseSuspicionTo lifts a participant's suspicion to floor if it is currently lower.
func (at *AlignmentTracker) raiseSuspicionTo(p *participant.Participant, floor float64) {
	if floor > p.Alignment.Suspicion {
		p.Alignment.Suspicion = rules.Clamp01(floor)
	}
}

// evaluate applies threshold-crossing effects and reports whether p just became suspected.
func (at *AlignmentTracker) evaluate(p *participant.Participant) bool {
	now := p.Alignment.Suspicion > at.rules.SuspicionThreshold
	was := at.suspected[p.ID]
	at.suspected[p.ID] = now
	if !now || was {
		return false
	}

	at.rec.record(events.EventTypeSuspected, events.SystemActor, p.ID, nil, true)
	at.logger.Event("SUSPECTED", p.ID, fmt.Sprintf("suspicion %.2f crossed %.2f", p.Alignment.Suspicion, at.rules.SuspicionThreshold))
	_ = at.AdjustNPCTrust(p.ID, -at.rules.SuspectedTrustPenalty)
	return true
}

// reset clears tracking state for a new game.
func (at *AlignmentTracker) reset() {
	at.suspected = make(map[string]bool)
}
