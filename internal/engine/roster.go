package engine

import (
	"sort"
	"time"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// roster is the shared, ordered set of participants in a session.
// Iteration is always in ID order so seeded runs are reproducible.
type roster struct {
	byID map[string]*participant.Participant
	ids  []string
}

func newRoster() *roster {
	return &roster{byID: make(map[string]*participant.Participant)}
}

func (r *roster) add(p *participant.Participant) bool {
	if _, exists := r.byID[p.ID]; exists {
		return false
	}
	r.byID[p.ID] = p
	r.ids = append(r.ids, p.ID)
	sort.Strings(r.ids)
	return true
}

func (r *roster) get(id string) (*participant.Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// live looks up a participant that exists and is alive.
func (r *roster) live(id string) (*participant.Participant, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrUnknownParticipant
	}
	if !p.Alive {
		return nil, ErrParticipantDead
	}
	return p, nil
}

func (r *roster) all() []*participant.Participant {
	out := make([]*participant.Participant, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *roster) alive() []*participant.Participant {
	out := make([]*participant.Participant, 0, len(r.ids))
	for _, id := range r.ids {
		if p := r.byID[id]; p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (r *roster) len() int {
	return len(r.ids)
}

// recorder appends engine events to the session log, stamped with the current day.
// A nil log makes every record a no-op.
type recorder struct {
	log    *events.EventLog
	logger *logger.Logger
	day    func() int
	now    func() time.Time
}

func (rc *recorder) record(typ events.EventType, actorID, targetID string, payload interface{}, revealed bool) {
	if rc.log == nil {
		return
	}
	rc.log.Append(events.GameEvent{
		Timestamp:  rc.now(),
		Type:       typ,
		ActorID:    actorID,
		TargetID:   targetID,
		Payload:    payload,
		GameDay:    rc.day(),
		IsRevealed: revealed,
	})
}
