package engine

import (
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

// ParticipantView is what every client may see about a participant.
type ParticipantView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	CharacterID string               `json:"character_id"`
	Controlled  bool                 `json:"controlled"`
	Role        participant.Role     `json:"role"`
	Revealed    bool                 `json:"revealed"`
	Alive       bool                 `json:"alive"`
	HP          int                  `json:"hp"`
	MaxHP       int                  `json:"max_hp"`
	Position    participant.Position `json:"position"`
	CardCount   int                  `json:"card_count"`
	Skills      map[string]int       `json:"skills"`
	Collected   int                  `json:"collected"`
	Suspicion   float64              `json:"suspicion"`
	NPCTrust    float64              `json:"npc_trust"`
}

// PrivateView adds what only the participant itself may see.
type PrivateView struct {
	ParticipantView
	TrueRole      participant.Role           `json:"true_role,omitempty"`
	Cards         []string                   `json:"cards"`
	Alignment     participant.AlignmentState `json:"alignment"`
	PendingCards  []string                   `json:"pending_cards,omitempty"`
	PendingSkills []string                   `json:"pending_skills,omitempty"`
}

// Snapshot is the public state of a session plus the tail of its revealed log.
type Snapshot struct {
	Mode         Mode               `json:"mode"`
	Phase        Phase              `json:"phase"`
	DayCount     int                `json:"day_count"`
	TimeLeft     float64            `json:"time_left"`
	Paused       bool               `json:"paused"`
	Ticks        int64              `json:"ticks"`
	Participants []ParticipantView  `json:"participants"`
	WorldClues   []participant.Clue `json:"world_clues"`
	Log          []events.GameEvent `json:"log"`
	Outcome      *Outcome           `json:"outcome,omitempty"`
}

func publicView(p *participant.Participant) ParticipantView {
	skills := make(map[string]int, len(p.Skills))
	for k, v := range p.Skills {
		skills[k] = v
	}
	return ParticipantView{
		ID:          p.ID,
		Name:        p.Name,
		CharacterID: p.CharacterID,
		Controlled:  p.Controlled,
		Role:        p.Role,
		Revealed:    p.Revealed,
		Alive:       p.Alive,
		HP:          p.HP,
		MaxHP:       p.MaxHP,
		Position:    p.Position,
		CardCount:   len(p.Cards),
		Skills:      skills,
		Collected:   len(p.Collected),
		Suspicion:   p.Alignment.Suspicion,
		NPCTrust:    p.Alignment.NPCTrust,
	}
}

// Snapshot captures the public state with the last k revealed events.
func (e *Engine) Snapshot(k int) Snapshot {
	s := Snapshot{
		Mode:       e.mode,
		Phase:      e.machine.Phase(),
		DayCount:   e.machine.DayCount(),
		TimeLeft:   e.machine.TimeLeft(),
		Paused:     e.machine.Paused(),
		Ticks:      e.ticks,
		WorldClues: e.clues.WorldClues(),
	}
	for _, p := range e.roster.all() {
		s.Participants = append(s.Participants, publicView(p))
	}
	if e.eventLog != nil {
		s.Log = e.eventLog.Tail(k)
	}
	if e.outcome != nil {
		out := *e.outcome
		s.Outcome = &out
	}
	return s
}

// PrivateState returns the participant's own view, including its role once it knows it.
func (e *Engine) PrivateState(id string) (PrivateView, error) {
	p, ok := e.roster.get(id)
	if !ok {
		return PrivateView{}, ErrUnknownParticipant
	}
	v := PrivateView{
		ParticipantView: publicView(p),
		Cards:           append([]string{}, p.Cards...),
		Alignment:       p.Alignment,
		PendingCards:    e.selection.PendingCards(id),
		PendingSkills:   e.selection.PendingSkills(id),
	}
	if p.KnownRole || p.Revealed {
		v.TrueRole = p.TrueRole
	}
	return v, nil
}
