package events

import "errors"

// ErrQueueFull is reported when the persistence queue cannot keep up.
var ErrQueueFull = errors.New("events: persist queue full, event dropped")

// PhaseChangedPayload is attached to PHASE_CHANGED.
type PhaseChangedPayload struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	DayCount int     `json:"day_count"`
	TimeLeft float64 `json:"time_left"`
}

// RolePayload is attached to role assignment, discovery and reveal.
type RolePayload struct {
	Role string `json:"role"`
}

// CluePayload is attached to CLUE_GENERATED and CLUE_COLLECTED.
type CluePayload struct {
	ClueID      string  `json:"clue_id"`
	Category    string  `json:"category"`
	Text        string  `json:"text"`
	Credibility float64 `json:"credibility"`
	Source      string  `json:"source"`
	RevealsRole bool    `json:"reveals_role"`
}

// AccusationPayload is attached to ACCUSATION.
type AccusationPayload struct {
	AccusationID       string   `json:"accusation_id"`
	Reason             string   `json:"reason"`
	Credibility        float64  `json:"credibility"`
	AccuserCredibility float64  `json:"accuser_credibility"`
	SupportingClueIDs  []string `json:"supporting_clue_ids"`
}

// BehaviorPayload is attached to BEHAVIOR_OBSERVED.
type BehaviorPayload struct {
	Behavior  string   `json:"behavior"`
	Gain      float64  `json:"gain"`
	Witnesses []string `json:"witnesses"`
}

// SelectionPayload is attached to card/skill/character choices and offers.
type SelectionPayload struct {
	Options  []string `json:"options,omitempty"`
	Chosen   string   `json:"chosen,omitempty"`
	Auto     bool     `json:"auto,omitempty"`
	NewLevel int      `json:"new_level,omitempty"`
}

// AttackPayload is attached to ATTACK.
type AttackPayload struct {
	BaseDamage int  `json:"base_damage"`
	Damage     int  `json:"damage"`
	Alone      bool `json:"alone"`
	Fatal      bool `json:"fatal"`
}

// TrustPayload is attached to NPC_TRUST_CHANGED.
type TrustPayload struct {
	Delta    float64 `json:"delta"`
	NPCTrust float64 `json:"npc_trust"`
}

// GameOverPayload is attached to GAME_OVER.
type GameOverPayload struct {
	Winner   string            `json:"winner"`
	Reason   string            `json:"reason"`
	Roles    map[string]string `json:"roles"`
	DayCount int               `json:"day_count"`
}

// WorldPayload is attached to WORLD_EVENT and MONSTER_WAVE.
type WorldPayload struct {
	Description string `json:"description,omitempty"`
	Count       int    `json:"count,omitempty"`
}
