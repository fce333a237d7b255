// Package participant defines the core domain entities for players in a session.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package participant

import "math"

// Role is the hidden allegiance of a participant.
type Role string

const (
	RoleUnknown   Role = "unknown"
	RoleProtector Role = "protector"
	RoleTraitor   Role = "traitor"
	RoleChaos     Role = "chaos"
)

// AllRoles lists the assignable roles in a stable order.
var AllRoles = []Role{RoleProtector, RoleTraitor, RoleChaos}

// DefaultMaxHP is the starting health of every participant.
const DefaultMaxHP = 100

// Position is a point on the play field.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean distance between two positions.
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// AlignmentState is the moral ledger of a participant.
// Sin and Grace are accumulators; everything else lives in [0,1].
type AlignmentState struct {
	Sin       float64 `json:"sin"`
	Grace     float64 `json:"grace"`
	Trust     float64 `json:"trust"`
	Suspicion float64 `json:"suspicion"`
	Loyalty   float64 `json:"loyalty"`
	Chaos     float64 `json:"chaos"`
	NPCTrust  float64 `json:"npc_trust"`
}

// NewAlignmentState returns the neutral starting alignment.
func NewAlignmentState() AlignmentState {
	return AlignmentState{
		Trust:    0.5,
		Loyalty:  0.5,
		NPCTrust: 1.0,
	}
}

// Participant represents a player (human or decoy) in a session.
type Participant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CharacterID string `json:"character_id"`
	Controlled  bool   `json:"controlled"` // driven by a human client

	// Roles
	TrueRole  Role `json:"-"`
	Role      Role `json:"role"`       // what is visible; Unknown until revealed
	KnownRole bool `json:"known_role"` // has discovered TrueRole privately
	Revealed  bool `json:"revealed"`

	// Vitals
	Alive    bool     `json:"alive"`
	HP       int      `json:"hp"`
	MaxHP    int      `json:"max_hp"`
	Position Position `json:"position"`

	// Holdings
	Cards     []string       `json:"cards"`
	Skills    map[string]int `json:"skills"`    // skill ID -> level
	Collected []string       `json:"collected"` // world clue IDs picked up

	Alignment AlignmentState `json:"alignment"`
}

// NewParticipant creates a fresh, living participant with no role yet.
func NewParticipant(id, name, characterID string) *Participant {
	return &Participant{
		ID:          id,
		Name:        name,
		CharacterID: characterID,
		TrueRole:    RoleUnknown,
		Role:        RoleUnknown,
		Alive:       true,
		HP:          DefaultMaxHP,
		MaxHP:       DefaultMaxHP,
		Cards:       []string{},
		Skills:      make(map[string]int),
		Collected:   []string{},
		Alignment:   NewAlignmentState(),
	}
}

// Reset restores the participant for a new game. Identity and control survive.
func (p *Participant) Reset() {
	p.TrueRole = RoleUnknown
	p.Role = RoleUnknown
	p.KnownRole = false
	p.Revealed = false
	p.Alive = true
	p.HP = p.MaxHP
	p.Cards = []string{}
	p.Skills = make(map[string]int)
	p.Collected = []string{}
	p.Alignment = NewAlignmentState()
}

func (p *Participant) HasCard(cardID string) bool {
	for _, c := range p.Cards {
		if c == cardID {
			return true
		}
	}
	return false
}

// RemoveCard drops the first copy of cardID from the hand.
func (p *Participant) RemoveCard(cardID string) bool {
	for i, c := range p.Cards {
		if c == cardID {
			p.Cards = append(p.Cards[:i], p.Cards[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Participant) Heal(amount int) {
	p.HP += amount
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
}

// Damage applies damage and reports whether the hit was fatal.
func (p *Participant) Damage(amount int) bool {
	if !p.Alive {
		return false
	}
	p.HP -= amount
	if p.HP <= 0 {
		p.HP = 0
		p.Alive = false
		return true
	}
	return false
}

// Clone returns a deep copy that can be read without touching live state.
func (p *Participant) Clone() Participant {
	c := *p
	c.Cards = append([]string{}, p.Cards...)
	c.Collected = append([]string{}, p.Collected...)
	c.Skills = make(map[string]int, len(p.Skills))
	for k, v := range p.Skills {
		c.Skills[k] = v
	}
	return c
}
