// Package catalog defines the static content of a session: roles, characters, skills,
// night cards, combos and the rules that decide when clues appear.
// A Catalog is built once, validated, and injected into every engine that uses it.
package catalog

import (
	"fmt"
	"sort"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
)

// CardCategory groups night cards by their moral weight.
type CardCategory string

const (
	CardBlood   CardCategory = "blood"
	CardHoly    CardCategory = "holy"
	CardUtility CardCategory = "utility"
)

// RoleDefinition describes an assignable role.
type RoleDefinition struct {
	ID               participant.Role `yaml:"id" json:"id"`
	Name             string           `yaml:"name" json:"name"`
	VictoryCondition string           `yaml:"victory_condition" json:"victory_condition"`
}

// Character selects which roles a participant may receive.
type Character struct {
	ID             string             `yaml:"id" json:"id"`
	Name           string             `yaml:"name" json:"name"`
	PotentialRoles []participant.Role `yaml:"potential_roles" json:"potential_roles"`
}

// Skill is offered during SkillSelect and levels up on repeat picks.
type Skill struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"` // passive, active, support
	MaxLevel    int    `yaml:"max_level" json:"max_level"`
	Description string `yaml:"description" json:"description"`
}

// Card is a night card. Using it shifts the user's alignment.
type Card struct {
	ID       string               `yaml:"id" json:"id"`
	Name     string               `yaml:"name" json:"name"`
	Category CardCategory         `yaml:"category" json:"category"`
	Effect   rules.AlignmentDelta `yaml:"effect" json:"effect"`
	Heal     int                  `yaml:"heal,omitempty" json:"heal,omitempty"`

	// EmergencyChance is the probability that using the card leaves a high-credibility clue.
	EmergencyChance float64 `yaml:"emergency_chance,omitempty" json:"emergency_chance,omitempty"`
}

// Combo triggers when every card in Cards was used within the same day cycle.
type Combo struct {
	ID        string                   `yaml:"id" json:"id"`
	Cards     []string                 `yaml:"cards" json:"cards"`
	Effect    rules.AlignmentDelta     `yaml:"effect" json:"effect"`
	Heal      int                      `yaml:"heal,omitempty" json:"heal,omitempty"`
	NPCTrust  float64                  `yaml:"npc_trust,omitempty" json:"npc_trust,omitempty"`
	ForceClue participant.ClueCategory `yaml:"force_clue,omitempty" json:"force_clue,omitempty"`
}

// Catalog is the full content set for a session.
type Catalog struct {
	Roles      []RoleDefinition `yaml:"roles"`
	Characters []Character      `yaml:"characters"`
	Skills     []Skill          `yaml:"skills"`
	Cards      []Card           `yaml:"cards"`
	Combos     []Combo          `yaml:"combos"`
	ClueRules  []ClueRule       `yaml:"clue_rules"`

	// Templates maps a clue category to candidate texts.
	Templates map[participant.ClueCategory][]string `yaml:"templates"`
	// Sources are the NPC witnesses clues are attributed to.
	Sources []string `yaml:"sources"`

	cards      map[string]Card
	skills     map[string]Skill
	characters map[string]Character
}

// Prepare indexes the catalog and compiles its clue rules. It must be called before use.
func (c *Catalog) Prepare() error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.cards = make(map[string]Card, len(c.Cards))
	for _, card := range c.Cards {
		c.cards[card.ID] = card
	}
	c.skills = make(map[string]Skill, len(c.Skills))
	for _, s := range c.Skills {
		c.skills[s.ID] = s
	}
	c.characters = make(map[string]Character, len(c.Characters))
	for _, ch := range c.Characters {
		c.characters[ch.ID] = ch
	}

	for i := range c.ClueRules {
		if err := c.ClueRules[i].Compile(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks for duplicate IDs and dangling references.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, card := range c.Cards {
		if card.ID == "" {
			return fmt.Errorf("catalog: card with empty id")
		}
		if seen[card.ID] {
			return fmt.Errorf("catalog: duplicate card %q", card.ID)
		}
		seen[card.ID] = true
	}
	for _, combo := range c.Combos {
		if len(combo.Cards) < 2 {
			return fmt.Errorf("catalog: combo %q needs at least two cards", combo.ID)
		}
		for _, id := range combo.Cards {
			if !seen[id] {
				return fmt.Errorf("catalog: combo %q references unknown card %q", combo.ID, id)
			}
		}
	}

	skills := make(map[string]bool)
	for _, s := range c.Skills {
		if skills[s.ID] {
			return fmt.Errorf("catalog: duplicate skill %q", s.ID)
		}
		if s.MaxLevel < 1 {
			return fmt.Errorf("catalog: skill %q max_level must be >= 1", s.ID)
		}
		skills[s.ID] = true
	}

	for _, ch := range c.Characters {
		for _, r := range ch.PotentialRoles {
			if !isAssignable(r) {
				return fmt.Errorf("catalog: character %q lists unknown role %q", ch.ID, r)
			}
		}
	}
	for _, rule := range c.ClueRules {
		if rule.Chance < 0 || rule.Chance > 1 {
			return fmt.Errorf("catalog: clue rule %q chance out of range", rule.When)
		}
	}
	return nil
}

func isAssignable(r participant.Role) bool {
	for _, known := range participant.AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (c *Catalog) Card(id string) (Card, bool) {
	card, ok := c.cards[id]
	return card, ok
}

func (c *Catalog) Skill(id string) (Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

func (c *Catalog) Character(id string) (Character, bool) {
	ch, ok := c.characters[id]
	return ch, ok
}

// CardIDs returns every card ID in catalog order.
func (c *Catalog) CardIDs() []string {
	ids := make([]string, 0, len(c.Cards))
	for _, card := range c.Cards {
		ids = append(ids, card.ID)
	}
	return ids
}

// SkillIDs returns every skill ID in catalog order.
func (c *Catalog) SkillIDs() []string {
	ids := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		ids = append(ids, s.ID)
	}
	return ids
}

// CharacterIDs returns every character ID sorted.
func (c *Catalog) CharacterIDs() []string {
	ids := make([]string, 0, len(c.Characters))
	for _, ch := range c.Characters {
		ids = append(ids, ch.ID)
	}
	sort.Strings(ids)
	return ids
}

// RolePool returns the roles a character may be assigned.
// Unknown characters, or characters without a list, may receive any role.
func (c *Catalog) RolePool(characterID string) []participant.Role {
	if ch, ok := c.characters[characterID]; ok && len(ch.PotentialRoles) > 0 {
		return ch.PotentialRoles
	}
	return participant.AllRoles
}

// TemplatesFor returns the clue texts for a category, falling back to a generic line.
func (c *Catalog) TemplatesFor(category participant.ClueCategory) []string {
	if t := c.Templates[category]; len(t) > 0 {
		return t
	}
	return []string{"Something about this person feels off"}
}

// CompletedCombos returns the combos whose cards are all present in used.
func (c *Catalog) CompletedCombos(used map[string]bool) []Combo {
	var out []Combo
	for _, combo := range c.Combos {
		complete := true
		for _, id := range combo.Cards {
			if !used[id] {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, combo)
		}
	}
	return out
}
