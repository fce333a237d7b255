package engine

import (
	"math/rand"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// SelectionSystem runs the card, skill and character pick sub-flows.
// Controlled participants choose through commands; everyone else picks at random immediately.
// Anything still pending when its phase ends resolves to option 0.
type SelectionSystem struct {
	catalog *catalog.Catalog
	roster  *roster
	rec     *recorder
	logger  *logger.Logger
	rng     *rand.Rand
	rules   *Rules

	cards  map[string][]string
	skills map[string][]string
}

// NewSelectionSystem creates the selection system.
func NewSelectionSystem(r *Rules, cat *catalog.Catalog, ros *roster, rec *recorder, log *logger.Logger, rng *rand.Rand) *SelectionSystem {
	return &SelectionSystem{
		catalog: cat,
		roster:  ros,
		rec:     rec,
		logger:  log,
		rng:     rng,
		rules:   r,
		cards:   make(map[string][]string),
		skills:  make(map[string][]string),
	}
}

// sample draws up to n distinct IDs.
func (ss *SelectionSystem) sample(ids []string, n int) []string {
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]string, 0, n)
	for _, i := range ss.rng.Perm(len(ids))[:n] {
		out = append(out, ids[i])
	}
	return out
}

// openCards offers night cards to every live participant and returns how many picks are pending.
func (ss *SelectionSystem) openCards() int {
	ss.cards = make(map[string][]string)
	for _, p := range ss.roster.alive() {
		opts := ss.sample(ss.catalog.CardIDs(), ss.rules.NightCardOptions)
		if len(opts) == 0 {
			continue
		}
		ss.rec.record(events.EventTypeCardsOffered, events.SystemActor, p.ID, events.SelectionPayload{Options: opts}, false)
		if p.Controlled {
			ss.cards[p.ID] = opts
			continue
		}
		ss.grantCard(p.ID, opts, ss.rng.Intn(len(opts)), true)
	}
	return len(ss.cards)
}

// SelectCard resolves a pending card pick. Returns how many picks are still pending.
func (ss *SelectionSystem) SelectCard(id string, index int) (int, error) {
	opts, ok := ss.cards[id]
	if !ok {
		return len(ss.cards), ErrNoPendingSelection
	}
	if index < 0 || index >= len(opts) {
		return len(ss.cards), ErrSelectionOutOfRange
	}
	ss.grantCard(id, opts, index, false)
	delete(ss.cards, id)
	return len(ss.cards), nil
}

func (ss *SelectionSystem) grantCard(id string, opts []string, index int, auto bool) {
	p, ok := ss.roster.get(id)
	if !ok {
		return
	}
	p.Cards = append(p.Cards, opts[index])
	ss.rec.record(events.EventTypeCardSelected, id, "", events.SelectionPayload{Options: opts, Chosen: opts[index], Auto: auto}, false)
}

// resolveCards auto-picks option 0 for everyone still choosing.
func (ss *SelectionSystem) resolveCards() {
	for _, p := range ss.roster.all() {
		if opts, ok := ss.cards[p.ID]; ok {
			ss.grantCard(p.ID, opts, 0, true)
		}
	}
	ss.cards = make(map[string][]string)
}

// PendingCards returns the card options offered to id, if any.
func (ss *SelectionSystem) PendingCards(id string) []string {
	return append([]string(nil), ss.cards[id]...)
}

// openSkills offers skills to every live participant.
func (ss *SelectionSystem) openSkills() int {
	ss.skills = make(map[string][]string)
	for _, p := range ss.roster.alive() {
		opts := ss.sample(ss.catalog.SkillIDs(), ss.rules.SkillOptions)
		if len(opts) == 0 {
			continue
		}
		if p.Controlled {
			ss.skills[p.ID] = opts
			continue
		}
		ss.grantSkill(p.ID, opts, ss.rng.Intn(len(opts)), true)
	}
	return len(ss.skills)
}

// SelectSkill resolves a pending skill pick.
func (ss *SelectionSystem) SelectSkill(id string, index int) error {
	opts, ok := ss.skills[id]
	if !ok {
		return ErrNoPendingSelection
	}
	if index < 0 || index >= len(opts) {
		return ErrSelectionOutOfRange
	}
	ss.grantSkill(id, opts, index, false)
	delete(ss.skills, id)
	return nil
}

// grantSkill levels the chosen skill, capped at its max level.
func (ss *SelectionSystem) grantSkill(id string, opts []string, index int, auto bool) {
	p, ok := ss.roster.get(id)
	if !ok {
		return
	}
	skillID := opts[index]
	level := p.Skills[skillID] + 1
	if s, ok := ss.catalog.Skill(skillID); ok && level > s.MaxLevel {
		level = s.MaxLevel
	}
	p.Skills[skillID] = level
	ss.rec.record(events.EventTypeSkillSelected, id, "", events.SelectionPayload{Options: opts, Chosen: skillID, Auto: auto, NewLevel: level}, true)
}

func (ss *SelectionSystem) resolveSkills() {
	for _, p := range ss.roster.all() {
		if opts, ok := ss.skills[p.ID]; ok {
			ss.grantSkill(p.ID, opts, 0, true)
		}
	}
	ss.skills = make(map[string][]string)
}

// PendingSkills returns the skill options offered to id, if any.
func (ss *SelectionSystem) PendingSkills(id string) []string {
	return append([]string(nil), ss.skills[id]...)
}

// SelectCharacter sets a participant's character.
func (ss *SelectionSystem) SelectCharacter(id, characterID string) error {
	p, ok := ss.roster.get(id)
	if !ok {
		return ErrUnknownParticipant
	}
	if _, ok := ss.catalog.Character(characterID); !ok {
		return ErrUnknownCharacter
	}
	p.CharacterID = characterID
	ss.rec.record(events.EventTypeCharacterChosen, id, "", events.SelectionPayload{Chosen: characterID}, true)
	return nil
}

// resolveCharacters gives a random character to everyone who has not picked a valid one.
func (ss *SelectionSystem) resolveCharacters() {
	ids := ss.catalog.CharacterIDs()
	if len(ids) == 0 {
		return
	}
	for _, p := range ss.roster.all() {
		if _, ok := ss.catalog.Character(p.CharacterID); ok {
			continue
		}
		p.CharacterID = ids[ss.rng.Intn(len(ids))]
		ss.rec.record(events.EventTypeCharacterChosen, p.ID, "", events.SelectionPayload{Chosen: p.CharacterID, Auto: true}, true)
	}
}

func (ss *SelectionSystem) reset() {
	ss.cards = make(map[string][]string)
	ss.skills = make(map[string][]string)
}
