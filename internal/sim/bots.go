package sim

import (
	"math/rand"
	"sort"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
)

var (
	lines = []string{
		"Where were you last night?",
		"I was at the chapel.",
		"Did anyone see the miller?",
		"The well smells of iron.",
		"Why would you say that?",
	}
	reasons = []string{"blood on the sleeve", "seen near the woods", "lied about the chapel", "too quiet"}
)

// bots drive every participant with random but legal-looking actions.
// Rejections are expected and counted; they exercise the engine's validation.
type bots struct {
	e        *engine.Engine
	rng      *rand.Rand
	activity float64
	behavior []string

	actions  int
	rejected int
}

func newBots(e *engine.Engine, rng *rand.Rand, activity float64) *bots {
	gains := e.Rules().BehaviorGains
	behavior := make([]string, 0, len(gains))
	for b := range gains {
		behavior = append(behavior, b)
	}
	sort.Strings(behavior)
	return &bots{e: e, rng: rng, activity: activity, behavior: behavior}
}

func (b *bots) act() {
	all := b.e.Participants()
	for _, p := range all {
		if !p.Alive {
			continue
		}
		b.choose(p, all)
		if b.rng.Float64() >= b.activity {
			continue
		}
		b.do(p, all)
	}
}

// choose answers any pending card or skill offer.
func (b *bots) choose(p participant.Participant, all []participant.Participant) {
	if cards := b.e.PendingCards(p.ID); len(cards) > 0 && b.rng.Float64() < 0.5 {
		b.record(b.e.SelectCard(p.ID, b.rng.Intn(len(cards))))
	}
	if skills := b.e.PendingSkills(p.ID); len(skills) > 0 && b.rng.Float64() < 0.5 {
		b.record(b.e.SelectSkill(p.ID, b.rng.Intn(len(skills))))
	}
	if b.e.Phase() == engine.PhaseCharacterSelect && p.CharacterID == "" {
		ids := b.e.Catalog().CharacterIDs()
		if len(ids) > 0 {
			b.record(b.e.SelectCharacter(p.ID, ids[b.rng.Intn(len(ids))]))
		}
	}
}

func (b *bots) do(p participant.Participant, all []participant.Participant) {
	other := b.other(p.ID, all)
	switch b.rng.Intn(8) {
	case 0, 1:
		pos := participant.Position{
			X: p.Position.X + b.rng.Float64()*80 - 40,
			Y: p.Position.Y + b.rng.Float64()*80 - 40,
		}
		b.record(b.e.RecordMovement(p.ID, pos))
	case 2:
		line := lines[b.rng.Intn(len(lines))]
		b.record(b.e.RecordConversation(p.ID, "npc-elder", line, 0.5+b.rng.Float64()*4))
		b.record(b.e.RecordReaction(p.ID, 0.2+b.rng.Float64()*2))
	case 3:
		_, err := b.e.RecordBehavior(p.ID, b.behavior[b.rng.Intn(len(b.behavior))], nil)
		b.record(err)
	case 4:
		if other != "" {
			var clueIDs []string
			for _, c := range b.e.Clues().LatestClues(other, 2) {
				clueIDs = append(clueIDs, c.ID)
			}
			_, err := b.e.SubmitAccusation(p.ID, other, reasons[b.rng.Intn(len(reasons))], clueIDs)
			b.record(err)
		}
	case 5:
		if len(p.Cards) > 0 {
			b.record(b.e.UseCard(p.ID, p.Cards[b.rng.Intn(len(p.Cards))]))
		}
	case 6:
		if other != "" && b.rng.Float64() < 0.3 {
			_, err := b.e.Attack(p.ID, other, 5+b.rng.Intn(15))
			b.record(err)
		}
	case 7:
		if world := b.e.Clues().WorldClues(); len(world) > 0 {
			_, err := b.e.CollectClue(p.ID, world[b.rng.Intn(len(world))].ID)
			b.record(err)
		}
	}
}

// other picks a random live participant that is not self.
func (b *bots) other(self string, all []participant.Participant) string {
	var ids []string
	for _, p := range all {
		if p.ID != self && p.Alive {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return ids[b.rng.Intn(len(ids))]
}

func (b *bots) record(err error) {
	b.actions++
	if err != nil {
		b.rejected++
	}
}
