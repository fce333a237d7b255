package engine

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// ClueEngine produces clues, scores accusations and owns the world clue pool.
type ClueEngine struct {
	rules   *Rules
	catalog *catalog.Catalog
	roster  *roster
	rec     *recorder
	logger  *logger.Logger
	rng     *rand.Rand
	day     func() int

	tracker *AlignmentTracker
	graph   *SuspicionGraph

	byTarget    map[string][]participant.Clue
	byID        map[string]participant.Clue
	world       map[string]participant.Clue
	worldOrder  []string
	accusations []participant.Accusation
}

// NewClueEngine creates the clue engine.
func NewClueEngine(r *Rules, cat *catalog.Catalog, ros *roster, rec *recorder, log *logger.Logger, rng *rand.Rand,
	tracker *AlignmentTracker, graph *SuspicionGraph, day func() int) *ClueEngine {
	ce := &ClueEngine{
		rules:   r,
		catalog: cat,
		roster:  ros,
		rec:     rec,
		logger:  log,
		rng:     rng,
		day:     day,
		tracker: tracker,
		graph:   graph,
	}
	ce.reset()
	return ce
}

// GenerateClue creates a clue about the participant with noisy, alignment-driven credibility.
func (ce *ClueEngine) GenerateClue(targetID string, category participant.ClueCategory) (participant.Clue, error) {
	p, err := ce.roster.live(targetID)
	if err != nil {
		return participant.Clue{}, err
	}
	noise := (ce.rng.Float64()*2 - 1) * ce.rules.ClueNoise
	cred := rules.CalculateClueCredibility(rules.ClueCredibilityParams{
		Category:      category,
		Sin:           p.Alignment.Sin,
		Grace:         p.Alignment.Grace,
		Noise:         noise,
		Base:          ce.rules.ClueBase,
		BonusPerPoint: ce.rules.ClueBonusPerPoint,
		BonusFloor:    ce.rules.ClueBonusFloor,
		Min:           ce.rules.ClueMinCredibility,
		Max:           ce.rules.ClueMaxCredibility,
	})
	return ce.store(p, category, cred), nil
}

// generateWithCredibility creates a clue at a fixed credibility, used for emergency clues.
func (ce *ClueEngine) generateWithCredibility(targetID string, category participant.ClueCategory, cred float64) (participant.Clue, error) {
	p, err := ce.roster.live(targetID)
	if err != nil {
		return participant.Clue{}, err
	}
	return ce.store(p, category, rules.Clamp01(cred)), nil
}

func (ce *ClueEngine) store(p *participant.Participant, category participant.ClueCategory, cred float64) participant.Clue {
	templates := ce.catalog.TemplatesFor(category)
	text := templates[ce.rng.Intn(len(templates))]
	source := "an anonymous witness"
	if len(ce.catalog.Sources) > 0 {
		source = ce.catalog.Sources[ce.rng.Intn(len(ce.catalog.Sources))]
	}

	clue := participant.Clue{
		ID:          uuid.NewString(),
		Text:        text,
		Category:    category,
		Credibility: cred,
		Source:      source,
		TargetID:    p.ID,
		DayCreated:  ce.day(),
		RevealsRole: ce.rng.Float64() < ce.rules.ClueRevealChance,
	}
	ce.byTarget[p.ID] = append(ce.byTarget[p.ID], clue)
	ce.byID[clue.ID] = clue

	ce.rec.record(events.EventTypeClueGenerated, events.SystemActor, p.ID, cluePayload(clue), true)
	ce.logger.Event("CLUE_GENERATED", p.ID, fmt.Sprintf("%s clue (%.2f) from %s", category, cred, source))
	return clue
}

func cluePayload(c participant.Clue) events.CluePayload {
	return events.CluePayload{
		ClueID:      c.ID,
		Category:    string(c.Category),
		Text:        c.Text,
		Credibility: c.Credibility,
		Source:      c.Source,
		RevealsRole: c.RevealsRole,
	}
}

// CheckAndGenerate evaluates the catalog's clue rules against the participant's state.
// Each matching rule rolls its chance independently.
func (ce *ClueEngine) CheckAndGenerate(id string) ([]participant.Clue, error) {
	p, err := ce.roster.live(id)
	if err != nil {
		return nil, err
	}
	env := catalog.ClueRuleEnv{
		Sin:       p.Alignment.Sin,
		Grace:     p.Alignment.Grace,
		Trust:     p.Alignment.Trust,
		Suspicion: p.Alignment.Suspicion,
		Chaos:     p.Alignment.Chaos,
		Suspected: ce.tracker.IsSuspected(id),
		Day:       ce.day(),
	}

	var out []participant.Clue
	for i := range ce.catalog.ClueRules {
		rule := &ce.catalog.ClueRules[i]
		matched, err := rule.Matches(env)
		if err != nil {
			ce.logger.Err(err, "clue rule evaluation failed")
			continue
		}
		if !matched || ce.rng.Float64() >= rule.Chance {
			continue
		}
		clue, err := ce.GenerateClue(id, rule.Category)
		if err != nil {
			return out, err
		}
		out = append(out, clue)
	}
	return out, nil
}

// onCardUsed rolls the clues a card can leave behind.
func (ce *ClueEngine) onCardUsed(userID string, card catalog.Card) {
	if card.Category == catalog.CardBlood && ce.rng.Float64() < ce.rules.BloodCardClueChance {
		_, _ = ce.GenerateClue(userID, participant.ClueBlood)
	}
	if card.EmergencyChance > 0 && ce.rng.Float64() < card.EmergencyChance {
		_, _ = ce.generateWithCredibility(userID, participant.ClueEmergency, ce.rules.EmergencyCredibility)
	}
}

// ScoreAccusation rates an accusation before it is made.
func (ce *ClueEngine) ScoreAccusation(accuserID, accusedID string) (float64, error) {
	accuser, err := ce.roster.live(accuserID)
	if err != nil {
		return 0, err
	}
	accused, ok := ce.roster.get(accusedID)
	if !ok {
		return 0, ErrUnknownParticipant
	}
	return rules.ScoreAccusation(ce.weights(), accuser.Alignment.Grace, accused.Alignment.Sin, len(ce.byTarget[accusedID])), nil
}

func (ce *ClueEngine) weights() rules.AccusationWeights {
	return rules.AccusationWeights{
		Base:         ce.rules.AccusationBase,
		AccuserGrace: ce.rules.AccuserGraceWeight,
		AccusedSin:   ce.rules.AccusedSinWeight,
		PerClue:      ce.rules.AccusationClueWeight,
	}
}

// SubmitAccusation records an accusation, applies NPC distrust when it is convincing,
// and spreads it through the suspicion graph.
func (ce *ClueEngine) SubmitAccusation(accuserID, accusedID, reason string, clueIDs []string) (participant.Accusation, error) {
	if strings.TrimSpace(reason) == "" {
		return participant.Accusation{}, ErrMissingReason
	}
	if accuserID == accusedID {
		return participant.Accusation{}, ErrSelfAccusation
	}
	accuser, err := ce.roster.live(accuserID)
	if err != nil {
		return participant.Accusation{}, err
	}
	if _, err := ce.roster.live(accusedID); err != nil {
		return participant.Accusation{}, err
	}
	for _, cid := range clueIDs {
		if !ce.supports(accuser, accusedID, cid) {
			return participant.Accusation{}, fmt.Errorf("%w: %s", ErrUnknownClue, cid)
		}
	}
	score, err := ce.ScoreAccusation(accuserID, accusedID)
	if err != nil {
		return participant.Accusation{}, err
	}

	acc := participant.Accusation{
		ID:                uuid.NewString(),
		AccuserID:         accuserID,
		AccusedID:         accusedID,
		Reason:            reason,
		Credibility:       score,
		Day:               ce.day(),
		SupportingClueIDs: append([]string(nil), clueIDs...),
	}
	ce.accusations = append(ce.accusations, acc)

	if score > ce.rules.AccusationTrustThreshold {
		_ = ce.tracker.AdjustNPCTrust(accusedID, -ce.rules.AccusationTrustPenalty)
	}
	accuserCred := ce.graph.ApplyAccusation(acc)

	ce.rec.record(events.EventTypeAccusation, accuserID, accusedID, events.AccusationPayload{
		AccusationID:       acc.ID,
		Reason:             reason,
		Credibility:        score,
		AccuserCredibility: accuserCred,
		SupportingClueIDs:  acc.SupportingClueIDs,
	}, true)
	ce.logger.Event("ACCUSATION", accuserID, fmt.Sprintf("accused %s (%.2f): %s", accusedID, score, reason))
	return acc, nil
}

// supports reports whether a clue may back an accusation: it is either about
// the accused, or a world clue the accuser picked up.
func (ce *ClueEngine) supports(accuser *participant.Participant, accusedID, clueID string) bool {
	clue, ok := ce.byID[clueID]
	if !ok {
		return false
	}
	if clue.Category != participant.ClueWorld {
		return clue.TargetID == accusedID
	}
	for _, id := range accuser.Collected {
		if id == clueID {
			return true
		}
	}
	return false
}

// SpawnWorldClues scatters n collectible clues that point at nobody.
func (ce *ClueEngine) SpawnWorldClues(n int) []participant.Clue {
	templates := ce.catalog.TemplatesFor(participant.ClueWorld)
	out := make([]participant.Clue, 0, n)
	for i := 0; i < n; i++ {
		clue := participant.Clue{
			ID:          uuid.NewString(),
			Text:        templates[ce.rng.Intn(len(templates))],
			Category:    participant.ClueWorld,
			Credibility: ce.rules.ClueBase,
			Source:      "the world",
			DayCreated:  ce.day(),
			RevealsRole: ce.rng.Float64() < ce.rules.ClueRevealChance,
		}
		ce.world[clue.ID] = clue
		ce.worldOrder = append(ce.worldOrder, clue.ID)
		out = append(out, clue)
		ce.rec.record(events.EventTypeClueGenerated, events.SystemActor, "", cluePayload(clue), true)
	}
	return out
}

// CollectResult is what a participant gets back from picking up a world clue.
type CollectResult struct {
	Clue       participant.Clue `json:"clue"`
	Discovered bool             `json:"discovered"`
}

// CollectClue moves a world clue into the collector's inventory. A clue that
// reveals a role lets the collector discover their own.
func (ce *ClueEngine) CollectClue(collectorID, clueID string) (CollectResult, error) {
	p, err := ce.roster.live(collectorID)
	if err != nil {
		return CollectResult{}, err
	}
	clue, ok := ce.world[clueID]
	if !ok {
		if _, generated := ce.byID[clueID]; generated {
			return CollectResult{}, ErrClueCollected
		}
		return CollectResult{}, ErrUnknownClue
	}
	delete(ce.world, clueID)
	for i, id := range ce.worldOrder {
		if id == clueID {
			ce.worldOrder = append(ce.worldOrder[:i], ce.worldOrder[i+1:]...)
			break
		}
	}
	ce.byID[clue.ID] = clue
	p.Collected = append(p.Collected, clue.ID)

	ce.rec.record(events.EventTypeClueCollected, collectorID, "", cluePayload(clue), true)

	res := CollectResult{Clue: clue}
	if clue.RevealsRole {
		res.Discovered, err = ce.tracker.Discover(collectorID)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// WorldClues returns the clues still lying around, oldest first.
func (ce *ClueEngine) WorldClues() []participant.Clue {
	out := make([]participant.Clue, 0, len(ce.worldOrder))
	for _, id := range ce.worldOrder {
		out = append(out, ce.world[id])
	}
	return out
}

// CluesAbout returns every clue generated about a participant.
func (ce *ClueEngine) CluesAbout(id string) []participant.Clue {
	return append([]participant.Clue(nil), ce.byTarget[id]...)
}

// LatestClues returns up to n of the most recent clues about a participant, newest last.
func (ce *ClueEngine) LatestClues(id string, n int) []participant.Clue {
	all := ce.byTarget[id]
	if n <= 0 || n >= len(all) {
		return append([]participant.Clue(nil), all...)
	}
	return append([]participant.Clue(nil), all[len(all)-n:]...)
}

// Clue looks up any clue, generated or collected.
func (ce *ClueEngine) Clue(id string) (participant.Clue, bool) {
	if c, ok := ce.byID[id]; ok {
		return c, true
	}
	c, ok := ce.world[id]
	return c, ok
}

// Accusations returns every accusation in submission order.
func (ce *ClueEngine) Accusations() []participant.Accusation {
	return append([]participant.Accusation(nil), ce.accusations...)
}

func (ce *ClueEngine) reset() {
	ce.byTarget = make(map[string][]participant.Clue)
	ce.byID = make(map[string]participant.Clue)
	ce.world = make(map[string]participant.Clue)
	ce.worldOrder = nil
	ce.accusations = nil
}
