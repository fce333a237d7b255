package engine

import (
	"fmt"
	"math/rand"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// accuracyRecord tracks how often a participant's accusations proved right.
type accuracyRecord struct {
	correct  int
	resolved int
}

// SuspicionGraph holds every participant's opinion of every other participant.
// values[observer][target] is defined for all ordered pairs of distinct registered participants.
type SuspicionGraph struct {
	rules  *Rules
	roster *roster
	rec    *recorder
	logger *logger.Logger
	rng    *rand.Rand

	tracker *AlignmentTracker

	members []string
	values  map[string]map[string]float64

	accuracy map[string]*accuracyRecord
	// pending holds accusations whose correctness is not yet known, keyed by accused.
	pending map[string][]participant.Accusation
}

// NewSuspicionGraph creates an empty graph.
func NewSuspicionGraph(r *Rules, ros *roster, rec *recorder, log *logger.Logger, rng *rand.Rand, tracker *AlignmentTracker) *SuspicionGraph {
	return &SuspicionGraph{
		rules:    r,
		roster:   ros,
		rec:      rec,
		logger:   log,
		rng:      rng,
		tracker:  tracker,
		values:   make(map[string]map[string]float64),
		accuracy: make(map[string]*accuracyRecord),
		pending:  make(map[string][]participant.Accusation),
	}
}

// Register adds a participant and seeds both directions against every existing member.
func (sg *SuspicionGraph) Register(id string) {
	if _, ok := sg.values[id]; ok {
		return
	}
	sg.values[id] = make(map[string]float64)
	for _, other := range sg.members {
		sg.values[id][other] = sg.seedValue()
		sg.values[other][id] = sg.seedValue()
	}
	sg.members = append(sg.members, id)
}

func (sg *SuspicionGraph) seedValue() float64 {
	return sg.rules.SuspicionSeedBase + sg.rng.Float64()*sg.rules.SuspicionSeedSpread
}

// Get returns observer's suspicion of target.
func (sg *SuspicionGraph) Get(observerID, targetID string) (float64, bool) {
	row, ok := sg.values[observerID]
	if !ok {
		return 0, false
	}
	v, ok := row[targetID]
	return v, ok
}

// Seed overwrites a single edge. Intended for fixtures and scripted scenarios.
func (sg *SuspicionGraph) Seed(observerID, targetID string, value float64) error {
	if _, ok := sg.Get(observerID, targetID); !ok {
		return ErrUnknownParticipant
	}
	sg.values[observerID][targetID] = rules.Clamp01(value)
	return nil
}

// WitnessesOf returns the live participants, other than id, within the witness radius.
func (sg *SuspicionGraph) WitnessesOf(id string) ([]string, error) {
	actor, err := sg.roster.live(id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range sg.roster.alive() {
		if p.ID == id {
			continue
		}
		if actor.Position.DistanceTo(p.Position) <= sg.rules.WitnessRadius {
			out = append(out, p.ID)
		}
	}
	return out, nil
}

// CheckPlayerAlone reports whether nobody else is within the witness radius.
func (sg *SuspicionGraph) CheckPlayerAlone(id string) (bool, error) {
	w, err := sg.WitnessesOf(id)
	if err != nil {
		return false, err
	}
	return len(w) == 0, nil
}

// RecordBehavior raises every witness's suspicion of the actor by the behavior's gain.
// A nil witness list means everyone within the witness radius.
// Suspected actors weigh heavier. Returns how many witnesses were updated.
func (sg *SuspicionGraph) RecordBehavior(actorID, behavior string, witnesses []string) (int, error) {
	if _, err := sg.roster.live(actorID); err != nil {
		return 0, err
	}
	if witnesses == nil {
		auto, err := sg.WitnessesOf(actorID)
		if err != nil {
			return 0, err
		}
		witnesses = auto
	}

	gain := sg.rules.BehaviorGain(behavior)
	if sg.tracker != nil && sg.tracker.IsSuspected(actorID) {
		gain = rules.Clamp01(gain * sg.rules.SuspectedEvidenceWeight)
	}

	updated := make([]string, 0, len(witnesses))
	for _, w := range witnesses {
		if w == actorID {
			continue
		}
		row, ok := sg.values[w]
		if !ok {
			continue
		}
		if p, ok := sg.roster.get(w); !ok || !p.Alive {
			continue
		}
		row[actorID] = rules.Saturate(row[actorID], gain)
		updated = append(updated, w)
	}

	sg.rec.record(events.EventTypeBehaviorObserved, actorID, "",
		events.BehaviorPayload{Behavior: behavior, Gain: gain, Witnesses: updated}, true)
	return len(updated), nil
}

// AccuserCredibility weighs an accuser by reputation and track record.
func (sg *SuspicionGraph) AccuserCredibility(accuserID string) float64 {
	return rules.AccuserCredibility(rules.AccuserCredibilityParams{
		AverageSuspicion: sg.AverageSuspicionOf(accuserID),
		Accuracy:         sg.Accuracy(accuserID),
		OpinionWeight:    sg.rules.AccuserOpinionWeight,
		AccuracyWeight:   sg.rules.AccuserAccuracyWeight,
		Min:              sg.rules.AccuserCredibilityMin,
		Max:              sg.rules.AccuserCredibilityMax,
	})
}

// ApplyAccusation spreads suspicion of the accused to every live observer other than the two parties.
// Observers who distrust the accuser are moved less. Returns the accuser credibility used.
func (sg *SuspicionGraph) ApplyAccusation(acc participant.Accusation) float64 {
	cred := sg.AccuserCredibility(acc.AccuserID)
	for _, p := range sg.roster.alive() {
		if p.ID == acc.AccuserID || p.ID == acc.AccusedID {
			continue
		}
		row, ok := sg.values[p.ID]
		if !ok {
			continue
		}
		trustInAccuser := 1 - row[acc.AccuserID]
		gain := rules.AccusationSpread(sg.rules.AccusationSpread, cred, trustInAccuser)
		row[acc.AccusedID] = rules.Saturate(row[acc.AccusedID], gain)
	}
	sg.pending[acc.AccusedID] = append(sg.pending[acc.AccusedID], acc)
	return cred
}

// Accuracy is the share of an accuser's resolved accusations that were correct.
func (sg *SuspicionGraph) Accuracy(id string) float64 {
	rec, ok := sg.accuracy[id]
	if !ok || rec.resolved == 0 {
		return sg.rules.DefaultAccuracy
	}
	return float64(rec.correct) / float64(rec.resolved)
}

// resolveAccusations settles every pending accusation against p once its role is public.
// An accusation is correct when the accused is not a protector.
func (sg *SuspicionGraph) resolveAccusations(p *participant.Participant) {
	correct := p.TrueRole != participant.RoleProtector
	for _, acc := range sg.pending[p.ID] {
		rec, ok := sg.accuracy[acc.AccuserID]
		if !ok {
			rec = &accuracyRecord{}
			sg.accuracy[acc.AccuserID] = rec
		}
		rec.resolved++
		if correct {
			rec.correct++
		}
	}
	delete(sg.pending, p.ID)
}

// AverageSuspicionOf averages what every live observer thinks of target. Zero with no observers.
func (sg *SuspicionGraph) AverageSuspicionOf(targetID string) float64 {
	var sum float64
	n := 0
	for _, p := range sg.roster.alive() {
		if p.ID == targetID {
			continue
		}
		if v, ok := sg.Get(p.ID, targetID); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MostSuspected returns the live target observer suspects most.
func (sg *SuspicionGraph) MostSuspected(observerID string) (string, float64, bool) {
	row, ok := sg.values[observerID]
	if !ok {
		return "", 0, false
	}
	best, bestV := "", -1.0
	for _, p := range sg.roster.alive() {
		v, ok := row[p.ID]
		if !ok {
			continue
		}
		if v > bestV {
			best, bestV = p.ID, v
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestV, true
}

// Decay multiplies every edge by (1 - factor).
func (sg *SuspicionGraph) Decay(factor float64) {
	keep := 1 - rules.Clamp01(factor)
	for _, row := range sg.values {
		for target, v := range row {
			row[target] = v * keep
		}
	}
	sg.logger.Debug(fmt.Sprintf("suspicion graph decayed by %.2f", factor))
}

// Matrix returns a copy of the full graph.
func (sg *SuspicionGraph) Matrix() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(sg.values))
	for o, row := range sg.values {
		cp := make(map[string]float64, len(row))
		for t, v := range row {
			cp[t] = v
		}
		out[o] = cp
	}
	return out
}

// reset reseeds every edge and forgets accusation history.
func (sg *SuspicionGraph) reset() {
	members := sg.members
	sg.members = nil
	sg.values = make(map[string]map[string]float64)
	sg.accuracy = make(map[string]*accuracyRecord)
	sg.pending = make(map[string][]participant.Accusation)
	for _, id := range members {
		sg.Register(id)
	}
}
