package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
)

// PlayerScore ranks a participant by how human its behavior looks.
type PlayerScore struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// BehaviorProfiler keeps raw movement, dialogue and reaction samples and scores human-likeness.
// It is advisory: nothing else in the engine reads its output.
type BehaviorProfiler struct {
	rules  *Rules
	roster *roster

	movement  map[string][]participant.MovementSample
	dialogue  map[string][]participant.DialogueSample
	reactions map[string][]float64
}

// NewBehaviorProfiler creates an empty profiler.
func NewBehaviorProfiler(r *Rules, ros *roster) *BehaviorProfiler {
	bp := &BehaviorProfiler{rules: r, roster: ros}
	bp.reset()
	return bp
}

// RecordMovement appends a position sample.
func (bp *BehaviorProfiler) RecordMovement(id string, pos participant.Position, t time.Time) error {
	if _, ok := bp.roster.get(id); !ok {
		return ErrUnknownParticipant
	}
	bp.movement[id] = append(bp.movement[id], participant.MovementSample{Position: pos, T: t})
	return nil
}

// RecordConversation keeps the shape of an utterance: its length and whether it was a question.
// The response time also counts as a reaction sample.
func (bp *BehaviorProfiler) RecordConversation(id, npcID, text string, responseTime float64, t time.Time) error {
	if _, ok := bp.roster.get(id); !ok {
		return ErrUnknownParticipant
	}
	bp.dialogue[id] = append(bp.dialogue[id], participant.DialogueSample{
		NPCID:        npcID,
		TextLength:   len(text),
		IsQuestion:   strings.Contains(text, "?"),
		ResponseTime: responseTime,
		T:            t,
	})
	if responseTime >= 0 {
		bp.reactions[id] = append(bp.reactions[id], responseTime)
	}
	return nil
}

// RecordReaction appends a reaction time in seconds.
func (bp *BehaviorProfiler) RecordReaction(id string, seconds float64) error {
	if _, ok := bp.roster.get(id); !ok {
		return ErrUnknownParticipant
	}
	if seconds < 0 {
		return ErrInvalidReaction
	}
	bp.reactions[id] = append(bp.reactions[id], seconds)
	return nil
}

// MovementStats summarises the participant's movement trace.
func (bp *BehaviorProfiler) MovementStats(id string) (rules.MovementStats, bool) {
	return rules.CalculateMovementStats(bp.movement[id], bp.rules.MinMovementSamples, bp.rules.TurnAngleDegrees)
}

// ReactionStats returns mean and variance of recorded reaction times.
func (bp *BehaviorProfiler) ReactionStats(id string) (mean, variance float64) {
	return rules.MeanVariance(bp.reactions[id])
}

// QuestionRatio is the share of utterances that were questions.
func (bp *BehaviorProfiler) QuestionRatio(id string) (float64, bool) {
	d := bp.dialogue[id]
	if len(d) == 0 {
		return 0, false
	}
	q := 0
	for _, s := range d {
		if s.IsQuestion {
			q++
		}
	}
	return float64(q) / float64(len(d)), true
}

// HumanLikeness blends the available signals. With no data it is 0.5.
func (bp *BehaviorProfiler) HumanLikeness(id string) float64 {
	var parts []rules.ProfileComponent
	if len(bp.reactions[id]) >= bp.rules.MinReactionSamples {
		parts = append(parts, rules.ProfileComponent{
			Score:  rules.ReactionHumanLikeness(bp.reactions[id], bp.rules.MinReactionSamples),
			Weight: bp.rules.ReactionWeight,
		})
	}
	if stats, ok := bp.MovementStats(id); ok {
		parts = append(parts, rules.ProfileComponent{
			Score:  rules.InefficiencyScore(stats.PathEfficiency),
			Weight: bp.rules.EfficiencyWeight,
		})
	}
	if ratio, ok := bp.QuestionRatio(id); ok {
		parts = append(parts, rules.ProfileComponent{
			Score:  rules.QuestionRatioScore(ratio),
			Weight: bp.rules.QuestionWeight,
		})
	}
	return rules.WeightedHumanLikeness(parts)
}

// MostLikelyPlayers ranks every participant by human-likeness, highest first.
func (bp *BehaviorProfiler) MostLikelyPlayers() []PlayerScore {
	out := make([]PlayerScore, 0, bp.roster.len())
	for _, p := range bp.roster.all() {
		out = append(out, PlayerScore{ID: p.ID, Score: bp.HumanLikeness(p.ID)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (bp *BehaviorProfiler) reset() {
	bp.movement = make(map[string][]participant.MovementSample)
	bp.dialogue = make(map[string][]participant.DialogueSample)
	bp.reactions = make(map[string][]float64)
}
