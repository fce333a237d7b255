package engine

import (
	"fmt"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
)

// Rules is the injected tuning surface of an engine. Nothing in the engine embeds these as literals.
// Durations are in simulated seconds.
type Rules struct {
	// Phase durations
	PreparationDuration     float64 `env:"PREPARATION_DURATION" json:"preparation_duration"`
	DayDuration             float64 `env:"DAY_DURATION" json:"day_duration"`
	NightDuration           float64 `env:"NIGHT_DURATION" json:"night_duration"`
	SkillSelectDuration     float64 `env:"SKILL_SELECT_DURATION" json:"skill_select_duration"`
	EndDuration             float64 `env:"END_DURATION" json:"end_duration"`
	CharacterSelectDuration float64 `env:"CHARACTER_SELECT_DURATION" json:"character_select_duration"`
	RoleRevealDuration      float64 `env:"ROLE_REVEAL_DURATION" json:"role_reveal_duration"`
	MaxDays                 int     `env:"MAX_DAYS" json:"max_days"`
	PausedDecayRate         float64 `env:"PAUSED_DECAY_RATE" json:"paused_decay_rate"`
	NightCardOptions        int     `env:"NIGHT_CARD_OPTIONS" json:"night_card_options"`
	SkillOptions            int     `env:"SKILL_OPTIONS" json:"skill_options"`

	// Alignment
	SuspicionThreshold    float64 `env:"SUSPICION_THRESHOLD" json:"suspicion_threshold"`
	RevealThreshold       float64 `env:"REVEAL_THRESHOLD" json:"reveal_threshold"`
	SuspectedTrustPenalty float64 `env:"SUSPECTED_TRUST_PENALTY" json:"suspected_trust_penalty"`
	AutoReveal            bool    `env:"AUTO_REVEAL" json:"auto_reveal"`

	// Clues
	ClueBase             float64 `env:"CLUE_BASE" json:"clue_base"`
	ClueBonusPerPoint    float64 `env:"CLUE_BONUS_PER_POINT" json:"clue_bonus_per_point"`
	ClueBonusFloor       float64 `env:"CLUE_BONUS_FLOOR" json:"clue_bonus_floor"`
	ClueNoise            float64 `env:"CLUE_NOISE" json:"clue_noise"`
	ClueMinCredibility   float64 `env:"CLUE_MIN_CREDIBILITY" json:"clue_min_credibility"`
	ClueMaxCredibility   float64 `env:"CLUE_MAX_CREDIBILITY" json:"clue_max_credibility"`
	ClueRevealChance     float64 `env:"CLUE_REVEAL_CHANCE" json:"clue_reveal_chance"`
	BloodCardClueChance  float64 `env:"BLOOD_CARD_CLUE_CHANCE" json:"blood_card_clue_chance"`
	EmergencyCredibility float64 `env:"EMERGENCY_CREDIBILITY" json:"emergency_credibility"`

	// Accusations
	AccusationBase           float64 `env:"ACCUSATION_BASE" json:"accusation_base"`
	AccuserGraceWeight       float64 `env:"ACCUSER_GRACE_WEIGHT" json:"accuser_grace_weight"`
	AccusedSinWeight         float64 `env:"ACCUSED_SIN_WEIGHT" json:"accused_sin_weight"`
	AccusationClueWeight     float64 `env:"ACCUSATION_CLUE_WEIGHT" json:"accusation_clue_weight"`
	AccusationTrustThreshold float64 `env:"ACCUSATION_TRUST_THRESHOLD" json:"accusation_trust_threshold"`
	AccusationTrustPenalty   float64 `env:"ACCUSATION_TRUST_PENALTY" json:"accusation_trust_penalty"`

	// Suspicion graph
	SuspicionSeedBase       float64            `env:"SUSPICION_SEED_BASE" json:"suspicion_seed_base"`
	SuspicionSeedSpread     float64            `env:"SUSPICION_SEED_SPREAD" json:"suspicion_seed_spread"`
	BehaviorGains           map[string]float64 `env:"BEHAVIOR_GAINS" json:"behavior_gains"`
	DefaultBehaviorGain     float64            `env:"DEFAULT_BEHAVIOR_GAIN" json:"default_behavior_gain"`
	SuspectedEvidenceWeight float64            `env:"SUSPECTED_EVIDENCE_WEIGHT" json:"suspected_evidence_weight"`
	AccusationSpread        float64            `env:"ACCUSATION_SPREAD" json:"accusation_spread"`
	AccuserOpinionWeight    float64            `env:"ACCUSER_OPINION_WEIGHT" json:"accuser_opinion_weight"`
	AccuserAccuracyWeight   float64            `env:"ACCUSER_ACCURACY_WEIGHT" json:"accuser_accuracy_weight"`
	AccuserCredibilityMin   float64            `env:"ACCUSER_CREDIBILITY_MIN" json:"accuser_credibility_min"`
	AccuserCredibilityMax   float64            `env:"ACCUSER_CREDIBILITY_MAX" json:"accuser_credibility_max"`
	DefaultAccuracy         float64            `env:"DEFAULT_ACCURACY" json:"default_accuracy"`
	WitnessRadius           float64            `env:"WITNESS_RADIUS" json:"witness_radius"`
	DailySuspicionDecay     float64            `env:"DAILY_SUSPICION_DECAY" json:"daily_suspicion_decay"`

	// Behavior profiling
	MinMovementSamples int     `env:"MIN_MOVEMENT_SAMPLES" json:"min_movement_samples"`
	MinReactionSamples int     `env:"MIN_REACTION_SAMPLES" json:"min_reaction_samples"`
	TurnAngleDegrees   float64 `env:"TURN_ANGLE_DEGREES" json:"turn_angle_degrees"`
	ReactionWeight     float64 `env:"REACTION_WEIGHT" json:"reaction_weight"`
	EfficiencyWeight   float64 `env:"EFFICIENCY_WEIGHT" json:"efficiency_weight"`
	QuestionWeight     float64 `env:"QUESTION_WEIGHT" json:"question_weight"`

	// Roles, victory and combat
	RoleWeights            map[string]float64 `env:"ROLE_WEIGHTS" json:"role_weights"`
	WorldCluesMin          int                `env:"WORLD_CLUES_MIN" json:"world_clues_min"`
	WorldCluesMax          int                `env:"WORLD_CLUES_MAX" json:"world_clues_max"`
	ChaosClueGoal          int                `env:"CHAOS_CLUE_GOAL" json:"chaos_clue_goal"`
	TraitorAloneMultiplier float64            `env:"TRAITOR_ALONE_MULTIPLIER" json:"traitor_alone_multiplier"`
	ChaosDamageMultiplier  float64            `env:"CHAOS_DAMAGE_MULTIPLIER" json:"chaos_damage_multiplier"`
	AttackSin              float64            `env:"ATTACK_SIN" json:"attack_sin"`
}

// DefaultRules returns the stock tuning.
func DefaultRules() Rules {
	return Rules{
		PreparationDuration:     30,
		DayDuration:             30,
		NightDuration:           30,
		SkillSelectDuration:     30,
		EndDuration:             30,
		CharacterSelectDuration: 30,
		RoleRevealDuration:      10,
		MaxDays:                 10,
		PausedDecayRate:         0.5,
		NightCardOptions:        3,
		SkillOptions:            3,

		SuspicionThreshold:    0.6,
		RevealThreshold:       0.85,
		SuspectedTrustPenalty: 0.1,
		AutoReveal:            true,

		ClueBase:             0.5,
		ClueBonusPerPoint:    0.1,
		ClueBonusFloor:       3,
		ClueNoise:            0.2,
		ClueMinCredibility:   0.1,
		ClueMaxCredibility:   1.0,
		ClueRevealChance:     0.3,
		BloodCardClueChance:  0.2,
		EmergencyCredibility: 0.9,

		AccusationBase:           0.5,
		AccuserGraceWeight:       0.1,
		AccusedSinWeight:         0.15,
		AccusationClueWeight:     0.1,
		AccusationTrustThreshold: 0.7,
		AccusationTrustPenalty:   0.3,

		SuspicionSeedBase:   0.05,
		SuspicionSeedSpread: 0.1,
		BehaviorGains: map[string]float64{
			"sneaking":         0.15,
			"lying":            0.25,
			"investigating":    0.10,
			"hostile_question": 0.20,
			"loitering":        0.05,
			"tampering":        0.30,
			"possession":       0.20,
			"assault":          0.35,
		},
		DefaultBehaviorGain:     0.1,
		SuspectedEvidenceWeight: 1.5,
		AccusationSpread:        0.2,
		AccuserOpinionWeight:    0.7,
		AccuserAccuracyWeight:   0.3,
		AccuserCredibilityMin:   0.1,
		AccuserCredibilityMax:   0.9,
		DefaultAccuracy:         0.5,
		WitnessRadius:           200,
		DailySuspicionDecay:     0.05,

		MinMovementSamples: 10,
		MinReactionSamples: 5,
		TurnAngleDegrees:   30,
		ReactionWeight:     3,
		EfficiencyWeight:   1.5,
		QuestionWeight:     1,

		RoleWeights: map[string]float64{
			string(participant.RoleProtector): 0.3,
			string(participant.RoleTraitor):   0.3,
			string(participant.RoleChaos):     0.4,
		},
		WorldCluesMin:          2,
		WorldCluesMax:          4,
		ChaosClueGoal:          10,
		TraitorAloneMultiplier: 1.5,
		ChaosDamageMultiplier:  1.2,
		AttackSin:              1,
	}
}

// Validate rejects tunings the engine cannot run with.
func (r Rules) Validate() error {
	durations := map[string]float64{
		"preparation":      r.PreparationDuration,
		"day":              r.DayDuration,
		"night":            r.NightDuration,
		"skill_select":     r.SkillSelectDuration,
		"end":              r.EndDuration,
		"character_select": r.CharacterSelectDuration,
		"role_reveal":      r.RoleRevealDuration,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("rules: %s duration must be positive, got %v", name, d)
		}
	}
	if r.MaxDays < 1 {
		return fmt.Errorf("rules: max_days must be >= 1, got %d", r.MaxDays)
	}
	if r.PausedDecayRate <= 0 || r.PausedDecayRate > 1 {
		return fmt.Errorf("rules: paused_decay_rate must be in (0,1], got %v", r.PausedDecayRate)
	}
	if r.RevealThreshold < r.SuspicionThreshold {
		return fmt.Errorf("rules: reveal_threshold (%v) below suspicion_threshold (%v)", r.RevealThreshold, r.SuspicionThreshold)
	}
	if r.WorldCluesMax < r.WorldCluesMin {
		return fmt.Errorf("rules: world_clues_max below world_clues_min")
	}
	total := 0.0
	for role, w := range r.RoleWeights {
		if w < 0 {
			return fmt.Errorf("rules: negative weight for role %s", role)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("rules: role weights must sum to a positive value")
	}
	return nil
}

// BehaviorGain returns the suspicion gain for a behavior type.
func (r Rules) BehaviorGain(behavior string) float64 {
	if g, ok := r.BehaviorGains[behavior]; ok {
		return g
	}
	return r.DefaultBehaviorGain
}
