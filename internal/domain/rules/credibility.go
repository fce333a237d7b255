package rules

import "github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"

// ClueCredibilityParams holds the inputs for scoring a freshly generated clue.
type ClueCredibilityParams struct {
	Category participant.ClueCategory
	Sin      float64
	Grace    float64
	Noise    float64 // already drawn from [-NoiseSpread, NoiseSpread]

	Base          float64 // 0.5
	BonusPerPoint float64 // 0.1
	BonusFloor    float64 // 3: points above this earn the bonus
	Min           float64 // 0.1
	Max           float64 // 1.0
}

// CategoryBonus is the alignment-driven part of a clue's credibility.
// Blood clues grow with sin, good deeds with grace; other categories get nothing.
func CategoryBonus(p ClueCredibilityParams) float64 {
	switch p.Category {
	case participant.ClueBlood:
		if p.Sin > p.BonusFloor {
			return p.BonusPerPoint * (p.Sin - p.BonusFloor)
		}
	case participant.ClueGoodDeed:
		if p.Grace > p.BonusFloor {
			return p.BonusPerPoint * (p.Grace - p.BonusFloor)
		}
	}
	return 0
}

// CalculateClueCredibility computes clamp(base + bonus + noise, min, max).
func CalculateClueCredibility(p ClueCredibilityParams) float64 {
	return Clamp(p.Base+CategoryBonus(p)+p.Noise, p.Min, p.Max)
}

// AccusationWeights are the linear blend weights for accusation credibility.
type AccusationWeights struct {
	Base         float64 // 0.5
	AccuserGrace float64 // 0.1
	AccusedSin   float64 // 0.15
	PerClue      float64 // 0.1
}

// ScoreAccusation computes clamp(base + wg·accuser.grace + ws·accused.sin + wc·clues, 0, 1).
func ScoreAccusation(w AccusationWeights, accuserGrace, accusedSin float64, clueCount int) float64 {
	score := w.Base + w.AccuserGrace*accuserGrace + w.AccusedSin*accusedSin + w.PerClue*float64(clueCount)
	return Clamp01(score)
}
