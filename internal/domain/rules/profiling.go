package rules

import (
	"math"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
)

// MovementStats summarises a movement trace.
type MovementStats struct {
	AvgSpeed         float64 `json:"avg_speed"`
	ActivityRadius   float64 `json:"activity_radius"`
	DirectionChanges int     `json:"direction_changes"`
	PathEfficiency   float64 `json:"path_efficiency"`
}

// CalculateMovementStats derives aggregate statistics from samples.
// ok is false when there are fewer than minSamples samples.
func CalculateMovementStats(samples []participant.MovementSample, minSamples int, turnDegrees float64) (MovementStats, bool) {
	if len(samples) < minSamples || len(samples) < 2 {
		return MovementStats{}, false
	}

	var traveled, elapsed float64
	var cx, cy float64
	turns := 0
	turnLimit := turnDegrees * math.Pi / 180

	for i, s := range samples {
		cx += s.Position.X
		cy += s.Position.Y
		if i == 0 {
			continue
		}
		prev := samples[i-1]
		traveled += prev.Position.DistanceTo(s.Position)
		elapsed += s.T.Sub(prev.T).Seconds()

		if i >= 2 {
			a := samples[i-2].Position
			b := prev.Position
			c := s.Position
			if angleBetween(b.X-a.X, b.Y-a.Y, c.X-b.X, c.Y-b.Y) > turnLimit {
				turns++
			}
		}
	}

	n := float64(len(samples))
	centroid := participant.Position{X: cx / n, Y: cy / n}
	var radius float64
	for _, s := range samples {
		radius += s.Position.DistanceTo(centroid)
	}

	stats := MovementStats{
		ActivityRadius:   radius / n,
		DirectionChanges: turns,
		PathEfficiency:   1,
	}
	if elapsed > 0 {
		stats.AvgSpeed = traveled / elapsed
	}
	if traveled > 0 {
		straight := samples[0].Position.DistanceTo(samples[len(samples)-1].Position)
		stats.PathEfficiency = straight / traveled
	}
	return stats, true
}

// angleBetween returns the unsigned angle between two vectors. Zero-length vectors count as no turn.
func angleBetween(ax, ay, bx, by float64) float64 {
	la := math.Hypot(ax, ay)
	lb := math.Hypot(bx, by)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := (ax*bx + ay*by) / (la * lb)
	return math.Acos(Clamp(cos, -1, 1))
}

// MeanVariance returns the mean and population variance of xs.
func MeanVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, variance
}

// ReactionHumanLikeness scores reaction times: humans are noisy and occasionally slow.
// Returns 0.5 when there are fewer than minSamples.
func ReactionHumanLikeness(times []float64, minSamples int) float64 {
	if len(times) < minSamples {
		return 0.5
	}
	avg, variance := MeanVariance(times)
	if avg <= 0 {
		return 0.5
	}

	score := 0.3 + 0.5*math.Min(variance/avg, 5)/5
	for _, t := range times {
		if t > 2*avg {
			score += 0.2
			break
		}
	}
	return Clamp01(score)
}

// ProfileComponent is one weighted input to the composite human-likeness score.
type ProfileComponent struct {
	Score  float64
	Weight float64
}

// WeightedHumanLikeness averages the components; with none it returns 0.5.
func WeightedHumanLikeness(components []ProfileComponent) float64 {
	var sum, weights float64
	for _, c := range components {
		sum += Clamp01(c.Score) * c.Weight
		weights += c.Weight
	}
	if weights == 0 {
		return 0.5
	}
	return Clamp01(sum / weights)
}

// InefficiencyScore maps path efficiency to min((1-eff)*2, 1).
func InefficiencyScore(efficiency float64) float64 {
	return math.Min(math.Max(1-efficiency, 0)*2, 1)
}

// QuestionRatioScore maps the share of questions asked to min(ratio*2, 1).
func QuestionRatioScore(ratio float64) float64 {
	return math.Min(math.Max(ratio, 0)*2, 1)
}
