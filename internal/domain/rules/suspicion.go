package rules

// Saturate moves old toward 1 by gain: old + gain*(1-old).
// Repeated calls give shrinking increments and never exceed 1.
func Saturate(old, gain float64) float64 {
	gain = Clamp01(gain)
	return Clamp01(old + gain*(1-Clamp01(old)))
}

// AccuserCredibilityParams holds the inputs for weighing an accuser.
type AccuserCredibilityParams struct {
	AverageSuspicion float64 // what everyone else thinks of the accuser
	Accuracy         float64 // share of past accusations that proved right
	OpinionWeight    float64 // 0.7
	AccuracyWeight   float64 // 0.3
	Min              float64 // 0.1
	Max              float64 // 0.9
}

// AccuserCredibility blends inverted reputation with track record.
func AccuserCredibility(p AccuserCredibilityParams) float64 {
	c := p.OpinionWeight*(1-p.AverageSuspicion) + p.AccuracyWeight*p.Accuracy
	return Clamp(c, p.Min, p.Max)
}

// AccusationSpread is how much an observer's suspicion of the accused rises.
// trustInAccuser is 1 - suspicion[observer][accuser].
func AccusationSpread(spread, accuserCredibility, trustInAccuser float64) float64 {
	return spread * accuserCredibility * Clamp01(trustInAccuser)
}
