// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v into [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// AlignmentDelta is a batch of changes to apply to an AlignmentState.
type AlignmentDelta struct {
	Sin       float64 `json:"sin,omitempty" yaml:"sin,omitempty"`
	Grace     float64 `json:"grace,omitempty" yaml:"grace,omitempty"`
	Trust     float64 `json:"trust,omitempty" yaml:"trust,omitempty"`
	Suspicion float64 `json:"suspicion,omitempty" yaml:"suspicion,omitempty"`
	Loyalty   float64 `json:"loyalty,omitempty" yaml:"loyalty,omitempty"`
	Chaos     float64 `json:"chaos,omitempty" yaml:"chaos,omitempty"`
}

// IsZero reports whether the delta changes nothing.
func (d AlignmentDelta) IsZero() bool {
	return d == AlignmentDelta{}
}

// ApplyAlignmentDelta returns a with d applied.
// Bounded fields are clamped into [0,1]; Sin and Grace only ever grow.
func ApplyAlignmentDelta(a participant.AlignmentState, d AlignmentDelta) participant.AlignmentState {
	if d.Sin > 0 {
		a.Sin += d.Sin
	}
	if d.Grace > 0 {
		a.Grace += d.Grace
	}
	a.Trust = Clamp01(a.Trust + d.Trust)
	a.Suspicion = Clamp01(a.Suspicion + d.Suspicion)
	a.Loyalty = Clamp01(a.Loyalty + d.Loyalty)
	a.Chaos = Clamp01(a.Chaos + d.Chaos)
	a.NPCTrust = Clamp01(a.NPCTrust)
	return a
}
