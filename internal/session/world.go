package session

import (
	"math/rand"
	"sync"
)

// Omen is a narrative world event announced at dawn.
type Omen string

const (
	OmenBloodMoon    Omen = "A blood moon hangs over the village."
	OmenBellTolls    Omen = "The chapel bell tolls by itself."
	OmenCrowsGather  Omen = "Crows gather on the well."
	OmenFreshGrave   Omen = "A fresh grave appears at the edge of the woods."
	OmenMissingLamb  Omen = "A lamb is missing from the square."
	OmenStrangerSeen Omen = "A stranger was seen at the crossroads."
)

var omens = []Omen{OmenBloodMoon, OmenBellTolls, OmenCrowsGather, OmenFreshGrave, OmenMissingLamb, OmenStrangerSeen}

// World produces daily omens and night monster waves for one lobby.
// It satisfies engine.WorldEventSource and engine.MonsterSpawner.
type World struct {
	mu         sync.Mutex
	rng        *rand.Rand
	players    int
	omenChance float64
	lateDay    int
	lateBonus  float64
	wave       int
}

// NewWorld creates a world for a lobby of the given size.
func NewWorld(players int, seed int64) *World {
	return &World{
		rng:        rand.New(rand.NewSource(seed)),
		players:    players,
		omenChance: 0.4,
		lateDay:    5,
		lateBonus:  0.2,
	}
}

// DailyEvent rolls for an omen. Later days are more ominous.
func (w *World) DailyEvent(day int) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	chance := w.omenChance
	if day >= w.lateDay {
		chance += w.lateBonus
	}
	if w.rng.Float64() >= chance {
		return "", false
	}
	return string(omens[w.rng.Intn(len(omens))]), true
}

// SpawnWave grows each night: one monster per player plus the wave number.
func (w *World) SpawnWave(day int) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.wave++
	return w.players + w.wave
}

// Reset starts the wave count over, e.g. after a restart.
func (w *World) Reset() {
	w.mu.Lock()
	w.wave = 0
	w.mu.Unlock()
}
