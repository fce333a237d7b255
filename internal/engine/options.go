package engine

import (
	"math/rand"
	"time"

	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// MonsterSpawner is told when a night begins. Returns how many monsters it spawned.
type MonsterSpawner interface {
	SpawnWave(day int) int
}

// WorldEventSource may produce a narrative event when a day begins.
type WorldEventSource interface {
	DailyEvent(day int) (string, bool)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source. Two engines with equal seeds and inputs evolve identically.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed is WithRand over a fresh source.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithEventLog records every engine decision into el.
func WithEventLog(el *events.EventLog) Option {
	return func(e *Engine) { e.eventLog = el }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithClock overrides the wall clock used to stamp events and samples.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMonsterSpawner(s MonsterSpawner) Option {
	return func(e *Engine) { e.spawner = s }
}

func WithWorldEvents(w WorldEventSource) Option {
	return func(e *Engine) { e.world = w }
}
