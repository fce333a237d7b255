// Package sim runs headless games with scripted bots and checks engine invariants after every tick.
// It is the stress harness behind cmd/sim-runner.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// Scenario describes one simulated game.
type Scenario struct {
	Name         string      `json:"name"`
	Mode         engine.Mode `json:"mode"`
	Participants int         `json:"participants"`
	Seed         int64       `json:"seed"`
	// Activity is the chance per tick that a bot acts.
	Activity float64 `json:"activity"`
	// Dt is the simulated seconds per tick.
	Dt       float64 `json:"dt"`
	MaxTicks int     `json:"max_ticks"`
}

// DefaultScenarios covers both modes and the lobby size range.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "quiet village", Mode: engine.ModeStandard, Participants: 3, Seed: 1, Activity: 0.05, Dt: 1, MaxTicks: 20000},
		{Name: "busy village", Mode: engine.ModeStandard, Participants: 5, Seed: 2, Activity: 0.5, Dt: 1, MaxTicks: 20000},
		{Name: "swarm night", Mode: engine.ModeSwarm, Participants: 4, Seed: 3, Activity: 0.3, Dt: 1, MaxTicks: 20000},
	}
}

// Result captures the outcome of a scenario.
type Result struct {
	ScenarioName string               `json:"scenario"`
	Seed         int64                `json:"seed"`
	Ticks        int64                `json:"ticks"`
	Days         int                  `json:"days"`
	Outcome      *engine.Outcome      `json:"outcome,omitempty"`
	Events       int                  `json:"events"`
	Actions      int                  `json:"actions"`
	Rejected     int                  `json:"rejected"`
	Accusations  int                  `json:"accusations"`
	Clues        int                  `json:"clues"`
	Reveals      int                  `json:"reveals"`
	MostHuman    []engine.PlayerScore `json:"most_human"`
	Violations   []string             `json:"violations,omitempty"`
	Passed       bool                 `json:"passed"`
	Reason       string               `json:"reason"`
}

// Runner executes scenarios against fresh engines.
type Runner struct {
	rules   engine.Rules
	catalog *catalog.Catalog
	logger  *logger.Logger
}

// NewRunner creates a runner. A nil catalog uses the built-in one.
func NewRunner(r engine.Rules, cat *catalog.Catalog, log *logger.Logger) *Runner {
	if cat == nil {
		cat = catalog.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{rules: r, catalog: cat, logger: log}
}

// Run plays sc until the game ends, MaxTicks is hit or ctx is cancelled.
func (rn *Runner) Run(ctx context.Context, sc Scenario) (Result, error) {
	if sc.Participants < 1 {
		return Result{}, fmt.Errorf("sim: scenario %q has no participants", sc.Name)
	}
	if sc.Dt <= 0 {
		sc.Dt = 1
	}
	if sc.MaxTicks <= 0 {
		sc.MaxTicks = 20000
	}

	el := events.NewEventLog(nil)
	e, err := engine.New(rn.rules, rn.catalog,
		engine.WithSeed(sc.Seed),
		engine.WithMode(sc.Mode),
		engine.WithEventLog(el),
		engine.WithLogger(rn.logger.With("scenario", sc.Name)),
	)
	if err != nil {
		return Result{}, err
	}
	for i := 0; i < sc.Participants; i++ {
		id := fmt.Sprintf("bot-%d", i+1)
		p := participant.NewParticipant(id, fmt.Sprintf("Bot %d", i+1), "")
		p.Controlled = i == 0
		if err := e.AddParticipant(p); err != nil {
			return Result{}, err
		}
	}

	b := newBots(e, rand.New(rand.NewSource(sc.Seed+7)), sc.Activity)
	chk := newChecker(e, el)
	res := Result{ScenarioName: sc.Name, Seed: sc.Seed}

	rn.logger.Info(fmt.Sprintf("SIM: %s started (%s, %d bots)", sc.Name, sc.Mode, sc.Participants))
	for tick := 0; tick < sc.MaxTicks; tick++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		b.act()
		e.Tick(sc.Dt)
		chk.check()
		if engine.IsTerminal(e.Phase()) {
			break
		}
	}

	res.Ticks = e.Ticks()
	res.Days = e.DayCount()
	if out, ok := e.Outcome(); ok {
		res.Outcome = &out
	}
	res.Events = el.Len()
	res.Actions, res.Rejected = b.actions, b.rejected
	res.Accusations = len(e.Clues().Accusations())
	for _, ev := range el.Replay() {
		switch ev.Type {
		case events.EventTypeClueGenerated:
			res.Clues++
		case events.EventTypeRoleRevealed:
			res.Reveals++
		}
	}
	res.MostHuman = e.Profiler().MostLikelyPlayers()
	res.Violations = chk.violations

	switch {
	case len(res.Violations) > 0:
		res.Reason = fmt.Sprintf("%d invariant violations", len(res.Violations))
	case res.Outcome == nil:
		res.Reason = "game did not finish within the tick budget"
	default:
		res.Passed = true
		res.Reason = fmt.Sprintf("%s won: %s", res.Outcome.Winner, res.Outcome.Reason)
	}
	rn.logger.Info(fmt.Sprintf("SIM: %s finished after %d ticks: %s", sc.Name, res.Ticks, res.Reason))
	return res, nil
}

// Summary aggregates results by winner.
func Summary(results []Result) map[string]int {
	out := make(map[string]int)
	for _, r := range results {
		key := "unfinished"
		if r.Outcome != nil {
			key = string(r.Outcome.Winner)
		}
		out[key]++
	}
	return out
}

// Failed returns the names of scenarios that did not pass, sorted.
func Failed(results []Result) []string {
	var out []string
	for _, r := range results {
		if !r.Passed {
			out = append(out, r.ScenarioName)
		}
	}
	sort.Strings(out)
	return out
}
