package engine

import (
	"fmt"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

// Winner names the side that won a game.
type Winner string

const (
	WinnerProtectors Winner = "protectors"
	WinnerTraitors   Winner = "traitors"
	WinnerChaos      Winner = "chaos"
	WinnerDraw       Winner = "draw"
)

// Outcome is the result of a finished game.
type Outcome struct {
	Winner Winner `json:"winner"`
	Reason string `json:"reason"`
	Day    int    `json:"day"`
}

// evaluateVictory checks the win conditions in priority order.
// dayLimit forces a decision when no side has won outright.
func (e *Engine) evaluateVictory(dayLimit bool) (Outcome, bool) {
	var protectors, traitors, liveProtectors, liveTraitors int
	for _, p := range e.roster.all() {
		switch p.TrueRole {
		case participant.RoleProtector:
			protectors++
			if p.Alive {
				liveProtectors++
			}
		case participant.RoleTraitor:
			traitors++
			if p.Alive {
				liveTraitors++
			}
		case participant.RoleChaos:
			if p.Alive && len(p.Collected) >= e.rules.ChaosClueGoal {
				return Outcome{Winner: WinnerChaos, Reason: fmt.Sprintf("%s gathered %d clues", p.ID, len(p.Collected))}, true
			}
		}
	}

	if protectors > 0 && liveProtectors == 0 && liveTraitors > 0 {
		return Outcome{Winner: WinnerTraitors, Reason: "every protector is dead"}, true
	}
	if traitors > 0 && liveTraitors == 0 {
		return Outcome{Winner: WinnerProtectors, Reason: "every traitor is dead"}, true
	}
	if dayLimit {
		if liveProtectors > 0 {
			return Outcome{Winner: WinnerProtectors, Reason: "protectors survived the day limit"}, true
		}
		return Outcome{Winner: WinnerDraw, Reason: "day limit reached"}, true
	}
	return Outcome{}, false
}

// checkVictory ends the game early when a side has already won.
func (e *Engine) checkVictory() {
	if e.outcome != nil || IsTerminal(e.machine.Phase()) {
		return
	}
	if _, ok := e.evaluateVictory(false); ok {
		e.transition(terminalPhase(e.machine.Mode()))
	}
}

// finish records the outcome once per game.
func (e *Engine) finish() {
	if e.outcome != nil {
		return
	}
	out, _ := e.evaluateVictory(true)
	out.Day = e.machine.DayCount()
	e.outcome = &out

	roles := make(map[string]string, e.roster.len())
	for _, p := range e.roster.all() {
		roles[p.ID] = string(p.TrueRole)
	}
	e.rec.record(events.EventTypeGameOver, events.SystemActor, "", events.GameOverPayload{
		Winner:   string(out.Winner),
		Reason:   out.Reason,
		Roles:    roles,
		DayCount: out.Day,
	}, true)
	e.logger.Event("GAME_OVER", events.SystemActor, fmt.Sprintf("%s win: %s", out.Winner, out.Reason))
}

// Outcome returns the result of the current game once it has ended.
func (e *Engine) Outcome() (Outcome, bool) {
	if e.outcome == nil {
		return Outcome{}, false
	}
	return *e.outcome, true
}
