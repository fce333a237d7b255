package sim

import (
	"fmt"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

const maxViolations = 50

// checker verifies engine state after each tick.
type checker struct {
	e          *engine.Engine
	el         *events.EventLog
	roles      map[string]participant.Role
	lastSeq    int64
	seen       int
	violations []string
}

func newChecker(e *engine.Engine, el *events.EventLog) *checker {
	return &checker{e: e, el: el, roles: make(map[string]participant.Role)}
}

func (c *checker) fail(format string, args ...interface{}) {
	if len(c.violations) < maxViolations {
		c.violations = append(c.violations, fmt.Sprintf("tick %d: ", c.e.Ticks())+fmt.Sprintf(format, args...))
	}
}

func (c *checker) check() {
	r := c.e.Rules()
	if c.e.DayCount() > r.MaxDays+1 {
		c.fail("day %d past the limit %d", c.e.DayCount(), r.MaxDays)
	}

	for _, p := range c.e.Participants() {
		a := p.Alignment
		for name, v := range map[string]float64{
			"trust": a.Trust, "suspicion": a.Suspicion, "loyalty": a.Loyalty, "chaos": a.Chaos, "npc_trust": a.NPCTrust,
		} {
			if v < 0 || v > 1 {
				c.fail("%s %s=%v outside [0,1]", p.ID, name, v)
			}
		}
		if a.Sin < 0 || a.Grace < 0 {
			c.fail("%s negative sin/grace", p.ID)
		}
		if p.Alive && p.HP <= 0 {
			c.fail("%s alive with hp %d", p.ID, p.HP)
		}
		if p.Revealed && p.Role != p.TrueRole {
			c.fail("%s revealed as %s but is %s", p.ID, p.Role, p.TrueRole)
		}
		if !p.Revealed && p.Role != participant.RoleUnknown {
			c.fail("%s shows role %s before reveal", p.ID, p.Role)
		}
		if p.TrueRole != participant.RoleUnknown {
			if prev, ok := c.roles[p.ID]; ok && prev != p.TrueRole {
				c.fail("%s true role changed %s -> %s", p.ID, prev, p.TrueRole)
			}
			c.roles[p.ID] = p.TrueRole
		}
		for _, clue := range c.e.Clues().CluesAbout(p.ID) {
			if clue.Credibility < 0 || clue.Credibility > 1 {
				c.fail("clue %s credibility %v", clue.ID, clue.Credibility)
			}
		}
	}

	for o, row := range c.e.Suspicion().Matrix() {
		for t, v := range row {
			if v < 0 || v > 1 {
				c.fail("suspicion %s->%s=%v", o, t, v)
			}
		}
	}

	for _, ev := range c.el.Since(c.seen) {
		if ev.Seq <= c.lastSeq {
			c.fail("event seq %d after %d", ev.Seq, c.lastSeq)
		}
		c.lastSeq = ev.Seq
		if ev.Type == events.EventTypeGameRestarted {
			c.roles = make(map[string]participant.Role)
		}
	}
	c.seen = c.el.Len()
}
