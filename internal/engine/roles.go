package engine

import (
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

// assignRoles draws a hidden role for every participant from its character's pool,
// weighted by Rules.RoleWeights. A pool whose weights are all zero is drawn uniformly.
func (e *Engine) assignRoles() {
	for _, p := range e.roster.all() {
		role := e.drawRole(e.catalog.RolePool(p.CharacterID))
		p.TrueRole = role
		p.Role = participant.RoleUnknown
		p.KnownRole = false
		p.Revealed = false
		e.rec.record(events.EventTypeRoleAssigned, events.SystemActor, p.ID, events.RolePayload{Role: string(role)}, false)
	}
	e.logger.Info("Roles assigned to all participants")
}

func (e *Engine) drawRole(pool []participant.Role) participant.Role {
	total := 0.0
	for _, r := range pool {
		total += e.rules.RoleWeights[string(r)]
	}
	if total <= 0 {
		return pool[e.rng.Intn(len(pool))]
	}
	pick := e.rng.Float64() * total
	for _, r := range pool {
		pick -= e.rules.RoleWeights[string(r)]
		if pick < 0 {
			return r
		}
	}
	return pool[len(pool)-1]
}
