package engine

import (
	"fmt"
	"math"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

// Attack resolves a melee hit. Traitors striking unseen and chaos participants hit harder.
// The attack is itself an observed assault and stains the attacker.
func (e *Engine) Attack(attackerID, targetID string, baseDamage int) (int, error) {
	if !inPlay(e.machine.Phase()) {
		return 0, ErrWrongPhase
	}
	if baseDamage <= 0 {
		return 0, ErrInvalidDamage
	}
	if attackerID == targetID {
		return 0, ErrSelfTarget
	}
	attacker, err := e.roster.live(attackerID)
	if err != nil {
		return 0, err
	}
	target, err := e.roster.live(targetID)
	if err != nil {
		return 0, err
	}

	alone, _ := e.graph.CheckPlayerAlone(attackerID)
	mult := 1.0
	switch attacker.TrueRole {
	case participant.RoleTraitor:
		if alone {
			mult = e.rules.TraitorAloneMultiplier
		}
	case participant.RoleChaos:
		mult = e.rules.ChaosDamageMultiplier
	}
	damage := int(math.Round(float64(baseDamage) * mult))

	fatal := target.Damage(damage)
	_ = e.tracker.Adjust(attackerID, rules.AlignmentDelta{Sin: e.rules.AttackSin})
	if _, err := e.graph.RecordBehavior(attackerID, "assault", nil); err != nil {
		e.logger.Err(err, "record assault")
	}

	e.rec.record(events.EventTypeAttack, attackerID, targetID, events.AttackPayload{
		BaseDamage: baseDamage,
		Damage:     damage,
		Alone:      alone,
		Fatal:      fatal,
	}, !alone)

	if fatal {
		e.rec.record(events.EventTypeParticipantDied, attackerID, targetID, nil, true)
		e.logger.Event("PARTICIPANT_DIED", targetID, fmt.Sprintf("killed by %s", attackerID))
		e.checkVictory()
	}
	return damage, nil
}

// UseCard plays a card from the participant's hand.
// Cards used within one day cycle are tracked for combos; each combo fires at most once per cycle.
func (e *Engine) UseCard(id, cardID string) error {
	if !inPlay(e.machine.Phase()) {
		return ErrWrongPhase
	}
	p, err := e.roster.live(id)
	if err != nil {
		return err
	}
	card, ok := e.catalog.Card(cardID)
	if !ok {
		return ErrUnknownCard
	}
	if !p.RemoveCard(cardID) {
		return ErrCardNotInHand
	}

	_ = e.tracker.Adjust(id, card.Effect)
	if card.Heal > 0 {
		p.Heal(card.Heal)
	}
	e.rec.record(events.EventTypeCardUsed, id, "", events.SelectionPayload{Chosen: cardID}, card.Category != catalog.CardBlood)
	e.clues.onCardUsed(id, card)

	used := e.usedCards[id]
	if used == nil {
		used = make(map[string]bool)
		e.usedCards[id] = used
	}
	used[cardID] = true
	e.applyCombos(p, used)
	return nil
}

func (e *Engine) applyCombos(p *participant.Participant, used map[string]bool) {
	applied := e.appliedCombos[p.ID]
	if applied == nil {
		applied = make(map[string]bool)
		e.appliedCombos[p.ID] = applied
	}
	for _, combo := range e.catalog.CompletedCombos(used) {
		if applied[combo.ID] {
			continue
		}
		applied[combo.ID] = true

		_ = e.tracker.Adjust(p.ID, combo.Effect)
		if combo.Heal > 0 {
			p.Heal(combo.Heal)
		}
		if combo.NPCTrust != 0 {
			_ = e.tracker.AdjustNPCTrust(p.ID, combo.NPCTrust)
		}
		if combo.ForceClue != "" {
			_, _ = e.clues.GenerateClue(p.ID, combo.ForceClue)
		}
		e.rec.record(events.EventTypeComboTriggered, p.ID, "", events.SelectionPayload{Chosen: combo.ID}, false)
		e.logger.Event("COMBO_TRIGGERED", p.ID, combo.ID)
	}
}
