package catalog

import (
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
)

// Default returns the built-in content set, already prepared.
func Default() *Catalog {
	c := &Catalog{
		Roles: []RoleDefinition{
			{ID: participant.RoleProtector, Name: "Protector", VictoryCondition: "Every traitor is dead, or a protector survives the last day"},
			{ID: participant.RoleTraitor, Name: "Traitor", VictoryCondition: "Every protector is dead while a traitor lives"},
			{ID: participant.RoleChaos, Name: "Chaos", VictoryCondition: "Collect ten clues before the end"},
		},
		Characters: []Character{
			{ID: "monk", Name: "The Monk", PotentialRoles: []participant.Role{participant.RoleProtector, participant.RoleTraitor}},
			{ID: "nun", Name: "The Nun", PotentialRoles: []participant.Role{participant.RoleProtector, participant.RoleChaos}},
			{ID: "knight", Name: "The Knight", PotentialRoles: []participant.Role{participant.RoleProtector, participant.RoleTraitor}},
			{ID: "gravedigger", Name: "The Gravedigger", PotentialRoles: []participant.Role{participant.RoleTraitor, participant.RoleChaos}},
			{ID: "pilgrim", Name: "The Pilgrim", PotentialRoles: participant.AllRoles},
		},
		Skills: []Skill{
			{ID: "blood_lust", Name: "Blood Lust", Type: "passive", MaxLevel: 5, Description: "Heal a little on every kill"},
			{ID: "heal_wave", Name: "Heal Wave", Type: "support", MaxLevel: 5, Description: "Heal nearby allies"},
			{ID: "fireball", Name: "Fireball", Type: "active", MaxLevel: 5, Description: "Hurl a ball of fire"},
			{ID: "shadowstep", Name: "Shadowstep", Type: "active", MaxLevel: 3, Description: "Blink a short distance unseen"},
			{ID: "divine_shield", Name: "Divine Shield", Type: "support", MaxLevel: 3, Description: "Absorb the next hit"},
			{ID: "focus_mind", Name: "Focus Mind", Type: "passive", MaxLevel: 5, Description: "Shorter cooldowns"},
		},
		Cards: []Card{
			{ID: "assassination", Name: "Assassination", Category: CardBlood, Effect: rules.AlignmentDelta{Sin: 2, Suspicion: 0.1, Chaos: 0.1}, EmergencyChance: 0.7},
			{ID: "blood_drain", Name: "Blood Drain", Category: CardBlood, Effect: rules.AlignmentDelta{Sin: 1, Suspicion: 0.05}, Heal: 10},
			{ID: "sabotage", Name: "Sabotage", Category: CardUtility, Effect: rules.AlignmentDelta{Sin: 1, Chaos: 0.2}},
			{ID: "shadow_step", Name: "Shadow Step", Category: CardUtility, Effect: rules.AlignmentDelta{Chaos: 0.1, Suspicion: 0.05}},
			{ID: "holy_barrier", Name: "Holy Barrier", Category: CardHoly, Effect: rules.AlignmentDelta{Grace: 1, Trust: 0.05}},
			{ID: "prayer", Name: "Prayer", Category: CardHoly, Effect: rules.AlignmentDelta{Grace: 1, Loyalty: 0.05}},
			{ID: "confession", Name: "Confession", Category: CardHoly, Effect: rules.AlignmentDelta{Grace: 1, Suspicion: -0.1}},
			{ID: "vigil", Name: "Night Vigil", Category: CardHoly, Effect: rules.AlignmentDelta{Trust: 0.1, Loyalty: 0.05}},
		},
		Combos: []Combo{
			{ID: "forbidden_feast", Cards: []string{"assassination", "blood_drain"}, Effect: rules.AlignmentDelta{Sin: 2}, Heal: 15, ForceClue: participant.ClueBlood},
			{ID: "sanctuary", Cards: []string{"holy_barrier", "prayer"}, Effect: rules.AlignmentDelta{Grace: 1}, NPCTrust: 0.2},
		},
		ClueRules: []ClueRule{
			{Category: participant.ClueBlood, When: "sin >= 3", Chance: 0.2},
			{Category: participant.ClueGoodDeed, When: "grace >= 3", Chance: 0.15},
			{Category: participant.ClueSuspicious, When: "suspected", Chance: 0.3},
		},
		Templates: map[participant.ClueCategory][]string{
			participant.ClueBlood: {
				"Blood stains behind the storehouse",
				"A bloodied cloth hidden under the pews",
				"Crying heard near the well at night",
			},
			participant.ClueHoly: {
				"Candles found lit in the empty chapel",
				"Fresh holy water in the font",
			},
			participant.ClueSuspicious: {
				"Seen slipping out after curfew",
				"Whispering with strangers by the gate",
				"Acting strangely around the relics",
			},
			participant.ClueGoodDeed: {
				"Shared bread with the sick",
				"Mended the roof of the infirmary",
			},
			participant.ClueEmergency: {
				"A body, still warm, and footprints leading away",
			},
			participant.ClueWorld: {
				"A torn page from a confession ledger",
				"A key stamped with the abbey seal",
				"Muddy boot prints in the cellar",
				"A letter sealed with black wax",
			},
		},
		Sources: []string{"Sister Maria", "Brother John", "Father Thomas", "Mother Catherine"},
	}

	if err := c.Prepare(); err != nil {
		panic(err) // static content
	}
	return c
}
