package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/rules"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
)

// newTestEngine builds a seeded standard engine with bot participants p1..pN.
func newTestEngine(t *testing.T, r Rules, ids ...string) (*Engine, *events.EventLog) {
	t.Helper()
	el := events.NewEventLog(nil)
	e, err := New(r, nil, WithSeed(42), WithEventLog(el))
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, e.AddParticipant(participant.NewParticipant(id, "Name "+id, "pilgrim")))
	}
	return e, el
}

func countEvents(el *events.EventLog, typ events.EventType, target string) int {
	n := 0
	for _, ev := range el.Replay() {
		if ev.Type == typ && (target == "" || ev.TargetID == target) {
			n++
		}
	}
	return n
}

// setRole overrides the drawn role so a test can reason about victory and combat.
func setRole(t *testing.T, e *Engine, id string, role participant.Role) {
	t.Helper()
	p, ok := e.roster.get(id)
	require.True(t, ok)
	p.TrueRole = role
}

func TestNewRejectsInvalidRules(t *testing.T) {
	r := DefaultRules()
	r.MaxDays = 0
	_, err := New(r, nil)
	assert.Error(t, err)
}

func TestStandardPhaseCycle(t *testing.T) {
	r := DefaultRules()
	r.MaxDays = 2
	e, _ := newTestEngine(t, r, "p1", "p2")

	assert.Equal(t, PhasePreparation, e.Phase())
	assert.Equal(t, 0, e.DayCount())

	e.Advance()
	assert.Equal(t, PhaseDay, e.Phase())
	assert.Equal(t, 1, e.DayCount())

	e.Advance()
	assert.Equal(t, PhaseNight, e.Phase())
	e.Advance()
	assert.Equal(t, PhaseSkillSelect, e.Phase())
	e.Advance()
	assert.Equal(t, PhaseDay, e.Phase())
	assert.Equal(t, 2, e.DayCount())

	e.Advance()
	e.Advance()
	e.Advance()
	// Entering day 3 exceeds the limit of 2.
	assert.Equal(t, PhaseEnd, e.Phase())
	assert.Equal(t, 2, e.DayCount())

	out, ok := e.Outcome()
	require.True(t, ok)
	assert.NotEmpty(t, out.Winner)

	e.Advance()
	assert.Equal(t, PhasePreparation, e.Phase())
	assert.Equal(t, 0, e.DayCount())
	_, ok = e.Outcome()
	assert.False(t, ok)
}

func TestSingleDayLimit(t *testing.T) {
	r := DefaultRules()
	r.MaxDays = 1
	e, _ := newTestEngine(t, r, "p1")

	e.Advance() // Day 1
	e.Advance() // Night
	e.Advance() // SkillSelect
	e.Advance() // would be day 2
	assert.Equal(t, PhaseEnd, e.Phase())
	assert.Equal(t, 1, e.DayCount())
}

func TestTickAdvancesOnTimeout(t *testing.T) {
	r := DefaultRules()
	r.PreparationDuration = 5
	e, _ := newTestEngine(t, r, "p1")

	for i := 0; i < 4; i++ {
		e.Tick(1)
	}
	assert.Equal(t, PhasePreparation, e.Phase())
	e.Tick(1)
	assert.Equal(t, PhaseDay, e.Phase())
	assert.Equal(t, r.DayDuration, e.TimeLeft())

	e.Tick(0)
	e.Tick(-3)
	assert.Equal(t, int64(5), e.Ticks())
}

func TestAddParticipantAfterStart(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "p1")
	assert.ErrorIs(t, e.AddParticipant(participant.NewParticipant("p1", "dup", "")), ErrDuplicateID)

	e.Advance()
	assert.ErrorIs(t, e.AddParticipant(participant.NewParticipant("late", "Late", "")), ErrWrongPhase)
}

func TestNightPausesUntilPickAndAutoResolves(t *testing.T) {
	// Setup
	r := DefaultRules()
	r.NightDuration = 60
	e, _ := newTestEngine(t, r, "bot")
	human := participant.NewParticipant("human", "Human", "monk")
	human.Controlled = true
	require.NoError(t, e.AddParticipant(human))

	e.Advance() // Day
	e.Advance() // Night
	require.Equal(t, PhaseNight, e.Phase())
	assert.True(t, e.Paused())

	opts := e.PendingCards("human")
	require.Len(t, opts, r.NightCardOptions)
	assert.Empty(t, e.PendingCards("bot"), "bots pick immediately")
	bot, _ := e.Participant("bot")
	assert.Len(t, bot.Cards, 1)

	// Act: nobody answers; the clock runs at half speed
	for i := 0; i < 119; i++ {
		e.Tick(1)
	}
	assert.Equal(t, PhaseNight, e.Phase())
	assert.InDelta(t, 0.5, e.TimeLeft(), 1e-9)
	e.Tick(1)

	// Assert
	assert.Equal(t, PhaseSkillSelect, e.Phase())
	assert.False(t, e.Paused())
	got, _ := e.Participant("human")
	assert.Contains(t, got.Cards, opts[0])
}

func TestSelectCardUnpauses(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules())
	human := participant.NewParticipant("human", "Human", "monk")
	human.Controlled = true
	require.NoError(t, e.AddParticipant(human))

	assert.ErrorIs(t, e.SelectCard("human", 0), ErrWrongPhase)

	e.Advance()
	e.Advance()
	opts := e.PendingCards("human")
	require.NotEmpty(t, opts)

	assert.ErrorIs(t, e.SelectCard("human", len(opts)), ErrSelectionOutOfRange)
	assert.ErrorIs(t, e.SelectCard("human", -1), ErrSelectionOutOfRange)
	assert.True(t, e.Paused())

	require.NoError(t, e.SelectCard("human", 1))
	assert.False(t, e.Paused())
	assert.ErrorIs(t, e.SelectCard("human", 0), ErrNoPendingSelection)

	got, _ := e.Participant("human")
	assert.Equal(t, []string{opts[1]}, got.Cards)
}

func TestSkillSelectLevelsUp(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules())
	human := participant.NewParticipant("human", "Human", "monk")
	human.Controlled = true
	require.NoError(t, e.AddParticipant(human))

	e.Advance()
	e.Advance()
	e.Advance()
	require.Equal(t, PhaseSkillSelect, e.Phase())
	assert.False(t, e.Paused())

	opts := e.PendingSkills("human")
	require.Len(t, opts, 3)
	require.NoError(t, e.SelectSkill("human", 2))

	got, _ := e.Participant("human")
	assert.Equal(t, 1, got.Skills[opts[2]])
}

func TestSuspicionMatrixComplete(t *testing.T) {
	r := DefaultRules()
	ids := []string{"a", "b", "c", "d"}
	e, _ := newTestEngine(t, r, ids...)

	for _, o := range ids {
		for _, tgt := range ids {
			v, ok := e.Suspicion().Get(o, tgt)
			if o == tgt {
				assert.False(t, ok)
				continue
			}
			require.True(t, ok, "%s->%s missing", o, tgt)
			assert.GreaterOrEqual(t, v, r.SuspicionSeedBase)
			assert.LessOrEqual(t, v, r.SuspicionSeedBase+r.SuspicionSeedSpread)
		}
	}
}

func TestRecordBehaviorSaturates(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a", "b", "c")
	e.Advance()

	prev, _ := e.Suspicion().Get("b", "a")
	for i := 0; i < 20; i++ {
		n, err := e.RecordBehavior("a", "lying", []string{"b"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		v, _ := e.Suspicion().Get("b", "a")
		assert.Greater(t, v, prev)
		assert.Less(t, v, 1.0)
		prev = v
	}

	// c was not a witness
	c, _ := e.Suspicion().Get("c", "a")
	assert.Less(t, c, 0.2)

	_, err := e.RecordBehavior("ghost", "lying", nil)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestRecordBehaviorAutoWitnesses(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a", "near", "far")
	e.Advance()
	require.NoError(t, e.RecordMovement("far", participant.Position{X: 5000, Y: 5000}))

	n, err := e.RecordBehavior("a", "sneaking", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	alone, err := e.Suspicion().CheckPlayerAlone("far")
	require.NoError(t, err)
	assert.True(t, alone)
}

func accusationSpreadFor(t *testing.T, observerOfAccuser float64) float64 {
	t.Helper()
	e, _ := newTestEngine(t, DefaultRules(), "a", "b", "c")
	e.Advance()

	require.NoError(t, e.Suspicion().Seed("c", "a", observerOfAccuser))
	require.NoError(t, e.Suspicion().Seed("c", "b", 0.1))
	before, _ := e.Suspicion().Get("a", "b")

	_, err := e.SubmitAccusation("a", "b", "saw blood on the altar", nil)
	require.NoError(t, err)

	after, _ := e.Suspicion().Get("a", "b")
	assert.Equal(t, before, after, "accuser's own opinion is untouched")

	v, _ := e.Suspicion().Get("c", "b")
	return v - 0.1
}

func TestAccusationSpreadWeighedByTrust(t *testing.T) {
	distrusted := accusationSpreadFor(t, 0.8)
	trusted := accusationSpreadFor(t, 0.0)

	assert.Greater(t, distrusted, 0.0)
	assert.Less(t, distrusted, trusted)
}

func TestAccusationValidation(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a", "b", "c")

	_, err := e.SubmitAccusation("a", "b", "too early", nil)
	assert.ErrorIs(t, err, ErrWrongPhase)

	e.Advance()
	_, err = e.SubmitAccusation("a", "b", "   ", nil)
	assert.ErrorIs(t, err, ErrMissingReason)
	_, err = e.SubmitAccusation("a", "a", "myself", nil)
	assert.ErrorIs(t, err, ErrSelfAccusation)
	_, err = e.SubmitAccusation("a", "ghost", "who", nil)
	assert.ErrorIs(t, err, ErrUnknownParticipant)
	_, err = e.SubmitAccusation("a", "b", "evidence", []string{"no-such-clue"})
	assert.ErrorIs(t, err, ErrUnknownClue)

	aboutC, err := e.Clues().GenerateClue("c", participant.ClueSuspicious)
	require.NoError(t, err)
	_, err = e.SubmitAccusation("a", "b", "clue about someone else", []string{aboutC.ID})
	assert.ErrorIs(t, err, ErrUnknownClue)

	assert.Empty(t, e.Clues().Accusations())

	aboutB, err := e.Clues().GenerateClue("b", participant.ClueSuspicious)
	require.NoError(t, err)
	acc, err := e.SubmitAccusation("a", "b", "clue about b", []string{aboutB.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{aboutB.ID}, acc.SupportingClueIDs)
}

func TestAccusationCitesOnlyOwnWorldClues(t *testing.T) {
	r := DefaultRules()
	e, err := New(r, nil, WithSeed(3), WithMode(ModeSwarm))
	require.NoError(t, err)
	require.NoError(t, e.AddParticipant(participant.NewParticipant("c", "c", "")))
	require.NoError(t, e.AddParticipant(participant.NewParticipant("o", "o", "")))
	e.Advance()
	e.Advance()
	require.Equal(t, PhaseSwarmDay, e.Phase())

	world := e.Clues().WorldClues()
	require.GreaterOrEqual(t, len(world), 2)
	_, err = e.CollectClue("c", world[0].ID)
	require.NoError(t, err)

	_, err = e.SubmitAccusation("o", "c", "found it first", []string{world[0].ID})
	assert.ErrorIs(t, err, ErrUnknownClue)
	_, err = e.SubmitAccusation("o", "c", "still on the floor", []string{world[1].ID})
	assert.ErrorIs(t, err, ErrUnknownClue)

	_, err = e.SubmitAccusation("c", "o", "picked this up", []string{world[0].ID})
	require.NoError(t, err)
	assert.Len(t, e.Clues().Accusations(), 1)
}

func TestConvincingAccusationCostsNPCTrust(t *testing.T) {
	r := DefaultRules()
	e, el := newTestEngine(t, r, "a", "b")
	e.Advance()
	require.NoError(t, e.Alignment().Adjust("a", rules.AlignmentDelta{Grace: 5}))

	score, err := e.Clues().ScoreAccusation("a", "b")
	require.NoError(t, err)
	assert.Greater(t, score, r.AccusationTrustThreshold)

	acc, err := e.SubmitAccusation("a", "b", "heard the prayer was a lie", nil)
	require.NoError(t, err)
	assert.Equal(t, score, acc.Credibility)
	assert.Equal(t, 1, acc.Day)

	b, _ := e.Participant("b")
	assert.InDelta(t, 1-r.AccusationTrustPenalty, b.Alignment.NPCTrust, 1e-9)
	assert.Equal(t, 1, countEvents(el, events.EventTypeAccusation, "b"))
}

func TestAccuracyResolvedOnReveal(t *testing.T) {
	r := DefaultRules()
	e, _ := newTestEngine(t, r, "a", "b", "c")
	e.Advance()
	setRole(t, e, "b", participant.RoleTraitor)
	setRole(t, e, "c", participant.RoleProtector)

	_, err := e.SubmitAccusation("a", "b", "blood", nil)
	require.NoError(t, err)
	_, err = e.SubmitAccusation("a", "c", "hunch", nil)
	require.NoError(t, err)
	assert.Equal(t, r.DefaultAccuracy, e.Suspicion().Accuracy("a"))

	_, err = e.Reveal("b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.Suspicion().Accuracy("a"))

	_, err = e.Reveal("c")
	require.NoError(t, err)
	assert.Equal(t, 0.5, e.Suspicion().Accuracy("a"))
}

func TestRevealIsIdempotent(t *testing.T) {
	e, el := newTestEngine(t, DefaultRules(), "a")
	e.Advance()

	status, err := e.Reveal("a")
	require.NoError(t, err)
	assert.Equal(t, RevealApplied, status)

	status, err = e.Reveal("a")
	require.NoError(t, err)
	assert.Equal(t, RevealAlreadyDone, status)

	a, _ := e.Participant("a")
	assert.True(t, a.Revealed)
	assert.Equal(t, a.TrueRole, a.Role)
	assert.Equal(t, 1, countEvents(el, events.EventTypeRoleRevealed, "a"))

	_, err = e.Reveal("ghost")
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestRolesHiddenUntilKnown(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a", "b")
	e.Advance()

	a, _ := e.Participant("a")
	assert.NotEqual(t, participant.RoleUnknown, a.TrueRole)
	assert.Equal(t, participant.RoleUnknown, a.Role)

	view, err := e.PrivateState("a")
	require.NoError(t, err)
	assert.Empty(t, view.TrueRole)

	learned, err := e.Discover("a")
	require.NoError(t, err)
	assert.True(t, learned)
	view, _ = e.PrivateState("a")
	assert.Equal(t, a.TrueRole, view.TrueRole)

	for _, p := range e.Snapshot(10).Participants {
		assert.Equal(t, participant.RoleUnknown, p.Role)
	}
}

func TestSuspicionCrossingAndAutoReveal(t *testing.T) {
	r := DefaultRules()
	e, el := newTestEngine(t, r, "x", "y", "z")
	e.Advance()

	require.NoError(t, e.Suspicion().Seed("y", "x", 0.9))
	require.NoError(t, e.Suspicion().Seed("z", "x", 0.9))
	e.Tick(1)
	e.Tick(1)

	x, _ := e.Participant("x")
	assert.True(t, e.Alignment().IsSuspected("x"))
	assert.True(t, x.Revealed)
	assert.Equal(t, 1, countEvents(el, events.EventTypeSuspected, "x"))
	assert.Equal(t, 1, countEvents(el, events.EventTypeRoleRevealed, "x"))
	assert.InDelta(t, 1-r.SuspectedTrustPenalty, x.Alignment.NPCTrust, 1e-9)
	assert.NotEmpty(t, e.Clues().CluesAbout("x"))
}

func TestAlignmentBounds(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a")
	require.NoError(t, e.Alignment().Adjust("a", rules.AlignmentDelta{Trust: 5, Suspicion: -3, Loyalty: 2, Chaos: -1, Sin: -4}))

	a, _ := e.Participant("a")
	assert.Equal(t, 1.0, a.Alignment.Trust)
	assert.Equal(t, 0.0, a.Alignment.Suspicion)
	assert.Equal(t, 1.0, a.Alignment.Loyalty)
	assert.Equal(t, 0.0, a.Alignment.Chaos)
	assert.Equal(t, 0.0, a.Alignment.Sin)

	assert.ErrorIs(t, e.Alignment().Adjust("ghost", rules.AlignmentDelta{}), ErrUnknownParticipant)
}

func TestBloodClueCredibilityFloor(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a")
	e.Advance()
	require.NoError(t, e.Alignment().Adjust("a", rules.AlignmentDelta{Sin: 6}))

	for i := 0; i < 100; i++ {
		c, err := e.Clues().GenerateClue("a", participant.ClueBlood)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c.Credibility, 0.6-1e-9)
		assert.LessOrEqual(t, c.Credibility, 1.0)
		assert.Equal(t, "a", c.TargetID)
		assert.Equal(t, 1, c.DayCreated)
	}

	latest := e.Clues().LatestClues("a", 5)
	assert.Len(t, latest, 5)
}

func TestAttackMultipliers(t *testing.T) {
	e, el := newTestEngine(t, DefaultRules(), "traitor", "chaos", "victim")
	e.Advance()
	setRole(t, e, "traitor", participant.RoleTraitor)
	setRole(t, e, "chaos", participant.RoleChaos)
	setRole(t, e, "victim", participant.RoleProtector)

	// Everyone stands together: the traitor is seen.
	dmg, err := e.Attack("traitor", "victim", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, dmg)

	dmg, err = e.Attack("chaos", "victim", 10)
	require.NoError(t, err)
	assert.Equal(t, 12, dmg)

	// Move the others away; the traitor strikes alone.
	require.NoError(t, e.RecordMovement("chaos", participant.Position{X: 9000}))
	require.NoError(t, e.RecordMovement("victim", participant.Position{X: -9000}))
	dmg, err = e.Attack("traitor", "victim", 10)
	require.NoError(t, err)
	assert.Equal(t, 15, dmg)

	tr, _ := e.Participant("traitor")
	assert.Equal(t, 2.0, tr.Alignment.Sin)
	assert.Equal(t, 3, countEvents(el, events.EventTypeAttack, "victim"))

	_, err = e.Attack("traitor", "traitor", 10)
	assert.ErrorIs(t, err, ErrSelfTarget)
	_, err = e.Attack("traitor", "victim", 0)
	assert.ErrorIs(t, err, ErrInvalidDamage)
}

func TestTraitorsWinWhenProtectorsDie(t *testing.T) {
	e, el := newTestEngine(t, DefaultRules(), "p", "t")
	e.Advance()
	setRole(t, e, "p", participant.RoleProtector)
	setRole(t, e, "t", participant.RoleTraitor)

	_, err := e.Attack("t", "p", 1000)
	require.NoError(t, err)

	assert.Equal(t, PhaseEnd, e.Phase())
	out, ok := e.Outcome()
	require.True(t, ok)
	assert.Equal(t, WinnerTraitors, out.Winner)
	assert.Equal(t, 1, countEvents(el, events.EventTypeGameOver, ""))

	_, err = e.Attack("t", "p", 10)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestProtectorsWinAtDayLimit(t *testing.T) {
	r := DefaultRules()
	r.MaxDays = 1
	e, _ := newTestEngine(t, r, "p", "t")
	e.Advance()
	setRole(t, e, "p", participant.RoleProtector)
	setRole(t, e, "t", participant.RoleTraitor)

	e.Advance()
	e.Advance()
	e.Advance()
	out, ok := e.Outcome()
	require.True(t, ok)
	assert.Equal(t, WinnerProtectors, out.Winner)
	assert.Equal(t, 1, out.Day)
}

func TestUseCardAndCombo(t *testing.T) {
	e, el := newTestEngine(t, DefaultRules(), "a", "b")
	e.Advance()
	p, _ := e.roster.get("a")
	p.HP = 50
	p.Cards = []string{"assassination", "blood_drain", "assassination", "blood_drain"}

	require.NoError(t, e.UseCard("a", "assassination"))
	require.NoError(t, e.UseCard("a", "blood_drain"))

	got, _ := e.Participant("a")
	assert.Equal(t, 5.0, got.Alignment.Sin, "two cards plus the combo")
	assert.Equal(t, 75, got.HP)
	assert.Equal(t, 1, countEvents(el, events.EventTypeComboTriggered, ""))

	// A combo fires once per day cycle.
	require.NoError(t, e.UseCard("a", "assassination"))
	require.NoError(t, e.UseCard("a", "blood_drain"))
	assert.Equal(t, 1, countEvents(el, events.EventTypeComboTriggered, ""))

	assert.ErrorIs(t, e.UseCard("a", "assassination"), ErrCardNotInHand)
	assert.ErrorIs(t, e.UseCard("a", "nonsense"), ErrUnknownCard)
	assert.NotEmpty(t, e.Clues().CluesAbout("a"), "combo forces a blood clue")
}

func TestSwarmCycle(t *testing.T) {
	r := DefaultRules()
	el := events.NewEventLog(nil)
	e, err := New(r, nil, WithSeed(7), WithEventLog(el), WithMode(ModeSwarm))
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, e.AddParticipant(participant.NewParticipant(id, id, "")))
	}
	assert.Equal(t, PhaseCharacterSelect, e.Phase())

	require.NoError(t, e.SelectCharacter("a", "nun"))
	assert.ErrorIs(t, e.SelectCharacter("b", "dragon"), ErrUnknownCharacter)

	e.Advance()
	assert.Equal(t, PhaseSwarmPreparation, e.Phase())
	for _, p := range e.Participants() {
		assert.NotEmpty(t, p.CharacterID)
		assert.NotEqual(t, participant.RoleUnknown, p.TrueRole)
	}
	a, _ := e.Participant("a")
	assert.Contains(t, []participant.Role{participant.RoleProtector, participant.RoleChaos}, a.TrueRole)

	e.Advance()
	assert.Equal(t, PhaseSwarmDay, e.Phase())
	world := e.Clues().WorldClues()
	assert.GreaterOrEqual(t, len(world), r.WorldCluesMin)
	assert.LessOrEqual(t, len(world), r.WorldCluesMax)

	e.Advance()
	assert.Equal(t, PhaseSwarmNight, e.Phase())
	e.Advance()
	assert.Equal(t, PhaseRoleReveal, e.Phase())
	e.Advance()
	assert.Equal(t, PhaseSwarmDay, e.Phase())
	assert.Equal(t, 2, e.DayCount())
}

func TestChaosWinsByCollectingClues(t *testing.T) {
	r := DefaultRules()
	r.ChaosClueGoal = 2
	e, err := New(r, nil, WithSeed(3), WithMode(ModeSwarm))
	require.NoError(t, err)
	require.NoError(t, e.AddParticipant(participant.NewParticipant("c", "c", "")))
	require.NoError(t, e.AddParticipant(participant.NewParticipant("o", "o", "")))

	e.Advance()
	setRole(t, e, "c", participant.RoleChaos)
	setRole(t, e, "o", participant.RoleChaos)
	e.Advance()
	require.Equal(t, PhaseSwarmDay, e.Phase())

	world := e.Clues().WorldClues()
	require.GreaterOrEqual(t, len(world), 2)

	_, err = e.CollectClue("c", world[0].ID)
	require.NoError(t, err)
	_, err = e.CollectClue("o", world[0].ID)
	assert.ErrorIs(t, err, ErrClueCollected)

	_, err = e.CollectClue("c", world[1].ID)
	require.NoError(t, err)

	assert.Equal(t, PhaseGameOver, e.Phase())
	out, _ := e.Outcome()
	assert.Equal(t, WinnerChaos, out.Winner)
}

func TestWorldCluesSometimesRevealRoles(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a")
	var revealing, plain int
	for _, c := range e.Clues().SpawnWorldClues(50) {
		if c.RevealsRole {
			revealing++
		} else {
			plain++
		}
	}
	assert.Positive(t, revealing)
	assert.Positive(t, plain)
}

func TestRevealingWorldClueDiscoversRole(t *testing.T) {
	r := DefaultRules()
	r.ClueRevealChance = 1
	e, err := New(r, nil, WithSeed(5), WithMode(ModeSwarm))
	require.NoError(t, err)
	require.NoError(t, e.AddParticipant(participant.NewParticipant("c", "c", "")))
	require.NoError(t, e.AddParticipant(participant.NewParticipant("o", "o", "")))
	e.Advance()
	e.Advance()
	require.Equal(t, PhaseSwarmDay, e.Phase())

	world := e.Clues().WorldClues()
	require.GreaterOrEqual(t, len(world), 2)
	assert.True(t, world[0].RevealsRole)

	before, _ := e.Participant("c")
	require.False(t, before.KnownRole)

	res, err := e.CollectClue("c", world[0].ID)
	require.NoError(t, err)
	assert.Equal(t, world[0].ID, res.Clue.ID)
	assert.True(t, res.Discovered)
	after, _ := e.Participant("c")
	assert.True(t, after.KnownRole)

	res, err = e.CollectClue("c", world[1].ID)
	require.NoError(t, err)
	assert.False(t, res.Discovered)
}

func TestRestartResetsState(t *testing.T) {
	e, el := newTestEngine(t, DefaultRules(), "a", "b")
	e.Advance()
	require.NoError(t, e.Alignment().Adjust("a", rules.AlignmentDelta{Sin: 4}))
	_, err := e.SubmitAccusation("b", "a", "reasons", nil)
	require.NoError(t, err)

	e.Restart()

	assert.Equal(t, PhasePreparation, e.Phase())
	assert.Equal(t, 0, e.DayCount())
	a, _ := e.Participant("a")
	assert.Equal(t, 0.0, a.Alignment.Sin)
	assert.Equal(t, participant.RoleUnknown, a.TrueRole)
	assert.Empty(t, e.Clues().Accusations())
	v, ok := e.Suspicion().Get("b", "a")
	require.True(t, ok)
	assert.LessOrEqual(t, v, 0.15)
	assert.Equal(t, 1, countEvents(el, events.EventTypeGameRestarted, ""))
}

func TestSeededRunsAreReproducible(t *testing.T) {
	run := func() Snapshot {
		e, _ := newTestEngine(t, DefaultRules(), "a", "b", "c")
		e.Advance()
		_, _ = e.RecordBehavior("a", "tampering", nil)
		_, _ = e.SubmitAccusation("b", "a", "tampered", nil)
		for i := 0; i < 200; i++ {
			e.Tick(0.5)
		}
		return e.Snapshot(0)
	}
	assert.Equal(t, run(), run())
}

type fixedSpawner struct{ calls []int }

func (f *fixedSpawner) SpawnWave(day int) int {
	f.calls = append(f.calls, day)
	return 4
}

type fixedWorld struct{}

func (fixedWorld) DailyEvent(day int) (string, bool) { return "fog", day == 1 }

func TestCollaboratorsInvoked(t *testing.T) {
	spawner := &fixedSpawner{}
	el := events.NewEventLog(nil)
	e, err := New(DefaultRules(), nil, WithSeed(1), WithEventLog(el), WithMonsterSpawner(spawner), WithWorldEvents(fixedWorld{}))
	require.NoError(t, err)

	e.Advance()
	e.Advance()
	assert.Equal(t, []int{1}, spawner.calls)
	assert.Equal(t, 1, countEvents(el, events.EventTypeWorldEvent, ""))
	assert.Equal(t, 1, countEvents(el, events.EventTypeMonsterWave, ""))
}

func TestProfilerDefaults(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a", "b")
	assert.Equal(t, 0.5, e.Profiler().HumanLikeness("a"))

	require.NoError(t, e.RecordConversation("a", "Sister Maria", "Where were you last night?", 2.5))
	require.NoError(t, e.RecordConversation("a", "Sister Maria", "I was praying.", 1.5))
	ratio, ok := e.Profiler().QuestionRatio("a")
	require.True(t, ok)
	assert.Equal(t, 0.5, ratio)

	ranked := e.Profiler().MostLikelyPlayers()
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].ID)

	assert.ErrorIs(t, e.RecordReaction("ghost", 1), ErrUnknownParticipant)
	assert.ErrorIs(t, e.RecordReaction("a", -1), ErrInvalidReaction)
}

func TestConversationResponseTimesFeedReactions(t *testing.T) {
	e, _ := newTestEngine(t, DefaultRules(), "a")
	times := []float64{0.4, 0.8, 1.2, 2.0, 3.0, 3.5}
	for _, rt := range times {
		require.NoError(t, e.RecordConversation("a", "Sister Maria", "I was praying.", rt))
	}

	mean, variance := e.Profiler().ReactionStats("a")
	assert.InDelta(t, 10.9/6, mean, 1e-9)
	assert.Positive(t, variance)

	// No questions asked, so only the reaction component can lift the score.
	ratio, ok := e.Profiler().QuestionRatio("a")
	require.True(t, ok)
	assert.Zero(t, ratio)
	assert.Greater(t, e.Profiler().HumanLikeness("a"), 0.2)
}
