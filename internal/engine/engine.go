package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/catalog"
	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/events"
	"github.com/MRamiBalles/SinAndGrace/server/internal/platform/logger"
)

// Engine is the authoritative simulation of one session.
// It is not safe for concurrent use; a single owner drives Tick and every command.
type Engine struct {
	rules    Rules
	catalog  *catalog.Catalog
	eventLog *events.EventLog
	logger   *logger.Logger
	rng      *rand.Rand
	now      func() time.Time
	mode     Mode

	spawner MonsterSpawner
	world   WorldEventSource

	// Sub-systems
	roster    *roster
	rec       *recorder
	machine   *PhaseMachine
	tracker   *AlignmentTracker
	graph     *SuspicionGraph
	clues     *ClueEngine
	profiler  *BehaviorProfiler
	selection *SelectionSystem

	// State
	usedCards     map[string]map[string]bool
	appliedCombos map[string]map[string]bool
	outcome       *Outcome
	ticks         int64
	elapsed       float64
}

// New builds an engine in the mode's first phase. A nil catalog uses catalog.Default().
func New(r Rules, cat *catalog.Catalog, opts ...Option) (*Engine, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		cat = catalog.Default()
	}

	e := &Engine{
		rules:   r,
		catalog: cat,
		logger:  logger.NewNop(),
		now:     time.Now,
		mode:    ModeStandard,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e.machine = NewPhaseMachine(e.mode, &e.rules)
	e.roster = newRoster()
	e.rec = &recorder{log: e.eventLog, logger: e.logger, day: e.machine.DayCount, now: e.now}

	e.tracker = NewAlignmentTracker(&e.rules, e.roster, e.rec, e.logger)
	e.graph = NewSuspicionGraph(&e.rules, e.roster, e.rec, e.logger, e.rng, e.tracker)
	e.tracker.onReveal = e.graph.resolveAccusations
	e.clues = NewClueEngine(&e.rules, cat, e.roster, e.rec, e.logger, e.rng, e.tracker, e.graph, e.machine.DayCount)
	e.profiler = NewBehaviorProfiler(&e.rules, e.roster)
	e.selection = NewSelectionSystem(&e.rules, cat, e.roster, e.rec, e.logger, e.rng)

	e.usedCards = make(map[string]map[string]bool)
	e.appliedCombos = make(map[string]map[string]bool)

	e.logger.Info(fmt.Sprintf("Engine ready in %s mode, phase %s", e.mode, e.machine.Phase()))
	return e, nil
}

// AddParticipant registers a participant with every sub-system. Only allowed before the game starts.
func (e *Engine) AddParticipant(p *participant.Participant) error {
	if !isLobbyPhase(e.machine.Phase()) {
		return ErrWrongPhase
	}
	if !e.roster.add(p) {
		return ErrDuplicateID
	}
	e.graph.Register(p.ID)
	e.logger.Info("Participant registered with engine sub-systems: " + p.ID)
	return nil
}

// Tick advances the simulation by dt simulated seconds.
// Order: countdown and any phase transition, then per-participant alignment and clue checks.
func (e *Engine) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	e.ticks++
	e.elapsed += dt

	if e.machine.decrement(dt) {
		e.Advance()
	}
	if !inPlay(e.machine.Phase()) {
		return
	}

	for _, p := range e.roster.alive() {
		e.tracker.raiseSuspicionTo(p, e.graph.AverageSuspicionOf(p.ID))
		if e.tracker.evaluate(p) {
			_, _ = e.clues.GenerateClue(p.ID, participant.ClueSuspicious)
		}
		if e.mode == ModeStandard && e.rules.AutoReveal && !p.Revealed && e.tracker.IsRevealEligible(p.ID) {
			_, _ = e.tracker.Reveal(p.ID)
		}
		if _, err := e.clues.CheckAndGenerate(p.ID); err != nil {
			e.logger.Err(err, "clue check failed for "+p.ID)
		}
	}
}

// Advance ends the current phase now, exactly as if its timer had expired.
// Advancing past the terminal phase restarts the game.
func (e *Engine) Advance() {
	if IsTerminal(e.machine.Phase()) {
		e.Restart()
		return
	}
	e.transition(e.machine.next())
}

// Restart resets every participant and sub-system, draws new roles and re-enters the first phase.
func (e *Engine) Restart() {
	for _, p := range e.roster.all() {
		p.Reset()
	}
	e.tracker.reset()
	e.graph.reset()
	e.clues.reset()
	e.profiler.reset()
	e.selection.reset()
	e.usedCards = make(map[string]map[string]bool)
	e.appliedCombos = make(map[string]map[string]bool)
	e.outcome = nil

	e.machine.restart()
	e.rec.record(events.EventTypeGameRestarted, events.SystemActor, "", nil, true)
	e.logger.Info("Game restarted")
}

// transition runs exit actions for the current phase, switches, then runs entry actions.
func (e *Engine) transition(to Phase) {
	from := e.machine.Phase()
	e.exit(from)
	e.machine.enter(to)

	e.rec.record(events.EventTypePhaseChanged, events.SystemActor, "", events.PhaseChangedPayload{
		From:     string(from),
		To:       string(to),
		DayCount: e.machine.DayCount(),
		TimeLeft: e.machine.TimeLeft(),
	}, true)
	e.logger.Event("PHASE_CHANGED", events.SystemActor, fmt.Sprintf("%s -> %s (day %d)", from, to, e.machine.DayCount()))

	e.enter(to)
}

func (e *Engine) exit(from Phase) {
	switch from {
	case PhasePreparation:
		e.assignRoles()
	case PhaseCharacterSelect:
		e.selection.resolveCharacters()
	case PhaseNight, PhaseSwarmNight:
		e.selection.resolveCards()
		e.machine.setPaused(false)
	case PhaseSkillSelect:
		e.selection.resolveSkills()
	}
}

func (e *Engine) enter(to Phase) {
	switch {
	case isDayPhase(to):
		e.startDay()
		if to == PhaseSwarmDay {
			n := e.rules.WorldCluesMin + e.rng.Intn(e.rules.WorldCluesMax-e.rules.WorldCluesMin+1)
			e.clues.SpawnWorldClues(n)
			e.checkVictory()
		}
	case isNightPhase(to):
		pending := e.selection.openCards()
		e.machine.setPaused(pending > 0)
		e.spawnMonsters()
	case to == PhaseSkillSelect:
		e.selection.openSkills()
	case to == PhaseSwarmPreparation:
		e.assignRoles()
	case to == PhaseRoleReveal:
		for _, p := range e.roster.alive() {
			if e.tracker.IsRevealEligible(p.ID) {
				_, _ = e.tracker.Reveal(p.ID)
			}
		}
		e.checkVictory()
	case IsTerminal(to):
		e.finish()
	}
}

func (e *Engine) startDay() {
	day := e.machine.DayCount()
	e.rec.record(events.EventTypeDayStarted, events.SystemActor, "", nil, true)
	e.graph.Decay(e.rules.DailySuspicionDecay)
	e.usedCards = make(map[string]map[string]bool)
	e.appliedCombos = make(map[string]map[string]bool)

	if e.world == nil {
		e.logger.Debug("no world event source attached; skipping daily event")
		return
	}
	if desc, ok := e.world.DailyEvent(day); ok {
		e.rec.record(events.EventTypeWorldEvent, events.SystemActor, "", events.WorldPayload{Description: desc}, true)
	}
}

func (e *Engine) spawnMonsters() {
	if e.spawner == nil {
		e.logger.Debug("no monster spawner attached; skipping night wave")
		return
	}
	if n := e.spawner.SpawnWave(e.machine.DayCount()); n > 0 {
		e.rec.record(events.EventTypeMonsterWave, events.SystemActor, "", events.WorldPayload{Count: n}, true)
	}
}

// RecordMovement moves a participant and feeds the behavior profiler.
func (e *Engine) RecordMovement(id string, pos participant.Position) error {
	p, err := e.roster.live(id)
	if err != nil {
		return err
	}
	p.Position = pos
	return e.profiler.RecordMovement(id, pos, e.now())
}

// RecordConversation feeds an utterance to the profiler. The text itself is not kept.
func (e *Engine) RecordConversation(id, npcID, text string, responseTime float64) error {
	if _, err := e.roster.live(id); err != nil {
		return err
	}
	return e.profiler.RecordConversation(id, npcID, text, responseTime, e.now())
}

// RecordReaction feeds a reaction time to the profiler.
func (e *Engine) RecordReaction(id string, seconds float64) error {
	if _, err := e.roster.live(id); err != nil {
		return err
	}
	return e.profiler.RecordReaction(id, seconds)
}

// RecordBehavior reports an observed suspicious behavior. nil witnesses means everyone in range.
func (e *Engine) RecordBehavior(actorID, behavior string, witnesses []string) (int, error) {
	return e.graph.RecordBehavior(actorID, behavior, witnesses)
}

// SubmitAccusation lets one participant publicly accuse another.
func (e *Engine) SubmitAccusation(accuserID, accusedID, reason string, clueIDs []string) (participant.Accusation, error) {
	if !inPlay(e.machine.Phase()) {
		return participant.Accusation{}, ErrWrongPhase
	}
	return e.clues.SubmitAccusation(accuserID, accusedID, reason, clueIDs)
}

// SelectCard resolves the participant's night card pick. The phase unpauses when nobody is left choosing.
func (e *Engine) SelectCard(id string, index int) error {
	if !isNightPhase(e.machine.Phase()) {
		return ErrWrongPhase
	}
	remaining, err := e.selection.SelectCard(id, index)
	if err != nil {
		return err
	}
	if remaining == 0 {
		e.machine.setPaused(false)
	}
	return nil
}

func (e *Engine) SelectSkill(id string, index int) error {
	if e.machine.Phase() != PhaseSkillSelect {
		return ErrWrongPhase
	}
	return e.selection.SelectSkill(id, index)
}

func (e *Engine) SelectCharacter(id, characterID string) error {
	if e.machine.Phase() != PhaseCharacterSelect {
		return ErrWrongPhase
	}
	return e.selection.SelectCharacter(id, characterID)
}

// CollectClue picks up a world clue. Collecting can end the game for chaos.
func (e *Engine) CollectClue(id, clueID string) (CollectResult, error) {
	if !inPlay(e.machine.Phase()) {
		return CollectResult{}, ErrWrongPhase
	}
	res, err := e.clues.CollectClue(id, clueID)
	if err != nil {
		return res, err
	}
	e.checkVictory()
	return res, nil
}

// Reveal publicly reveals a participant's true role.
func (e *Engine) Reveal(id string) (RevealStatus, error) {
	return e.tracker.Reveal(id)
}

// Discover lets a participant privately learn its own role.
func (e *Engine) Discover(id string) (bool, error) {
	return e.tracker.Discover(id)
}

// Participant returns a copy of the participant's current state.
func (e *Engine) Participant(id string) (participant.Participant, bool) {
	p, ok := e.roster.get(id)
	if !ok {
		return participant.Participant{}, false
	}
	return p.Clone(), true
}

// Participants returns copies of every participant in ID order.
func (e *Engine) Participants() []participant.Participant {
	out := make([]participant.Participant, 0, e.roster.len())
	for _, p := range e.roster.all() {
		out = append(out, p.Clone())
	}
	return out
}

func (e *Engine) Phase() Phase { return e.machine.Phase() }
func (e *Engine) DayCount() int { return e.machine.DayCount() }
func (e *Engine) TimeLeft() float64 { return e.machine.TimeLeft() }
func (e *Engine) Paused() bool { return e.machine.Paused() }
func (e *Engine) Mode() Mode { return e.mode }
func (e *Engine) Ticks() int64 { return e.ticks }
func (e *Engine) Elapsed() float64 { return e.elapsed }
func (e *Engine) Rules() Rules { return e.rules }
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// GetEventLog exposes the session log. May be nil.
func (e *Engine) GetEventLog() *events.EventLog { return e.eventLog }

// Alignment exposes the alignment tracker.
func (e *Engine) Alignment() *AlignmentTracker { return e.tracker }

// Suspicion exposes the suspicion graph.
func (e *Engine) Suspicion() *SuspicionGraph { return e.graph }

// Clues exposes the clue engine.
func (e *Engine) Clues() *ClueEngine { return e.clues }

// Profiler exposes the behavior profiler.
func (e *Engine) Profiler() *BehaviorProfiler { return e.profiler }

// PendingCards returns the night cards offered to id.
func (e *Engine) PendingCards(id string) []string { return e.selection.PendingCards(id) }

// PendingSkills returns the skills offered to id.
func (e *Engine) PendingSkills(id string) []string { return e.selection.PendingSkills(id) }
