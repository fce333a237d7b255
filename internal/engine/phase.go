package engine

// Phase is a state of the session state machine.
type Phase string

const (
	PhasePreparation Phase = "preparation"
	PhaseDay         Phase = "day"
	PhaseNight       Phase = "night"
	PhaseSkillSelect Phase = "skill_select"
	PhaseEnd         Phase = "end"

	PhaseCharacterSelect  Phase = "character_select"
	PhaseSwarmPreparation Phase = "swarm_preparation"
	PhaseSwarmDay         Phase = "swarm_day"
	PhaseSwarmNight       Phase = "swarm_night"
	PhaseRoleReveal       Phase = "role_reveal"
	PhaseGameOver         Phase = "game_over"
)

// Mode selects which phase cycle a session runs.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeSwarm    Mode = "swarm"
)

// ParseMode maps a wire value to a Mode; anything unknown is standard.
func ParseMode(s string) Mode {
	if Mode(s) == ModeSwarm {
		return ModeSwarm
	}
	return ModeStandard
}

var cycles = map[Mode]map[Phase]Phase{
	ModeStandard: {
		PhasePreparation: PhaseDay,
		PhaseDay:         PhaseNight,
		PhaseNight:       PhaseSkillSelect,
		PhaseSkillSelect: PhaseDay,
	},
	ModeSwarm: {
		PhaseCharacterSelect:  PhaseSwarmPreparation,
		PhaseSwarmPreparation: PhaseSwarmDay,
		PhaseSwarmDay:         PhaseSwarmNight,
		PhaseSwarmNight:       PhaseRoleReveal,
		PhaseRoleReveal:       PhaseSwarmDay,
	},
}

func firstPhase(m Mode) Phase {
	if m == ModeSwarm {
		return PhaseCharacterSelect
	}
	return PhasePreparation
}

func terminalPhase(m Mode) Phase {
	if m == ModeSwarm {
		return PhaseGameOver
	}
	return PhaseEnd
}

// IsTerminal reports whether p ends a game.
func IsTerminal(p Phase) bool {
	return p == PhaseEnd || p == PhaseGameOver
}

func isDayPhase(p Phase) bool {
	return p == PhaseDay || p == PhaseSwarmDay
}

func isNightPhase(p Phase) bool {
	return p == PhaseNight || p == PhaseSwarmNight
}

// inPlay reports whether per-tick alignment and clue checks run in p.
func inPlay(p Phase) bool {
	switch p {
	case PhaseDay, PhaseNight, PhaseSkillSelect, PhaseSwarmDay, PhaseSwarmNight, PhaseRoleReveal:
		return true
	}
	return false
}

// isLobbyPhase reports whether participants may still join.
func isLobbyPhase(p Phase) bool {
	return p == PhasePreparation || p == PhaseCharacterSelect
}

// PhaseMachine owns the phase, day counter and countdown.
// It knows nothing about participants; the Engine runs entry and exit actions around it.
type PhaseMachine struct {
	mode     Mode
	rules    *Rules
	phase    Phase
	dayCount int
	timeLeft float64
	paused   bool
}

// NewPhaseMachine starts in the mode's first phase.
func NewPhaseMachine(mode Mode, r *Rules) *PhaseMachine {
	m := &PhaseMachine{mode: mode, rules: r}
	m.enter(firstPhase(mode))
	return m
}

func (m *PhaseMachine) Phase() Phase { return m.phase }
func (m *PhaseMachine) DayCount() int { return m.dayCount }
func (m *PhaseMachine) TimeLeft() float64 { return m.timeLeft }
func (m *PhaseMachine) Paused() bool { return m.paused }
func (m *PhaseMachine) Mode() Mode { return m.mode }
func (m *PhaseMachine) setPaused(p bool) { m.paused = p }

// duration returns the configured length of p.
func (m *PhaseMachine) duration(p Phase) float64 {
	switch p {
	case PhasePreparation, PhaseSwarmPreparation:
		return m.rules.PreparationDuration
	case PhaseDay, PhaseSwarmDay:
		return m.rules.DayDuration
	case PhaseNight, PhaseSwarmNight:
		return m.rules.NightDuration
	case PhaseSkillSelect:
		return m.rules.SkillSelectDuration
	case PhaseCharacterSelect:
		return m.rules.CharacterSelectDuration
	case PhaseRoleReveal:
		return m.rules.RoleRevealDuration
	default:
		return m.rules.EndDuration
	}
}

// decrement runs the countdown and reports whether the phase has expired.
// While paused the countdown keeps running at the reduced rate.
func (m *PhaseMachine) decrement(dt float64) bool {
	rate := 1.0
	if m.paused {
		rate = m.rules.PausedDecayRate
	}
	m.timeLeft -= dt * rate
	return m.timeLeft <= 0
}

// next returns the phase that follows the current one.
// Entering a day past the limit goes to the terminal phase instead.
func (m *PhaseMachine) next() Phase {
	if IsTerminal(m.phase) {
		return firstPhase(m.mode)
	}
	to, ok := cycles[m.mode][m.phase]
	if !ok {
		return terminalPhase(m.mode)
	}
	if isDayPhase(to) && m.dayCount+1 > m.rules.MaxDays {
		return terminalPhase(m.mode)
	}
	return to
}

// enter switches to p, resets the countdown and counts days.
func (m *PhaseMachine) enter(p Phase) {
	m.phase = p
	m.timeLeft = m.duration(p)
	m.paused = false
	if isDayPhase(p) {
		m.dayCount++
	}
}

// restart clears counters and re-enters the first phase.
func (m *PhaseMachine) restart() {
	m.dayCount = 0
	m.enter(firstPhase(m.mode))
}
