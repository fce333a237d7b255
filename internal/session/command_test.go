package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
)

func dayEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.DefaultRules(), nil, engine.WithSeed(7))
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, e.AddParticipant(participant.NewParticipant(id, id, "")))
	}
	e.Advance()
	require.Equal(t, engine.PhaseDay, e.Phase())
	return e
}

func cmd(t *testing.T, typ CommandType, pid string, payload interface{}) Command {
	t.Helper()
	c := Command{Type: typ, ParticipantID: pid}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		c.Payload = raw
	}
	return c
}

func TestApplyMoveUpdatesPosition(t *testing.T) {
	e := dayEngine(t)
	_, err := Apply(e, cmd(t, CmdMove, "p1", MovePayload{X: 10, Y: 20}))
	require.NoError(t, err)

	p, ok := e.Participant("p1")
	require.True(t, ok)
	assert.Equal(t, participant.Position{X: 10, Y: 20}, p.Position)
}

func TestApplyBehaviorWitnesses(t *testing.T) {
	e := dayEngine(t)

	// Everyone starts at the origin, so the default radius catches both others.
	v, err := Apply(e, cmd(t, CmdBehavior, "p1", map[string]interface{}{"behavior": "lying"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"witnesses": 2}, v)

	v, err = Apply(e, cmd(t, CmdBehavior, "p1", BehaviorPayload{Behavior: "lying", Witnesses: []string{}}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"witnesses": 0}, v)
}

func TestApplyAccuseAndState(t *testing.T) {
	e := dayEngine(t)

	v, err := Apply(e, cmd(t, CmdAccuse, "p1", AccusePayload{AccusedID: "p2", Reason: "shifty eyes"}))
	require.NoError(t, err)
	acc := v.(participant.Accusation)
	assert.Equal(t, "p2", acc.AccusedID)

	_, err = Apply(e, cmd(t, CmdAccuse, "p1", AccusePayload{AccusedID: "p1", Reason: "me"}))
	assert.ErrorIs(t, err, engine.ErrSelfAccusation)

	v, err = Apply(e, cmd(t, CmdState, "p1", nil))
	require.NoError(t, err)
	assert.Equal(t, "p1", v.(engine.PrivateView).ID)
}

func TestApplyAttack(t *testing.T) {
	e := dayEngine(t)
	v, err := Apply(e, cmd(t, CmdAttack, "p1", AttackPayload{TargetID: "p2", Damage: 10}))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.(map[string]int)["damage"], 10)

	_, err = Apply(e, cmd(t, CmdAttack, "p1", AttackPayload{TargetID: "p1", Damage: 10}))
	assert.ErrorIs(t, err, engine.ErrSelfTarget)
}

func TestApplyRejectsBadInput(t *testing.T) {
	e := dayEngine(t)

	_, err := Apply(e, Command{Type: "DANCE", ParticipantID: "p1"})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = Apply(e, Command{Type: CmdMove, ParticipantID: "p1"})
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = Apply(e, Command{Type: CmdMove, ParticipantID: "p1", Payload: json.RawMessage(`{"x":"far"}`)})
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = Apply(e, cmd(t, CmdSelectSkill, "p1", SelectPayload{Index: 0}))
	assert.ErrorIs(t, err, engine.ErrWrongPhase)

	_, err = Apply(e, cmd(t, CmdMove, "ghost", MovePayload{}))
	assert.ErrorIs(t, err, engine.ErrUnknownParticipant)
}
