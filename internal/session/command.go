package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MRamiBalles/SinAndGrace/server/internal/domain/participant"
	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
)

// CommandType names a participant action. The same values travel over HTTP and WebSocket.
type CommandType string

const (
	CmdMove            CommandType = "MOVE"
	CmdSpeak           CommandType = "SPEAK"
	CmdReact           CommandType = "REACT"
	CmdBehavior        CommandType = "BEHAVIOR"
	CmdAccuse          CommandType = "ACCUSE"
	CmdSelectCard      CommandType = "SELECT_CARD"
	CmdSelectSkill     CommandType = "SELECT_SKILL"
	CmdSelectCharacter CommandType = "SELECT_CHARACTER"
	CmdUseCard         CommandType = "USE_CARD"
	CmdAttack          CommandType = "ATTACK"
	CmdCollectClue     CommandType = "COLLECT_CLUE"
	CmdState           CommandType = "STATE"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("malformed command payload")
)

// Command is an incoming action from a participant.
type Command struct {
	Type          CommandType     `json:"type"`
	ParticipantID string          `json:"participant_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type MovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SpeakPayload struct {
	NPCID        string  `json:"npc_id"`
	Text         string  `json:"text"`
	ResponseTime float64 `json:"response_time"`
}

type ReactPayload struct {
	Seconds float64 `json:"seconds"`
}

// BehaviorPayload leaves Witnesses out to let the engine pick everyone in range.
// An explicit empty list means nobody saw it.
type BehaviorPayload struct {
	Behavior  string   `json:"behavior"`
	Witnesses []string `json:"witnesses"`
}

type AccusePayload struct {
	AccusedID string   `json:"accused_id"`
	Reason    string   `json:"reason"`
	ClueIDs   []string `json:"clue_ids"`
}

type SelectPayload struct {
	Index int `json:"index"`
}

type CharacterPayload struct {
	CharacterID string `json:"character_id"`
}

type CardPayload struct {
	CardID string `json:"card_id"`
}

type AttackPayload struct {
	TargetID string `json:"target_id"`
	Damage   int    `json:"damage"`
}

type CluePayload struct {
	ClueID string `json:"clue_id"`
}

// Apply runs cmd against e. It must be called from the goroutine that owns e.
func Apply(e *engine.Engine, cmd Command) (interface{}, error) {
	id := cmd.ParticipantID
	switch cmd.Type {
	case CmdMove:
		var p MovePayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.RecordMovement(id, participant.Position{X: p.X, Y: p.Y})

	case CmdSpeak:
		var p SpeakPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.RecordConversation(id, p.NPCID, p.Text, p.ResponseTime)

	case CmdReact:
		var p ReactPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.RecordReaction(id, p.Seconds)

	case CmdBehavior:
		var p BehaviorPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		n, err := e.RecordBehavior(id, p.Behavior, p.Witnesses)
		if err != nil {
			return nil, err
		}
		return map[string]int{"witnesses": n}, nil

	case CmdAccuse:
		var p AccusePayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		acc, err := e.SubmitAccusation(id, p.AccusedID, p.Reason, p.ClueIDs)
		if err != nil {
			return nil, err
		}
		return acc, nil

	case CmdSelectCard:
		var p SelectPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.SelectCard(id, p.Index)

	case CmdSelectSkill:
		var p SelectPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.SelectSkill(id, p.Index)

	case CmdSelectCharacter:
		var p CharacterPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.SelectCharacter(id, p.CharacterID)

	case CmdUseCard:
		var p CardPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		return nil, e.UseCard(id, p.CardID)

	case CmdAttack:
		var p AttackPayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		dealt, err := e.Attack(id, p.TargetID, p.Damage)
		if err != nil {
			return nil, err
		}
		return map[string]int{"damage": dealt}, nil

	case CmdCollectClue:
		var p CluePayload
		if err := decode(cmd, &p); err != nil {
			return nil, err
		}
		res, err := e.CollectClue(id, p.ClueID)
		if err != nil {
			return nil, err
		}
		return res, nil

	case CmdState:
		view, err := e.PrivateState(id)
		if err != nil {
			return nil, err
		}
		return view, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}

func decode(cmd Command, v interface{}) error {
	if len(cmd.Payload) == 0 {
		return fmt.Errorf("%w: %s needs a payload", ErrBadPayload, cmd.Type)
	}
	if err := json.Unmarshal(cmd.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}
