package engine

import "errors"

// Invalid references. The operation is a no-op.
var (
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrParticipantDead    = errors.New("participant is dead")
	ErrUnknownClue        = errors.New("unknown clue")
	ErrUnknownCard        = errors.New("unknown card")
	ErrUnknownCharacter   = errors.New("unknown character")
)

// Malformed input.
var (
	ErrMissingReason       = errors.New("accusation needs a reason")
	ErrSelfAccusation      = errors.New("cannot accuse yourself")
	ErrSelectionOutOfRange = errors.New("selection index out of range")
	ErrNoPendingSelection  = errors.New("no selection pending")
	ErrWrongPhase          = errors.New("not allowed in this phase")
	ErrClueCollected       = errors.New("clue already collected")
	ErrCardNotInHand       = errors.New("card not in hand")
	ErrDuplicateID         = errors.New("participant already registered")
	ErrSelfTarget          = errors.New("cannot target yourself")
	ErrInvalidDamage       = errors.New("damage must be positive")
	ErrInvalidReaction     = errors.New("reaction time must not be negative")
)
