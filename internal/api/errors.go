package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/MRamiBalles/SinAndGrace/server/internal/engine"
	"github.com/MRamiBalles/SinAndGrace/server/internal/session"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{session.ErrLobbyNotFound, http.StatusNotFound},
	{engine.ErrUnknownParticipant, http.StatusNotFound},
	{engine.ErrUnknownClue, http.StatusNotFound},
	{engine.ErrUnknownCard, http.StatusNotFound},
	{engine.ErrUnknownCharacter, http.StatusNotFound},

	{session.ErrInvalidLobby, http.StatusBadRequest},
	{session.ErrBadPayload, http.StatusBadRequest},
	{session.ErrUnknownCommand, http.StatusBadRequest},
	{engine.ErrMissingReason, http.StatusBadRequest},
	{engine.ErrSelfAccusation, http.StatusBadRequest},
	{engine.ErrSelectionOutOfRange, http.StatusBadRequest},
	{engine.ErrSelfTarget, http.StatusBadRequest},
	{engine.ErrInvalidDamage, http.StatusBadRequest},
	{engine.ErrInvalidReaction, http.StatusBadRequest},

	{engine.ErrWrongPhase, http.StatusConflict},
	{engine.ErrNoPendingSelection, http.StatusConflict},
	{engine.ErrClueCollected, http.StatusConflict},
	{engine.ErrCardNotInHand, http.StatusConflict},
	{engine.ErrParticipantDead, http.StatusConflict},
	{engine.ErrDuplicateID, http.StatusConflict},

	{session.ErrTooManyLobbies, http.StatusServiceUnavailable},
	{session.ErrLobbyClosed, http.StatusGone},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
