package domain

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidPhase       Code = "INVALID_PHASE"
	CodeNotHost            Code = "NOT_HOST"
	CodeNotYourTurn        Code = "NOT_YOUR_TURN"
	CodeGameAlreadyStarted Code = "GAME_ALREADY_STARTED"
	CodeGameInProgress     Code = "GAME_IN_PROGRESS"
	CodeRoomNotFound       Code = "ROOM_NOT_FOUND"
	CodePlayerNotInRoom    Code = "PLAYER_NOT_IN_ROOM"
	CodeTargetNotInRoom    Code = "TARGET_NOT_IN_ROOM"
	CodeNameLengthInvalid  Code = "NAME_LENGTH_INVALID"
	CodeNameTaken          Code = "NAME_TAKEN"
	CodeEmptyDescription   Code = "EMPTY_DESCRIPTION"
	CodeCannotVoteSelf     Code = "CANNOT_VOTE_SELF"
	CodeAlreadySubmitted   Code = "ALREADY_SUBMITTED"
	CodeAlreadyConfirmed   Code = "ALREADY_CONFIRMED"
	CodeNoSelection        Code = "NO_SELECTION"
	CodeNotEnoughPlayers   Code = "NOT_ENOUGH_PLAYERS"
	CodeSettingsOutOfRange Code = "SETTINGS_OUT_OF_RANGE"
	CodeEmptyMessage       Code = "EMPTY_MESSAGE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeNotInRoom          Code = "NOT_IN_ROOM"
	CodeInternal           Code = "INTERNAL"
)

// Error is the failure value returned by every game operation.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Code     Code   `json:"code"`
	Message  string `json:"message"`
	Required int    `json:"required,omitempty"`
	Current  int    `json:"current,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == CodeNotEnoughPlayers {
		return fmt.Sprintf("%s: %s (%d/%d)", e.Code, e.Message, e.Current, e.Required)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidPhase       = &Error{Code: CodeInvalidPhase, Message: "not allowed in the current phase"}
	ErrNotHost            = &Error{Code: CodeNotHost, Message: "only the host can do that"}
	ErrNotYourTurn        = &Error{Code: CodeNotYourTurn, Message: "it is not your turn"}
	ErrGameAlreadyStarted = &Error{Code: CodeGameAlreadyStarted, Message: "the game has already started"}
	ErrGameInProgress     = &Error{Code: CodeGameInProgress, Message: "a round is in progress"}
	ErrRoomNotFound       = &Error{Code: CodeRoomNotFound, Message: "room not found"}
	ErrPlayerNotInRoom    = &Error{Code: CodePlayerNotInRoom, Message: "player is not in this room"}
	ErrTargetNotInRoom    = &Error{Code: CodeTargetNotInRoom, Message: "vote target is not in this room"}
	ErrNameLengthInvalid  = &Error{Code: CodeNameLengthInvalid, Message: fmt.Sprintf("name must be %d-%d characters", MinNameLen, MaxNameLen)}
	ErrNameTaken          = &Error{Code: CodeNameTaken, Message: "name already taken in this room"}
	ErrEmptyDescription   = &Error{Code: CodeEmptyDescription, Message: "description is missing"}
	ErrCannotVoteSelf     = &Error{Code: CodeCannotVoteSelf, Message: "you cannot vote for yourself"}
	ErrAlreadySubmitted   = &Error{Code: CodeAlreadySubmitted, Message: "already submitted"}
	ErrAlreadyConfirmed   = &Error{Code: CodeAlreadyConfirmed, Message: "vote already confirmed"}
	ErrNoSelection        = &Error{Code: CodeNoSelection, Message: "select a player before confirming"}
	ErrNotEnoughPlayers   = &Error{Code: CodeNotEnoughPlayers, Message: "not enough players"}
	ErrSettingsOutOfRange = &Error{Code: CodeSettingsOutOfRange, Message: "setting out of range"}
	ErrEmptyMessage       = &Error{Code: CodeEmptyMessage, Message: "message is empty"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "slow down"}
	ErrBadRequest         = &Error{Code: CodeBadRequest, Message: "bad request"}
	ErrNotInRoom          = &Error{Code: CodeNotInRoom, Message: "join a room first"}
)

func NotEnoughPlayers(required, current int) *Error {
	return &Error{
		Code:     CodeNotEnoughPlayers,
		Message:  ErrNotEnoughPlayers.Message,
		Required: required,
		Current:  current,
	}
}

// AsError converts any error into a *Error suitable for a client payload.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "internal error"}
}
