// Package errors provides the machine-readable error taxonomy shared by the
// engine and its adapters.
//
// Domain packages return sentinel errors; the engine wraps them into coded
// errors at its boundary so callers (the MCP surface, a chat frontend) can
// branch on a stable Code and show a user-actionable message without parsing
// error strings.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Dice errors
	CodeInvalidExpression Code = "INVALID_EXPRESSION"

	// Session lifecycle errors
	CodeAlreadyActive        Code = "ALREADY_ACTIVE"
	CodeSessionNotActive     Code = "SESSION_NOT_ACTIVE"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeDuplicateParticipant Code = "DUPLICATE_PARTICIPANT"
	CodeJoinPending          Code = "JOIN_PENDING"
	CodeNotSessionDM         Code = "NOT_SESSION_DM"

	// Player errors
	CodePlayerNotFound    Code = "PLAYER_NOT_FOUND"
	CodeInventoryFull     Code = "INVENTORY_FULL"
	CodeCharacterLocked   Code = "CHARACTER_LOCKED"
	CodeInsufficientPoint Code = "INSUFFICIENT_POINTS"

	// Persistence errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeSlotOccupied       Code = "SLOT_OCCUPIED"
	CodeSlotEmpty          Code = "SLOT_EMPTY"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"

	// Turn resolution errors
	CodeTurnResolutionFailed Code = "TURN_RESOLUTION_FAILED"
)

// Message returns the user-facing message for the code.
func (c Code) Message() string {
	switch c {
	case CodeInvalidExpression:
		return "that dice expression is not valid"
	case CodeAlreadyActive:
		return "a game is already running in this group"
	case CodeSessionNotActive:
		return "no active game in this group"
	case CodeInvalidTransition:
		return "the game is not in a state that allows that"
	case CodeDuplicateParticipant:
		return "you already joined this game"
	case CodeJoinPending:
		return "your join request is waiting for approval"
	case CodeNotSessionDM:
		return "only the player who started the game can decide that"
	case CodePlayerNotFound:
		return "you have not joined this game yet"
	case CodeInventoryFull:
		return "your inventory is full"
	case CodeCharacterLocked:
		return "your character sheet is locked"
	case CodeInsufficientPoint:
		return "not enough free attribute points"
	case CodeNotFound:
		return "record not found"
	case CodeSlotOccupied:
		return "that save slot is occupied"
	case CodeSlotEmpty:
		return "that save slot is empty"
	case CodePersistenceFailure:
		return "saving failed, the game continues in memory"
	case CodeTurnResolutionFailed:
		return "the storyteller is unavailable right now"
	default:
		return "something went wrong"
	}
}

// Error couples a Code with an underlying cause.
type Error struct {
	Code  Code
	cause error
}

// New wraps cause with a code. A nil cause produces an error carrying only
// the code's message.
func New(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// Newf wraps a formatted cause with a code.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, cause: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.cause)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// CodeOf extracts the Code from err, or CodeUnknown when err carries none.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeUnknown
}
