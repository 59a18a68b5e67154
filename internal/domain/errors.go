package domain

import (
	"errors"
	"fmt"
)

// Error is a coded domain error. Code is stable for clients; Message is
// human-readable. Errors compare with errors.Is against the sentinels below.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// FieldError pinpoints one invalid request field.
type FieldError struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

// ValidationError carries field-level detail for malformed requests.
// Validation errors are never retried; the request itself is wrong.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s %s", e.Fields[0].Field, e.Fields[0].Detail)
	}
	return fmt.Sprintf("validation failed on %d fields", len(e.Fields))
}

// NewValidationError builds a ValidationError from (field, detail) pairs.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

var (
	// ErrRoomNotFound is returned when a room ID or code resolves to nothing.
	ErrRoomNotFound = &Error{Code: "ROOM_NOT_FOUND", Message: "room not found"}
	// ErrPlayerNotFound is returned when a player ID is absent from the room.
	ErrPlayerNotFound = &Error{Code: "PLAYER_NOT_FOUND", Message: "player not found in room"}
	// ErrNicknameTaken rejects a join whose nickname collides case-insensitively.
	ErrNicknameTaken = &Error{Code: "NICKNAME_TAKEN", Message: "nickname already taken in this room"}
	// ErrInsufficientPermissions rejects host-only actions from non-hosts.
	ErrInsufficientPermissions = &Error{Code: "INSUFFICIENT_PERMISSIONS", Message: "only the host may perform this action"}
	// ErrRoomNotWaiting rejects joins/kicks once the game has started.
	ErrRoomNotWaiting = &Error{Code: "ROOM_NOT_WAITING", Message: "room is no longer accepting this action"}
	// ErrRoomNotActive rejects gameplay actions outside the active phase.
	ErrRoomNotActive = &Error{Code: "ROOM_NOT_ACTIVE", Message: "room is not in an active game"}
	// ErrNoQuestions rejects start while question generation is still pending.
	ErrNoQuestions = &Error{Code: "NO_QUESTIONS_AVAILABLE", Message: "no questions available yet"}
	// ErrNoPlayers rejects start on a room with nobody in it.
	ErrNoPlayers = &Error{Code: "NO_PLAYERS", Message: "cannot start a game with no players"}
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = &Error{Code: "ALREADY_ANSWERED", Message: "answer already recorded for this question"}
	// ErrStaleQuestion rejects a submission for an index the room has moved past.
	ErrStaleQuestion = &Error{Code: "STALE_QUESTION", Message: "submission does not match the current question"}
	// ErrQuestionNotFound indicates an out-of-range question index.
	ErrQuestionNotFound = &Error{Code: "QUESTION_NOT_FOUND", Message: "question not found"}
	// ErrCannotKickHost forbids removing the host, by anyone including themselves.
	ErrCannotKickHost = &Error{Code: "CANNOT_KICK_HOST", Message: "the host cannot be removed from the room"}
	// ErrCodeSpaceExhausted is returned when code allocation hits its retry bound.
	ErrCodeSpaceExhausted = &Error{Code: "CODE_SPACE_EXHAUSTED", Message: "could not allocate a unique room code"}
	// ErrUpstreamUnavailable wraps persistence or generator outages.
	ErrUpstreamUnavailable = &Error{Code: "UPSTREAM_UNAVAILABLE", Message: "upstream collaborator unavailable"}
)

// ErrCodeConflict is an internal signal from the store: a concurrent create
// claimed the same join code first. The creator re-allocates; never user-visible.
var ErrCodeConflict = errors.New("room code already bound to a live room")

// CodeOf extracts the stable code from err, or INTERNAL for unknown errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "VALIDATION_ERROR"
	}
	return "INTERNAL"
}
