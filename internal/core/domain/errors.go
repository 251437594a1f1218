package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindPermission     ErrorKind = "permission"
	KindState          ErrorKind = "state"
	KindCapacity       ErrorKind = "capacity"
	KindAlreadyJoined  ErrorKind = "already_joined"
	KindNotParticipant ErrorKind = "not_participant"
	KindNotFound       ErrorKind = "not_found"
	KindUpstream       ErrorKind = "upstream"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrValidation     = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrPermission     = &Error{Kind: KindPermission, Message: "permission denied"}
	ErrState          = &Error{Kind: KindState, Message: "operation not allowed in current state"}
	ErrCapacity       = &Error{Kind: KindCapacity, Message: "ride is full"}
	ErrAlreadyJoined  = &Error{Kind: KindAlreadyJoined, Message: "already joined this ride"}
	ErrNotParticipant = &Error{Kind: KindNotParticipant, Message: "not a participant of this ride"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUpstream       = &Error{Kind: KindUpstream, Message: "upstream service failure"}
)

// Error carries a kind for the caller and a user-facing message.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

func newError(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(op, format string, args ...interface{}) error {
	return newError(KindValidation, op, format, args...)
}

func PermissionError(op, format string, args ...interface{}) error {
	return newError(KindPermission, op, format, args...)
}

func StateError(op, format string, args ...interface{}) error {
	return newError(KindState, op, format, args...)
}

func CapacityError(op string, max int) error {
	return newError(KindCapacity, op, "ride is full (%d/%d)", max, max)
}

func AlreadyJoinedError(op string) error {
	return newError(KindAlreadyJoined, op, "already joined this ride")
}

func NotParticipantError(op string) error {
	return newError(KindNotParticipant, op, "not a participant of this ride")
}

func NotFoundError(op, what string) error {
	return newError(KindNotFound, op, "%s not found", what)
}

// UpstreamError wraps a collaborator failure (store, cache, broker, network).
func UpstreamError(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Message: "upstream service failure", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
