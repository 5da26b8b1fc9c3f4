package core

import "errors"

// Error codes for domain errors surfaced to clients.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidJoin    = "invalid_join"
	ErrCodeMeetingClosed  = "meeting_closed"
	ErrCodeNotInRoom      = "not_in_room"
	ErrCodeRoutingMiss    = "routing_miss"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	ErrInvalidJoin   = errors.New("invalid join")
	ErrMeetingClosed = errors.New("meeting closed")
	ErrNotInRoom     = errors.New("not in room")
	ErrBadRequest    = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
