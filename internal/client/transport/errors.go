package transport

import (
	"context"
	"errors"
	"fmt"
)

// User-facing messages. Everything the engine returns carries exactly one of
// these or a message extracted from the backend's error body.
const (
	MsgSessionExpired = "Session expired. Please login again."
	MsgTimeout        = "Request timed out. Please check your internet connection and try again."
	MsgNetwork        = "Network error. Please check your internet connection and try again."
	MsgUnexpected     = "Unexpected response from server."
	MsgCanceled       = "Request was cancelled."
	MsgInvalidRequest = "The request could not be prepared. Please try again."
	MsgGeneric        = "Something went wrong. Please try again."
)

var (
	// ErrUnauthorized matches any *Error produced by a 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnavailable matches any *Error whose outcome is a network failure.
	ErrUnavailable = errors.New("server unavailable")
	// ErrCanceled matches errors caused by the caller's context ending.
	ErrCanceled = errors.New("request canceled")
)

// Error is the single error shape returned by Engine.Execute.
//
// Error() returns the user-facing message; Reason keeps the technical detail
// for logs.
type Error struct {
	Outcome   Outcome
	Status    int
	Message   string
	Reason    string
	Retryable bool
	Attempts  int
	Err       error
}

func newError(o Outcome, status int, msg string, cause error) *Error {
	e := &Error{Outcome: o, Status: status, Message: msg, Retryable: o.Retryable(), Err: cause}
	if cause != nil {
		e.Reason = cause.Error()
	}
	return e
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Outcome == OutcomeHTTPStatus && e.Status == 401
	case ErrUnavailable:
		return e.Outcome.Retryable()
	case ErrCanceled:
		return e.Outcome == OutcomeCanceled
	}
	return false
}

// String is the diagnostic form used in logs.
func (e *Error) String() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d, attempts %d): %s", e.Outcome, e.Status, e.Attempts, e.Message)
	}
	return fmt.Sprintf("%s (attempts %d): %s", e.Outcome, e.Attempts, e.Reason)
}

// UserMessage turns any error into the one string the UI may show.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return MsgCanceled
	}
	return MsgGeneric
}
