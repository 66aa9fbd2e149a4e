package client

import "errors"

// Errors returned by client operations. Every failure is one of the kinds
// below, so callers can tell a transport problem from a service-side
// rejection instead of checking for an empty token.
var (
	// ErrPollTimeout - the configured attempt limit was reached while the
	// task was still processing.
	ErrPollTimeout = errors.New("poll attempt limit reached before task completed")
	// ErrEmptyTaskID - an operation was called with an empty task id.
	ErrEmptyTaskID = errors.New("task id is empty")
)

// Error codes the service is known to return inside errorCode fields.
const (
	CodeKeyDenied         = "ERROR_KEY_DENIED"
	CodeNoSuchTask        = "ERROR_NO_SUCH_TASK"
	CodeCaptchaUnsolvable = "ERROR_CAPTCHA_UNSOLVABLE"
	CodeTaskExpired       = "ERROR_TASK_EXPIRED"
	CodeBadRequest        = "ERROR_BAD_REQUEST"
)

// TransportError means the HTTP call itself failed (network, DNS, TLS,
// or reading the response body). No well-formed answer was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError means the service answered but the body could not
// be interpreted: invalid JSON, or a "ready" result with no solution token.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string { return "malformed response: " + e.Err.Error() }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// RemoteError is a well-formed response in which the service reported a
// failure: a non-zero errorId on task creation, or a terminal non-ready
// status while polling.
type RemoteError struct {
	Code string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "service reported an error"
	}
	return "service reported an error: " + e.Code
}
