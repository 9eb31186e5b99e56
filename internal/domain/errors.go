package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the download and update pipelines can report
type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorValidation          ErrorKind = "validation_error"
	ErrorLaunchFailure       ErrorKind = "launch_failure"
	ErrorProcessFailure      ErrorKind = "process_failure"
	ErrorCancelledByUser     ErrorKind = "cancelled_by_user"
	ErrorParseAnomaly        ErrorKind = "parse_anomaly"
	ErrorNetworkFailure      ErrorKind = "network_failure"
	ErrorPartialApplyFailure ErrorKind = "partial_apply_failure"
)

var (
	// ErrBusy is returned when a download is submitted while another one is active
	ErrBusy = errors.New("a download is already in progress")

	// ErrNoActiveDownload is returned when cancelling with nothing running
	ErrNoActiveDownload = errors.New("no download in progress")

	// ErrControllerUsed is returned when a controller is submitted to twice
	ErrControllerUsed = errors.New("download controller has already been used")

	// ErrSessionStarted is returned when a process session is started twice
	ErrSessionStarted = errors.New("process session already started")

	// ErrSessionNotStarted is returned when waiting on a session that never started
	ErrSessionNotStarted = errors.New("process session not started")

	// ErrWaitCalled is returned when Wait is called more than once
	ErrWaitCalled = errors.New("process session already waited on")

	// ErrUpdateInProgress is returned when an update is applied while another apply runs
	ErrUpdateInProgress = errors.New("an update is already being applied")

	// ErrNoUpdate is returned when applying with no newer release available
	ErrNoUpdate = errors.New("no update available")

	// ErrNotFound is returned when a history record does not exist
	ErrNotFound = errors.New("download not found")
)

// Error is a classified failure. Message is a human-readable annex; Kind is the signal.
type Error struct {
	Kind     ErrorKind
	Message  string
	ExitCode *int
	Err      error
}

// NewError creates a classified error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or ErrorNone
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorNone
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
