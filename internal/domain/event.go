package domain

import (
	"fmt"
	"time"
)

// EventKind is the type of a progress event
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventLogLine   EventKind = "log_line"
	EventFinished  EventKind = "finished"
	EventFailed    EventKind = "failed"
	EventCancelled EventKind = "cancelled"
)

// IsTerminal reports whether the event ends a session
func (k EventKind) IsTerminal() bool {
	return k == EventFinished || k == EventFailed || k == EventCancelled
}

// ProgressEvent is one item of a download's event stream.
// Absent optional fields are nil rather than zero.
type ProgressEvent struct {
	DownloadID string          `json:"download_id,omitempty"`
	Kind       EventKind       `json:"kind"`
	Time       time.Time       `json:"time"`
	Percent    *float64        `json:"percent,omitempty"`
	Speed      string          `json:"speed,omitempty"`
	ETA        *time.Duration  `json:"eta,omitempty"`
	Message    string          `json:"message,omitempty"`
	Result     *DownloadResult `json:"result,omitempty"`
}

// DownloadResult is the terminal snapshot of a session
type DownloadResult struct {
	Success   bool          `json:"success"`
	ExitCode  *int          `json:"exit_code,omitempty"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Summary returns the single human-readable line for a terminal state
func (r *DownloadResult) Summary() string {
	elapsed := r.Elapsed.Round(time.Second)
	switch {
	case r.Success:
		return fmt.Sprintf("Download finished in %s", elapsed)
	case r.ErrorKind == ErrorCancelledByUser:
		return fmt.Sprintf("Download cancelled after %s", elapsed)
	case r.ErrorKind == ErrorValidation:
		return fmt.Sprintf("Invalid download request: %s", r.Message)
	case r.ErrorKind == ErrorLaunchFailure:
		return fmt.Sprintf("Could not start the download tool, check that it is installed: %s", r.Message)
	case r.ExitCode != nil:
		if r.Message != "" {
			return fmt.Sprintf("Download failed (exit code %d): %s", *r.ExitCode, r.Message)
		}
		return fmt.Sprintf("Download failed (exit code %d)", *r.ExitCode)
	default:
		return fmt.Sprintf("Download failed: %s", r.Message)
	}
}

// TerminalKind returns the event kind matching the result
func (r *DownloadResult) TerminalKind() EventKind {
	switch {
	case r.Success:
		return EventFinished
	case r.ErrorKind == ErrorCancelledByUser:
		return EventCancelled
	default:
		return EventFailed
	}
}

// SessionState is the lifecycle state of a download controller
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateStarting  SessionState = "starting"
	StateRunning   SessionState = "running"
	StateFinished  SessionState = "finished"
	StateFailed    SessionState = "failed"
	StateCancelled SessionState = "cancelled"
)

// IsTerminal reports whether no further transitions are possible
func (s SessionState) IsTerminal() bool {
	return s == StateFinished || s == StateFailed || s == StateCancelled
}

// IsActive reports whether a process is being started or is running
func (s SessionState) IsActive() bool {
	return s == StateStarting || s == StateRunning
}
