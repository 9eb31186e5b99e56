package domain

// ProcessSession owns one invocation of the external tool
type ProcessSession interface {
	// Start spawns the executable; a missing or unspawnable binary is a launch failure
	Start(executable string, args, env []string, workDir string) error

	// Lines streams combined stdout and stderr, closed when output ends
	Lines() <-chan string

	// Cancel requests termination; a no-op once the process has exited
	Cancel() error

	// Wait blocks until exit and returns the exit code. Callable once.
	Wait() (int, error)
}

// SessionFactory creates a fresh session for each download
type SessionFactory func() ProcessSession

// LineParser turns one raw output line into at most one event
type LineParser interface {
	Parse(line string) (ProgressEvent, bool)
}
