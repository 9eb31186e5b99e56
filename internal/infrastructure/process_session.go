package infrastructure

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/yourusername/flare-go/internal/domain"
)

const maxLineSize = 1024 * 1024

// ExecSession runs the external tool as a child process. One session, one process.
type ExecSession struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	reader  *os.File
	lines   chan string
	started bool
	exited  bool
	waited  bool
}

// NewExecSession creates an unstarted session
func NewExecSession() *ExecSession {
	return &ExecSession{lines: make(chan string, 64)}
}

// NewExecSessionFactory returns a factory producing fresh sessions
func NewExecSessionFactory() domain.SessionFactory {
	return func() domain.ProcessSession {
		return NewExecSession()
	}
}

// Start spawns the executable with stdout and stderr merged into one pipe
func (s *ExecSession) Start(executable string, args, env []string, workDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return domain.ErrSessionStarted
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		return domain.NewError(domain.ErrorLaunchFailure, fmt.Sprintf("%s not found", executable), err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return domain.NewError(domain.ErrorLaunchFailure, "failed to create output pipe", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Env = env
	cmd.Dir = workDir
	cmd.Stdin = nil
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return domain.NewError(domain.ErrorLaunchFailure, fmt.Sprintf("failed to start %s", executable), err)
	}
	// The child holds its own copy; closing ours lets the reader see EOF on exit.
	pw.Close()

	s.cmd = cmd
	s.reader = pr
	s.started = true

	go s.readLines()
	return nil
}

func (s *ExecSession) readLines() {
	defer close(s.lines)

	splitter := &lineSplitter{max: maxLineSize}
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(splitter.split)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
	if scanner.Err() != nil {
		// Keep the pipe drained so the child can still exit.
		io.Copy(io.Discard, s.reader)
	}
}

// lineSplitter wraps scanLinesCR and cuts lines longer than max, dropping the
// remainder up to the next line break
type lineSplitter struct {
	max        int
	discarding bool
}

func (ls *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if ls.discarding {
		i := bytes.IndexAny(data, "\r\n")
		switch {
		case i < 0:
			if atEOF {
				ls.discarding = false
			}
			return len(data), nil, nil
		case data[i] == '\r' && i+1 == len(data) && !atEOF:
			if i == 0 {
				return 0, nil, nil
			}
			return i, nil, nil
		case data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n':
			ls.discarding = false
			return i + 2, nil, nil
		default:
			ls.discarding = false
			return i + 1, nil, nil
		}
	}

	advance, token, err := scanLinesCR(data, atEOF)
	if advance == 0 && token == nil && err == nil && len(data) >= ls.max {
		ls.discarding = true
		return len(data), bytes.TrimRight(data[:ls.max], "\r"), nil
	}
	return advance, token, err
}

// Lines returns the combined output, one line at a time
func (s *ExecSession) Lines() <-chan string {
	return s.lines
}

// Cancel asks the process group to terminate
func (s *ExecSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.exited || s.cmd.Process == nil {
		return nil
	}

	err := terminateProcess(s.cmd.Process)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to terminate process: %w", err)
	}
	return nil
}

// Wait blocks until the process exits and discards any output not yet read.
// -1 means it was killed by a signal.
func (s *ExecSession) Wait() (int, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return -1, domain.ErrSessionNotStarted
	}
	if s.waited {
		s.mu.Unlock()
		return -1, domain.ErrWaitCalled
	}
	s.waited = true
	cmd := s.cmd
	s.mu.Unlock()

	// Drain output before reaping so no line is lost.
	for range s.lines {
	}

	err := cmd.Wait()
	s.reader.Close()

	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to wait for process: %w", err)
}

// scanLinesCR splits on \n, \r\n or a bare \r, which the tool uses to redraw progress
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
