package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
)

// fakeSession replays scripted lines and exits with a fixed code.
// When holdOpen is set it keeps the output open until cancelled.
type fakeSession struct {
	lines    []string
	exitCode int
	startErr error
	holdOpen bool

	mu        sync.Mutex
	out       chan string
	cancelled chan struct{}
	cancelN   int
	args      []string
	workDir   string
}

func newFakeSession(lines []string, exitCode int) *fakeSession {
	return &fakeSession{
		lines:     lines,
		exitCode:  exitCode,
		out:       make(chan string),
		cancelled: make(chan struct{}),
	}
}

func (s *fakeSession) Start(executable string, args, env []string, workDir string) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.args = args
	s.workDir = workDir
	go func() {
		defer close(s.out)
		for _, line := range s.lines {
			select {
			case s.out <- line:
			case <-s.cancelled:
				return
			}
		}
		if s.holdOpen {
			<-s.cancelled
		}
	}()
	return nil
}

func (s *fakeSession) Lines() <-chan string { return s.out }

func (s *fakeSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelN++
	if s.cancelN == 1 {
		close(s.cancelled)
	}
	return nil
}

func (s *fakeSession) Wait() (int, error) {
	for range s.out {
	}
	select {
	case <-s.cancelled:
		return -1, nil
	default:
		return s.exitCode, nil
	}
}

func (s *fakeSession) cancelCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelN
}

func testToolConfig(t *testing.T) *domain.ToolConfig {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return &domain.ToolConfig{Binary: exe}
}

func validRequest(t *testing.T) domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:       "https://example.com/v",
		OutputDir: t.TempDir(),
		MediaType: domain.MediaVideo,
		Container: "mp4",
		Quality:   "720p",
	}
}

func newTestController(t *testing.T, session *fakeSession, opts ...ControllerOption) *DownloadController {
	tool := testToolConfig(t)
	return NewDownloadController("dl-1",
		infrastructure.NewCommandBuilder(tool),
		func() domain.ProcessSession { return session },
		infrastructure.NewTextProgressParser(),
		tool, nil, opts...)
}

func collect(t *testing.T, c *DownloadController) []domain.ProgressEvent {
	t.Helper()
	var events []domain.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}
}

func assertSingleTerminalLast(t *testing.T, events []domain.ProgressEvent) {
	t.Helper()
	require.NotEmpty(t, events)
	for i, e := range events {
		if i < len(events)-1 {
			assert.False(t, e.Kind.IsTerminal(), "terminal event at position %d", i)
		}
	}
	assert.True(t, events[len(events)-1].Kind.IsTerminal())
}

func TestDownloadController_Finished(t *testing.T) {
	session := newFakeSession([]string{
		"[download] Destination: /tmp/clip.mp4",
		"[download]  23.5% of 10MiB at 1.2MiB/s ETA 00:07",
		"[download] 100% of 10MiB",
	}, 0)

	var observed []string
	var command string
	c := newTestController(t, session,
		WithLineObserver(func(line string) { observed = append(observed, line) }),
		WithCommandObserver(func(cmdLine string) { command = cmdLine }))

	req := validRequest(t)
	require.NoError(t, c.Submit(context.Background(), req))
	events := collect(t, c)

	assertSingleTerminalLast(t, events)
	assert.Equal(t, domain.EventStarted, events[0].Kind)
	assert.Equal(t, command, events[0].Message)
	assert.Contains(t, command, "height<=720")

	assert.Equal(t, domain.EventLogLine, events[1].Kind)
	assert.Equal(t, domain.EventProgress, events[2].Kind)
	assert.Equal(t, 23.5, *events[2].Percent)
	assert.Equal(t, "1.2MiB/s", events[2].Speed)
	assert.Equal(t, 7*time.Second, *events[2].ETA)

	last := events[len(events)-1]
	assert.Equal(t, domain.EventFinished, last.Kind)
	require.NotNil(t, last.Result)
	assert.True(t, last.Result.Success)

	for _, e := range events {
		assert.Equal(t, "dl-1", e.DownloadID)
	}
	assert.Len(t, observed, 3)
	assert.Equal(t, req.OutputDir, session.workDir)
	assert.Equal(t, domain.StateFinished, c.State())
	assert.Equal(t, last.Kind, c.LastEvent().Kind)
}

func TestDownloadController_ClampsPercent(t *testing.T) {
	session := newFakeSession([]string{
		"10.0%", "40.0%", "25.0%", "garbage", "60.0%", "5%",
	}, 0)
	c := newTestController(t, session)

	require.NoError(t, c.Submit(context.Background(), validRequest(t)))
	events := collect(t, c)

	var percents []float64
	for _, e := range events {
		if e.Percent != nil {
			percents = append(percents, *e.Percent)
		}
	}
	assert.Equal(t, []float64{10, 40, 40, 60, 60}, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
}

func TestDownloadController_ProcessFailureCarriesErrorLine(t *testing.T) {
	session := newFakeSession([]string{
		"[download]  5.0% of 10MiB",
		"ERROR: Unsupported URL: https://example.com/v",
	}, 1)
	c := newTestController(t, session)

	require.NoError(t, c.Submit(context.Background(), validRequest(t)))
	events := collect(t, c)
	assertSingleTerminalLast(t, events)

	result := c.Result()
	require.NotNil(t, result)
	assert.Equal(t, domain.EventFailed, events[len(events)-1].Kind)
	assert.Equal(t, domain.ErrorProcessFailure, result.ErrorKind)
	require.NotNil(t, result.ExitCode)
	assert.Equal(t, 1, *result.ExitCode)
	assert.Contains(t, result.Message, "Unsupported URL")
	assert.Equal(t, domain.StateFailed, c.State())
}

func TestDownloadController_ExitCodeWithoutErrorLine(t *testing.T) {
	c := newTestController(t, newFakeSession(nil, 2))

	require.NoError(t, c.Submit(context.Background(), validRequest(t)))
	collect(t, c)
	assert.Equal(t, "exited with code 2", c.Result().Message)
}

func TestDownloadController_ValidationFailure(t *testing.T) {
	session := newFakeSession(nil, 0)
	c := newTestController(t, session)

	req := validRequest(t)
	req.URL = "example.com/no-scheme"
	err := c.Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorValidation))

	events := collect(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventFailed, events[0].Kind)
	assert.Equal(t, domain.ErrorValidation, events[0].Result.ErrorKind)
	assert.Nil(t, session.args, "no process for an invalid request")
	assert.Equal(t, domain.StateFailed, c.State())
}

func TestDownloadController_LaunchFailure(t *testing.T) {
	t.Run("tool not found", func(t *testing.T) {
		tool := &domain.ToolConfig{Binary: "/nonexistent/yt-dlp"}
		c := NewDownloadController("dl-2", infrastructure.NewCommandBuilder(tool),
			func() domain.ProcessSession { return newFakeSession(nil, 0) },
			infrastructure.NewTextProgressParser(), tool, nil)

		err := c.Submit(context.Background(), validRequest(t))
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.ErrorLaunchFailure))

		events := collect(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, domain.ErrorLaunchFailure, events[0].Result.ErrorKind)
		assert.Contains(t, events[0].Message, "check that it is installed")
	})

	t.Run("spawn fails", func(t *testing.T) {
		session := newFakeSession(nil, 0)
		session.startErr = domain.NewError(domain.ErrorLaunchFailure, "failed to start", errors.New("exec format error"))
		c := newTestController(t, session)

		err := c.Submit(context.Background(), validRequest(t))
		require.Error(t, err)

		events := collect(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, domain.ErrorLaunchFailure, c.Result().ErrorKind)
		assert.Contains(t, c.Result().Message, "exec format error")
	})
}

func TestDownloadController_Cancel(t *testing.T) {
	session := newFakeSession([]string{
		"[download]  10.0% of 10MiB",
		"[download]  20.0% of 10MiB",
	}, 0)
	session.holdOpen = true
	c := newTestController(t, session)

	require.NoError(t, c.Submit(context.Background(), validRequest(t)))

	var events []domain.ProgressEvent
	for e := range c.Events() {
		events = append(events, e)
		if e.Percent != nil && *e.Percent == 20 {
			require.NoError(t, c.Cancel())
			require.NoError(t, c.Cancel())
		}
	}

	assertSingleTerminalLast(t, events)
	last := events[len(events)-1]
	assert.Equal(t, domain.EventCancelled, last.Kind)
	assert.Nil(t, last.Result.ExitCode)
	assert.Equal(t, domain.ErrorCancelledByUser, last.Result.ErrorKind)
	assert.Equal(t, domain.StateCancelled, c.State())
	assert.Equal(t, 1, session.cancelCalls())

	// Cancelling a finished controller is a no-op
	assert.NoError(t, c.Cancel())
}

func TestDownloadController_ContextCancels(t *testing.T) {
	session := newFakeSession(nil, 0)
	session.holdOpen = true
	c := newTestController(t, session)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Submit(ctx, validRequest(t)))
	cancel()

	events := collect(t, c)
	assert.Equal(t, domain.EventCancelled, events[len(events)-1].Kind)
}

func TestDownloadController_NotReusable(t *testing.T) {
	c := newTestController(t, newFakeSession(nil, 0))

	require.NoError(t, c.Submit(context.Background(), validRequest(t)))
	collect(t, c)

	err := c.Submit(context.Background(), validRequest(t))
	assert.ErrorIs(t, err, domain.ErrControllerUsed)
}

func TestDownloadController_CancelBeforeSubmitIsNoop(t *testing.T) {
	c := newTestController(t, newFakeSession(nil, 0))
	assert.NoError(t, c.Cancel())
	assert.Equal(t, domain.StateIdle, c.State())
	assert.Nil(t, c.LastEvent())
	assert.Nil(t, c.Result())
}
