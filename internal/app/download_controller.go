package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
	"github.com/yourusername/flare-go/internal/metrics"
	"go.uber.org/zap"
)

const eventBufferSize = 64

// ArgsBuilder turns a request into the tool's argument list
type ArgsBuilder interface {
	Build(req domain.DownloadRequest) ([]string, error)
}

// anomalyDetector is implemented by parsers that can tell a garbled progress line from noise
type anomalyDetector interface {
	IsAnomaly(line string) bool
}

// ControllerOption configures a DownloadController
type ControllerOption func(*DownloadController)

// WithLineObserver receives every raw output line before parsing
func WithLineObserver(fn func(line string)) ControllerOption {
	return func(c *DownloadController) {
		c.lineObserver = fn
	}
}

// WithCommandObserver receives the shell-escaped command line once the process has started
func WithCommandObserver(fn func(cmdLine string)) ControllerOption {
	return func(c *DownloadController) {
		c.commandObserver = fn
	}
}

// DownloadController runs exactly one download through
// Idle -> Starting -> Running -> Finished | Failed | Cancelled.
// Events are delivered in order on Events(); the terminal event is always last
// and the channel is closed after it.
type DownloadController struct {
	id         string
	builder    ArgsBuilder
	newSession domain.SessionFactory
	parser     domain.LineParser
	tool       *domain.ToolConfig
	logger     *zap.Logger

	lineObserver    func(string)
	commandObserver func(string)

	mu              sync.Mutex
	state           domain.SessionState
	session         domain.ProcessSession
	cancelRequested bool
	lastPercent     float64
	lastEvent       *domain.ProgressEvent
	result          *domain.DownloadResult
	startedAt       time.Time

	events chan domain.ProgressEvent
	done   chan struct{}
}

// NewDownloadController creates an idle controller
func NewDownloadController(
	id string,
	builder ArgsBuilder,
	newSession domain.SessionFactory,
	parser domain.LineParser,
	tool *domain.ToolConfig,
	logger *zap.Logger,
	opts ...ControllerOption,
) *DownloadController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tool == nil {
		tool = &domain.ToolConfig{Binary: "yt-dlp"}
	}

	c := &DownloadController{
		id:         id,
		builder:    builder,
		newSession: newSession,
		parser:     parser,
		tool:       tool,
		logger:     logger.With(zap.String("download_id", id)),
		state:      domain.StateIdle,
		events:     make(chan domain.ProgressEvent, eventBufferSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the download id carried by every event
func (c *DownloadController) ID() string {
	return c.id
}

// Submit validates the request and starts the tool. Validation and launch
// failures end the session immediately and are also returned.
func (c *DownloadController) Submit(ctx context.Context, req domain.DownloadRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateIdle {
		return domain.ErrControllerUsed
	}
	c.state = domain.StateStarting
	c.startedAt = time.Now()

	args, err := c.builder.Build(req)
	if err != nil {
		c.endLocked(c.failure(domain.ErrorValidation, err))
		return err
	}

	executable, err := infrastructure.ResolveExecutable(c.tool.Binary, c.tool.BundleDirs)
	if err != nil {
		err = domain.NewError(domain.ErrorLaunchFailure, "download tool not found", err)
		c.endLocked(c.failure(domain.ErrorLaunchFailure, err))
		return err
	}

	session := c.newSession()
	env := infrastructure.BuildEnv(os.Environ(), c.tool.BundleDirs)
	if err := session.Start(executable, args, env, req.OutputDir); err != nil {
		c.endLocked(c.failure(domain.ErrorLaunchFailure, err))
		return err
	}

	cmdLine := infrastructure.ShellEscapeCommand(executable, args...)
	c.session = session
	c.state = domain.StateRunning
	c.logger.Info("Download started", zap.String("command", cmdLine))

	if c.commandObserver != nil {
		c.commandObserver(cmdLine)
	}
	c.events <- c.stampLocked(domain.ProgressEvent{Kind: domain.EventStarted, Message: cmdLine})

	go c.run(ctx, session)
	return nil
}

// run pumps output lines until the process exits, then emits the terminal event
func (c *DownloadController) run(ctx context.Context, session domain.ProcessSession) {
	go func() {
		select {
		case <-ctx.Done():
			c.Cancel()
		case <-c.done:
		}
	}()

	var lastError string
	for line := range session.Lines() {
		if c.lineObserver != nil {
			c.lineObserver(line)
		}
		if infrastructure.IsErrorLine(line) {
			lastError = infrastructure.TruncateLine(line, infrastructure.MaxLogLineLength)
		}

		event, ok := c.parser.Parse(line)
		if !ok {
			if d, isDetector := c.parser.(anomalyDetector); isDetector && d.IsAnomaly(line) {
				metrics.ParseAnomalies.Inc()
				c.logger.Debug("Unparsed progress line",
					zap.String("kind", string(domain.ErrorParseAnomaly)),
					zap.String("line", line))
			}
			continue
		}

		c.mu.Lock()
		event = c.stampLocked(event)
		c.mu.Unlock()
		c.events <- event
	}

	code, err := session.Wait()

	c.mu.Lock()
	var result *domain.DownloadResult
	switch {
	case c.cancelRequested:
		result = &domain.DownloadResult{
			ErrorKind: domain.ErrorCancelledByUser,
			Message:   "cancelled by user",
			Elapsed:   time.Since(c.startedAt),
		}
	case err != nil:
		result = c.failure(domain.ErrorProcessFailure, err)
	case code == 0:
		result = &domain.DownloadResult{
			Success: true,
			Elapsed: time.Since(c.startedAt),
		}
	default:
		message := lastError
		if message == "" {
			message = fmt.Sprintf("exited with code %d", code)
		}
		exitCode := code
		result = &domain.DownloadResult{
			ExitCode:  &exitCode,
			ErrorKind: domain.ErrorProcessFailure,
			Message:   message,
			Elapsed:   time.Since(c.startedAt),
		}
	}
	terminal := c.finishLocked(result)
	c.mu.Unlock()

	c.close(terminal)
}

// Cancel asks the running process to stop. A no-op unless Running; repeated calls are ignored.
func (c *DownloadController) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateRunning || c.cancelRequested {
		return nil
	}
	c.cancelRequested = true
	c.logger.Info("Cancelling download")
	return c.session.Cancel()
}

// Events returns the ordered event stream
func (c *DownloadController) Events() <-chan domain.ProgressEvent {
	return c.events
}

// Done is closed after the terminal event has been emitted
func (c *DownloadController) Done() <-chan struct{} {
	return c.done
}

// State returns the current lifecycle state
func (c *DownloadController) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the terminal result, nil until the session ends
func (c *DownloadController) Result() *domain.DownloadResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// LastEvent returns a copy of the most recent event, nil before the first one
func (c *DownloadController) LastEvent() *domain.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastEvent == nil {
		return nil
	}
	event := *c.lastEvent
	return &event
}

func (c *DownloadController) failure(kind domain.ErrorKind, err error) *domain.DownloadResult {
	message := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
		if de.Err != nil {
			message = fmt.Sprintf("%s: %v", de.Message, de.Err)
		}
	}
	return &domain.DownloadResult{
		ErrorKind: kind,
		Message:   message,
		Elapsed:   time.Since(c.startedAt),
	}
}

// stampLocked fills id and time, clamps percent and remembers the event. Caller holds mu.
func (c *DownloadController) stampLocked(event domain.ProgressEvent) domain.ProgressEvent {
	event.DownloadID = c.id
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	if event.Percent != nil {
		percent := *event.Percent
		if percent < c.lastPercent {
			percent = c.lastPercent
		}
		c.lastPercent = percent
		event.Percent = &percent
	}

	stored := event
	c.lastEvent = &stored
	return event
}

// finishLocked records the result and builds the terminal event. Caller holds mu.
func (c *DownloadController) finishLocked(result *domain.DownloadResult) domain.ProgressEvent {
	switch result.TerminalKind() {
	case domain.EventFinished:
		c.state = domain.StateFinished
	case domain.EventCancelled:
		c.state = domain.StateCancelled
	default:
		c.state = domain.StateFailed
	}
	c.result = result

	c.logger.Info("Download ended",
		zap.String("state", string(c.state)),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.Duration("elapsed", result.Elapsed))

	return c.stampLocked(domain.ProgressEvent{
		Kind:    result.TerminalKind(),
		Message: result.Summary(),
		Result:  result,
	})
}

// endLocked finishes a session that never reached Running. The channel is still
// empty here, so sending under mu cannot block.
func (c *DownloadController) endLocked(result *domain.DownloadResult) {
	c.close(c.finishLocked(result))
}

// close delivers the terminal event and closes the stream
func (c *DownloadController) close(terminal domain.ProgressEvent) {
	c.events <- terminal
	close(c.events)
	close(c.done)
}
