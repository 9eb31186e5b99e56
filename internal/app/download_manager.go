package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
	"github.com/yourusername/flare-go/internal/metrics"
	"github.com/yourusername/flare-go/pkg/logger"
	"go.uber.org/zap"
)

// ActiveDownload is a snapshot of the download currently running
type ActiveDownload struct {
	Download  domain.Download       `json:"download"`
	State     domain.SessionState   `json:"state"`
	LastEvent *domain.ProgressEvent `json:"last_event,omitempty"`
}

type activeDownload struct {
	controller *DownloadController
	download   *domain.Download
	request    domain.DownloadRequest
	processLog *infrastructure.ProcessLog
	started    bool
	finished   chan struct{}
}

// DownloadManager runs at most one download at a time and keeps its history
type DownloadManager struct {
	repo        domain.DownloadRepository
	builder     ArgsBuilder
	newSession  domain.SessionFactory
	parser      domain.LineParser
	notifier    *infrastructure.NotificationService
	hub         *EventHub
	config      *domain.Config
	logger      *zap.Logger
	multiLogger *logger.MultiLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active *activeDownload
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	repo domain.DownloadRepository,
	newSession domain.SessionFactory,
	notifier *infrastructure.NotificationService,
	config *domain.Config,
	logger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *DownloadManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newSession == nil {
		newSession = infrastructure.NewExecSessionFactory()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DownloadManager{
		repo:        repo,
		builder:     infrastructure.NewCommandBuilder(&config.Tool),
		newSession:  newSession,
		parser:      infrastructure.NewTextProgressParser(),
		notifier:    notifier,
		hub:         NewEventHub(),
		config:      config,
		logger:      logger,
		multiLogger: multiLogger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RecoverInterrupted fails history records a previous process left active
func (dm *DownloadManager) RecoverInterrupted() (int64, error) {
	n, err := dm.repo.MarkInterrupted()
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted downloads: %w", err)
	}
	if n > 0 {
		dm.logger.Warn("Marked interrupted downloads as failed", zap.Int64("count", n))
	}
	return n, nil
}

// Submit starts a download. A second submit while one is active returns ErrBusy.
// Validation and launch failures are returned together with the failed record.
func (dm *DownloadManager) Submit(req domain.DownloadRequest) (*domain.Download, error) {
	req = dm.withDefaults(req)

	dm.mu.Lock()
	if dm.active != nil {
		dm.mu.Unlock()
		return nil, domain.ErrBusy
	}

	if dm.config.Download.CreateOutputDir && req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
			dm.mu.Unlock()
			return nil, domain.NewError(domain.ErrorValidation, "cannot create output directory", err)
		}
	}

	download := domain.NewDownload(req)
	if err := dm.repo.Create(download); err != nil {
		dm.mu.Unlock()
		return nil, fmt.Errorf("failed to create download record: %w", err)
	}

	a := &activeDownload{
		download: download,
		request:  req,
		finished: make(chan struct{}),
	}
	if dm.config.Download.LogsDir != "" {
		plog, err := infrastructure.OpenProcessLog(dm.config.Download.LogsDir, time.Now())
		if err != nil {
			dm.logger.Warn("Download output will not be logged", zap.Error(err))
		} else {
			a.processLog = plog
		}
	}

	a.controller = NewDownloadController(download.ID, dm.builder, dm.newSession, dm.parser,
		&dm.config.Tool, dm.logger,
		WithCommandObserver(func(cmdLine string) {
			if a.processLog != nil {
				a.processLog.WriteHeader(download.ID, cmdLine)
			}
		}),
		WithLineObserver(func(line string) { dm.observeLine(a, line) }),
	)
	dm.active = a
	dm.mu.Unlock()

	go dm.track(a)

	dm.logger.Info("Download submitted",
		zap.String("id", download.ID),
		zap.String("url", req.URL),
		zap.String("media_type", string(req.MediaType)))

	if err := a.controller.Submit(dm.ctx, req); err != nil {
		<-a.finished
		return dm.snapshot(a), err
	}
	return dm.snapshot(a), nil
}

func (dm *DownloadManager) withDefaults(req domain.DownloadRequest) domain.DownloadRequest {
	if req.OutputDir == "" {
		req.OutputDir = dm.config.Download.OutputDir
	}
	if req.MediaType == "" {
		req.MediaType = domain.MediaType(dm.config.Download.DefaultType)
	}
	if req.Container == "" {
		req.Container = domain.DefaultContainer(req.MediaType)
	}
	req.Container = strings.ToLower(req.Container)
	if req.Quality == "" {
		req.Quality = dm.config.Download.DefaultQuality
	}
	return req
}

// observeLine runs on the controller goroutine for every raw output line
func (dm *DownloadManager) observeLine(a *activeDownload, line string) {
	if a.processLog != nil {
		a.processLog.WriteLine(line)
	}
	if dest, ok := infrastructure.DestinationOf(line); ok {
		dm.mu.Lock()
		a.download.Destination = dest
		dm.mu.Unlock()
	}
}

// track consumes the controller's events, keeps the record current and republishes them
func (dm *DownloadManager) track(a *activeDownload) {
	for event := range a.controller.Events() {
		switch {
		case event.Kind == domain.EventStarted:
			dm.onStarted(a)
		case event.Kind == domain.EventProgress && event.Percent != nil:
			dm.mu.Lock()
			a.download.Percent = *event.Percent
			dm.mu.Unlock()
		case event.Kind.IsTerminal():
			dm.onTerminal(a, event)
		}
		dm.hub.Publish(event)
	}
}

func (dm *DownloadManager) onStarted(a *activeDownload) {
	dm.mu.Lock()
	a.started = true
	a.download.MarkProcessing()
	record := *a.download
	dm.mu.Unlock()

	if err := dm.repo.Update(&record); err != nil {
		dm.logger.Error("Failed to update download status", zap.String("id", record.ID), zap.Error(err))
	}
	metrics.ActiveDownloads.Inc()
	dm.notifier.NotifyDownloadStarted(a.request)
	dm.multiLogger.LogSessionEvent("Download started",
		zap.String("id", record.ID),
		zap.String("url", record.URL))
}

// onTerminal persists the outcome and frees the slot before the terminal
// event reaches subscribers, so they can submit again right away
func (dm *DownloadManager) onTerminal(a *activeDownload, event domain.ProgressEvent) {
	result := event.Result

	dm.mu.Lock()
	a.download.ApplyResult(result)
	record := *a.download
	dm.mu.Unlock()

	if err := dm.repo.Update(&record); err != nil {
		dm.logger.Error("Failed to update download status", zap.String("id", record.ID), zap.Error(err))
		dm.multiLogger.LogAppError("History write failed", zap.String("id", record.ID), zap.Error(err))
	}

	if a.processLog != nil {
		a.processLog.WriteFooter(result.Success, result.Summary())
		if err := a.processLog.Close(); err != nil {
			dm.logger.Warn("Failed to close download log", zap.Error(err))
		}
	}

	if a.started {
		metrics.ActiveDownloads.Dec()
		metrics.DownloadDuration.Observe(result.Elapsed.Seconds())
	}
	metrics.DownloadSessions.WithLabelValues(string(event.Kind)).Inc()

	dm.notifier.NotifyDownloadFinished(a.request, result)

	fields := []zap.Field{
		zap.String("id", record.ID),
		zap.String("url", record.URL),
		zap.String("result", string(event.Kind)),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.Duration("elapsed", result.Elapsed),
	}
	if result.ExitCode != nil {
		fields = append(fields, zap.Int("exit_code", *result.ExitCode))
	}
	dm.multiLogger.LogSessionEvent(result.Summary(), fields...)
	if !result.Success && result.ErrorKind != domain.ErrorCancelledByUser {
		dm.multiLogger.LogAppError(result.Summary(), fields...)
	}
	dm.logger.Info(result.Summary(), fields...)

	dm.mu.Lock()
	if dm.active == a {
		dm.active = nil
	}
	dm.mu.Unlock()
	close(a.finished)
}

// Cancel cancels the running download
func (dm *DownloadManager) Cancel() error {
	dm.mu.Lock()
	a := dm.active
	dm.mu.Unlock()

	if a == nil {
		return domain.ErrNoActiveDownload
	}
	return a.controller.Cancel()
}

// Current returns the running download, or nil when idle
func (dm *DownloadManager) Current() *ActiveDownload {
	dm.mu.Lock()
	a := dm.active
	dm.mu.Unlock()

	if a == nil {
		return nil
	}
	return &ActiveDownload{
		Download:  *dm.snapshot(a),
		State:     a.controller.State(),
		LastEvent: a.controller.LastEvent(),
	}
}

func (dm *DownloadManager) snapshot(a *activeDownload) *domain.Download {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	record := *a.download
	return &record
}

// Subscribe returns a stream of every download's events
func (dm *DownloadManager) Subscribe() (<-chan domain.ProgressEvent, func()) {
	return dm.hub.Subscribe()
}

// GetDownload retrieves a history record by ID
func (dm *DownloadManager) GetDownload(id string) (*domain.Download, error) {
	return dm.repo.FindByID(id)
}

// ListDownloads lists history records matching filters
func (dm *DownloadManager) ListDownloads(filters map[string]interface{}) ([]*domain.Download, error) {
	return dm.repo.FindAll(filters)
}

// DeleteDownload removes a finished record from history
func (dm *DownloadManager) DeleteDownload(id string) error {
	dm.mu.Lock()
	busy := dm.active != nil && dm.active.download.ID == id
	dm.mu.Unlock()
	if busy {
		return domain.ErrBusy
	}
	return dm.repo.Delete(id)
}

// GetStats returns history statistics
func (dm *DownloadManager) GetStats() (*domain.DownloadStats, error) {
	return dm.repo.GetStats()
}

// Shutdown cancels the running download and waits for its terminal event
func (dm *DownloadManager) Shutdown(ctx context.Context) error {
	dm.mu.Lock()
	a := dm.active
	dm.mu.Unlock()

	dm.cancel()
	if a == nil {
		return nil
	}

	select {
	case <-a.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
