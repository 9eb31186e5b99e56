package app

import (
	"context"
	"sync"

	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
	"github.com/yourusername/flare-go/internal/metrics"
	"github.com/yourusername/flare-go/pkg/logger"
	"go.uber.org/zap"
)

// UpdateManager coordinates update checks and applies. Independent of downloads.
type UpdateManager struct {
	source      domain.ReleaseSource
	installer   domain.UpdateInstaller
	notifier    *infrastructure.NotificationService
	current     domain.VersionInfo
	logger      *zap.Logger
	multiLogger *logger.MultiLogger

	applyMu sync.Mutex
	mu      sync.Mutex
	last    *domain.CheckResult
}

// installedVersion is the running version, or the version an apply has installed
// while a restart is pending
func (um *UpdateManager) installedVersion() domain.VersionInfo {
	um.mu.Lock()
	defer um.mu.Unlock()
	return um.current
}

// NewUpdateManager creates a new update manager for the running version
func NewUpdateManager(
	source domain.ReleaseSource,
	installer domain.UpdateInstaller,
	notifier *infrastructure.NotificationService,
	current domain.VersionInfo,
	logger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *UpdateManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateManager{
		source:      source,
		installer:   installer,
		notifier:    notifier,
		current:     current,
		logger:      logger,
		multiLogger: multiLogger,
	}
}

// Check asks the release source for a newer version and caches the outcome
func (um *UpdateManager) Check(ctx context.Context) domain.CheckResult {
	current := um.installedVersion()
	result := um.source.Check(ctx, current)

	switch {
	case result.ErrorKind != domain.ErrorNone:
		metrics.UpdateChecks.WithLabelValues("error").Inc()
		um.logger.Warn("Update check failed",
			zap.String("error_kind", string(result.ErrorKind)),
			zap.String("message", result.Message))
	case result.Available:
		metrics.UpdateChecks.WithLabelValues("available").Inc()
		um.logger.Info("Update available",
			zap.String("current", current.String()),
			zap.String("latest", result.Manifest.LatestVersion.String()))
		um.notifier.NotifyUpdateAvailable(current, result.Manifest.LatestVersion)
	default:
		metrics.UpdateChecks.WithLabelValues("up_to_date").Inc()
		um.logger.Info("Already up to date", zap.String("current", current.String()))
	}

	fields := []zap.Field{
		zap.String("current", current.String()),
		zap.Bool("available", result.Available),
		zap.String("error_kind", string(result.ErrorKind)),
	}
	if result.Manifest != nil {
		fields = append(fields, zap.String("latest", result.Manifest.LatestVersion.String()))
	}
	um.multiLogger.LogUpdateEvent("Update check completed", fields...)

	um.mu.Lock()
	um.last = &result
	um.mu.Unlock()
	return result
}

// CheckOnStartup runs one check in the background when enabled
func (um *UpdateManager) CheckOnStartup(ctx context.Context, enabled bool) {
	if !enabled {
		return
	}
	go um.Check(ctx)
}

// LastCheck returns the cached result of the most recent check
func (um *UpdateManager) LastCheck() *domain.CheckResult {
	um.mu.Lock()
	defer um.mu.Unlock()
	return um.last
}

// Apply installs the latest release. It re-checks when no available update is cached,
// and only one apply may run at a time.
func (um *UpdateManager) Apply(ctx context.Context) (domain.ApplyResult, error) {
	if !um.applyMu.TryLock() {
		return domain.ApplyResult{}, domain.ErrUpdateInProgress
	}
	defer um.applyMu.Unlock()

	check := um.LastCheck()
	if check == nil || !check.Available {
		fresh := um.Check(ctx)
		check = &fresh
	}
	if check.ErrorKind != domain.ErrorNone {
		return domain.ApplyResult{ErrorKind: check.ErrorKind, Message: check.Message}, nil
	}
	if !check.Available || check.Manifest == nil {
		return domain.ApplyResult{}, domain.ErrNoUpdate
	}

	um.logger.Info("Applying update", zap.String("version", check.Manifest.LatestVersion.String()))
	result := um.installer.Apply(ctx, check.Manifest)

	for _, f := range result.Files {
		outcome := "updated"
		switch {
		case f.Updated:
		case f.Restored:
			outcome = "restored"
		default:
			outcome = "failed"
		}
		metrics.UpdateFiles.WithLabelValues(outcome).Inc()
	}

	fields := []zap.Field{
		zap.String("version", check.Manifest.LatestVersion.String()),
		zap.String("error_kind", string(result.ErrorKind)),
		zap.Bool("restart_required", result.RestartRequired),
		zap.Strings("failed_files", result.FailedFiles()),
	}
	um.multiLogger.LogUpdateEvent(result.Summary(), fields...)
	if result.RestartRequired {
		um.mu.Lock()
		um.current = check.Manifest.LatestVersion
		um.mu.Unlock()
	}
	if result.Succeeded() {
		um.logger.Info(result.Summary(), fields...)
		um.mu.Lock()
		um.last = nil
		um.mu.Unlock()
	} else {
		um.logger.Warn(result.Summary(), fields...)
		um.multiLogger.LogAppError(result.Summary(), fields...)
	}

	return result, nil
}
