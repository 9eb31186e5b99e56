package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/yourusername/flare-go/internal/app"
	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
	"github.com/yourusername/flare-go/internal/metrics"
	"github.com/yourusername/flare-go/pkg/logger"
)

// runtime holds the wired application services for one command invocation
type runtime struct {
	config      *domain.Config
	log         *zap.Logger
	multiLog    *logger.MultiLogger
	repo        *infrastructure.SQLiteDownloadRepository
	notifier    *infrastructure.NotificationService
	downloadMgr *app.DownloadManager
	updateMgr   *app.UpdateManager
}

func newRuntime() (*runtime, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		MaxSizeMB:  config.Logging.MaxSizeMB,
		MaxBackups: config.Logging.MaxBackups,
		MaxAgeDays: config.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := createDirectories(config); err != nil {
		return nil, err
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize category logs: %w", err)
	}

	repo, err := infrastructure.NewSQLiteDownloadRepository(config.Download.DatabasePath)
	if err != nil {
		multiLog.Close()
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	metrics.Register()

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	downloadMgr := app.NewDownloadManager(repo, infrastructure.NewExecSessionFactory(), notifier, config, log, multiLog)

	updateMgr := app.NewUpdateManager(
		infrastructure.NewUpdateChecker(&config.Update, log),
		infrastructure.NewUpdateApplier(&config.Update, log),
		notifier,
		domain.ParseVersion(domain.CurrentVersion),
		log,
		multiLog,
	)

	return &runtime{
		config:      config,
		log:         log,
		multiLog:    multiLog,
		repo:        repo,
		notifier:    notifier,
		downloadMgr: downloadMgr,
		updateMgr:   updateMgr,
	}, nil
}

func (r *runtime) Close() {
	if err := r.repo.Close(); err != nil {
		r.log.Warn("Failed to close repository", zap.Error(err))
	}
	r.multiLog.Close()
	r.log.Sync()
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.LogsDir,
		config.Update.TempDir,
		config.Update.BackupDir,
	}
	if config.Download.CreateOutputDir {
		dirs = append(dirs, config.Download.OutputDir)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
