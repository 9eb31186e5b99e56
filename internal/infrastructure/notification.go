package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/flare-go/internal/domain"
	"go.uber.org/zap"
)

const notificationURLLength = 40

// commandRunner runs a notifier binary; replaced in tests
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService sends desktop notifications for download and update events
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if n == nil || !n.config.Enabled {
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %s with title %s`, appleScriptQuote(message), appleScriptQuote(title))
		if n.config.Sound {
			script += ` sound name "default"`
		}
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyDownloadStarted sends notification when download starts
func (n *NotificationService) NotifyDownloadStarted(req domain.DownloadRequest) {
	n.Send("Download Started", fmt.Sprintf("%s (%s)", TruncateLine(req.URL, notificationURLLength), req.MediaType))
}

// NotifyDownloadFinished sends the terminal summary of a download
func (n *NotificationService) NotifyDownloadFinished(req domain.DownloadRequest, result *domain.DownloadResult) {
	title := "Download Completed"
	switch result.TerminalKind() {
	case domain.EventCancelled:
		title = "Download Cancelled"
	case domain.EventFailed:
		title = "Download Failed"
	}
	n.Send(title, fmt.Sprintf("%s\n%s", TruncateLine(req.URL, notificationURLLength), result.Summary()))
}

// NotifyUpdateAvailable announces a newer release
func (n *NotificationService) NotifyUpdateAvailable(current, latest domain.VersionInfo) {
	n.Send("Update Available", fmt.Sprintf("Version %s is available (current %s)", latest, current))
}

// appleScriptQuote renders s as an AppleScript string literal
func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
