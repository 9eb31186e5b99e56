package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// Download is the persisted history record of one download session
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	URL          string         `json:"url" gorm:"not null"`
	OutputDir    string         `json:"output_dir"`
	MediaType    MediaType      `json:"media_type" gorm:"not null"`
	Container    string         `json:"container"`
	Quality      string         `json:"quality"`
	Flags        string         `json:"flags,omitempty"` // comma separated
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ExitCode     *int           `json:"exit_code,omitempty"`
	Destination  string         `json:"destination,omitempty"`
	Percent      float64        `json:"percent"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a history record for a request
func NewDownload(req DownloadRequest) *Download {
	flags := make([]string, 0, len(req.Flags))
	for _, f := range req.EnabledFlags() {
		flags = append(flags, string(f))
	}
	return &Download{
		ID:        uuid.New().String(),
		URL:       req.URL,
		OutputDir: req.OutputDir,
		MediaType: req.MediaType,
		Container: req.Container,
		Quality:   req.Quality,
		Flags:     strings.Join(flags, ","),
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// MarkProcessing marks the download as processing
func (d *Download) MarkProcessing() {
	d.Status = StatusProcessing
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkCompleted marks the download as completed
func (d *Download) MarkCompleted() {
	d.Status = StatusCompleted
	d.Percent = 100
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(kind ErrorKind, message string, exitCode *int) {
	d.Status = StatusFailed
	d.ErrorKind = kind
	d.ErrorMessage = message
	d.ExitCode = exitCode
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkCancelled marks the download as cancelled by the user
func (d *Download) MarkCancelled() {
	d.Status = StatusCancelled
	d.ErrorKind = ErrorCancelledByUser
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// ApplyResult records a terminal result on the download
func (d *Download) ApplyResult(result *DownloadResult) {
	switch result.TerminalKind() {
	case EventFinished:
		d.MarkCompleted()
	case EventCancelled:
		d.MarkCancelled()
	default:
		d.MarkFailed(result.ErrorKind, result.Message, result.ExitCode)
	}
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed || d.Status == StatusCancelled
}

// IsProcessing checks if the download is currently processing
func (d *Download) IsProcessing() bool {
	return d.Status == StatusProcessing
}

// ValidateStatus checks if a status is valid
func ValidateStatus(status DownloadStatus) bool {
	switch status {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
