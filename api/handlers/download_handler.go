package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/flare-go/internal/app"
	"github.com/yourusername/flare-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadService is the part of app.DownloadManager the HTTP API uses
type DownloadService interface {
	Submit(req domain.DownloadRequest) (*domain.Download, error)
	Cancel() error
	Current() *app.ActiveDownload
	GetDownload(id string) (*domain.Download, error)
	ListDownloads(filters map[string]interface{}) ([]*domain.Download, error)
	DeleteDownload(id string) error
	GetStats() (*domain.DownloadStats, error)
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	downloads DownloadService
	logger    *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloads DownloadService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloads: downloads,
		logger:    logger,
	}
}

// AddDownloadRequest represents a request to start a download
type AddDownloadRequest struct {
	URL       string   `json:"url" binding:"required"`
	OutputDir string   `json:"output_dir,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
	Container string   `json:"container,omitempty"`
	Quality   string   `json:"quality,omitempty"`
	Flags     []string `json:"flags,omitempty"`
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	download, err := h.downloads.Submit(domain.DownloadRequest{
		URL:       req.URL,
		OutputDir: req.OutputDir,
		MediaType: domain.MediaType(req.MediaType),
		Container: req.Container,
		Quality:   req.Quality,
		Flags:     domain.ParseFlags(req.Flags),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case domain.IsKind(err, domain.ErrorValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": domain.ErrorValidation, "download": download})
		case domain.IsKind(err, domain.ErrorLaunchFailure):
			h.logger.Error("Failed to launch download tool", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": domain.ErrorLaunchFailure, "download": download})
		default:
			h.logger.Error("Failed to add download", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, download)
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id := c.Param("id")

	download, err := h.downloads.GetDownload(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, download)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		if !domain.ValidateStatus(domain.DownloadStatus(status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filters["status"] = status
	}
	if mediaType := c.Query("media_type"); mediaType != "" {
		filters["media_type"] = mediaType
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filters["limit"] = n
	}

	downloads, err := h.downloads.ListDownloads(filters)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, downloads)
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloads.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetCurrent handles GET /api/v1/downloads/current
func (h *DownloadHandler) GetCurrent(c *gin.Context) {
	current := h.downloads.Current()
	if current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no download in progress"})
		return
	}

	c.JSON(http.StatusOK, current)
}

// CancelCurrent handles POST /api/v1/downloads/current/cancel
func (h *DownloadHandler) CancelCurrent(c *gin.Context) {
	if err := h.downloads.Cancel(); err != nil {
		if errors.Is(err, domain.ErrNoActiveDownload) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to cancel download", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "cancellation requested"})
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloads.DeleteDownload(id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		case errors.Is(err, domain.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "download is in progress"})
		default:
			h.logger.Error("Failed to delete download", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download deleted"})
}
