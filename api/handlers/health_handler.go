package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	downloads DownloadService
	tool      *domain.ToolConfig
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(downloads DownloadService, tool *domain.ToolConfig) *HealthHandler {
	return &HealthHandler{
		downloads: downloads,
		tool:      tool,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Downloading bool   `json:"downloading"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		Version:     domain.CurrentVersion,
		Downloading: h.downloads.Current() != nil,
	})
}

// Ready handles GET /ready. Ready means the download tool can be found.
func (h *HealthHandler) Ready(c *gin.Context) {
	path, err := infrastructure.ResolveExecutable(h.tool.Binary, h.tool.BundleDirs)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "tool": path})
}
