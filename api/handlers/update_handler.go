package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/flare-go/internal/domain"
	"github.com/yourusername/flare-go/internal/infrastructure"
	"go.uber.org/zap"
)

// UpdateService is the part of app.UpdateManager the HTTP API uses
type UpdateService interface {
	Check(ctx context.Context) domain.CheckResult
	Apply(ctx context.Context) (domain.ApplyResult, error)
}

// UpdateHandler handles self-update requests
type UpdateHandler struct {
	updates UpdateService
	logger  *zap.Logger
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(updates UpdateService, logger *zap.Logger) *UpdateHandler {
	return &UpdateHandler{
		updates: updates,
		logger:  logger,
	}
}

// CheckResponse is a check result with release notes rendered for display
type CheckResponse struct {
	domain.CheckResult
	ReleaseNotesHTML string `json:"release_notes_html,omitempty"`
}

// Check handles GET /api/v1/update/check
func (h *UpdateHandler) Check(c *gin.Context) {
	result := h.updates.Check(c.Request.Context())
	response := CheckResponse{CheckResult: result}

	if result.Manifest != nil && result.Manifest.ReleaseNotes != "" {
		html, err := infrastructure.RenderReleaseNotes(result.Manifest.ReleaseNotes)
		if err != nil {
			h.logger.Warn("Failed to render release notes", zap.Error(err))
		} else {
			response.ReleaseNotesHTML = html
		}
	}

	// A network failure is a normal outcome of a check, not a server error
	c.JSON(http.StatusOK, response)
}

// Apply handles POST /api/v1/update/apply
func (h *UpdateHandler) Apply(c *gin.Context) {
	result, err := h.updates.Apply(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUpdateInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNoUpdate):
			c.JSON(http.StatusOK, gin.H{"message": err.Error()})
		default:
			h.logger.Error("Failed to apply update", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": result.Summary(),
		"result":  result,
	})
}
