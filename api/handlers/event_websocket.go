package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yourusername/flare-go/internal/domain"
	"go.uber.org/zap"
)

// EventSource publishes download events to subscribers
type EventSource interface {
	Subscribe() (<-chan domain.ProgressEvent, func())
}

// EventStreamHandler pushes download progress events to WebSocket clients
type EventStreamHandler struct {
	events    EventSource
	downloads DownloadService
	logger    *zap.Logger
}

// NewEventStreamHandler creates a new event stream handler
func NewEventStreamHandler(events EventSource, downloads DownloadService, logger *zap.Logger) *EventStreamHandler {
	return &EventStreamHandler{
		events:    events,
		downloads: downloads,
		logger:    logger,
	}
}

// HandleWebSocket handles GET /api/v1/events. A client joining mid-download first
// receives the latest event so it can draw the current progress.
func (h *EventStreamHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	h.logger.Info("Event stream client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	if current := h.downloads.Current(); current != nil && current.LastEvent != nil {
		if err := writeJSON(conn, current.LastEvent); err != nil {
			return
		}
	}

	streamUntilClosed(conn, events)
}
