package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/flare-go/api/handlers"
	"github.com/yourusername/flare-go/api/middleware"
	"github.com/yourusername/flare-go/internal/domain"
)

// Services are the application services exposed over HTTP
type Services struct {
	Downloads handlers.DownloadService
	Events    handlers.EventSource
	Updates   handlers.UpdateService
	Tool      *domain.ToolConfig
	LogsDir   string
}

// SetupRouter sets up the HTTP router
func SetupRouter(services Services, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(services.Downloads, services.Tool)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(services.Downloads, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/current", downloadHandler.GetCurrent)
			downloads.POST("/current/cancel", downloadHandler.CancelCurrent)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
		}

		eventHandler := handlers.NewEventStreamHandler(services.Events, services.Downloads, log)
		v1.GET("/events", eventHandler.HandleWebSocket)

		updateHandler := handlers.NewUpdateHandler(services.Updates, log)
		update := v1.Group("/update")
		{
			update.GET("/check", updateHandler.Check)
			update.POST("/apply", updateHandler.Apply)
		}

		logHandler := handlers.NewLogHandler(services.LogsDir)
		logStream := handlers.NewLogWebSocketHandler(services.LogsDir, log)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/stream", logStream.HandleWebSocket)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
