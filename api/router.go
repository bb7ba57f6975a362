package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/offline-player-go/api/handlers"
	"github.com/yourusername/offline-player-go/api/middleware"
	"github.com/yourusername/offline-player-go/internal/app"
	"github.com/yourusername/offline-player-go/pkg/logger"
)

// SetupRouter sets up the HTTP router over the runtime services
func SetupRouter(
	runtime *app.Runtime,
	health *handlers.HealthHandler,
	logAdapter *logger.LoggerAdapter,
	logsDir string,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(logAdapter))
	router.Use(middleware.Recovery(logAdapter))
	router.Use(middleware.CORS())

	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(runtime.Downloader, logAdapter.Download())
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.AddDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.POST("/:title/pause", downloadHandler.PauseDownload)
			downloads.POST("/:title/resume", downloadHandler.ResumeDownload)
			downloads.POST("/:title/cancel", downloadHandler.CancelDownload)
			downloads.DELETE("/:title", downloadHandler.DeleteDownload)
		}

		playbackHandler := handlers.NewPlaybackHandler(runtime.Playback, logAdapter.Playback())
		playback := v1.Group("/playback")
		{
			playback.POST("", playbackHandler.Play)
			playback.GET("", playbackHandler.ListSessions)
			playback.GET("/:id", playbackHandler.GetSession)
			playback.POST("/:id/events", playbackHandler.PlayerEvent)
			playback.DELETE("/:id", playbackHandler.StopSession)
		}

		eventHandler := handlers.NewEventWebSocketHandler(runtime.Bus, logAdapter.General())
		v1.GET("/events", eventHandler.HandleWebSocket)

		logHandler := handlers.NewLogHandler(logsDir)
		logStream := handlers.NewLogWebSocketHandler(logsDir, logAdapter.General())
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
			logs.GET("/:category/stream", logStream.HandleWebSocket)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
