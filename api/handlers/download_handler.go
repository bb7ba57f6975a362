package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/offline-player-go/internal/app"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	downloader *app.MovieDownloader
	logger     *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloader *app.MovieDownloader, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloader: downloader,
		logger:     logger,
	}
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req domain.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.downloader.ScheduleAssetDownload(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to schedule download", zap.String("title", req.Title), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListDownloads handles GET /api/v1/downloads
// ?completed=true lists finished downloads by title instead of transfer tasks
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	if c.Query("completed") != "true" {
		c.JSON(http.StatusOK, h.downloader.Downloads())
		return
	}

	completed, err := h.downloader.CompletedDownloads()
	if err != nil {
		h.logger.Error("Failed to list completed downloads", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

// PauseDownload handles POST /api/v1/downloads/:title/pause
func (h *DownloadHandler) PauseDownload(c *gin.Context) {
	title := c.Param("title")
	if !h.downloader.Pause(title) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running download for " + title})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download paused"})
}

// ResumeDownload handles POST /api/v1/downloads/:title/resume
func (h *DownloadHandler) ResumeDownload(c *gin.Context) {
	title := c.Param("title")
	if !h.downloader.Resume(title) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no paused download for " + title})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download resumed"})
}

// CancelDownload handles POST /api/v1/downloads/:title/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	title := c.Param("title")
	if !h.downloader.Cancel(title) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no download for " + title})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download cancelled"})
}

// DeleteDownload handles DELETE /api/v1/downloads/:title
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	title := c.Param("title")
	if err := h.downloader.Remove(title); err != nil {
		h.logger.Error("Failed to remove download", zap.String("title", title), zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "download removed"})
}
