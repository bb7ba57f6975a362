package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/offline-player-go/internal/app"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// PlaybackHandler handles playback session requests
type PlaybackHandler struct {
	controller *app.PlaybackController
	logger     *zap.Logger
}

// NewPlaybackHandler creates a new playback handler
func NewPlaybackHandler(controller *app.PlaybackController, logger *zap.Logger) *PlaybackHandler {
	return &PlaybackHandler{
		controller: controller,
		logger:     logger,
	}
}

// Play handles POST /api/v1/playback
func (h *PlaybackHandler) Play(c *gin.Context) {
	var req domain.PlaybackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.controller.Play(req)
	if err != nil {
		h.logger.Error("Failed to start playback", zap.String("title", req.Title), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, state)
}

// ListSessions handles GET /api/v1/playback
func (h *PlaybackHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.List())
}

// GetSession handles GET /api/v1/playback/:id
func (h *PlaybackHandler) GetSession(c *gin.Context) {
	state, err := h.controller.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// PlayerEvent handles POST /api/v1/playback/:id/events
func (h *PlaybackHandler) PlayerEvent(c *gin.Context) {
	var event domain.PlayerEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := h.controller.HandleEvent(id, event); err != nil {
		respondError(c, err)
		return
	}

	state, err := h.controller.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// StopSession handles DELETE /api/v1/playback/:id
func (h *PlaybackHandler) StopSession(c *gin.Context) {
	if err := h.controller.Stop(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "playback stopped"})
}
