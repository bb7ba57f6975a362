package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// NetworkProbe reports the last observed connectivity
type NetworkProbe interface {
	Reachable() bool
}

// Pinger checks that a backing store answers
type Pinger interface {
	Ping() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	network NetworkProbe
	store   Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(network NetworkProbe, store Pinger) *HealthHandler {
	return &HealthHandler{
		network: network,
		store:   store,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Network struct {
		Reachable bool `json:"reachable"`
	} `json:"network"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Network.Reachable = h.network.Reachable()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "storage unavailable: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
