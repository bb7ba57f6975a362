package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/offline-player-go/internal/app"
	"github.com/yourusername/offline-player-go/internal/domain"
	"go.uber.org/zap"
)

// EventWebSocketHandler streams event bus notifications as JSON messages
type EventWebSocketHandler struct {
	bus    *app.EventBus
	logger *zap.Logger
}

// NewEventWebSocketHandler creates a new event stream handler
func NewEventWebSocketHandler(bus *app.EventBus, logger *zap.Logger) *EventWebSocketHandler {
	return &EventWebSocketHandler{
		bus:    bus,
		logger: logger,
	}
}

// HandleWebSocket handles GET /api/v1/events. ?kind= may be repeated to filter.
func (h *EventWebSocketHandler) HandleWebSocket(c *gin.Context) {
	kinds := make(map[domain.EventKind]bool)
	for _, kind := range c.QueryArray("kind") {
		kinds[domain.EventKind(kind)] = true
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.logger.Info("Event stream client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	done := readUntilClosed(conn)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if len(kinds) > 0 && !kinds[event.Kind] {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("Failed to send event", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
