package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/live"
	"github.com/telefeed/backend/pkg/logger"
)

type LiveHandler struct {
	feed *live.Feed
}

func NewLiveHandler(feed *live.Feed) *LiveHandler {
	return &LiveHandler{
		feed: feed,
	}
}

// HandleConnection streams enriched messages to the client as the live
// pipeline appends them.
func (h *LiveHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Live WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("Live WebSocket connection closed")
	}()

	feed, cancel := h.feed.Subscribe()
	defer cancel()

	// Drain client frames so close/ping control messages are processed;
	// inbound data is ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-feed:
			if !ok {
				return
			}
			payload := map[string]interface{}{
				"type":    "message",
				"message": msg,
			}
			if err := c.WriteJSON(payload); err != nil {
				logger.Warn("Failed to write live message", zap.Error(err))
				return
			}
		}
	}
}
