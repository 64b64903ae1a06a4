package api

import (
	"github.com/gin-gonic/gin"
)

// Events handles GET /api/events, upgrading to a websocket that streams
// lifecycle events. Authentication already ran in middleware; the hub owns
// the connection from here.
func (h *Handler) Events(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request); err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
	}
}
