package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-floor/hub"
	"github.com/yeremiapane/restaurant-floor/middlewares"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FloorFeedHandler -> websocket endpoint streaming floor events
func FloorFeedHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(middlewares.ContextRole)
		if role == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		h.RegisterClient(ws, role)

		// drain until the client goes away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		h.UnregisterClient(ws)
	}
}
