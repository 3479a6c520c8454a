package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The agent binds to loopback for a local UI shell.
		return true
	},
}

// StatusHandler upgrades the connection, sends an initial snapshot and joins
// the client to the hub.
func StatusHandler(hub *StatusHub, snapshot func() StatusMessage) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newStatusClient(hub, conn)
		hub.register <- client

		go client.writePump()

		if snapshot != nil {
			msg := snapshot()
			if msg.Type == "" {
				msg.Type = "status"
			}
			if data, err := json.Marshal(msg); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}
		}

		client.readPump()
	}
}
