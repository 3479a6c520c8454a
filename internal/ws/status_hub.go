package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// StatusMessage is pushed to every connected UI shell whenever connectivity,
// queue depth or the last submission outcome changes.
type StatusMessage struct {
	Type        string `json:"type"`
	Online      bool   `json:"online"`
	QueueDepth  int64  `json:"queue_depth"`
	Registered  bool   `json:"registered"`
	LastOutcome string `json:"last_outcome,omitempty"`
	Message     string `json:"message,omitempty"`
}

type StatusHub struct {
	register   chan *statusClient
	unregister chan *statusClient
	broadcast  chan []byte
	clients    map[*statusClient]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{
		register:   make(chan *statusClient),
		unregister: make(chan *statusClient),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*statusClient]struct{}),
	}
}

func (h *StatusHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					client.conn.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast fans a status message out to all connected clients. Safe to call
// from any goroutine; drops the message if the hub is saturated rather than
// blocking a submission.
func (h *StatusHub) Broadcast(msg StatusMessage) {
	if h == nil {
		return
	}
	if msg.Type == "" {
		msg.Type = "status"
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

type statusClient struct {
	hub  *StatusHub
	conn *websocket.Conn
	send chan []byte
}

func newStatusClient(hub *StatusHub, conn *websocket.Conn) *statusClient {
	return &statusClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *statusClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *statusClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
