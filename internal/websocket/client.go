package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait or healthy
	// connections get reaped.
	pingPeriod = 50 * time.Second

	// The balance feed is push-only; anything a client sends beyond
	// control frames is ignored, so the read limit stays tiny.
	maxInboundBytes = 512
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	// Cross-origin policy is enforced by the CORS layer in front.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and ties the connection to the owner's
// balance feed until either side drops.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, ownerID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	client := &Client{
		conn: conn,
		send: make(chan []byte, 10),
	}
	hub.Register(ownerID, client)
	go client.writePump(hub, ownerID)
	client.readPump(hub, ownerID)
}

func (c *Client) readPump(hub *Hub, ownerID string) {
	defer func() {
		hub.Unregister(ownerID, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump(hub *Hub, ownerID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.Unregister(ownerID, c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
