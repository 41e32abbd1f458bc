package clients

import (
	"encoding/json"
	"sync"
	"time"

	"mytelmed/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// Messages a tab reports about itself.
const (
	ClientMessageNavigate   = "navigate"
	ClientMessageVisibility = "visibility"
	ClientMessagePing       = "ping"
)

// ClientMessage represents incoming messages from portal tabs
type ClientMessage struct {
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
	Focused bool   `json:"focused,omitempty"`
}

// Client is one connected portal tab.
type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan Message

	mu      sync.RWMutex
	url     string
	focused bool
	closed  bool
}

func (c *Client) snapshot() models.WindowClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.WindowClient{ID: c.ID, UserID: c.UserID, URL: c.url, Focused: c.focused}
}

func (c *Client) isFocused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.focused
}

// enqueue never blocks; a tab that stopped reading is reported busy.
func (c *Client) enqueue(m Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientNotFound
	}
	select {
	case c.send <- m:
		return nil
	default:
		return ErrClientBusy
	}
}

// close shuts the send channel once; later enqueues report ErrClientNotFound.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) handleClientMessage(m ClientMessage) {
	switch m.Type {
	case ClientMessageNavigate:
		c.mu.Lock()
		c.url = m.URL
		c.mu.Unlock()
	case ClientMessageVisibility:
		c.mu.Lock()
		c.focused = m.Focused
		c.mu.Unlock()
	case ClientMessagePing:
		if err := c.enqueue(Message{Type: MessageTypePong}); err != nil {
			c.hub.logger.Debug("pong dropped", zap.String("clientId", c.ID), zap.Error(err))
		}
	default:
		c.hub.logger.Debug("unknown client message type", zap.String("type", m.Type))
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", zap.String("clientId", c.ID), zap.Error(err))
			}
			return
		}

		var m ClientMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			c.hub.logger.Debug("malformed client message", zap.String("clientId", c.ID), zap.Error(err))
			continue
		}
		c.handleClientMessage(m)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			m.Time = now()
			if err := c.conn.WriteJSON(m); err != nil {
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
