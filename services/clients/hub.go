package clients

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"mytelmed/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types pushed to portal tabs.
const (
	MessageTypeFocus      = "focus"
	MessageTypeOpenWindow = "open_window"
	MessageTypePong       = "pong"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrNoClients      = errors.New("user has no open clients")
	ErrClientBusy     = errors.New("client send buffer is full")
)

// Message is a command sent to a portal tab.
type Message struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Time int64  `json:"time"`
}

// Hub tracks the portal tabs connected over websocket and implements the
// notification Clients interface on top of them.
type Hub struct {
	// Registered clients by user ID
	clients map[string]map[*Client]bool
	byID    map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mutex  sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		byID:       make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	h.byID[client.ID] = client

	h.logger.Debug("client registered",
		zap.String("clientId", client.ID),
		zap.String("userId", client.UserID),
		zap.Int("userClients", len(h.clients[client.UserID])),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(client)
}

// removeLocked drops the client and closes its send channel. Callers hold the write lock.
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	delete(h.byID, client.ID)
	client.close()
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
	h.logger.Debug("client unregistered", zap.String("clientId", client.ID), zap.String("userId", client.UserID))
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, clients := range h.clients {
		for c := range clients {
			h.removeLocked(c)
		}
	}
}

// MatchAll returns a snapshot of the user's open tabs, focused tabs first.
func (h *Hub) MatchAll(_ context.Context, userID string) ([]models.WindowClient, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var focused, others []models.WindowClient
	for c := range h.clients[userID] {
		wc := c.snapshot()
		if wc.Focused {
			focused = append(focused, wc)
		} else {
			others = append(others, wc)
		}
	}
	return append(focused, others...), nil
}

// Focus asks the tab to bring itself to the front.
func (h *Hub) Focus(_ context.Context, clientID string) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	c, ok := h.byID[clientID]
	if !ok {
		return ErrClientNotFound
	}
	return c.enqueue(Message{Type: MessageTypeFocus})
}

// CanOpenWindow reports whether the user has a tab able to open a new window.
func (h *Hub) CanOpenWindow(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID]) > 0
}

// OpenWindow asks one of the user's tabs, focused ones first, to open url in a new window.
func (h *Hub) OpenWindow(_ context.Context, userID, url string) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var target *Client
	for c := range h.clients[userID] {
		if target == nil || c.isFocused() {
			target = c
		}
	}
	if target == nil {
		return ErrNoClients
	}
	return target.enqueue(Message{Type: MessageTypeOpenWindow, URL: url})
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SetAllowedOrigins restricts websocket upgrades to the portal origins. An empty list allows all.
func SetAllowedOrigins(origins []string) {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	upgrader.CheckOrigin = func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		return allowed[r.Header.Get("Origin")]
	}
}

// ServeWS upgrades the request and registers the tab. initialURL is the page the tab is on.
func (h *Hub) ServeWS(c *gin.Context, userID, initialURL string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, userID, initialURL)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func newClient(h *Hub, conn *websocket.Conn, userID, initialURL string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan Message, 16),
		url:    initialURL,
	}
}

func now() int64 {
	return time.Now().UnixMilli()
}
