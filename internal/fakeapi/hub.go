package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types pushed over /ws.
const (
	EventNewMessage = "new_message"
	EventMatch      = "match"
	EventUnmatch    = "unmatch"
)

// Event is the websocket envelope.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections, one per user.
type Hub struct {
	mu          sync.RWMutex
	connections map[int64]*wsClient
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{connections: make(map[int64]*wsClient)}
}

// Register registers a connection for a user, closing any previous one.
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}
	h.connections[userID] = &wsClient{conn: conn}
	log.Info().Int64("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes the connection for a user if it is still conn.
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[userID]; exists && c.conn == conn {
		c.conn.Close()
		delete(h.connections, userID)
		log.Info().Int64("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// CloseAll drops every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.connections {
		c.conn.Close()
		delete(h.connections, id)
	}
}

// IsOnline checks if a user has a live connection.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// Publish sends ev to userID when connected. Offline users are skipped.
func (h *Hub) Publish(userID int64, ev Event) {
	if err := h.send(userID, ev); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Str("type", ev.Type).Msg("Event not delivered")
	}
}

func (h *Hub) send(userID int64, ev Event) error {
	h.mu.RLock()
	c, exists := h.connections[userID]
	h.mu.RUnlock()
	if !exists {
		return fmt.Errorf("user %d is not connected", userID)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.write(data); err != nil {
		h.Unregister(userID, c.conn)
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// handleWebSocket handles GET /ws?token=...
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}
	userID, err := s.ValidateToken(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	s.hub.Register(userID, conn)
	defer s.hub.Unregister(userID, conn)

	// Clients never send anything meaningful; reading drives close detection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Int64("user_id", userID).Msg("WebSocket error")
			}
			return
		}
	}
}
