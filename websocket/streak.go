package websocket

import (
	"sync"

	"readhub/models"
	"readhub/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StreakClient represents a client connected for streak updates
type StreakClient struct {
	Conn    *websocket.Conn
	UserID  string
	writeMu sync.Mutex
}

// SafeWriteJSON safely writes JSON data to the client's connection
func (sc *StreakClient) SafeWriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteJSON(v)
}

// Hub broadcasts streak events to all connected clients
type Hub struct {
	mu      sync.RWMutex
	clients map[*StreakClient]bool
}

var streakHub = &Hub{clients: make(map[*StreakClient]bool)}

// GetHub returns the shared streak event hub
func GetHub() *Hub {
	return streakHub
}

// Register adds a client to the hub
func (h *Hub) Register(client *StreakClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	utils.Logger.Info("streak_client_registered", zap.Int("clients", len(h.clients)))
}

// Unregister removes a client and closes its connection
func (h *Hub) Unregister(client *StreakClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Conn.Close()
	}
	utils.Logger.Info("streak_client_unregistered", zap.Int("clients", len(h.clients)))
}

// Publish broadcasts a streak event to every connected client; it
// satisfies the engine's EventPublisher interface.
func (h *Hub) Publish(event models.StreakEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if err := client.SafeWriteJSON(event); err != nil {
			utils.Logger.Warn("streak_event_write_failed", zap.Error(err))
			go h.Unregister(client)
		}
	}
}
