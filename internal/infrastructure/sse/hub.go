package sse

import (
	"sync"

	"github.com/stakepot/stakepot/internal/domain/notification"
)

// Hub manages gateway SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*notification.Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*notification.Client),
	}
}

func (h *Hub) Register(client *notification.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
	}
}

func (h *Hub) GetClient(clientID string) *notification.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToAll(message *notification.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		trySend(c, message)
	}
}

func (h *Hub) BroadcastToAccount(accountID string, message *notification.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.AccountID != nil && *c.AccountID == accountID {
			trySend(c, message)
		}
	}
}

func (h *Hub) SendToClient(clientID string, message *notification.Message) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return notification.ErrClientNotFound
	}
	if !trySend(c, message) {
		return notification.ErrChannelFull
	}
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func trySend(c *notification.Client, msg *notification.Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}
