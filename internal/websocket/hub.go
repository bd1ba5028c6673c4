package websocket

import (
	"encoding/json"
	"sync"
)

type BalanceUpdate struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// Hub fans wallet balance updates out to the owner's connected clients.
// Purely advisory; transfer safety never depends on what was pushed here.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(ownerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		h.clients[ownerID] = make(map[*Client]struct{})
	}
	h.clients[ownerID][client] = struct{}{}
}

func (h *Hub) Unregister(ownerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		return
	}
	delete(h.clients[ownerID], client)
	if len(h.clients[ownerID]) == 0 {
		delete(h.clients, ownerID)
	}
}

func (h *Hub) BroadcastBalance(ownerID string, update BalanceUpdate) {
	payload, _ := json.Marshal(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[ownerID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
