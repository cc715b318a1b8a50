package handlers

import (
	"sync"

	"go.uber.org/zap"
)

// Hub fans event changes out to websocket subscribers. Clients subscribed to
// event 0 receive every event's messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*WSClient]bool
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[int64]map[*WSClient]bool),
		log:     log,
	}
}

func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.EventID] == nil {
		h.clients[client.EventID] = make(map[*WSClient]bool)
	}
	h.clients[client.EventID][client] = true
}

func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.EventID] != nil {
		delete(h.clients[client.EventID], client)
		if len(h.clients[client.EventID]) == 0 {
			delete(h.clients, client.EventID)
		}
	}
}

func (h *Hub) SendToEvent(eventID int64, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[eventID] {
		client.Send(payload)
	}
	if eventID != 0 {
		for client := range h.clients[0] {
			client.Send(payload)
		}
	}
}

// Notify implements service.Notifier.
func (h *Hub) Notify(eventID int64, kind string, data any) {
	h.SendToEvent(eventID, mustJSON(WSMessage{Type: kind, EventID: eventID, Data: data}))
	h.log.Debug("live update", zap.Int64("event_id", eventID), zap.String("type", kind))
}

func (h *Hub) Subscribers(eventID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventID])
}
