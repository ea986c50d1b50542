// Package realtime pushes progress events to a learner's open pages.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ashureev/learnpath/internal/domain"
	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Hub fans progress events out to every subscription of a learner.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[string]chan []byte)}
}

// Subscribe registers a new subscription for userID. The returned cancel
// function unregisters it and closes the channel.
func (h *Hub) Subscribe(userID string) (string, <-chan []byte, func()) {
	id := uuid.NewString()
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.active[userID]; !ok {
		h.active[userID] = make(map[string]chan []byte)
	}
	h.active[userID][id] = ch
	h.mu.Unlock()
	slog.Debug("Progress stream registered", "user_id", userID, "stream_id", id)

	var once sync.Once
	return id, ch, func() {
		once.Do(func() { h.unsubscribe(userID, id) })
	}
}

func (h *Hub) unsubscribe(userID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.active[userID]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		close(ch)
		delete(subs, id)
	}
	if len(subs) == 0 {
		delete(h.active, userID)
	}
	slog.Debug("Progress stream unregistered", "user_id", userID, "stream_id", id)
}

// Publish delivers event to every subscription of userID. Slow subscribers
// drop events rather than block the caller.
func (h *Hub) Publish(userID string, event domain.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode progress event", "error", err, "user_id", userID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.active[userID] {
		select {
		case ch <- payload:
		default:
			slog.Warn("Progress stream full, dropping event", "user_id", userID, "stream_id", id, "type", event.Type)
		}
	}
}

// Count returns the number of open subscriptions for userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}

// CloseUser ends every subscription of userID.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.active[userID] {
		close(ch)
		delete(h.active[userID], id)
	}
	delete(h.active, userID)
}
