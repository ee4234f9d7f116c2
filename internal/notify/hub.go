// Package notify fans document status transitions out to connected SSE
// clients. Delivery is best effort: there is no replay, and a subscriber that
// cannot keep up is dropped without affecting the rest.
package notify

import (
	"sync"
	"time"

	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
)

const (
	EventConnected      = "connected"
	EventHeartbeat      = "heartbeat"
	EventDocumentStatus = "document_status"
)

// StatusUpdate describes one document lifecycle transition.
type StatusUpdate struct {
	DocumentID string               `json:"documentId"`
	Status     model.DocumentStatus `json:"status"`
	Filename   string               `json:"filename,omitempty"`
	ChunkCount int                  `json:"chunkCount,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Event is what goes over the wire to a subscriber.
type Event struct {
	Type      string        `json:"type"`
	Data      *StatusUpdate `json:"data,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type subscriber struct {
	ch   chan Event
	stop chan struct{}
}

// Hub tracks subscribers and broadcasts status events to each of them over a
// dedicated buffered channel. Channel sends and closes are serialized by the
// hub mutex so a drop can never race a delivery.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	heartbeat   time.Duration
	log         *logger.Logger
}

func NewHub(log *logger.Logger, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		heartbeat:   heartbeat,
		log:         log,
	}
}

// Subscribe registers a client and returns its event channel. The first event
// delivered is always "connected". The channel is closed on Unsubscribe or
// when the client falls too far behind.
func (h *Hub) Subscribe(clientID string) <-chan Event {
	sub := &subscriber{
		ch:   make(chan Event, 16),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[clientID] = sub
	sub.ch <- Event{Type: EventConnected, Timestamp: time.Now()}
	total := len(h.subscribers)
	h.mu.Unlock()

	h.log.Info("sse client connected", "clientId", clientID, "totalClients", total)

	go h.runHeartbeat(clientID, sub)
	return sub.ch
}

// Unsubscribe removes the client and closes its channel.
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	removed := h.removeLocked(clientID)
	total := len(h.subscribers)
	h.mu.Unlock()

	if removed {
		h.log.Info("sse client disconnected", "clientId", clientID, "totalClients", total)
	}
}

// Publish broadcasts a status update to every current subscriber. A blocked
// subscriber is removed; the broadcast continues for the others.
func (h *Hub) Publish(update StatusUpdate) {
	event := Event{
		Type:      EventDocumentStatus,
		Data:      &update,
		Timestamp: time.Now(),
	}

	h.mu.Lock()
	clients := len(h.subscribers)
	var dropped []string
	for id, sub := range h.subscribers {
		select {
		case sub.ch <- event:
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		h.removeLocked(id)
	}
	h.mu.Unlock()

	h.log.Info("broadcasting document status", "documentId", update.DocumentID,
		"status", update.Status, "clients", clients)
	for _, id := range dropped {
		h.log.Warn("dropped slow sse client", "clientId", id)
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) removeLocked(clientID string) bool {
	sub, ok := h.subscribers[clientID]
	if !ok {
		return false
	}
	delete(h.subscribers, clientID)
	close(sub.stop)
	close(sub.ch)
	return true
}

func (h *Hub) runHeartbeat(clientID string, sub *subscriber) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-sub.stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			current, ok := h.subscribers[clientID]
			if !ok || current != sub {
				h.mu.Unlock()
				return
			}
			select {
			case sub.ch <- Event{Type: EventHeartbeat, Timestamp: time.Now()}:
				h.mu.Unlock()
			default:
				h.removeLocked(clientID)
				h.mu.Unlock()
				h.log.Warn("dropped unresponsive sse client", "clientId", clientID)
				return
			}
		}
	}
}
