package channel

import (
	"encoding/json"
	"log/slog"
	"sync"

	"messaging/internal/domain"
	"messaging/internal/observability/metrics"
)

// Hub tracks every open channel connection, indexed by user. Routing is by
// recipient identity: an event reaches all of a user's live connections and
// nobody else's. Per-connection delivery order is preserved by each
// connection's single writer goroutine.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.UserID]map[*Conn]struct{}
	log   *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns: make(map[domain.UserID]map[*Conn]struct{}),
		log:   log,
	}
}

func (h *Hub) add(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.userID] == nil {
		h.conns[c.userID] = make(map[*Conn]struct{})
	}
	h.conns[c.userID][c] = struct{}{}
	metrics.ChannelConnectionsActive.Inc()
}

// remove takes the connection out of the routing table and signals its
// writer to shut down. c.send is never closed: DeliverToUser and the
// connection's own enqueue may still be sending concurrently, and a send
// into an unclosed buffered channel is always safe. Frames enqueued after
// removal are simply never drained.
func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.userID)
	}
	close(c.done)
	metrics.ChannelConnectionsActive.Dec()
}

// DeliverToUser routes an event to every live connection of one user and
// reports whether at least one connection accepted it. A connection whose
// send buffer is full is dropped rather than allowed to stall the rest.
func (h *Hub) DeliverToUser(userID domain.UserID, env Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("hub: marshal event", "error", err)
		return false
	}

	h.mu.RLock()
	set := h.conns[userID]
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := false
	for _, c := range targets {
		select {
		case c.send <- data:
			delivered = true
		default:
			// remove signals c.done; the connection's writer closes the
			// socket on its way out.
			h.log.Warn("hub: dropping slow connection", "user_id", userID)
			h.remove(c)
		}
	}
	if delivered {
		metrics.ChannelEventsTotal.WithLabelValues(env.Type).Inc()
	}
	return delivered
}

// Online reports whether the user has at least one live connection.
func (h *Hub) Online(userID domain.UserID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}
