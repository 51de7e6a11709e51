// Package realtime fans out per-user events (new messages, read receipts) to
// connected SSE and WebSocket clients.
package realtime

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const DefaultBuffer = 32

// Event types pushed to clients.
const (
	EventMessage     = "message"
	EventMessageRead = "message_read"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscription receives events for one user until Close is called.
type Subscription struct {
	UserID int64
	C      <-chan Event

	ch   chan Event
	hub  *Hub
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

type Hub struct {
	mu      sync.RWMutex
	subs    map[int64]map[*Subscription]struct{}
	buffer  int
	closed  bool
	dropped atomic.Int64
	log     *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[int64]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

func (h *Hub) Subscribe(userID int64) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{UserID: userID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return sub
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("realtime subscribe", zap.Int64("user_id", userID))
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.UserID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.ch)
		}
		if len(set) == 0 {
			delete(h.subs, sub.UserID)
		}
	}
}

// Close ends every open subscription so streaming handlers return. Later
// subscriptions are born closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	n := 0
	for userID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
			n++
		}
		delete(h.subs, userID)
	}
	h.log.Info("realtime hub closed", zap.Int("subscriptions", n))
}

// Publish delivers ev to every subscription of userID without blocking.
// Subscribers whose buffer is full miss the event.
func (h *Hub) Publish(userID int64, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			h.dropped.Add(1)
			h.log.Warn("realtime event dropped",
				zap.Int64("user_id", userID),
				zap.String("type", ev.Type),
			)
		}
	}
	return delivered
}

func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }
