package services

import (
	"sync"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure NotificationHub implements the interface.
var _ driving.NotificationService = (*NotificationHub)(nil)

// NotificationHub fans out notifications to in-process subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the
// notification and a warning is logged.
type NotificationHub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan domain.Notification
	nextID uint64
}

// NewNotificationHub creates a hub with no subscribers.
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{subs: make(map[uint64]chan domain.Notification)}
}

// Publish delivers n to every subscriber without blocking.
func (h *NotificationHub) Publish(n domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			logger.Warn("Notification dropped for subscriber %d: %s", id, n.FileName)
		}
	}
}

// Subscribe registers a subscriber with the given buffer size.
// The cancel function unsubscribes and closes the channel; it is idempotent.
func (h *NotificationHub) Subscribe(buffer int) (<-chan domain.Notification, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan domain.Notification, buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (h *NotificationHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
