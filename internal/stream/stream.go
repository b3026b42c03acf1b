// Package stream provides an in-process fan-out hub used to push committed
// audit entries to active viewers (SSE clients).
package stream

import (
	"context"
	"sync"
)

// Hub fan-outs events to all active subscribers. Delivery is best-effort:
// a subscriber that cannot keep up is skipped rather than blocking the
// publisher, so consumers must treat delivery as at-least-once and
// deduplicate on the event id if exactness matters.
type Hub[T any] struct {
	mu   sync.RWMutex
	subs map[int]chan T
	next int
}

// NewHub initialises an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 16)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (h *Hub[T]) Publish(evt T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
