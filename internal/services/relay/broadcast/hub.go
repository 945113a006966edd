// Package broadcast fans committed relay records out to in-process
// subscribers.
package broadcast

import (
	"log"
	"sync"

	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
)

// DefaultBuffer is the subscription buffer used when none is requested.
const DefaultBuffer = 64

// Subscription receives records published after it was created.
type Subscription struct {
	id uint64
	ch chan domain.Record
}

// Records returns the delivery channel. It is closed when the subscription
// ends, either by cancel or because the subscriber fell behind.
func (s *Subscription) Records() <-chan domain.Record {
	return s.ch
}

// Hub delivers each published record to every live subscription. Publish
// never blocks: a subscriber whose buffer is full is dropped.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a subscription and returns it with its cancel func.
func (h *Hub) Subscribe(buffer int) (*Subscription, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, ch: make(chan domain.Record, buffer)}
	if h.closed {
		close(sub.ch)
		return sub, func() {}
	}
	h.subs[sub.id] = sub
	return sub, func() { h.remove(sub.id) }
}

// Publish implements domain.Publisher.
func (h *Hub) Publish(record domain.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.ch <- record:
		default:
			log.Printf("broadcast: dropping subscriber %d at record %d", id, record.Seq)
			delete(h.subs, id)
			close(sub.ch)
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscriptions start closed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
}
