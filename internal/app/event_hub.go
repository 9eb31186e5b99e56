package app

import (
	"sync"
	"time"

	"github.com/yourusername/flare-go/internal/domain"
)

const (
	subscriberBuffer       = 128
	terminalDeliverTimeout = time.Second
)

// EventHub fans download events out to any number of subscribers.
// A slow subscriber loses progress events but still gets the terminal one
// unless it stays blocked past terminalDeliverTimeout.
type EventHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan domain.ProgressEvent
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan domain.ProgressEvent)}
}

// Subscribe returns a channel of events and a function that ends the subscription
func (h *EventHub) Subscribe() (<-chan domain.ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan domain.ProgressEvent, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers an event to every subscriber without reordering
func (h *EventHub) Publish(event domain.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		if !event.Kind.IsTerminal() {
			select {
			case ch <- event:
			default:
			}
			continue
		}

		timer := time.NewTimer(terminalDeliverTimeout)
		select {
		case ch <- event:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Len returns the number of active subscribers
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
