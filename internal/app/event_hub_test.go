package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/flare-go/internal/domain"
)

func progress(p float64) domain.ProgressEvent {
	return domain.ProgressEvent{Kind: domain.EventProgress, Percent: &p}
}

func TestEventHub_FanOut(t *testing.T) {
	hub := NewEventHub()
	a, unsubA := hub.Subscribe()
	b, unsubB := hub.Subscribe()
	defer unsubA()
	defer unsubB()
	assert.Equal(t, 2, hub.Len())

	hub.Publish(progress(10))
	hub.Publish(domain.ProgressEvent{Kind: domain.EventFinished})

	for _, ch := range []<-chan domain.ProgressEvent{a, b} {
		first := <-ch
		assert.Equal(t, 10.0, *first.Percent)
		assert.Equal(t, domain.EventFinished, (<-ch).Kind)
	}
}

func TestEventHub_SlowSubscriberKeepsOrderAndTerminal(t *testing.T) {
	hub := NewEventHub()
	ch, unsub := hub.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer+50; i++ {
		hub.Publish(progress(float64(i) / 10))
	}

	// Drain in another goroutine so the terminal event gets through
	received := make(chan []domain.ProgressEvent)
	go func() {
		var events []domain.ProgressEvent
		for e := range ch {
			events = append(events, e)
			if e.Kind.IsTerminal() {
				break
			}
		}
		received <- events
	}()
	hub.Publish(domain.ProgressEvent{Kind: domain.EventCancelled})

	events := <-received
	assert.Len(t, events, subscriberBuffer+1)
	assert.Equal(t, domain.EventCancelled, events[len(events)-1].Kind)
	for i := 1; i < len(events)-1; i++ {
		assert.Greater(t, *events[i].Percent, *events[i-1].Percent)
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub()
	ch, unsub := hub.Subscribe()
	unsub()
	unsub()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Len())

	hub.Publish(progress(1))
}
