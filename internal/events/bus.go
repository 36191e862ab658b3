// Package events is a small in-process pub/sub bus. The router and the
// scheduler publish lifecycle events; the websocket hub fans them out to
// dashboard clients.
package events

import (
	"sync"
	"time"
)

// Type names an event on the bus
type Type string

const (
	TypeAlertCreated          Type = "alert.created"
	TypeAlertUpdated          Type = "alert.updated"
	TypeAlertResolved         Type = "alert.resolved"
	TypeRecommendationCreated Type = "recommendation.created"
	TypeRecommendationUpdated Type = "recommendation.updated"
	TypeJobCompleted          Type = "job.completed"
	TypeJobFailed             Type = "job.failed"
)

// Event is one bus message. Payload must be JSON-serializable; subscribers
// forward it to websocket clients verbatim.
type Event struct {
	Type    Type        `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// that stops draining loses events rather than stalling the scheduler.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewBus creates a bus with the given per-subscriber buffer
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; it closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers reports the current listener count
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
