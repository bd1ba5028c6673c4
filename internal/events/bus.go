package events

import (
	"sync"
	"time"
)

const (
	BookingApproved       = "booking.approved"
	BookingCancelled      = "booking.cancelled"
	BookingForceCancelled = "booking.forceCancelled"
	EventPayoutCompleted  = "event.payoutCompleted"
)

type Event struct {
	Name       string
	EntityID   string
	OccurredAt time.Time
}

type Publisher interface {
	Publish(name, entityID string)
}

// Bus is an in-process fire-and-forget dispatcher. The monetary core does not
// know or care who listens; handlers run on their own goroutines and their
// failures never reach the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]func(Event))}
}

func (b *Bus) Subscribe(name string, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], fn)
}

func (b *Bus) Publish(name, entityID string) {
	event := Event{Name: name, EntityID: entityID, OccurredAt: time.Now().UTC()}
	b.mu.RLock()
	handlers := make([]func(Event), len(b.subs[name]))
	copy(handlers, b.subs[name])
	b.mu.RUnlock()
	for _, handler := range handlers {
		go handler(event)
	}
}
