// Package events fans settlement updates out to live subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-settlements/internal/models"
)

type Kind string

const (
	KindResolved Kind = "resolved"
	KindReset    Kind = "reset"
)

type Event struct {
	Kind       Kind               `json:"kind"`
	Settlement *models.Settlement `json:"settlement,omitempty"`
}

const subscriberBuffer = 64

type Broadcaster struct {
	subscribers map[uint64]chan Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Event),
	}
}

// Subscribe registers a listener. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (uint64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Broadcast(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// slow subscriber, drop
		}
	}
}

// Resolved is a shorthand for broadcasting a finished enrichment.
func (b *Broadcaster) Resolved(s models.Settlement) {
	b.Broadcast(Event{Kind: KindResolved, Settlement: &s})
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so streaming handlers return.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
