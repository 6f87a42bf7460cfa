// Package events carries store change notifications to interested consumers.
package events

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	UserCreated Kind = "user.created"
	UserUpdated Kind = "user.updated"
	TaskCreated Kind = "task.created"
	TaskUpdated Kind = "task.updated"
	TaskDeleted Kind = "task.deleted"
)

// Event reports a successful write to the entity store.
type Event struct {
	Kind       Kind      `json:"kind"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Origin     string    `json:"origin,omitempty"`
}

// Notifier publishes store change events.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// Broker is an in-process Notifier that fans events out to subscribers.
// Slow subscribers drop events instead of blocking writers; any event is
// enough to trigger a full refetch.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Publish delivers event to every subscriber without blocking.
func (b *Broker) Publish(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel of events and a function that closes it.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Fanout publishes each event to every wrapped Notifier.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, event Event) {
	for _, n := range f {
		if n != nil {
			n.Publish(ctx, event)
		}
	}
}
