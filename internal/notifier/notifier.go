// Package notifier delivers user-facing success/error/info notices raised on
// parse completion, submission state changes and corruption detection.
package notifier

import (
	"context"
	"sync"
	"time"
)

// Level classifies a user-facing notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Event is one user-facing notice. Validation problems are aggregated into a
// single multi-line message by the caller; every error produces exactly one
// event.
type Event struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier publishes events to whoever renders them. Delivery is best
// effort; publishing never fails the calling flow.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Bus is an in-process pub/sub Notifier. Slow subscribers drop events rather
// than blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan Event]struct{})}
}

func (b *Bus) Notify(_ context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Multi fans one event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// Nop discards every event. Constructors default to it so callers can omit
// a notifier.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
