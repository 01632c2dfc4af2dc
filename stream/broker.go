package stream

import (
	"context"
	"sync"

	"kanban-board/kanban"
)

// Broker wakes every subscribed stream when the board changes. A subscriber
// that has not consumed its previous wake-up is not signalled again; it will
// read the latest board anyway.
type Broker struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}

	// last holds the flags of the previous state-only wake-up; it is
	// forgotten whenever tasks change.
	last     kanban.Change
	lastSeen bool
}

// NewBroker creates a Broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new listener.
func (b *Broker) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (b *Broker) Unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Subscribers returns the number of registered listeners.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Broadcast wakes every listener.
func (b *Broker) Broadcast() {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// Notify implements kanban.Notifier. A state change whose loading and error
// flags match the previous one changes nothing on screen and is not broadcast.
func (b *Broker) Notify(_ context.Context, ch kanban.Change) {
	b.mu.Lock()
	if ch.Kind == kanban.ChangeState {
		if b.lastSeen && b.last.Loading == ch.Loading && b.last.Error == ch.Error {
			b.mu.Unlock()
			return
		}
		b.last, b.lastSeen = ch, true
	} else {
		b.lastSeen = false
	}
	b.mu.Unlock()
	b.Broadcast()
}

// Fanout forwards a change to several notifiers in order.
type Fanout []kanban.Notifier

// Notify implements kanban.Notifier.
func (f Fanout) Notify(ctx context.Context, ch kanban.Change) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, ch)
		}
	}
}
