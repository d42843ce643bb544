package pubsub

import (
	"context"
	"sync"
)

const defaultBufferSize = 64

// Broker fans out events to subscribers without blocking publishers.
type Broker[T any] struct {
	mu        sync.RWMutex
	subs      map[chan Event[T]]struct{}
	done      chan struct{}
	bufferCap int
}

// NewBroker constructs a broker with the default buffer size.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer builds a broker using the provided channel buffer size.
func NewBrokerWithBuffer[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &Broker[T]{
		subs:      make(map[chan Event[T]]struct{}),
		done:      make(chan struct{}),
		bufferCap: buffer,
	}
}

// Shutdown closes the broker and all subscriber channels.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}

// Subscribe registers for future events. The returned channel closes when ctx
// is done or the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	ch := make(chan Event[T], b.bufferCap)
	b.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		close(ch)
	}()

	return ch
}

// Publish sends payload to all subscribers using best-effort delivery.
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	evt := Event[T]{Type: t, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// slow subscriber; drop rather than block the publisher
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
