// Package eventbus provides an in-process, typed publish/subscribe bus used
// to fan forecast grid points out to sinks and publishers.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the subscriber channel capacity used when none is given.
const DefaultBuffer = 64

type subscriber[T any] struct {
	ch       chan T
	quit     chan struct{}
	quitOnce sync.Once
}

func (s *subscriber[T]) stop() { s.quitOnce.Do(func() { close(s.quit) }) }

// TypedBus is a publish/subscribe bus for events of type T. Publish never
// blocks and drops events for subscribers whose buffer is full. PublishWait
// waits for buffer space instead.
type TypedBus[T any] struct {
	mu        sync.RWMutex
	subs      []*subscriber[T]
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
	buffer    int
	dropped   atomic.Int64
}

// NewTyped creates a TypedBus whose subscriber channels hold buffer events.
func NewTyped[T any](buffer int) *TypedBus[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &TypedBus[T]{buffer: buffer, done: make(chan struct{})}
}

// Publish sends e to every subscriber.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishWait sends e to every subscriber, waiting while a subscriber's
// buffer is full. A subscriber that leaves, or a bus that closes, while the
// send is pending is skipped. It returns ctx.Err() if ctx ends first.
func (b *TypedBus[T]) PublishWait(ctx context.Context, e T) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		case <-s.quit:
		case <-b.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Dropped returns the number of events discarded because a subscriber was
// not keeping up.
func (b *TypedBus[T]) Dropped() int64 { return b.dropped.Load() }

// Subscribe registers a subscriber. The channel is closed by Unsubscribe or
// Close.
func (b *TypedBus[T]) Subscribe() <-chan T {
	s := &subscriber[T]{ch: make(chan T, b.buffer), quit: make(chan struct{})}
	b.mu.Lock()
	if b.closed {
		close(s.ch)
	} else {
		b.subs = append(b.subs, s)
	}
	b.mu.Unlock()
	return s.ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.RLock()
	var found *subscriber[T]
	for _, s := range b.subs {
		if s.ch == sub {
			found = s
			break
		}
	}
	b.mu.RUnlock()
	if found == nil {
		return
	}
	// Release pending PublishWait calls before taking the write lock.
	found.stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == found {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Close closes the bus and all subscriber channels. It is idempotent.
func (b *TypedBus[T]) Close() {
	b.closeOnce.Do(func() { close(b.done) })
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}
