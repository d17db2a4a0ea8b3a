// Package events provides a small generic pub/sub primitive used to fan
// runtime state changes out to UI listeners over channels.
package events

import (
	"sync"
)

// Feed broadcasts values of type T to subscribed channels.
//
// Sends are non-blocking: a subscriber whose channel is full misses that
// value. Subscribers are expected to buffer generously and treat every
// value as a full snapshot, so a dropped value is overwritten by the next
// one rather than lost state.
type Feed[T any] struct {
	mu         sync.RWMutex
	subs       map[uint64]chan<- T
	nextID     uint64
	replayLast bool
	last       T
	hasLast    bool
}

// NewFeed creates a Feed. When replayLast is true the most recently
// published value is delivered to each new subscriber immediately, so late
// subscribers start from the current snapshot instead of waiting for the
// next change.
func NewFeed[T any](replayLast bool) *Feed[T] {
	return &Feed[T]{
		subs:       make(map[uint64]chan<- T),
		replayLast: replayLast,
	}
}

// Subscribe registers ch to receive published values and returns a cancel
// function that removes the registration. Panics on a nil channel.
func (f *Feed[T]) Subscribe(ch chan<- T) func() {
	if ch == nil {
		panic("events: subscribe with nil channel")
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	replay := f.replayLast && f.hasLast
	last := f.last
	f.mu.Unlock()

	if replay {
		select {
		case ch <- last:
		default:
		}
	}

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Publish delivers v to every current subscriber without blocking. Full
// channels are skipped.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	if f.replayLast {
		f.last = v
		f.hasLast = true
	}
	targets := make([]chan<- T, 0, len(f.subs))
	for _, ch := range f.subs {
		targets = append(targets, ch)
	}
	f.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- v:
		default:
		}
	}
}

// SubscriberCount reports the number of registered subscribers.
func (f *Feed[T]) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
