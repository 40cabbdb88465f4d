package app

import "sync"

// changeBroker fans change signals out to in-process subscribers.
// Signals coalesce: a subscriber that has not consumed the previous signal gets no second one.
type changeBroker struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// newChangeBroker constructs an empty broker.
func newChangeBroker() *changeBroker {
	return &changeBroker{subs: make(map[chan struct{}]struct{})}
}

// subscribe registers one signal channel.
func (b *changeBroker) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// unsubscribe removes one signal channel.
func (b *changeBroker) unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// notify signals every subscriber without blocking.
func (b *changeBroker) notify() {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// count returns the number of live subscribers.
func (b *changeBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
